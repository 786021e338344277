package control

import (
	"github.com/gpufanctl/gpufanctl/internal/configuration"
	"github.com/gpufanctl/gpufanctl/internal/nvidia"
)

// Registry holds one controller per GPU that was present at startup.
// It is created once from the initial sensor snapshot and never resized:
// GPUs appearing later are not tracked, absent ones are not removed.
type Registry struct {
	controllers map[int]*Controller
}

// NewRegistry creates one controller per measured GPU, seeding each
// controller's start output with the fan speed measured at startup.
func NewRegistry(measurements []nvidia.Measurement, config configuration.Configuration) (*Registry, error) {
	controllers := make(map[int]*Controller, len(measurements))
	for _, m := range measurements {
		controller, err := NewController(config.ControllerConfigFor(float64(m.FanSpeed)))
		if err != nil {
			return nil, err
		}
		controllers[m.Index] = controller
	}
	return &Registry{controllers: controllers}, nil
}

// Get returns the controller for the given GPU index, if one exists.
func (r *Registry) Get(index int) (*Controller, bool) {
	controller, ok := r.controllers[index]
	return controller, ok
}

// Size returns the number of tracked GPUs.
func (r *Registry) Size() int {
	return len(r.controllers)
}
