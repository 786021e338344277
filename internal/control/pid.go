package control

import (
	"fmt"
	"math"

	"github.com/gpufanctl/gpufanctl/internal/configuration"
	"github.com/gpufanctl/gpufanctl/internal/util"
)

// Controller is an adaptive PID controller for a single GPU fan.
//
// It is a pure state machine: one Update call per sample, no internal
// threading. The integral term is a discounted running sum (gamma < 1 decays
// old contributions geometrically) and the proportional term operates on an
// exponentially smoothed error (alpha blends the current error into the
// smoothed history). State is only committed when the clamped output would
// actually change, which freezes the integral and derivative memories while
// the fan sits saturated at a bound.
type Controller struct {
	config configuration.ControllerConfig

	// last output value
	u float64
	// smoothed error of the last committed update
	ePrev float64
	// discounted accumulated error
	eTotal float64
}

// Snapshot is a read-only view of the controller state for diagnostics.
type Snapshot struct {
	Target        float64 `json:"target"`
	Output        float64 `json:"output"`
	SmoothedError float64 `json:"smoothedError"`
	ErrorTotal    float64 `json:"errorTotal"`
}

// NewController validates the given configuration and returns a controller in
// its initial state. A NaN StartOutput selects the midpoint of the output
// bounds; any other value is coerced into them.
func NewController(config configuration.ControllerConfig) (*Controller, error) {
	if config.MinOutput > config.MaxOutput {
		return nil, fmt.Errorf("%w: min output (%v) must not be greater than max output (%v)",
			configuration.ErrInvalidConfiguration, config.MinOutput, config.MaxOutput)
	}
	if config.ErrorClamp.Min > config.ErrorClamp.Max {
		return nil, fmt.Errorf("%w: error clamp min (%v) must not be greater than max (%v)",
			configuration.ErrInvalidConfiguration, config.ErrorClamp.Min, config.ErrorClamp.Max)
	}
	if config.IntegralClamp.Min > config.IntegralClamp.Max {
		return nil, fmt.Errorf("%w: integral clamp min (%v) must not be greater than max (%v)",
			configuration.ErrInvalidConfiguration, config.IntegralClamp.Min, config.IntegralClamp.Max)
	}
	if config.Gamma < 0 || config.Gamma > 1 {
		return nil, fmt.Errorf("%w: gamma (%v) must be in [0, 1]",
			configuration.ErrInvalidConfiguration, config.Gamma)
	}
	if config.Alpha < 0 || config.Alpha > 1 {
		return nil, fmt.Errorf("%w: alpha (%v) must be in [0, 1]",
			configuration.ErrInvalidConfiguration, config.Alpha)
	}

	if math.IsNaN(config.StartOutput) {
		config.StartOutput = (config.MinOutput + config.MaxOutput) / 2
	}
	config.StartOutput = util.Coerce(config.StartOutput, config.MinOutput, config.MaxOutput)

	c := &Controller{config: config}
	c.resetState()
	return c, nil
}

func (c *Controller) resetState() {
	c.u = c.config.StartOutput
	c.ePrev = 0
	c.eTotal = 0
}

// SetTarget replaces the target temperature and resets the controller state
// to its initial values. All accumulated history is discarded, so switching
// targets causes a transient.
func (c *Controller) SetTarget(target float64) {
	c.config.Target = target
	c.resetState()
}

// Update advances the controller by one sample and returns the new fan speed.
// The returned value is always within the configured output bounds.
func (c *Controller) Update(observed float64) float64 {
	e := c.config.ErrorClamp.Apply(observed - c.config.Target)
	if c.config.Reverse {
		e = -e
	}

	eSmooth := c.config.Alpha*e + (1-c.config.Alpha)*c.ePrev

	// PID terms (proportional, integral, derivative)
	p := eSmooth
	i := e + c.config.Gamma*c.eTotal
	d := e - c.ePrev

	u := util.Coerce(c.config.Kp*p+c.config.Ki*i+c.config.Kd*d, c.config.MinOutput, c.config.MaxOutput)

	// only commit state if the output actually changes. While the fan is
	// saturated and the error keeps pushing in the same direction this
	// freezes eTotal and ePrev instead of winding them up further.
	if u != c.u {
		c.u = u
		c.eTotal = c.config.IntegralClamp.Apply(i)
		c.ePrev = eSmooth
	}

	return c.u
}

// GetState returns a snapshot of the current controller state.
func (c *Controller) GetState() Snapshot {
	return Snapshot{
		Target:        c.config.Target,
		Output:        c.u,
		SmoothedError: c.ePrev,
		ErrorTotal:    c.eTotal,
	}
}
