package control

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/asecurityteam/rolling"
	"github.com/gpufanctl/gpufanctl/internal/configuration"
	"github.com/gpufanctl/gpufanctl/internal/nvidia"
	"github.com/gpufanctl/gpufanctl/internal/persistence"
	"github.com/gpufanctl/gpufanctl/internal/ui"
	"github.com/gpufanctl/gpufanctl/internal/util"
)

// ErrNoGPUsDetected is returned when the initial sensor read yields no GPUs.
// This is fatal, there is nothing to control.
var ErrNoGPUsDetected = errors.New("no GPUs detected")

const tempRollingWindowSize = 10

// Loop drives the controller registry on a fixed wall-clock cadence.
// It is strictly sequential: one iteration at a time, every gateway call
// blocks the loop for its full duration.
type Loop struct {
	gateway     nvidia.Gateway
	config      configuration.Configuration
	persistence persistence.Persistence

	registry    *Registry
	tempWindows map[int]*rolling.PointPolicy
}

// NewLoop creates a control loop. persistence may be nil to disable
// measurement recording.
func NewLoop(gateway nvidia.Gateway, config configuration.Configuration, persistence persistence.Persistence) *Loop {
	return &Loop{
		gateway:     gateway,
		config:      config,
		persistence: persistence,
		tempWindows: map[int]*rolling.PointPolicy{},
	}
}

// Run seeds the registry from an initial sensor read, acquires manual fan
// control and iterates until ctx is cancelled or a gateway call fails.
// Manual fan control is released on every exit path.
func (l *Loop) Run(ctx context.Context) error {
	measurements, err := l.gateway.ReadAll()
	if err != nil {
		return err
	}
	if len(measurements) == 0 {
		return ErrNoGPUsDetected
	}

	l.registry, err = NewRegistry(measurements, l.config)
	if err != nil {
		return err
	}
	for _, m := range measurements {
		ui.Info("Controlling GPU %d (temperature: %d°C, fan speed: %d%%)",
			m.Index, m.Temperature, m.FanSpeed)
	}

	ui.Debug("Enabling manual gpu fan control")
	if err = l.gateway.SetOverrideMode(true); err != nil {
		return err
	}
	defer func() {
		ui.Debug("Disabling manual gpu fan control")
		if err := l.gateway.SetOverrideMode(false); err != nil {
			ui.Warning("Failed to release manual gpu fan control: %v", err)
		}
	}()

	ui.Info("Starting control loop for %d GPU(s), target temperature: %v°C",
		l.registry.Size(), l.config.TargetTemperature)

	tick := time.Tick(l.config.Interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			if err = l.iterate(); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) iterate() error {
	measurements, err := l.gateway.ReadAll()
	if err != nil {
		return err
	}

	for _, m := range measurements {
		controller, ok := l.registry.Get(m.Index)
		if !ok {
			// GPUs that were absent at startup are not tracked
			ui.Debug("Ignoring untracked GPU %d", m.Index)
			continue
		}

		target := int(math.Round(controller.Update(float64(m.Temperature))))

		// read the authoritative current setting instead of reusing the
		// batch read, it may have been changed by a third party
		current, err := l.gateway.ReadFanSpeed(m.Index)
		if err != nil {
			return err
		}

		if target != current {
			ui.Info("Setting fan speed of GPU %d: %d%% -> %d%%", m.Index, current, target)
			if err = l.gateway.WriteFanSpeed(m.Index, target); err != nil {
				return err
			}
		}

		l.publishSnapshot(m, controller, target)
		l.recordMeasurement(m, target)
	}

	return nil
}

func (l *Loop) publishSnapshot(m nvidia.Measurement, controller *Controller, target int) {
	window, ok := l.tempWindows[m.Index]
	if !ok {
		window = util.CreateRollingWindow(tempRollingWindowSize)
		l.tempWindows[m.Index] = window
	}
	window.Append(float64(m.Temperature))

	SnapshotMap.Set(SnapshotKey(m.Index), GpuSnapshot{
		Index:          m.Index,
		Temperature:    m.Temperature,
		AvgTemperature: window.Reduce(rolling.Avg),
		FanSpeed:       target,
		Controller:     controller.GetState(),
	})
}

func (l *Loop) recordMeasurement(m nvidia.Measurement, target int) {
	if l.persistence == nil {
		return
	}
	err := l.persistence.SaveMeasurement(m.Index, persistence.Measurement{
		Time:        time.Now(),
		Temperature: m.Temperature,
		FanSpeed:    m.FanSpeed,
		Output:      target,
	})
	if err != nil {
		ui.Warning("Failed to record measurement of GPU %d: %v", m.Index, err)
	}
}
