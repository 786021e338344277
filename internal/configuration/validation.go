package configuration

import (
	"fmt"

	"golang.org/x/exp/slices"
)

var validLogLevels = []string{"debug", "info", "warning"}

func Validate() error {
	return validateConfig(&CurrentConfig)
}

func validateConfig(config *Configuration) error {
	if config.MinFanSpeed > config.MaxFanSpeed {
		return fmt.Errorf("%w: minFanSpeed (%v) must not be greater than maxFanSpeed (%v)",
			ErrInvalidConfiguration, config.MinFanSpeed, config.MaxFanSpeed)
	}
	if config.ErrorClamp.Min > config.ErrorClamp.Max {
		return fmt.Errorf("%w: errorClamp min (%v) must not be greater than max (%v)",
			ErrInvalidConfiguration, config.ErrorClamp.Min, config.ErrorClamp.Max)
	}
	if config.IntegralClamp.Min > config.IntegralClamp.Max {
		return fmt.Errorf("%w: integralClamp min (%v) must not be greater than max (%v)",
			ErrInvalidConfiguration, config.IntegralClamp.Min, config.IntegralClamp.Max)
	}
	if config.Gamma < 0 || config.Gamma > 1 {
		return fmt.Errorf("%w: gamma (%v) must be in [0, 1]", ErrInvalidConfiguration, config.Gamma)
	}
	if config.Alpha < 0 || config.Alpha > 1 {
		return fmt.Errorf("%w: alpha (%v) must be in [0, 1]", ErrInvalidConfiguration, config.Alpha)
	}
	if config.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfiguration)
	}
	if config.CommandTimeout <= 0 {
		return fmt.Errorf("%w: commandTimeout must be positive", ErrInvalidConfiguration)
	}
	if !config.StartFanSpeed.Auto {
		value := config.StartFanSpeed.Value
		if value < config.MinFanSpeed || value > config.MaxFanSpeed {
			return fmt.Errorf("%w: startFanSpeed (%v) must be within [%v, %v]",
				ErrInvalidConfiguration, value, config.MinFanSpeed, config.MaxFanSpeed)
		}
	}
	if config.Statistics.Enabled {
		if err := validatePort(config.Statistics.Port, "statistics"); err != nil {
			return err
		}
	}
	if config.Api.Enabled {
		if err := validatePort(config.Api.Port, "api"); err != nil {
			return err
		}
	}

	return nil
}

func validatePort(port int, name string) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: %s port (%d) is out of range", ErrInvalidConfiguration, name, port)
	}
	return nil
}

// ValidateLogLevel checks log level strings given on the command line.
func ValidateLogLevel(level string) error {
	if !slices.Contains(validLogLevels, level) {
		return fmt.Errorf("%w: unsupported log level '%s', use one of: debug | info | warning",
			ErrInvalidConfiguration, level)
	}
	return nil
}
