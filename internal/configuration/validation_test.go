package configuration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Configuration {
	return Configuration{
		TargetTemperature: 60,
		Interval:          2 * time.Second,
		MinFanSpeed:       10,
		MaxFanSpeed:       100,
		StartFanSpeed:     StartSpeed{Auto: true},
		Kp:                0.5,
		Ki:                0.45,
		Kd:                0.6,
		Gamma:             0.95,
		Alpha:             1.0,
		ErrorClamp:        Unbounded(),
		IntegralClamp:     Unbounded(),
		CommandTimeout:    2 * time.Second,
	}
}

func TestValidateValidConfig(t *testing.T) {
	// GIVEN
	config := validConfig()

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.NoError(t, err)
}

func TestValidateFanSpeedBoundsSwapped(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.MinFanSpeed = 100
	config.MaxFanSpeed = 10

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestValidateErrorClampSwapped(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.ErrorClamp = Clamp{Min: 10, Max: -10}

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestValidateIntegralClampSwapped(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.IntegralClamp = Clamp{Min: 50, Max: -50}

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestValidateGammaOutOfRange(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.Gamma = 1.5

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestValidateAlphaOutOfRange(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.Alpha = -0.1

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestValidateNonPositiveInterval(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.Interval = 0

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestValidateStartFanSpeedOutsideBounds(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.StartFanSpeed = StartSpeed{Value: 150}

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestValidateStatisticsPortOutOfRange(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.Statistics = StatisticsConfig{Enabled: true, Port: 0}

	// WHEN
	err := validateConfig(&config)

	// THEN
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestValidatePortBounds(t *testing.T) {
	// GIVEN
	config := validConfig()
	config.Api = ApiConfig{Enabled: true, Port: 65535}

	// WHEN
	err := validateConfig(&config)

	// THEN
	// 65535 is the highest valid port
	assert.NoError(t, err)

	// WHEN
	config.Api.Port = 65536
	err = validateConfig(&config)

	// THEN
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestValidateLogLevel(t *testing.T) {
	// GIVEN
	valid := []string{"debug", "info", "warning"}
	invalid := []string{"", "trace", "INFO "}

	for _, level := range valid {
		// WHEN
		err := ValidateLogLevel(level)

		// THEN
		assert.NoError(t, err, "level: %s", level)
	}

	for _, level := range invalid {
		// WHEN
		err := ValidateLogLevel(level)

		// THEN
		assert.ErrorIs(t, err, ErrInvalidConfiguration, "level: %s", level)
	}
}
