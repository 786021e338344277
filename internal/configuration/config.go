package configuration

import (
	"errors"
	"math"
	"os"
	"time"

	"github.com/gpufanctl/gpufanctl/internal/ui"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ErrInvalidConfiguration is wrapped by all configuration validation errors,
// including controller construction errors.
var ErrInvalidConfiguration = errors.New("invalid configuration")

type StatisticsConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

type ApiConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

type Configuration struct {
	// target GPU temperature in degrees celsius
	TargetTemperature float64 `json:"targetTemperature"`
	// time between two control loop iterations
	Interval time.Duration `json:"interval"`

	MinFanSpeed   float64    `json:"minFanSpeed"`
	MaxFanSpeed   float64    `json:"maxFanSpeed"`
	StartFanSpeed StartSpeed `json:"startFanSpeed"`
	Reverse       bool       `json:"reverse"`

	Kp    float64 `json:"kp"`
	Ki    float64 `json:"ki"`
	Kd    float64 `json:"kd"`
	Gamma float64 `json:"gamma"`
	Alpha float64 `json:"alpha"`

	ErrorClamp    Clamp `json:"errorClamp"`
	IntegralClamp Clamp `json:"integralClamp"`

	CommandTimeout time.Duration `json:"commandTimeout"`
	DbPath         string        `json:"dbPath"`

	Statistics StatisticsConfig `json:"statistics"`
	Api        ApiConfig        `json:"api"`
}

// ControllerConfig is the fixed, per-GPU configuration of a fan speed controller.
type ControllerConfig struct {
	Target      float64
	MinOutput   float64
	MaxOutput   float64
	StartOutput float64
	Reverse     bool

	Kp    float64
	Ki    float64
	Kd    float64
	Gamma float64
	Alpha float64

	ErrorClamp    Clamp
	IntegralClamp Clamp
}

var CurrentConfig Configuration

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	viper.SetConfigName("gpufanctl")

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			ui.Error("Couldn't detect home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.AddConfigPath("/etc/gpufanctl/")
	}

	viper.AutomaticEnv() // read in environment variables that match

	setDefaultValues()
}

func setDefaultValues() {
	viper.SetDefault("TargetTemperature", 60.0)
	viper.SetDefault("Interval", 2*time.Second)

	viper.SetDefault("MinFanSpeed", 10.0)
	viper.SetDefault("MaxFanSpeed", 100.0)
	viper.SetDefault("StartFanSpeed", "auto")
	viper.SetDefault("Reverse", false)

	viper.SetDefault("Kp", 0.5)
	viper.SetDefault("Ki", 0.45)
	viper.SetDefault("Kd", 0.6)
	viper.SetDefault("Gamma", 0.95)
	viper.SetDefault("Alpha", 1.0)

	viper.SetDefault("ErrorClamp.Min", math.Inf(-1))
	viper.SetDefault("ErrorClamp.Max", math.Inf(1))
	viper.SetDefault("IntegralClamp.Min", math.Inf(-1))
	viper.SetDefault("IntegralClamp.Max", math.Inf(1))

	viper.SetDefault("CommandTimeout", 2*time.Second)
	viper.SetDefault("DbPath", "/etc/gpufanctl/gpufanctl.db")

	viper.SetDefault("Statistics.Enabled", false)
	viper.SetDefault("Statistics.Port", 9000)
	viper.SetDefault("Api.Enabled", false)
	viper.SetDefault("Api.Port", 9001)
}

// ReadConfigFile reads the detected config file, if any. Running without a
// config file is fine, all values have defaults and can be set via flags.
func ReadConfigFile() {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			ui.Debug("No config file found, using defaults")
		} else {
			ui.Fatal("Error reading config file, %s", err)
		}
	} else {
		// this is only populated _after_ ReadInConfig()
		ui.Info("Using configuration file at: %s", viper.ConfigFileUsed())
	}

	LoadConfig()
}

// LoadConfig decodes the viper state into CurrentConfig.
func LoadConfig() {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			clampHookFunc(),
			startSpeedHookFunc(),
		),
		Result: &CurrentConfig,
	})
	if err != nil {
		ui.Fatal("unable to create config decoder, %v", err)
	}

	err = decoder.Decode(viper.AllSettings())
	if err != nil {
		ui.Fatal("unable to decode into struct, %v", err)
	}
}

// ControllerConfigFor derives the fixed controller configuration for a single
// GPU. startOutput is used when StartFanSpeed is set to "auto" and is usually
// the fan speed measured at startup.
func (c Configuration) ControllerConfigFor(startOutput float64) ControllerConfig {
	if !c.StartFanSpeed.Auto {
		startOutput = c.StartFanSpeed.Value
	}
	return ControllerConfig{
		Target:        c.TargetTemperature,
		MinOutput:     c.MinFanSpeed,
		MaxOutput:     c.MaxFanSpeed,
		StartOutput:   startOutput,
		Reverse:       c.Reverse,
		Kp:            c.Kp,
		Ki:            c.Ki,
		Kd:            c.Kd,
		Gamma:         c.Gamma,
		Alpha:         c.Alpha,
		ErrorClamp:    c.ErrorClamp,
		IntegralClamp: c.IntegralClamp,
	}
}
