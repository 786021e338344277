package nvidia

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/gpufanctl/gpufanctl/internal/ui"
	"github.com/gpufanctl/gpufanctl/internal/util"
)

// ErrGatewayCommand is wrapped by all errors caused by a failing or
// unparseable external tool invocation.
var ErrGatewayCommand = errors.New("gateway command failed")

// Measurement is one row of the nvidia-smi batch query.
type Measurement struct {
	// GPU index as reported by the driver
	Index int `json:"index"`
	// core temperature in degrees celsius
	Temperature int `json:"temperature"`
	// fan speed in percent
	FanSpeed int `json:"fanSpeed"`
}

// Gateway reads GPU sensors and controls GPU fans by invoking the vendor
// command line tools. Every call blocks for the full duration of the
// external process.
type Gateway interface {
	// ReadAll returns one measurement per GPU. An empty result is valid
	// and means no GPUs were detected.
	ReadAll() ([]Measurement, error)

	// ReadFanSpeed returns the current fan speed setting of one GPU in percent.
	ReadFanSpeed(index int) (int, error)

	// WriteFanSpeed sets the fan speed of one GPU in percent.
	WriteFanSpeed(index int, speed int) error

	// SetOverrideMode enables or disables manual fan control for all GPUs.
	SetOverrideMode(enabled bool) error
}

var measurementRegex = regexp.MustCompile(`(\d+), (\d+), (\d+) %`)

type smiGateway struct {
	timeout time.Duration
}

// NewGateway returns a Gateway backed by nvidia-smi and nvidia-settings.
func NewGateway(timeout time.Duration) Gateway {
	return &smiGateway{timeout: timeout}
}

func (g *smiGateway) ReadAll() ([]Measurement, error) {
	output, err := util.SafeCmdExecution("nvidia-smi",
		[]string{"--query-gpu=index,temperature.gpu,fan.speed", "--format=csv,noheader"},
		g.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: nvidia-smi: %s", ErrGatewayCommand, err)
	}
	return ParseMeasurements(output)
}

func (g *smiGateway) ReadFanSpeed(index int) (int, error) {
	query := fmt.Sprintf("[fan-%d]/GPUTargetFanSpeed", index)
	output, err := util.SafeCmdExecution("nvidia-settings",
		[]string{"--query", query, "--terse"},
		g.timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: nvidia-settings: %s", ErrGatewayCommand, err)
	}
	ui.Debug("Current fan speed setting: %s=%s", query, output)

	speed, err := strconv.Atoi(output)
	if err != nil {
		return 0, fmt.Errorf("%w: unexpected nvidia-settings output %q: %s", ErrGatewayCommand, output, err)
	}
	return speed, nil
}

func (g *smiGateway) WriteFanSpeed(index int, speed int) error {
	assignment := fmt.Sprintf("[fan-%d]/GPUTargetFanSpeed=%d", index, speed)
	_, err := util.SafeCmdExecution("nvidia-settings",
		[]string{"--assign", assignment},
		g.timeout)
	if err != nil {
		return fmt.Errorf("%w: nvidia-settings: %s", ErrGatewayCommand, err)
	}
	return nil
}

func (g *smiGateway) SetOverrideMode(enabled bool) error {
	state := 0
	if enabled {
		state = 1
	}
	ui.Debug("Setting manual gpu fan control: %d", state)
	_, err := util.SafeCmdExecution("nvidia-settings",
		[]string{"--assign", fmt.Sprintf("GPUFanControlState=%d", state)},
		g.timeout)
	if err != nil {
		return fmt.Errorf("%w: nvidia-settings: %s", ErrGatewayCommand, err)
	}
	return nil
}

// ParseMeasurements parses the tabular output of the nvidia-smi batch query.
// Lines that do not match the expected format are ignored, a fully empty
// result is returned as an empty slice, not an error.
func ParseMeasurements(output string) ([]Measurement, error) {
	matches := measurementRegex.FindAllStringSubmatch(output, -1)

	measurements := make([]Measurement, 0, len(matches))
	for _, match := range matches {
		index, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("%w: cannot parse GPU index %q", ErrGatewayCommand, match[1])
		}
		temperature, err := strconv.Atoi(match[2])
		if err != nil {
			return nil, fmt.Errorf("%w: cannot parse temperature %q", ErrGatewayCommand, match[2])
		}
		fanSpeed, err := strconv.Atoi(match[3])
		if err != nil {
			return nil, fmt.Errorf("%w: cannot parse fan speed %q", ErrGatewayCommand, match[3])
		}
		measurements = append(measurements, Measurement{
			Index:       index,
			Temperature: temperature,
			FanSpeed:    fanSpeed,
		})
	}

	return measurements, nil
}
