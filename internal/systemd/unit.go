package systemd

import (
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/natefinch/atomic"
)

const unitTemplate = `[Unit]
Description=GPU Fan Controller

[Service]
Type=simple
User={{.User}}
Group={{.User}}
Environment=DISPLAY={{.Display}}
Environment=XAUTHORITY={{.Xauthority}}
ExecStart={{.Executable}} --target-temperature {{.TargetTemperature}} --interval {{.Interval}}
Restart=always
RestartSec=10

[Install]
WantedBy=multi-user.target
`

// UnitConfig holds the values rendered into the systemd unit file.
type UnitConfig struct {
	User              string
	Display           string
	Xauthority        string
	Executable        string
	TargetTemperature float64
	Interval          time.Duration
}

// UnitConfigFromEnvironment fills a UnitConfig from the current process
// environment. nvidia-settings needs access to the X display, so DISPLAY and
// XAUTHORITY are baked into the unit.
func UnitConfigFromEnvironment(targetTemperature float64, interval time.Duration) (UnitConfig, error) {
	executable, err := os.Executable()
	if err != nil {
		return UnitConfig{}, err
	}

	user := os.Getenv("USER")
	if user == "" {
		return UnitConfig{}, fmt.Errorf("environment variable USER is not set")
	}

	return UnitConfig{
		User:              user,
		Display:           os.Getenv("DISPLAY"),
		Xauthority:        os.Getenv("XAUTHORITY"),
		Executable:        executable,
		TargetTemperature: targetTemperature,
		Interval:          interval,
	}, nil
}

// RenderUnit renders the systemd service unit for the given config.
func RenderUnit(config UnitConfig) (string, error) {
	tmpl, err := template.New("unit").Parse(unitTemplate)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	if err = tmpl.Execute(&builder, config); err != nil {
		return "", err
	}
	return builder.String(), nil
}

// WriteUnitFile atomically writes the rendered unit to the given path.
func WriteUnitFile(path string, content string) error {
	return atomic.WriteFile(path, strings.NewReader(content))
}
