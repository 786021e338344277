package cmd

import (
	"github.com/gpufanctl/gpufanctl/internal/configuration"
	"github.com/gpufanctl/gpufanctl/internal/systemd"
	"github.com/gpufanctl/gpufanctl/internal/ui"
	"github.com/spf13/cobra"
)

var serviceOutput string

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Generate a systemd service unit for gpufanctl",
	Long: `Generates a systemd unit that runs gpufanctl with the current
configuration. The unit embeds DISPLAY and XAUTHORITY of the calling user,
since nvidia-settings needs access to the X server.`,
	Run: func(cmd *cobra.Command, args []string) {
		setupUi()

		configuration.ReadConfigFile()
		if err := configuration.Validate(); err != nil {
			ui.Fatal("Config validation error: %v", err)
		}
		config := configuration.CurrentConfig

		unitConfig, err := systemd.UnitConfigFromEnvironment(config.TargetTemperature, config.Interval)
		if err != nil {
			ui.Fatal("Cannot determine unit parameters: %v", err)
		}

		content, err := systemd.RenderUnit(unitConfig)
		if err != nil {
			ui.Fatal("Cannot render unit file: %v", err)
		}

		if err = systemd.WriteUnitFile(serviceOutput, content); err != nil {
			ui.Fatal("Cannot write unit file to %s: %v", serviceOutput, err)
		}

		ui.Info("Wrote unit file to %s", serviceOutput)
		ui.Printfln("To install it, run:")
		ui.Printfln("  sudo mv %s /etc/systemd/system/", serviceOutput)
		ui.Printfln("  sudo systemctl enable --now gpufanctl")
	},
}

func init() {
	serviceCmd.Flags().StringVarP(&serviceOutput, "output", "o", "gpufanctl.service", "Path to write the unit file to")
	rootCmd.AddCommand(serviceCmd)
}
