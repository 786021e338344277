package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/gpufanctl/gpufanctl/cmd/global"
	"github.com/gpufanctl/gpufanctl/internal"
	"github.com/gpufanctl/gpufanctl/internal/configuration"
	"github.com/gpufanctl/gpufanctl/internal/ui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gpufanctl",
	Short: "A daemon to control the fans of nvidia GPUs.",
	Long: `gpufanctl is a simple daemon that keeps your nvidia GPUs near a
target temperature by continuously adjusting their fan speed.`,
	// this is the default command to run when no subcommand is specified
	Run: func(cmd *cobra.Command, args []string) {
		setupUi()
		printHeader()

		configuration.ReadConfigFile()
		if err := configuration.Validate(); err != nil {
			ui.Fatal("Config validation error: %v", err)
		}

		internal.RunDaemon()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&global.CfgFile, "config", "c", "", "config file (default is $HOME/gpufanctl.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&global.NoColor, "no-color", "", false, "Disable all terminal output coloration")
	rootCmd.PersistentFlags().BoolVarP(&global.NoStyle, "no-style", "", false, "Disable all terminal output styling")
	rootCmd.PersistentFlags().BoolVarP(&global.Verbose, "verbose", "v", false, "More verbose output")
	rootCmd.PersistentFlags().StringVarP(&global.LogLevel, "log-level", "l", "info", "Log verbosity: debug | info | warning")

	rootCmd.PersistentFlags().Float64P("target-temperature", "t", 60, "Target GPU temperature in degrees celsius")
	rootCmd.PersistentFlags().DurationP("interval", "i", 0, "Time between two control loop iterations")

	_ = viper.BindPFlag("TargetTemperature", rootCmd.PersistentFlags().Lookup("target-temperature"))
	_ = viper.BindPFlag("Interval", rootCmd.PersistentFlags().Lookup("interval"))
}

func setupUi() {
	if err := configuration.ValidateLogLevel(global.LogLevel); err != nil {
		ui.Fatal("%s", err)
	}

	ui.SetDebugEnabled(global.Verbose || global.LogLevel == "debug")
	if global.LogLevel == "warning" {
		pterm.Info = *pterm.Info.WithWriter(io.Discard)
	}

	if global.NoColor {
		pterm.DisableColor()
	}
	if global.NoStyle {
		pterm.DisableStyling()
	}
}

// Print a large text with the LetterStyle from the standard theme.
func printHeader() {
	err := pterm.DefaultBigText.WithLetters(
		pterm.NewLettersFromStringWithStyle("gpufan", pterm.NewStyle(pterm.FgLightGreen)),
		pterm.NewLettersFromStringWithStyle("ctl", pterm.NewStyle(pterm.FgWhite)),
	).Render()
	if err != nil {
		fmt.Println("gpufanctl")
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.OnInitialize(func() {
		configuration.InitConfig(global.CfgFile)
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
