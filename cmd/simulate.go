package cmd

import (
	"bytes"
	"fmt"
	"math"

	"github.com/gpufanctl/gpufanctl/cmd/global"
	"github.com/gpufanctl/gpufanctl/internal/configuration"
	"github.com/gpufanctl/gpufanctl/internal/control"
	"github.com/gpufanctl/gpufanctl/internal/ui"
	"github.com/guptarohit/asciigraph"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var simulateSamples int

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate the controller response without touching any GPU",
	Long: `Feeds a synthetic temperature profile through a controller built from
the current configuration and plots the resulting fan speed. Useful to get a
feeling for a set of gains before running them against real hardware.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		setupUi()

		configuration.ReadConfigFile()
		if err := configuration.Validate(); err != nil {
			return err
		}
		config := configuration.CurrentConfig

		controller, err := control.NewController(config.ControllerConfigFor(math.NaN()))
		if err != nil {
			return err
		}

		temperatures := make([]float64, simulateSamples)
		outputs := make([]float64, simulateSamples)
		for i := range temperatures {
			// swing ±15 degrees around the target over the simulated period
			phase := float64(i) / float64(simulateSamples)
			temperatures[i] = config.TargetTemperature + 15*math.Sin(2*math.Pi*phase)
			outputs[i] = controller.Update(temperatures[i])
		}

		printGainTable(config)
		ui.Printfln("")

		graph := asciigraph.Plot(
			outputs,
			asciigraph.Height(15),
			asciigraph.Width(100),
			asciigraph.Caption(fmt.Sprintf("Fan speed %% for a ±15 °C swing around %.0f °C", config.TargetTemperature)),
		)
		ui.Printfln(graph)
		return nil
	},
}

func printGainTable(config configuration.Configuration) {
	tab := table.Table{
		Headers: []string{"Kp", "Ki", "Kd", "Gamma", "Alpha", "Min", "Max"},
		Rows: [][]string{{
			fmt.Sprintf("%v", config.Kp),
			fmt.Sprintf("%v", config.Ki),
			fmt.Sprintf("%v", config.Kd),
			fmt.Sprintf("%v", config.Gamma),
			fmt.Sprintf("%v", config.Alpha),
			fmt.Sprintf("%v", config.MinFanSpeed),
			fmt.Sprintf("%v", config.MaxFanSpeed),
		}},
	}

	var buf bytes.Buffer
	tableErr := tab.WriteTable(&buf, &table.Config{
		ShowIndex:       false,
		Color:           !global.NoColor,
		AlternateColors: true,
		TitleColorCode:  ansi.ColorCode("white+buf"),
		AltColorCodes: []string{
			ansi.ColorCode("white"),
			ansi.ColorCode("white:236"),
		},
	})
	if tableErr != nil {
		ui.Fatal("Error printing table: %v", tableErr)
	}
	ui.Printfln(buf.String())
}

func init() {
	simulateCmd.Flags().IntVarP(&simulateSamples, "samples", "n", 120, "Number of control loop iterations to simulate")
	rootCmd.AddCommand(simulateCmd)
}
