package cmd

import (
	"bytes"
	"fmt"

	"github.com/gpufanctl/gpufanctl/cmd/global"
	"github.com/gpufanctl/gpufanctl/internal/configuration"
	"github.com/gpufanctl/gpufanctl/internal/nvidia"
	"github.com/gpufanctl/gpufanctl/internal/ui"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current temperature and fan speed of all GPUs",
	Run: func(cmd *cobra.Command, args []string) {
		setupUi()

		configuration.ReadConfigFile()
		if err := configuration.Validate(); err != nil {
			ui.Fatal("Config validation error: %v", err)
		}
		config := configuration.CurrentConfig

		gateway := nvidia.NewGateway(config.CommandTimeout)
		measurements, err := gateway.ReadAll()
		if err != nil {
			ui.Fatal("Cannot read GPU state: %v", err)
		}
		if len(measurements) == 0 {
			ui.Fatal("No GPUs detected")
		}

		tab := table.Table{
			Headers: []string{"GPU", "Temperature", "Fan Speed", "Target"},
			Rows:    [][]string{},
		}
		for _, m := range measurements {
			tab.Rows = append(tab.Rows, []string{
				fmt.Sprintf("%d", m.Index),
				fmt.Sprintf("%d °C", m.Temperature),
				fmt.Sprintf("%d %%", m.FanSpeed),
				fmt.Sprintf("%.0f °C", config.TargetTemperature),
			})
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
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
