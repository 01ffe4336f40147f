package cli

import (
	"github.com/mev-engine/tx-simulator/internal/tui"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Start terminal-based monitoring interface",
	Long: `Launch an interactive terminal-based UI polling a running simulation
service's health and recent simulation activity. Press 'r' to refresh
manually, 'q' to quit.`,
	RunE: runMonitor,
}

var (
	refreshRate int
	compactMode bool
)

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().IntVarP(&refreshRate, "refresh", "r", 1000, "refresh rate in milliseconds")
	monitorCmd.Flags().BoolVarP(&compactMode, "compact", "c", false, "compact display mode")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	config := tui.Config{
		RefreshRate: refreshRate,
		CompactMode: compactMode,
		Debug:       cmd.Flag("debug").Value.String() == "true",
	}

	return tui.StartMonitor(config)
}
