package cli

import (
	"fmt"

	"github.com/mev-engine/tx-simulator/internal/app"
	"github.com/mev-engine/tx-simulator/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the simulation service",
	Long: `Start the HTTP API that serves POST /simulate, GET /health, GET
/recent, and GET /metrics. Runs until interrupted.`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().String("bind", "", "bind address for API server (overrides config)")
	startCmd.Flags().Int("port", 0, "port for API server (overrides config)")

	viper.BindPFlag("server.host", startCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", startCmd.Flags().Lookup("port"))
}

func runStart(cmd *cobra.Command, args []string) error {
	fmt.Println("Starting simulation service...")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if viper.GetBool("debug") {
		fmt.Printf("Configuration loaded: %+v\n", cfg)
	}

	fxApp := fx.New(
		fx.Provide(func() *config.Config { return cfg }),
		app.Module,
	)

	fxApp.Run()

	fmt.Println("simulation service stopped")
	return nil
}
