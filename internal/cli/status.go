package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the simulation service's health",
	Long: `Probe a running simulation service's GET /health endpoint and report
whether each configured fork backend is reachable.`,
	RunE: runStatus,
}

var (
	jsonOutput    bool
	watchMode     bool
	watchInterval time.Duration
)

// BackendStatus mirrors internal/api.BackendHealth for CLI display.
type BackendStatus struct {
	Status string `json:"status"`
	Chain  string `json:"chain,omitempty"`
}

// ServiceStatus mirrors internal/api.HealthResponse for CLI display.
type ServiceStatus struct {
	Status  string         `json:"status"`
	EVM     *BackendStatus `json:"evm,omitempty"`
	Runtime *BackendStatus `json:"runtime,omitempty"`
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "output in JSON format")
	statusCmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "watch mode (continuous updates)")
	statusCmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Second, "watch interval duration")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if watchMode {
		return runWatchStatus()
	}

	status, err := getServiceStatus()
	if err != nil {
		return fmt.Errorf("failed to get service status: %w", err)
	}

	if jsonOutput {
		return outputJSON(status)
	}

	return outputFormatted(status)
}

func runWatchStatus() error {
	fmt.Printf("Watching simulation service status (interval: %v)\n", watchInterval)
	fmt.Println("Press Ctrl+C to stop watching...")
	fmt.Println()

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	if err := showCurrentStatus(); err != nil {
		return err
	}

	for range ticker.C {
		fmt.Print("\033[H\033[2J") // Clear screen
		if err := showCurrentStatus(); err != nil {
			return err
		}
	}
	return nil
}

func showCurrentStatus() error {
	status, err := getServiceStatus()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return nil
	}

	return outputFormatted(status)
}

func getServiceStatus() (*ServiceStatus, error) {
	apiHost := viper.GetString("server.host")
	if apiHost == "" || apiHost == "0.0.0.0" {
		apiHost = "localhost"
	}
	apiPort := viper.GetInt("server.port")
	if apiPort == 0 {
		apiPort = 8080
	}

	url := fmt.Sprintf("http://%s:%d/health", apiHost, apiPort)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return &ServiceStatus{Status: "offline"}, nil
	}
	defer resp.Body.Close()

	var status ServiceStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	return &status, nil
}

func outputJSON(status *ServiceStatus) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(status)
}

func outputFormatted(status *ServiceStatus) error {
	fmt.Printf("Simulation Service Status\n")
	fmt.Printf("==========================\n\n")
	fmt.Printf("Status: %s\n", status.Status)

	if status.EVM != nil {
		fmt.Printf("\nEVM backend:     %s", status.EVM.Status)
		if status.EVM.Chain != "" {
			fmt.Printf(" (%s)", status.EVM.Chain)
		}
		fmt.Println()
	}

	if status.Runtime != nil {
		fmt.Printf("Runtime backend: %s", status.Runtime.Status)
		if status.Runtime.Chain != "" {
			fmt.Printf(" (%s)", status.Runtime.Chain)
		}
		fmt.Println()
	}

	return nil
}
