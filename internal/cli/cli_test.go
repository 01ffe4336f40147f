package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLICommands(t *testing.T) {
	setupTestEnvironment(t)
	defer cleanupTestEnvironment(t)

	tests := []struct {
		name           string
		args           []string
		expectedOutput string
		expectedError  bool
	}{
		{
			name:           "help command",
			args:           []string{"--help"},
			expectedOutput: "tx-simulator",
			expectedError:  false,
		},
		{
			name:           "version command",
			args:           []string{"--version"},
			expectedOutput: "1.0.0",
			expectedError:  false,
		},
		{
			name:           "start help",
			args:           []string{"start", "--help"},
			expectedOutput: "Start the HTTP API",
			expectedError:  false,
		},
		{
			name:           "stop help",
			args:           []string{"stop", "--help"},
			expectedOutput: "Stop a running simulation service",
			expectedError:  false,
		},
		{
			name:           "status help",
			args:           []string{"status", "--help"},
			expectedOutput: "Probe a running simulation service",
			expectedError:  false,
		},
		{
			name:           "monitor help",
			args:           []string{"monitor", "--help"},
			expectedOutput: "terminal-based UI",
			expectedError:  false,
		},
		{
			name:           "simulate help",
			args:           []string{"simulate", "--help"},
			expectedOutput: "Build a single /simulate request",
			expectedError:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := executeCommand(tt.args...)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Contains(t, output, tt.expectedOutput)
			}
		})
	}
}

func TestStatusCommand(t *testing.T) {
	setupTestEnvironment(t)
	defer cleanupTestEnvironment(t)

	t.Run("offline status", func(t *testing.T) {
		output, err := executeCommand("status")
		assert.NoError(t, err)
		assert.Contains(t, output, "offline")
	})

	t.Run("online status", func(t *testing.T) {
		server := createMockAPIServer(t)
		defer server.Close()

		setupTestServerConfig(server.URL)

		output, err := executeCommand("status")
		assert.NoError(t, err)
		assert.Contains(t, output, "ok")
		assert.Contains(t, output, "EVM backend")
	})

	t.Run("json output", func(t *testing.T) {
		server := createMockAPIServer(t)
		defer server.Close()

		setupTestServerConfig(server.URL)

		output, err := executeCommand("status", "--json")
		assert.NoError(t, err)
		assert.Contains(t, output, `"status": "ok"`)
	})
}

func TestStopCommand(t *testing.T) {
	setupTestEnvironment(t)
	defer cleanupTestEnvironment(t)

	t.Run("stop non-existent process", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "test-tx-simulator.pid")
		err := os.WriteFile(pidFile, []byte("99999"), 0644)
		require.NoError(t, err)

		output, err := executeCommand("stop", "--pid-file", pidFile)
		assert.Error(t, err)
		assert.Contains(t, output, "failed to signal process")
	})

	t.Run("stop with invalid PID file", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "invalid-pid.pid")
		err := os.WriteFile(pidFile, []byte("invalid"), 0644)
		require.NoError(t, err)

		output, err := executeCommand("stop", "--pid-file", pidFile)
		assert.Error(t, err)
		assert.Contains(t, output, "invalid PID")
	})
}

func TestSimulateCommand(t *testing.T) {
	setupTestEnvironment(t)
	defer cleanupTestEnvironment(t)

	t.Run("requires sender or file", func(t *testing.T) {
		_, err := executeCommand("simulate")
		assert.Error(t, err)
	})

	t.Run("requires exactly one of to/pallet", func(t *testing.T) {
		_, err := executeCommand("simulate", "--sender", "0xabc")
		assert.Error(t, err)
	})

	t.Run("posts built EVM request", func(t *testing.T) {
		var received map[string]interface{}
		mux := http.NewServeMux()
		mux.HandleFunc("/simulate", func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&received)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
		})
		server := httptest.NewServer(mux)
		defer server.Close()
		setupTestServerConfig(server.URL)

		output, err := executeCommand("simulate", "--sender", "0xsender", "--to", "0xto", "--value", "100")
		require.NoError(t, err)
		assert.Contains(t, output, "\"success\": true")
		assert.Equal(t, "0xsender", received["sender"])
		tx, ok := received["transaction"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "0xto", tx["to"])
	})
}

func TestConfigurationFlags(t *testing.T) {
	setupTestEnvironment(t)
	defer cleanupTestEnvironment(t)

	configDir := t.TempDir()
	configFile := filepath.Join(configDir, "test-config.yaml")
	configContent := `
server:
  host: "test-host"
  port: 9999
debug: true
`
	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Run("custom config file", func(t *testing.T) {
		output, err := executeCommand("--config", configFile, "status")
		assert.NoError(t, err)
		assert.NotEmpty(t, output)
	})

	t.Run("debug flag", func(t *testing.T) {
		output, err := executeCommand("--debug", "status")
		assert.NoError(t, err)
		assert.NotEmpty(t, output)
	})
}

// Helper functions

func setupTestEnvironment(t *testing.T) {
	viper.Reset()

	viper.Set("server.host", "localhost")
	viper.Set("server.port", 8080)
	viper.Set("debug", false)
}

func cleanupTestEnvironment(t *testing.T) {
	viper.Reset()
}

func executeCommand(args ...string) (string, error) {
	return executeCommandWithContext(context.Background(), args...)
}

func executeCommandWithContext(ctx context.Context, args ...string) (string, error) {
	buf := new(bytes.Buffer)

	testRootCmd := &cobra.Command{
		Use:     "tx-simulator",
		Version: "1.0.0",
	}
	testRootCmd.PersistentFlags().String("config", "", "config file")
	testRootCmd.PersistentFlags().Bool("debug", false, "enable debug mode")

	testRootCmd.AddCommand(startCmd)
	testRootCmd.AddCommand(stopCmd)
	testRootCmd.AddCommand(statusCmd)
	testRootCmd.AddCommand(monitorCmd)
	testRootCmd.AddCommand(simulateCmd)

	testRootCmd.SetOut(buf)
	testRootCmd.SetErr(buf)
	testRootCmd.SetArgs(args)

	if ctx != context.Background() {
		testRootCmd.SetContext(ctx)
	}

	// The subcommands print their results with fmt to os.Stdout, so
	// capture that alongside cobra's own output.
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}
	os.Stdout = w
	captured := make(chan string)
	go func() {
		var out bytes.Buffer
		io.Copy(&out, r)
		captured <- out.String()
	}()

	err = testRootCmd.Execute()

	w.Close()
	os.Stdout = origStdout
	return buf.String() + <-captured, err
}

func createMockAPIServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status": "ok",
			"evm":    map[string]interface{}{"status": "ok", "chain": "anvil-fork"},
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(status); err != nil {
			t.Errorf("Failed to encode status: %v", err)
		}
	})

	return httptest.NewServer(mux)
}

func setupTestServerConfig(serverURL string) {
	parts := strings.Split(strings.TrimPrefix(serverURL, "http://"), ":")
	if len(parts) == 2 {
		viper.Set("server.host", parts[0])
		if port := parts[1]; port != "" {
			viper.Set("server.port", port)
		}
	}
}

func BenchmarkStatusCommand(b *testing.B) {
	setupTestEnvironment(&testing.T{})
	server := createMockAPIServer(&testing.T{})
	defer server.Close()
	setupTestServerConfig(server.URL)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := executeCommand("status")
		if err != nil {
			b.Fatalf("Status command failed: %v", err)
		}
	}
}
