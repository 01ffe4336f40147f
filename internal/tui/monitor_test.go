package tui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTUIModel(t *testing.T) {
	config := Config{
		RefreshRate: 1000,
		CompactMode: false,
		Debug:       true,
	}

	t.Run("initial model creation", func(t *testing.T) {
		model := initialModel(config)

		assert.Equal(t, config, model.config)
		assert.True(t, model.loading)
		assert.Nil(t, model.status)
		assert.Nil(t, model.error)
	})

	t.Run("init command", func(t *testing.T) {
		model := initialModel(config)
		cmd := model.Init()

		assert.NotNil(t, cmd)
	})
}

func TestTUIUpdate(t *testing.T) {
	config := Config{RefreshRate: 1000}
	model := initialModel(config)

	t.Run("window size message", func(t *testing.T) {
		msg := tea.WindowSizeMsg{Width: 100, Height: 50}
		newModel, cmd := model.Update(msg)

		updatedModel := newModel.(Model)
		assert.Equal(t, 100, updatedModel.width)
		assert.Equal(t, 50, updatedModel.height)
		assert.Nil(t, cmd)
	})

	t.Run("quit key message", func(t *testing.T) {
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
		_, cmd := model.Update(msg)

		assert.NotNil(t, cmd)
	})

	t.Run("refresh key message", func(t *testing.T) {
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}}
		_, cmd := model.Update(msg)

		assert.NotNil(t, cmd)
	})

	t.Run("status message", func(t *testing.T) {
		status := &EngineStatus{
			Status:    "ok",
			Timestamp: time.Now(),
		}
		msg := statusMsg(status)

		newModel, cmd := model.Update(msg)
		updatedModel := newModel.(Model)

		assert.Equal(t, status, updatedModel.status)
		assert.False(t, updatedModel.loading)
		assert.Nil(t, updatedModel.error)
		assert.Nil(t, cmd)
	})

	t.Run("error message", func(t *testing.T) {
		testError := assert.AnError
		msg := errorMsg(testError)

		newModel, cmd := model.Update(msg)
		updatedModel := newModel.(Model)

		assert.Equal(t, testError, updatedModel.error)
		assert.False(t, updatedModel.loading)
		assert.Nil(t, cmd)
	})

	t.Run("tick message", func(t *testing.T) {
		msg := tickMsg(time.Now())
		_, cmd := model.Update(msg)

		assert.NotNil(t, cmd)
	})
}

func TestTUIView(t *testing.T) {
	config := Config{RefreshRate: 1000}
	model := initialModel(config)
	model.width = 80
	model.height = 24

	t.Run("view with no data", func(t *testing.T) {
		view := model.View()

		assert.Contains(t, view, "Loading status...")
		assert.Contains(t, view, "Simulation Service Monitor")
	})

	t.Run("view with status data", func(t *testing.T) {
		model.loading = false
		model.status = &EngineStatus{
			Status:    "ok",
			Timestamp: time.Now(),
			EVM:       &BackendHealth{Status: "ok", Chain: "anvil-fork"},
			Runtime:   &BackendHealth{Status: "ok", Chain: "dev-fork"},
			Recent: []RecentEntry{
				{Time: time.Now(), Kind: "evm", Success: true, Summary: "evm simulation succeeded"},
			},
		}

		view := model.View()

		assert.Contains(t, view, "Status: ok")
		assert.Contains(t, view, "EVM backend:     ok")
		assert.Contains(t, view, "Runtime backend: ok")
		assert.Contains(t, view, "Recent simulations")
	})

	t.Run("view with error", func(t *testing.T) {
		model.loading = false
		model.error = assert.AnError
		model.status = nil

		view := model.View()

		assert.Contains(t, view, "Error:")
		assert.Contains(t, view, assert.AnError.Error())
	})
}

func TestGetEngineStatus(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	t.Run("offline engine", func(t *testing.T) {
		viper.Set("server.host", "nonexistent")
		viper.Set("server.port", 9999)

		status, err := getEngineStatus()
		require.NoError(t, err)
		assert.Equal(t, "offline", status.Status)
	})

	t.Run("running engine", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(EngineStatus{
				Status: "ok",
				EVM:    &BackendHealth{Status: "ok", Chain: "anvil-fork"},
			})
		})
		mux.HandleFunc("/recent", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"recent": []RecentEntry{}})
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		viper.Set("server.host", serverHost(server.URL))
		viper.Set("server.port", serverPort(server.URL))

		status, err := getEngineStatus()
		require.NoError(t, err)
		assert.Equal(t, "ok", status.Status)
		assert.NotNil(t, status.EVM)
		assert.Equal(t, "anvil-fork", status.EVM.Chain)
	})

	t.Run("server error", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		viper.Set("server.host", serverHost(server.URL))
		viper.Set("server.port", serverPort(server.URL))

		status, err := getEngineStatus()
		require.NoError(t, err)
		assert.Equal(t, "error", status.Status)
	})
}

func TestTUICommands(t *testing.T) {
	t.Run("tick command", func(t *testing.T) {
		cmd := tickCmd(1000)
		assert.NotNil(t, cmd)
	})

	t.Run("fetch status command", func(t *testing.T) {
		viper.Reset()
		viper.Set("server.host", "nonexistent")
		viper.Set("server.port", 9999)

		cmd := fetchStatus()
		assert.NotNil(t, cmd)

		msg := cmd()

		switch msg.(type) {
		case statusMsg:
		case errorMsg:
		default:
			t.Errorf("Unexpected message type: %T", msg)
		}
	})
}

func TestConfigValidation(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		config := Config{
			RefreshRate: 1000,
			CompactMode: false,
			Debug:       true,
		}

		model := initialModel(config)
		assert.Equal(t, config.RefreshRate, model.config.RefreshRate)
		assert.Equal(t, config.CompactMode, model.config.CompactMode)
		assert.Equal(t, config.Debug, model.config.Debug)
	})

	t.Run("edge case refresh rates", func(t *testing.T) {
		config := Config{RefreshRate: 100}
		model := initialModel(config)
		assert.Equal(t, 100, model.config.RefreshRate)

		config = Config{RefreshRate: 10000}
		model = initialModel(config)
		assert.Equal(t, 10000, model.config.RefreshRate)
	})
}

func BenchmarkTUIUpdate(b *testing.B) {
	config := Config{RefreshRate: 1000}
	model := initialModel(config)
	model.width = 80
	model.height = 24

	msg := tea.WindowSizeMsg{Width: 100, Height: 50}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		model.Update(msg)
	}
}

func BenchmarkTUIView(b *testing.B) {
	config := Config{RefreshRate: 1000}
	model := initialModel(config)
	model.width = 80
	model.height = 24
	model.loading = false
	model.status = &EngineStatus{
		Status: "ok",
		EVM:    &BackendHealth{Status: "ok"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		model.View()
	}
}

// serverHost/serverPort split an httptest server URL like
// "http://127.0.0.1:54321" into its host and port for viper overrides.
func serverHost(serverURL string) string {
	u := serverURL[len("http://"):]
	for i := 0; i < len(u); i++ {
		if u[i] == ':' {
			return u[:i]
		}
	}
	return u
}

func serverPort(serverURL string) int {
	u := serverURL[len("http://"):]
	for i := 0; i < len(u); i++ {
		if u[i] == ':' {
			port := 0
			for _, c := range u[i+1:] {
				if c < '0' || c > '9' {
					break
				}
				port = port*10 + int(c-'0')
			}
			return port
		}
	}
	return 0
}
