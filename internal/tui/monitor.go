package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"
)

// Config holds configuration for the TUI monitor.
type Config struct {
	RefreshRate int
	CompactMode bool
	Debug       bool
}

// Model represents the TUI application state.
type Model struct {
	config     Config
	status     *EngineStatus
	loading    bool
	error      error
	width      int
	height     int
	lastUpdate time.Time
}

// BackendHealth mirrors internal/api.BackendHealth for display.
type BackendHealth struct {
	Status string `json:"status"`
	Chain  string `json:"chain,omitempty"`
}

// RecentEntry mirrors internal/api.RecentEntry for display.
type RecentEntry struct {
	Time    time.Time `json:"time"`
	Kind    string    `json:"kind"`
	Success bool      `json:"success"`
	Fatal   bool      `json:"fatal"`
	Summary string    `json:"summary"`
}

// EngineStatus is the monitor's combined view of GET /health and
// GET /recent, polled on every tick.
type EngineStatus struct {
	Status    string         `json:"status"`
	EVM       *BackendHealth `json:"evm,omitempty"`
	Runtime   *BackendHealth `json:"runtime,omitempty"`
	Recent    []RecentEntry  `json:"-"`
	Timestamp time.Time      `json:"-"`
}

// tickMsg is sent when the refresh timer ticks.
type tickMsg time.Time

// statusMsg is sent when status is updated.
type statusMsg *EngineStatus

// errorMsg is sent when an error occurs.
type errorMsg error

// StartMonitor starts the TUI monitor application.
func StartMonitor(config Config) error {
	p := tea.NewProgram(initialModel(config), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func initialModel(config Config) Model {
	return Model{
		config:  config,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		fetchStatus(),
		tickCmd(m.config.RefreshRate),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, fetchStatus()
		}

	case tickMsg:
		return m, tea.Batch(
			fetchStatus(),
			tickCmd(m.config.RefreshRate),
		)

	case statusMsg:
		m.status = msg
		m.loading = false
		m.error = nil
		m.lastUpdate = time.Now()
		return m, nil

	case errorMsg:
		m.error = msg
		m.loading = false
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#7D56F4")).
		Padding(0, 1)

	contentStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#874BFD")).
		Padding(1, 2)

	var content string

	title := titleStyle.Width(m.width - 2).Render("Simulation Service Monitor")
	content += title + "\n\n"

	instructions := "Press 'r' to refresh manually, 'q' to quit"
	content += lipgloss.NewStyle().Faint(true).Render(instructions) + "\n\n"

	if m.error != nil {
		errorStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
		content += errorStyle.Render(fmt.Sprintf("Error: %v", m.error)) + "\n"
	} else if m.loading {
		content += "Loading status...\n"
	} else if m.status != nil {
		content += m.renderStatus()
	}

	if !m.lastUpdate.IsZero() {
		updateTime := fmt.Sprintf("Last updated: %s", m.lastUpdate.Format("15:04:05"))
		content += "\n" + lipgloss.NewStyle().Faint(true).Render(updateTime)
	}

	return contentStyle.Width(m.width - 4).Render(content)
}

func (m Model) renderStatus() string {
	var content string

	statusColor := lipgloss.Color("#FF0000")
	if m.status.Status == "ok" {
		statusColor = lipgloss.Color("#00FF00")
	} else if m.status.Status == "degraded" {
		statusColor = lipgloss.Color("#FFFF00")
	}

	statusStyle := lipgloss.NewStyle().Foreground(statusColor).Bold(true)
	content += fmt.Sprintf("Status: %s\n", statusStyle.Render(m.status.Status))

	if m.status.EVM != nil {
		content += fmt.Sprintf("EVM backend:     %s", m.status.EVM.Status)
		if m.status.EVM.Chain != "" {
			content += fmt.Sprintf(" (%s)", m.status.EVM.Chain)
		}
		content += "\n"
	}
	if m.status.Runtime != nil {
		content += fmt.Sprintf("Runtime backend: %s", m.status.Runtime.Status)
		if m.status.Runtime.Chain != "" {
			content += fmt.Sprintf(" (%s)", m.status.Runtime.Chain)
		}
		content += "\n"
	}

	if len(m.status.Recent) > 0 {
		content += "\nRecent simulations\n"
		content += "──────────────────\n"
		start := 0
		if len(m.status.Recent) > 10 {
			start = len(m.status.Recent) - 10
		}
		for _, e := range m.status.Recent[start:] {
			marker := "ok"
			if e.Fatal {
				marker = "fatal"
			} else if !e.Success {
				marker = "failed"
			}
			content += fmt.Sprintf("%s  %-7s %-6s %s\n", e.Time.Format("15:04:05"), e.Kind, marker, e.Summary)
		}
	}

	return content
}

func fetchStatus() tea.Cmd {
	return func() tea.Msg {
		status, err := getEngineStatus()
		if err != nil {
			return errorMsg(err)
		}
		return statusMsg(status)
	}
}

func tickCmd(refreshRate int) tea.Cmd {
	return tea.Tick(time.Duration(refreshRate)*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func baseURL() string {
	apiHost := viper.GetString("server.host")
	if apiHost == "" || apiHost == "0.0.0.0" {
		apiHost = "localhost"
	}
	apiPort := viper.GetInt("server.port")
	if apiPort == 0 {
		apiPort = 8080
	}
	return fmt.Sprintf("http://%s:%d", apiHost, apiPort)
}

func getEngineStatus() (*EngineStatus, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := fetchHealth(ctx, client)
	if err != nil {
		return &EngineStatus{Status: "offline", Timestamp: time.Now()}, nil
	}

	status.Recent, _ = fetchRecent(ctx, client)
	status.Timestamp = time.Now()
	return status, nil
}

func fetchHealth(ctx context.Context, client *http.Client) (*EngineStatus, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", baseURL()+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &EngineStatus{Status: "error"}, nil
	}

	var status EngineStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	return &status, nil
}

func fetchRecent(ctx context.Context, client *http.Client) ([]RecentEntry, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", baseURL()+"/recent", nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		Recent []RecentEntry `json:"recent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode recent response: %w", err)
	}
	return body.Recent, nil
}
