package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/juststeveking/sagedeploy/internal/config"
	"github.com/juststeveking/sagedeploy/internal/monitor"
)

// Model represents the TUI application state
type Model struct {
	endpoints     []EndpointState
	width         int
	height        int
	lastUpdate    time.Time
	quitting      bool
	cfg           *config.Config
	watcher       *monitor.Watcher
	watcherCancel func()
	spinners      map[string]spinner.Model
	selectedIndex int
	showDetail    bool
	detailName    string
	lastErr       error

	// Form state
	form     *huh.Form
	showForm bool
	formData *FormData
}

// FormData holds the data for the add endpoint form
type FormData struct {
	Name          string
	ModelName     string
	ModelData     string
	Image         string
	RoleARN       string
	InstanceType  string
	InstanceCount string
	EntryPoint    string
}

// EndpointState tracks the last observed state of an endpoint
type EndpointState struct {
	Name          string
	Status        monitor.Status
	FailureReason string
	Latency       time.Duration
	LastChecked   time.Time
	Error         error
	IsChecking    bool
	Labels        []string
}

// NewModel creates a new TUI model
func NewModel(cfg *config.Config, w *monitor.Watcher, cancel func()) Model {
	return Model{
		endpoints:     make([]EndpointState, 0),
		cfg:           cfg,
		watcher:       w,
		watcherCancel: cancel,
		lastUpdate:    time.Now(),
		spinners:      make(map[string]spinner.Model),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForResults(m.watcher),
		tea.EnterAltScreen,
		doTick(),
	)
}

// resultMsg wraps a watcher result for Bubble Tea
type resultMsg monitor.Result

// watcherDoneMsg is sent once the watcher has stopped
type watcherDoneMsg struct{}

// waitForResults listens for watcher results
func waitForResults(w *monitor.Watcher) tea.Cmd {
	return func() tea.Msg {
		result, ok := <-w.Results()
		if !ok {
			return watcherDoneMsg{}
		}
		return resultMsg(result)
	}
}

// tickMsg is sent on every tick
type tickMsg time.Time

// doTick returns a command that waits for the next tick
func doTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
