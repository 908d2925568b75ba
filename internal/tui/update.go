package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/juststeveking/sagedeploy/internal/config"
	"github.com/juststeveking/sagedeploy/internal/monitor"
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Always update window size
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
	}

	// Handle form updates if form is active
	if m.showForm {
		if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
			m.showForm = false
			m.form = nil
			return m, nil
		}

		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f
		}

		switch m.form.State {
		case huh.StateCompleted:
			spin := m.addEndpoint(m.formData.endpoint())
			m.showForm = false
			m.form = nil
			return m, tea.Batch(cmd, spin)
		case huh.StateAborted:
			m.showForm = false
			m.form = nil
		}
		return m, cmd
	}

	// Handle detail modal interactions
	if m.showDetail {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch msg.String() {
			case "esc", "enter":
				m.showDetail = false
				return m, nil
			}
		}
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			if m.watcherCancel != nil {
				m.watcherCancel()
			}
			return m, tea.Quit
		case "n":
			m.showForm = true
			m.initAddEndpointForm()
			return m, m.form.Init()
		case "enter":
			if len(m.endpoints) > 0 {
				m.detailName = m.getSelectedName()
				m.showDetail = true
			}
		case "left", "h", "up", "k", "shift+tab":
			m.moveSelection(-1)
		case "right", "l", "down", "j", "tab":
			m.moveSelection(1)
		}

	case resultMsg:
		spin := m.updateEndpointState(monitor.Result(msg))
		m.lastUpdate = time.Now()
		return m, tea.Batch(waitForResults(m.watcher), spin)

	case watcherDoneMsg:
		return m, nil

	case spinner.TickMsg:
		var cmds []tea.Cmd
		for name, s := range m.spinners {
			updated, cmd := s.Update(msg)
			m.spinners[name] = updated
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		return m, tea.Batch(cmds...)

	case tickMsg:
		return m, doTick()
	}

	return m, nil
}

// initAddEndpointForm initializes the form for tracking a new endpoint
func (m *Model) initAddEndpointForm() {
	m.formData = &FormData{
		InstanceType:  config.DefaultInstanceType,
		InstanceCount: strconv.Itoa(config.DefaultInstanceCount),
	}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Endpoint Name").
				Validate(m.validateName).
				Value(&m.formData.Name),
			huh.NewInput().
				Title("Model Name (defaults to endpoint name)").
				Value(&m.formData.ModelName),
			huh.NewInput().
				Title("Model Data (s3://...)").
				Value(&m.formData.ModelData),
		).Title("Endpoint (Esc to cancel)"),
		huh.NewGroup(
			huh.NewInput().
				Title("Inference Image URI").
				Value(&m.formData.Image),
			huh.NewInput().
				Title("Execution Role ARN").
				Value(&m.formData.RoleARN),
			huh.NewInput().
				Title("Entry Point (optional)").
				Value(&m.formData.EntryPoint),
		).Title("Container"),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Instance Type").
				Options(
					huh.NewOption("ml.t2.medium", "ml.t2.medium"),
					huh.NewOption("ml.m5.large", "ml.m5.large"),
					huh.NewOption("ml.m5.xlarge", "ml.m5.xlarge"),
					huh.NewOption("ml.c5.xlarge", "ml.c5.xlarge"),
					huh.NewOption("ml.g4dn.xlarge", "ml.g4dn.xlarge"),
				).
				Value(&m.formData.InstanceType),
			huh.NewInput().
				Title("Instance Count").
				Validate(validateCount).
				Value(&m.formData.InstanceCount),
		).Title("Capacity"),
	).WithTheme(huh.ThemeCatppuccin()).WithWidth(80).WithShowHelp(true)
}

func (m *Model) validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if m.cfg != nil {
		if _, found := m.cfg.FindEndpoint(name); found {
			return fmt.Errorf("endpoint %s is already tracked", name)
		}
	}
	return nil
}

func validateCount(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fmt.Errorf("instance count must be a positive number")
	}
	return nil
}

// endpoint converts the form into a config entry
func (f *FormData) endpoint() config.Endpoint {
	count, _ := strconv.Atoi(strings.TrimSpace(f.InstanceCount))
	return config.Endpoint{
		Name:          strings.TrimSpace(f.Name),
		ModelName:     strings.TrimSpace(f.ModelName),
		ModelData:     strings.TrimSpace(f.ModelData),
		Image:         strings.TrimSpace(f.Image),
		RoleARN:       strings.TrimSpace(f.RoleARN),
		InstanceType:  f.InstanceType,
		InstanceCount: count,
		EntryPoint:    strings.TrimSpace(f.EntryPoint),
	}
}

// addEndpoint saves a new endpoint and starts watching it
func (m *Model) addEndpoint(e config.Endpoint) tea.Cmd {
	if m.cfg == nil {
		return nil
	}
	if err := m.cfg.AddEndpoint(e); err != nil {
		m.lastErr = err
		return nil
	}
	if err := config.SaveConfig(m.cfg); err != nil {
		m.lastErr = err
	}

	spin := m.updateEndpointState(monitor.Result{
		EndpointName: e.Name,
		Status:       monitor.StatusChecking,
		CheckedAt:    time.Now(),
	})
	if m.watcher != nil {
		m.watcher.AddEndpoint(e.Name)
	}
	return spin
}

// updateEndpointState updates or adds an endpoint state based on a result.
// It returns the tick command of a newly started spinner.
func (m *Model) updateEndpointState(result monitor.Result) tea.Cmd {
	isChecking := result.Status == monitor.StatusChecking

	state := EndpointState{
		Name:          result.EndpointName,
		Status:        result.Status,
		FailureReason: result.FailureReason,
		Latency:       result.Latency,
		LastChecked:   result.CheckedAt,
		Error:         result.Error,
		IsChecking:    isChecking,
		Labels:        m.buildLabels(result.EndpointName),
	}

	found := false
	for i, e := range m.endpoints {
		if e.Name == result.EndpointName {
			// Keep the last real status visible while a new check runs
			if isChecking {
				state.Status = e.Status
				state.FailureReason = e.FailureReason
				state.Latency = e.Latency
			}
			m.endpoints[i] = state
			found = true
			break
		}
	}
	if !found {
		m.endpoints = append(m.endpoints, state)
	}

	m.clampSelection()

	if isChecking {
		if _, exists := m.spinners[result.EndpointName]; !exists {
			s := spinner.New()
			s.Spinner = spinner.MiniDot
			s.Style = lipgloss.NewStyle().Foreground(colorChecking)
			m.spinners[result.EndpointName] = s
			return s.Tick
		}
		return nil
	}
	delete(m.spinners, result.EndpointName)
	return nil
}

// buildLabels returns short capacity labels for a tracked endpoint
func (m *Model) buildLabels(name string) []string {
	if m.cfg == nil {
		return nil
	}
	e, found := m.cfg.FindEndpoint(name)
	if !found {
		return nil
	}
	e = e.WithDefaults()
	return []string{e.InstanceType, fmt.Sprintf("×%d", e.InstanceCount), e.VariantName}
}

// groups splits endpoints into pending, in service and failed
func (m Model) groups() (pending, ready, failed []EndpointState) {
	for _, e := range m.endpoints {
		switch e.Status.Category() {
		case monitor.CategoryReady:
			ready = append(ready, e)
		case monitor.CategoryFailed:
			failed = append(failed, e)
		default:
			pending = append(pending, e)
		}
	}
	return pending, ready, failed
}

// ordered returns endpoints in display order: pending, in service, failed
func (m Model) ordered() []EndpointState {
	pending, ready, failed := m.groups()
	out := make([]EndpointState, 0, len(m.endpoints))
	out = append(out, pending...)
	out = append(out, ready...)
	return append(out, failed...)
}

// moveSelection moves the selected index with wrap-around
func (m *Model) moveSelection(delta int) {
	if len(m.endpoints) == 0 {
		return
	}
	m.selectedIndex = (m.selectedIndex + delta) % len(m.endpoints)
	if m.selectedIndex < 0 {
		m.selectedIndex += len(m.endpoints)
	}
}

// getSelectedName returns the currently selected endpoint name
func (m *Model) getSelectedName() string {
	if len(m.endpoints) == 0 {
		return ""
	}
	if m.selectedIndex >= len(m.endpoints) {
		m.selectedIndex = len(m.endpoints) - 1
	}
	return m.ordered()[m.selectedIndex].Name
}

// clampSelection ensures selection stays within range
func (m *Model) clampSelection() {
	if len(m.endpoints) == 0 {
		m.selectedIndex = 0
		return
	}
	if m.selectedIndex >= len(m.endpoints) {
		m.selectedIndex = len(m.endpoints) - 1
	}
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
}
