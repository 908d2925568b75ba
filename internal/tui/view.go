package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/juststeveking/sagedeploy/internal/monitor"
)

var (
	colorAccent   = lipgloss.Color("#04D9FF") // Neon Cyan
	colorReady    = lipgloss.Color("#00FF94") // Neon Green
	colorFailed   = lipgloss.Color("#FF0055") // Neon Red
	colorChecking = lipgloss.Color("#FFD700") // Gold
	colorMuted    = lipgloss.Color("#565f89") // Muted Blue
	colorSubtle   = lipgloss.Color("#24283b") // Dark Blue
	colorCard     = lipgloss.Color("#16161e") // Very Dark Blue
	colorText     = lipgloss.Color("#c0caf5") // Light Blue/White

	// Title style
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			MarginBottom(1)

	// Subtitle/header style
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			MarginTop(1).
			MarginBottom(1)

	// Status indicators
	readyStyle = lipgloss.NewStyle().
			Foreground(colorReady).
			Bold(true)

	failedStyle = lipgloss.NewStyle().
			Foreground(colorFailed).
			Bold(true)

	pendingStyle = lipgloss.NewStyle().
			Foreground(colorChecking).
			Bold(true)

	// Base card style (border color will be overridden)
	baseCardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Background(colorCard).
			Padding(0, 1).
			MarginRight(1).
			MarginBottom(1)

	// Metadata style
	metadataStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	// Error style
	errorStyle = lipgloss.NewStyle().
			Foreground(colorFailed)

	// Endpoint name style for grid
	endpointNameStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorText)

	// Secondary info style
	secondaryStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// View renders the TUI with full-screen grid layout
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	// Render form if active
	if m.showForm {
		return lipgloss.Place(
			m.width,
			m.height,
			lipgloss.Center,
			lipgloss.Center,
			lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorAccent).
				Padding(1, 2).
				Render(m.form.View()),
		)
	}

	if m.showDetail {
		if e, ok := m.endpointState(m.detailName); ok {
			return lipgloss.Place(
				m.width,
				m.height,
				lipgloss.Center,
				lipgloss.Center,
				m.renderDetail(e),
			)
		}
	}

	// Handle initial state when width is not set
	width := m.width
	if width < 40 {
		width = 80
	}

	// Calculate grid dimensions
	cols := 2
	if width > 160 {
		cols = 3
	}
	if width > 200 {
		cols = 4
	}
	cardWidth := (width - 4) / cols
	if cardWidth < 20 {
		cardWidth = 20
		cols = 1
	}

	var b strings.Builder

	// Header with per-group stats
	b.WriteString(m.renderHeader(width))
	b.WriteString("\n")

	// Endpoints or loading state
	if len(m.endpoints) == 0 {
		b.WriteString("\n")
		centerText := "⟳ Waiting for endpoint status..."
		padding := (width - len(centerText)) / 2
		if padding > 0 {
			b.WriteString(strings.Repeat(" ", padding))
		}
		b.WriteString(metadataStyle.Render(centerText))
		b.WriteString("\n")
	} else {
		// Group endpoints by status
		pending, ready, failed := m.groups()
		selected := m.getSelectedNameValue()

		if len(pending) > 0 {
			b.WriteString("\n" + headerStyle.Render(fmt.Sprintf("⟳ Pending (%d)", len(pending))) + "\n")
			b.WriteString(m.renderEndpointGrid(pending, selected, cardWidth, cols))
		}
		if len(ready) > 0 {
			b.WriteString("\n" + headerStyle.Render(fmt.Sprintf("✓ In Service (%d)", len(ready))) + "\n")
			b.WriteString(m.renderEndpointGrid(ready, selected, cardWidth, cols))
		}
		if len(failed) > 0 {
			b.WriteString("\n" + headerStyle.Render(fmt.Sprintf("✗ Failed (%d)", len(failed))) + "\n")
			b.WriteString(m.renderEndpointGrid(failed, selected, cardWidth, cols))
		}
	}

	if m.lastErr != nil {
		b.WriteString("\n" + errorStyle.Render(m.lastErr.Error()) + "\n")
	}

	// Footer with summary and help
	b.WriteString("\n")
	b.WriteString(m.renderFooter(width))
	b.WriteString("\n")

	return b.String()
}

// renderFooter renders the status bar
// 15:04:05 │ n: add • enter: detail • q: quit                    2/3 In Service
func (m Model) renderFooter(width int) string {
	timeStr := time.Now().Format("15:04:05")
	helpStr := "n: add • enter: detail • q: quit"

	// Status summary
	var summary string
	if len(m.endpoints) > 0 {
		_, ready, _ := m.groups()
		summary = fmt.Sprintf("%d/%d In Service", len(ready), len(m.endpoints))
	} else {
		summary = "No endpoints"
	}

	footerStyle := lipgloss.NewStyle().
		Foreground(colorMuted).
		BorderTop(true).
		BorderForeground(colorSubtle).
		Width(width).
		PaddingTop(1)

	// Footer layout
	left := fmt.Sprintf(" %s │ %s", timeStr, helpStr)
	right := fmt.Sprintf("%s ", summary)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return footerStyle.Render(left + strings.Repeat(" ", gap) + right)
}

// renderHeader renders the title bar with per-group counts
func (m Model) renderHeader(width int) string {
	var b strings.Builder

	// Title
	titleRendered := titleStyle.Render("SAGEDEPLOY")

	// Stats
	var stats string
	if len(m.endpoints) > 0 {
		pending, ready, failed := m.groups()
		stats = fmt.Sprintf("%s  %s  %s",
			readyStyle.Render(fmt.Sprintf("● %d", len(ready))),
			failedStyle.Render(fmt.Sprintf("● %d", len(failed))),
			pendingStyle.Render(fmt.Sprintf("● %d", len(pending))),
		)
	}

	// Layout: Title on left, Stats on right
	availableWidth := width - lipgloss.Width(titleRendered) - lipgloss.Width(stats) - 2
	if availableWidth < 0 {
		availableWidth = 0
	}

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleRendered,
		strings.Repeat(" ", availableWidth),
		stats,
	)

	b.WriteString(header)
	b.WriteString("\n")
	// Separator line
	b.WriteString(lipgloss.NewStyle().Foreground(colorSubtle).Render(strings.Repeat("━", width)))

	return b.String()
}

// renderEndpointGrid renders endpoints in a grid layout
func (m Model) renderEndpointGrid(endpoints []EndpointState, selected string, cardWidth int, cols int) string {
	if cardWidth < 20 {
		cardWidth = 20
	}

	var rows []string
	for i := 0; i < len(endpoints); i += cols {
		end := i + cols
		if end > len(endpoints) {
			end = len(endpoints)
		}

		var rowCards []string
		for j := i; j < end; j++ {
			rowCards = append(rowCards, m.renderEndpointCard(endpoints[j], endpoints[j].Name == selected, cardWidth))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rowCards...))
	}

	return strings.Join(rows, "\n")
}

// renderEndpointCard renders a single endpoint card
func (m Model) renderEndpointCard(e EndpointState, selected bool, width int) string {
	var b strings.Builder

	// Determine border color based on status
	borderColor := statusColor(e.Status)
	if selected {
		borderColor = colorAccent
	}

	// Status icon
	var statusIcon string
	if e.IsChecking {
		if s, exists := m.spinners[e.Name]; exists {
			statusIcon = s.View()
		} else {
			statusIcon = "⟳"
		}
	} else {
		statusIcon = getStatusIcon(e.Status)
	}

	// Endpoint name (truncate if needed)
	name := e.Name
	maxNameLen := width - 6
	if len(name) > maxNameLen {
		name = name[:maxNameLen-1] + "…"
	}

	// Header: icon + name
	b.WriteString(fmt.Sprintf("%s %s", statusIcon, endpointNameStyle.Render(name)))
	b.WriteString("\n")

	// Details section
	switch {
	case e.Status != "" && e.Status != monitor.StatusChecking:
		details := []string{lipgloss.NewStyle().Foreground(statusColor(e.Status)).Bold(true).Render(string(e.Status))}
		if e.Latency > 0 {
			details = append(details, secondaryStyle.Render(formatDuration(e.Latency)))
		}
		b.WriteString(strings.Join(details, secondaryStyle.Render(" • ")))
		b.WriteString("\n")
	case e.IsChecking:
		b.WriteString(secondaryStyle.Render("Checking..."))
		b.WriteString("\n")
	default:
		b.WriteString(secondaryStyle.Render("Waiting..."))
		b.WriteString("\n")
	}

	if len(e.Labels) > 0 {
		b.WriteString(secondaryStyle.Render(strings.Join(e.Labels, " ")))
		b.WriteString("\n")
	}

	// Last checked time (smaller)
	if !e.LastChecked.IsZero() && !e.IsChecking {
		b.WriteString(lipgloss.NewStyle().Foreground(colorSubtle).Render(formatTime(e.LastChecked)))
	}

	// Failure reason or error if present (truncate to fit)
	if msg := e.problem(); msg != "" {
		b.WriteString("\n")
		if len(msg) > width-4 {
			msg = msg[:width-7] + "…"
		}
		b.WriteString(errorStyle.Render(msg))
	}

	// Apply the dynamic border
	return baseCardStyle.
		Width(width).
		BorderForeground(borderColor).
		Render(b.String())
}

// renderDetail renders the detail modal for one endpoint
func (m Model) renderDetail(e EndpointState) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(e.Name))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(secondaryStyle.Render(fmt.Sprintf("%-16s", label)))
		b.WriteString(value)
		b.WriteString("\n")
	}

	status := string(e.Status)
	if status == "" {
		status = "-"
	}
	row("Status", lipgloss.NewStyle().Foreground(statusColor(e.Status)).Bold(true).Render(status))

	if m.cfg != nil {
		if cfg, found := m.cfg.FindEndpoint(e.Name); found {
			cfg = cfg.WithDefaults()
			row("Model", cfg.ModelName)
			row("Model data", cfg.ModelData)
			row("Image", cfg.Image)
			row("Instance", fmt.Sprintf("%s ×%d", cfg.InstanceType, cfg.InstanceCount))
			row("Variant", cfg.VariantName)
		}
	}
	if e.Latency > 0 {
		row("Latency", formatDuration(e.Latency))
	}
	if !e.LastChecked.IsZero() {
		row("Last checked", e.LastChecked.Format(time.RFC3339))
	}
	if msg := e.problem(); msg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(msg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(metadataStyle.Render("esc / enter to close"))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(1, 2).
		Render(b.String())
}

// problem returns the failure reason or check error of an endpoint
func (e EndpointState) problem() string {
	if e.FailureReason != "" {
		return e.FailureReason
	}
	if e.Error != nil {
		return e.Error.Error()
	}
	return ""
}

// endpointState looks up the current state by name
func (m Model) endpointState(name string) (EndpointState, bool) {
	for _, e := range m.endpoints {
		if e.Name == name {
			return e, true
		}
	}
	return EndpointState{}, false
}

// getSelectedNameValue returns the selected endpoint name without clamping
func (m Model) getSelectedNameValue() string {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.endpoints) {
		return ""
	}
	return m.ordered()[m.selectedIndex].Name
}

// statusColor returns the card color for a status
func statusColor(status monitor.Status) lipgloss.Color {
	switch status.Category() {
	case monitor.CategoryReady:
		return colorReady
	case monitor.CategoryFailed:
		return colorFailed
	default:
		if status == "" {
			return colorSubtle
		}
		return colorChecking
	}
}

// getStatusIcon returns the icon for a status
func getStatusIcon(status monitor.Status) string {
	switch status.Category() {
	case monitor.CategoryReady:
		return "✓"
	case monitor.CategoryFailed:
		return "✗"
	default:
		return "●"
	}
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// formatTime formats a time for display
func formatTime(t time.Time) string {
	diff := time.Since(t)

	if diff < time.Minute {
		return fmt.Sprintf("%d seconds ago", int(diff.Seconds()))
	}
	if diff < time.Hour {
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	}

	return t.Format("15:04:05")
}
