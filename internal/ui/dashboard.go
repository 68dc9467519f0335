package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const refreshInterval = 750 * time.Millisecond

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Dashboard is the bubbletea model for the live status view.
type Dashboard struct {
	refresh  RefreshFunc
	rows     []ProjectRow
	spinner  spinner.Model
	styles   Styles
	quitting bool
}

// NewDashboard constructs a Dashboard that calls refresh on every tick.
func NewDashboard(refresh RefreshFunc, noColor bool) *Dashboard {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	return &Dashboard{
		refresh: refresh,
		rows:    refresh(),
		spinner: s,
		styles:  GetStyles(noColor),
	}
}

// Init implements tea.Model.
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.spinner.Tick, tickCmd())
}

// Update implements tea.Model.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			d.quitting = true
			return d, tea.Quit
		}
	case tickMsg:
		d.rows = d.refresh()
		return d, tickCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd
	}
	return d, nil
}

// View implements tea.Model.
func (d *Dashboard) View() string {
	if d.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(d.styles.Header.Render("eideticmcp status") + "  " + d.spinner.View() + "\n\n")

	rows := append([]ProjectRow(nil), d.rows...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	if len(rows) == 0 {
		b.WriteString(d.styles.Dim.Render("No registered projects") + "\n")
		return d.styles.Panel.Render(b.String())
	}

	fmt.Fprintf(&b, "%-20s %-10s %5s %7s  %s\n",
		d.styles.Label.Render("PROJECT"), d.styles.Label.Render("STATUS"),
		d.styles.Label.Render("PCT"), d.styles.Label.Render("CHUNKS"),
		d.styles.Label.Render("LAST INDEXED"))

	for _, r := range rows {
		statusStyle := d.styles.Dim
		switch r.Status {
		case "indexed":
			statusStyle = d.styles.Success
		case "indexing":
			statusStyle = d.styles.Active
		case "error":
			statusStyle = d.styles.Error
		}
		fmt.Fprintf(&b, "%-20s %-10s %4d%% %7d  %s\n",
			truncate(r.Name, 20), statusStyle.Render(r.Status), r.Progress, r.TotalChunks, r.LastIndexed)
	}

	b.WriteString("\n" + d.styles.Dim.Render("press q to quit"))
	return d.styles.Panel.Render(b.String())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// Run starts the dashboard program and blocks until the user quits.
// It is only meant to be called against a real TTY;
// callers should fall back to a plain renderer otherwise.
func Run(refresh RefreshFunc, noColor bool) error {
	p := tea.NewProgram(NewDashboard(refresh, noColor), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
