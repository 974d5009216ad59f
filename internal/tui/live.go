// Package tui renders a live terminal view of the analysis cluster:
// worker occupancy, the latest spectral-dimension estimate, and the
// energy of every tempering chain. It only reads status and store
// queries, so it never interferes with dispatch.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/qlattice/internal/cluster"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
	busyStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	freeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	valStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
)

type tickMsg time.Time

type model struct {
	orch    *cluster.Orchestrator
	refresh time.Duration
	status  cluster.ClusterStatus
	width   int
}

// Run shows the live monitor until the user quits or the cluster shuts
// down.
func Run(orch *cluster.Orchestrator, refresh time.Duration) error {
	if refresh <= 0 {
		refresh = 100 * time.Millisecond
	}
	m := model{orch: orch, refresh: refresh, width: 80}
	_, err := tea.NewProgram(m).Run()
	return err
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		m.status = m.orch.GetStatus()
		if m.status.ShutDown {
			return m, tea.Quit
		}
		return m, m.tick()
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("qlattice cluster"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d workers, %d busy, %d pending",
		m.status.Workers, m.status.BusyWorkers, m.status.PendingJobs)))
	b.WriteString("\n\n")

	b.WriteString(panelStyle.Render(m.dimensionPanel()))
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(m.samplingPanel()))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("q to quit"))
	b.WriteString("\n")
	return b.String()
}

func (m model) dimensionPanel() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("dimension  (%d results)\n", m.status.DimensionResults))
	for _, w := range m.status.Dimension {
		b.WriteString(fmt.Sprintf(" worker %d  %s  tick %d\n",
			w.ID, renderBusy(w.Busy), w.LastTick))
	}
	if r, ok := m.orch.GetLatestResult(cluster.RoleDimension); ok {
		dr := r.(cluster.DimensionResult)
		b.WriteString(fmt.Sprintf(" d_s = %s  (tick %d, %v)",
			valStyle.Render(fmt.Sprintf("%.3f", dr.Dimension)), dr.Tick, dr.Elapsed.Round(time.Millisecond)))
	} else {
		b.WriteString(dimStyle.Render(" no results yet"))
	}
	return b.String()
}

func (m model) samplingPanel() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("sampling  (%d results)\n", m.status.SamplingResults))

	latest := map[int]cluster.SamplingResult{}
	for _, r := range m.orch.GetLatestBatch() {
		latest[r.WorkerID] = r
	}
	for _, w := range m.status.Sampling {
		line := fmt.Sprintf(" chain %d  %s  T=%-7.3f", w.ID, renderBusy(w.Busy), w.Temperature)
		if r, ok := latest[w.ID]; ok {
			line += fmt.Sprintf("  E=%.2f  acc=%.0f%%", r.MeanEnergy, 100*r.MeanAcceptance)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(m.status.Sampling) == 0 {
		b.WriteString(dimStyle.Render(" no sampling workers"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderBusy(busy bool) string {
	if busy {
		return busyStyle.Render("busy")
	}
	return freeStyle.Render("free")
}
