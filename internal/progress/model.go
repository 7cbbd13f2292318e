// Package progress implements the live terminal view: a progress bar
// plus a per-endpoint health table, refreshed at the configured
// interval.
package progress

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/thushan/blaze/internal/domain"
	"github.com/thushan/blaze/internal/endpointpool"
	"github.com/thushan/blaze/internal/tracker"
	"github.com/thushan/blaze/pkg/format"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	healthyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	degradedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	coolingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	rowStyle      = lipgloss.NewStyle().PaddingLeft(2)
)

// snapshotMsg carries a fresh tracker.Snapshot into the bubbletea loop.
type snapshotMsg tracker.Snapshot

// doneMsg signals the driven run has finished and the program should quit.
type doneMsg struct{}

type model struct {
	bar       progress.Model
	snapshot  tracker.Snapshot
	refresh   time.Duration
	snapshots <-chan tracker.Snapshot
	done      <-chan struct{}
	finished  bool
}

func newModel(snapshots <-chan tracker.Snapshot, done <-chan struct{}, refresh time.Duration) model {
	return model{
		bar:       progress.New(progress.WithDefaultGradient()),
		refresh:   refresh,
		snapshots: snapshots,
		done:      done,
	}
}

func (m model) Init() tea.Cmd {
	return m.waitForSnapshot()
}

func (m model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		select {
		case snap, ok := <-m.snapshots:
			if !ok {
				return doneMsg{}
			}
			return snapshotMsg(snap)
		case <-m.done:
			return doneMsg{}
		}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case snapshotMsg:
		m.snapshot = tracker.Snapshot(msg)
		return m, m.waitForSnapshot()
	case doneMsg:
		m.finished = true
		return m, tea.Quit
	case progress.FrameMsg:
		barModel, cmd := m.bar.Update(msg)
		m.bar = barModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("blaze"))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s elapsed", format.Duration(m.snapshot.Elapsed))))
	b.WriteString("\n\n")

	pct := 0.0
	if m.snapshot.RecordsTotal > 0 {
		pct = float64(m.snapshot.RecordsDone) / float64(m.snapshot.RecordsTotal)
	}
	b.WriteString(m.bar.ViewAs(pct))
	b.WriteString(" ")
	b.WriteString(mutedStyle.Render(format.Percentage(pct * 100)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s done  %s ok  %s err  %s retries  %.1f req/s\n\n",
		fmt.Sprintf("%d/%d", m.snapshot.RecordsDone, m.snapshot.RecordsTotal),
		successStyle.Render(fmt.Sprintf("%d", m.snapshot.Successes)),
		errorStyle.Render(fmt.Sprintf("%d", m.snapshot.Errors)),
		mutedStyle.Render(fmt.Sprintf("%d", m.snapshot.Retries)),
		m.snapshot.Throughput(),
	))

	b.WriteString(mutedStyle.Render(fmt.Sprintf("p50 %s  p95 %s  p99 %s  in %s  out %s",
		format.Latency(m.snapshot.P50Ms), format.Latency(m.snapshot.P95Ms), format.Latency(m.snapshot.P99Ms),
		format.Bytes(uint64(m.snapshot.BytesIn)), format.Bytes(uint64(m.snapshot.BytesOut)))))
	b.WriteString("\n\n")

	rows := make([]string, 0, len(m.snapshot.Endpoints))
	for _, ep := range m.snapshot.Endpoints {
		rows = append(rows, renderEndpointRow(ep))
	}
	sort.Strings(rows)
	b.WriteString(strings.Join(rows, "\n"))

	return b.String()
}

func renderEndpointRow(ep endpointpool.EndpointSnapshot) string {
	var healthStyle lipgloss.Style
	switch ep.Health {
	case domain.HealthHealthy:
		healthStyle = healthyStyle
	case domain.HealthDegraded:
		healthStyle = degradedStyle
	case domain.HealthCooling:
		healthStyle = coolingStyle
	}

	status := string(ep.Health)
	if ep.Health == domain.HealthCooling {
		status += " " + format.TimeUntil(ep.CooldownUntil)
	}
	return rowStyle.Render(fmt.Sprintf("%-8s %-40s in-flight=%d ok=%d fail=%d",
		healthStyle.Render(status), ep.URL, ep.InFlight, ep.Successes, ep.Failures))
}
