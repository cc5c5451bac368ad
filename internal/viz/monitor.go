package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// EpochMsg reports a finished Wang-Landau epoch to the Monitor.
type EpochMsg struct {
	Epoch              int
	Steps              int64
	ModificationFactor float64
	Flatness           float64
	LnG                []float64
}

// DoneMsg tells the Monitor the run has returned.
type DoneMsg struct {
	Err error
}

var (
	monitorStyle = lipgloss.NewStyle().Padding(1, 2)
	graphStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// Monitor is a bubbletea model following a running Wang-Landau estimate.
type Monitor struct {
	model, runID string
	epochs       int
	stop         func()
	last         EpochMsg
	factors      []float64
	flatness     []float64
	done         bool
	err          error
	quitting     bool
}

// NewMonitor creates a monitor for a run of the given number of epochs.
// stop is called when the user quits before the run is done.
func NewMonitor(model, runID string, epochs int, stop func()) Monitor {
	return Monitor{model: model, runID: runID, epochs: epochs, stop: stop}
}

func (m Monitor) Init() tea.Cmd { return nil }

// Update records epoch reports and handles quit keys.
func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.done && m.stop != nil {
				m.stop()
			}
			m.quitting = true
			return m, tea.Quit
		}
	case EpochMsg:
		m.last = msg
		m.factors = append(m.factors, msg.ModificationFactor)
		m.flatness = append(m.flatness, msg.Flatness)
	case DoneMsg:
		m.done, m.err = true, msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// Done reports whether the run has returned.
func (m Monitor) Done() bool { return m.done }

// Epochs returns the number of epochs reported so far.
func (m Monitor) Epochs() int { return len(m.factors) }

func (m Monitor) View() string {
	var s strings.Builder
	s.WriteString(Title.Render(strings.ToUpper(m.model)+" wang-landau") + "  " + Subtle.Render(m.runID) + "\n\n")

	progress := 0.0
	if m.epochs > 0 {
		progress = float64(m.last.Epoch) / float64(m.epochs)
	}
	s.WriteString(ProgressBar(progress, 40) + fmt.Sprintf(" %d/%d\n\n", m.last.Epoch, m.epochs))

	status := StatusRunning.Render("running")
	switch {
	case m.err != nil:
		status = StatusStopped.Render("failed: " + m.err.Error())
	case m.done:
		status = StatusDone.Render("done")
	case m.quitting:
		status = StatusStopped.Render("stopping")
	}
	s.WriteString(KeyValue(
		[2]string{"status", status},
		[2]string{"steps", fmt.Sprint(m.last.Steps)},
		[2]string{"ln f", fmt.Sprintf("%.3e", m.last.ModificationFactor)},
		[2]string{"flatness", fmt.Sprintf("%.3f", m.last.Flatness)},
	) + "\n")

	if len(m.last.LnG) > 1 {
		chart := asciigraph.Plot(m.last.LnG, asciigraph.Height(8), asciigraph.Width(60), asciigraph.Caption("ln g(E)"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	if len(m.flatness) > 1 {
		s.WriteString(MetricLabel.Render("flatness") + " " + SparklineChart(m.flatness, 40) + "\n")
	}
	s.WriteString(helpStyle.Render("Q: stop and keep checkpoint"))
	return monitorStyle.Render(s.String())
}
