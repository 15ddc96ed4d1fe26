package viz

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/snowsim/internal/export"
	"github.com/san-kum/snowsim/internal/mpm"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	energyHistory = 240
)

// Options configures the live view.
type Options struct {
	Title  string
	Scheme string
}

// Model is the Bubble Tea model of the live view.
type Model struct {
	runner   *Runner
	title    string
	duration float64

	canvas   *Canvas
	contour  [][4]float64
	snap     mpm.FrameSnapshot
	info     mpm.FrameInfo
	energy   []float64
	paused   bool
	finished bool
	err      error

	theme    Theme
	styles   styles
	keys     keyMap
	help     help.Model
	progress progress.Model
}

// NewModel builds the view for the runner's simulator. It must be called
// before the runner is started.
func NewModel(r *Runner, opts Options) Model {
	theme := themeForScheme(opts.Scheme)
	m := Model{
		runner:   r,
		title:    opts.Title,
		duration: r.sim.Config().SimulationTime,
		canvas:   NewCanvas(defaultWidth-statsWidth-6, defaultHeight-4),
		snap:     r.sim.Snapshot(),
		energy:   make([]float64, 0, energyHistory),
		keys:     defaultKeys(),
		help:     help.New(),
	}
	if m.title == "" {
		m.title = "snowsim"
	}
	if ls := r.sim.LevelSet(); ls != nil && !ls.Empty() {
		m.contour = export.Contour(ls.Supersample(1), ls.Dx())
	}
	m.setTheme(theme)
	return m
}

func (m *Model) setTheme(t Theme) {
	m.theme = t
	m.styles = newStyles(t)
	m.progress = progress.New(
		progress.WithGradient(string(t.Secondary), string(t.Primary)),
		progress.WithWidth(statsWidth-10),
	)
}

func (m Model) Init() tea.Cmd {
	return m.runner.Next()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.runner.Stop()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			if !m.finished {
				m.paused = !m.paused
				m.runner.SetPaused(m.paused)
			}
		case key.Matches(msg, m.keys.Theme):
			m.setTheme(NextTheme(m.theme.Name))
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		w := msg.Width - statsWidth - 6
		h := msg.Height - 4
		m.canvas.Resize(w, h)
		m.help.Width = statsWidth - 4
		return m, nil

	case FrameMsg:
		m.info = msg.Info
		m.snap = msg.Snap
		m.energy = append(m.energy, msg.Info.KineticEnergy)
		if len(m.energy) > energyHistory {
			m.energy = m.energy[len(m.energy)-energyHistory:]
		}
		return m, m.runner.Next()

	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, nil
	}
	return m, nil
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return m.styles.failed.Render("FAILED")
	case m.finished:
		return m.styles.done.Render("DONE")
	case m.paused:
		return m.styles.paused.Render("PAUSED")
	}
	return m.styles.running.Render("RUNNING")
}

func (m Model) row(label, value string) string {
	return m.styles.label.Render(label) + m.styles.value.Render(value) + "\n"
}

func (m Model) View() string {
	m.canvas.Clear()
	v := m.canvas.Viewport(m.snap.DomainSize())
	m.canvas.DrawSegments(v, m.contour)
	m.canvas.DrawParticles(v, m.snap.Positions)
	canvasView := m.styles.canvas.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(GradientText(strings.ToUpper(m.title), m.theme.Primary, m.theme.Secondary) + "\n\n")
	s.WriteString(m.status() + "\n\n")

	pct := 0.0
	if m.duration > 0 {
		pct = m.snap.Time / m.duration
	}
	s.WriteString(m.progress.ViewAs(min(pct, 1)) + "\n\n")

	s.WriteString(m.row("Time", fmt.Sprintf("%.3fs", m.snap.Time)))
	s.WriteString(m.row("Frame", fmt.Sprintf("%d", m.snap.Frame)))
	s.WriteString(m.row("Particles", fmt.Sprintf("%d", m.snap.Len())))
	s.WriteString(m.row("Substeps", fmt.Sprintf("%d", m.info.Steps)))
	s.WriteString(m.row("Updates", fmt.Sprintf("%d", m.info.Updates)))
	s.WriteString(m.row("Mean level", fmt.Sprintf("%.2f", m.info.MeanLevel)))
	s.WriteString(m.row("Energy", fmt.Sprintf("%.4g J", m.info.KineticEnergy)))
	s.WriteString(m.row("Levels", levelBars(m.info.LevelHistogram, m.styles)))
	if m.err != nil {
		s.WriteString(m.styles.failed.Render(m.err.Error()) + "\n")
	}

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy,
			asciigraph.Height(5),
			asciigraph.Width(statsWidth-14),
			asciigraph.Caption("kinetic energy"))
		s.WriteString(m.styles.graph.Render(chart) + "\n")
	}

	s.WriteString(m.styles.help.Render(m.help.View(m.keys)))
	statsView := m.styles.panel.Render(s.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
}

// Run shows the live view until the user quits. The program's context is
// also the simulation's.
func Run(ctx context.Context, sim *mpm.Simulator, opts Options) error {
	r := NewRunner(sim)
	m := NewModel(r, opts)
	r.Start(ctx)
	defer r.Stop()

	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok && fm.err != nil {
		return fm.err
	}
	return nil
}
