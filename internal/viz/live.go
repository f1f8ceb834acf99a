package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/nbody/internal/body"
	"github.com/san-kum/nbody/internal/sim"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	frameRate       = 30
)

type TickMsg time.Time

// Model holds the running body state and the visualization buffers.
type Model struct {
	sim        *sim.Simulator
	state      *body.State
	initial    *body.State
	dt         float32
	metrics    []sim.Metric
	canvas     *Canvas
	camera     *Camera
	running    bool
	iteration  int
	visible    int
	times      []time.Duration
	throughput []float64
	err        error
	showHelp   bool
}

// NewModel builds a live view over initial. The state is cloned so a reset
// can restore it.
func NewModel(s *sim.Simulator, initial *body.State, dt float32, metrics []sim.Metric) Model {
	for _, m := range metrics {
		m.Reset()
		m.Observe(initial, 0)
	}
	return Model{
		sim:        s,
		state:      initial.Clone(),
		initial:    initial.Clone(),
		dt:         dt,
		metrics:    metrics,
		canvas:     NewCanvas(width, height),
		camera:     NewCamera(),
		running:    true,
		times:      make([]time.Duration, 0, historyCapacity),
		throughput: make([]float64, 0, historyCapacity),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and advances one iteration per tick.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "?":
			m.showHelp = !m.showHelp
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "z":
			m.camera.RotateZ(0.1)
		case "Z":
			m.camera.RotateZ(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

// step runs one force and position iteration and records its wall time.
func (m *Model) step() {
	start := time.Now()
	m.sim.Step(m.state, m.dt)
	elapsed := time.Since(start)
	m.iteration++

	for _, metric := range m.metrics {
		metric.Observe(m.state, m.iteration)
	}
	if !m.state.IsValid() {
		m.err = &sim.SimulationError{Iteration: m.iteration, Wrapped: sim.ErrInvalidState}
		m.running = false
	}

	m.times = appendCapped(m.times, elapsed)
	m.throughput = appendCapped(m.throughput, sim.Throughput(m.state.Len(), elapsed))
}

func appendCapped[T any](s []T, v T) []T {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

// reset restores the initial bodies and clears the history.
func (m *Model) reset() {
	m.state = m.initial.Clone()
	m.iteration = 0
	m.times = m.times[:0]
	m.throughput = m.throughput[:0]
	m.err = nil
	for _, metric := range m.metrics {
		metric.Reset()
		metric.Observe(m.state, 0)
	}
}

func (m Model) Iteration() int        { return m.iteration }
func (m Model) Running() bool         { return m.running }
func (m Model) State() *body.State    { return m.state }
func (m Model) Err() error            { return m.err }
func (m Model) Throughput() []float64 { return m.throughput }

func (m *Model) draw() {
	m.canvas.Clear()
	DrawAxes(m.canvas, m.camera)
	m.visible = DrawBodies(m.canvas, m.state, m.camera)
}

// View renders the canvas beside the stats panel.
func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render("NBODY") + "\n")
	if m.running {
		s.WriteString(statusRunning.Render("RUNNING") + "\n\n")
	} else {
		s.WriteString(statusPaused.Render("PAUSED") + "\n\n")
	}

	if len(m.throughput) > 1 {
		chart := asciigraph.Plot(m.throughput, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Billion interactions / s"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Bodies", fmt.Sprintf("%d (%d visible)", m.state.Len(), m.visible))
	row("Iteration", fmt.Sprintf("%d", m.iteration))
	row("dt", fmt.Sprintf("%g", m.dt))
	row("Backend", m.sim.Backend().Name())
	if n := len(m.times); n > 0 {
		row("Last step", m.times[n-1].String())
		row("Throughput", fmt.Sprintf("%.3f", m.throughput[n-1]))
		s.WriteString(Sparkline(m.throughput, 30) + "\n")
	}

	if len(m.metrics) > 0 {
		s.WriteString("\nDIAGNOSTICS\n")
		for _, metric := range m.metrics {
			row(metric.Name(), fmt.Sprintf("%.3e", metric.Value()))
		}
	}
	if m.err != nil {
		s.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\nXYZ:Rotate +/-:Zoom ?:Help"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))

	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  R        - Reset to initial bodies  ║
║  X/Y/Z    - Rotate (shift reverses)  ║
║  +/-      - Zoom                     ║
║  Q        - Quit                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

// Run blocks until the user quits the live view.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
