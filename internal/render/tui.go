package render

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"nbodywatch/internal/scene"
	"nbodywatch/internal/view"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// scenesMsg carries one tick's scenes for all instances.
type scenesMsg []scene.Scene

// metricMsg carries a formatted metric log line for the viewport.
type metricMsg struct{ line string }

const (
	maxLogLines   = 200
	elevationDeg  = 20.0
	projectMargin = 1.2
)

// TUIWriter renders scenes in a bubbletea TUI and feeds keyboard input
// back into the shared control knobs.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. When
// the user quits the TUI, the main process receives an interrupt so the
// coordinator shuts down with it.
func NewTUIWriter(controls *view.Controls) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	m := newTUIModel(controls)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WriteScene implements view.SceneWriter.
func (w *TUIWriter) WriteScene(s scene.Scene) error {
	w.program.Send(scenesMsg{s})
	return nil
}

// WriteScenes replaces the displayed scenes with this tick's batch.
func (w *TUIWriter) WriteScenes(scenes []scene.Scene) error {
	w.program.Send(scenesMsg(scenes))
	return nil
}

// WriteMetrics implements view.MetricsWriter.
func (w *TUIWriter) WriteMetrics(r scene.MetricsRow) error {
	line := fmt.Sprintf("[%s] %s seq=%04d decode=%.2fms fps=%.1f speedup=%.1fx progress=%3.0f%%",
		r.Timestamp.Format("15:04:05"), r.InstanceID, r.Sequence,
		r.DecodeMS, r.FPS, r.Speedup, r.Progress*100)
	w.program.Send(metricMsg{line: line})
	return nil
}

// WriteMetricsBatch implements the batch form.
func (w *TUIWriter) WriteMetricsBatch(rows []scene.MetricsRow) error {
	for _, r := range rows {
		_ = w.WriteMetrics(r)
	}
	return nil
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

var panelPalette = []lipgloss.Color{"203", "80", "114", "177", "221", "75"}

type tuiModel struct {
	controls   *view.Controls
	scenes     []scene.Scene
	logs       []string
	vp         viewport.Model
	width      int
	height     int
	wrap       bool
	autoscroll bool
	help       bool
	colors     map[string]lipgloss.Color
	colorIdx   int
}

func newTUIModel(controls *view.Controls) tuiModel {
	return tuiModel{
		controls:   controls,
		vp:         viewport.New(0, 0),
		autoscroll: true,
		colors:     make(map[string]lipgloss.Color),
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = msg.Width
		m.vp.Height = m.logHeight()
		m.refreshViewport()
	case scenesMsg:
		m.scenes = msg
	case metricMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "t":
			m.controls.ToggleTrails()
		case "p", " ":
			m.controls.TogglePause()
		case "+", "=":
			m.controls.SetParticleScale(m.controls.ParticleScale() + 0.1)
		case "-":
			m.controls.SetParticleScale(m.controls.ParticleScale() - 0.1)
		case "]":
			m.controls.SetRotationSpeed(m.controls.RotationSpeed() + 0.1)
		case "[":
			m.controls.SetRotationSpeed(m.controls.RotationSpeed() - 0.1)
		case "}":
			m.controls.SetPlaybackSpeed(m.controls.PlaybackSpeed() + 0.25)
		case "{":
			m.controls.SetPlaybackSpeed(m.controls.PlaybackSpeed() - 0.25)
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
		case "?":
			m.help = true
		default:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *tuiModel) logHeight() int {
	h := m.height / 4
	if h < 3 {
		h = 3
	}
	return h
}

func (m *tuiModel) refreshViewport() {
	lines := m.logs
	if m.wrap && m.vp.Width > 0 {
		wrapped := make([]string, 0, len(lines))
		for _, l := range lines {
			wrapped = append(wrapped, wordwrap.String(l, m.vp.Width))
		}
		lines = wrapped
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) instanceColor(id string) lipgloss.Color {
	if c, ok := m.colors[id]; ok {
		return c
	}
	c := panelPalette[m.colorIdx%len(panelPalette)]
	m.colors[id] = c
	m.colorIdx++
	return c
}

func (m tuiModel) View() string {
	if m.width == 0 {
		return "starting..."
	}
	if m.help {
		return helpView()
	}

	header := m.renderHeader()
	logPane := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 2).
		Render(m.vp.View())

	gridHeight := m.height - lipgloss.Height(header) - lipgloss.Height(logPane)
	grid := m.renderGrid(gridHeight)

	return lipgloss.JoinVertical(lipgloss.Left, header, grid, logPane)
}

func (m tuiModel) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).
		Render("N-Body Live Monitor")
	knobs := fmt.Sprintf("rotation %.1f  scale %.1f  playback %.2fx  trails %s  %s",
		m.controls.RotationSpeed(), m.controls.ParticleScale(), m.controls.PlaybackSpeed(),
		onOff(m.controls.TrailsEnabled()), pausedLabel(m.controls.Paused()))
	knobStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	hint := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("? help  q quit")
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(hint)
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + hint + "\n" + knobStyle.Render(knobs)
}

func (m tuiModel) renderGrid(height int) string {
	if len(m.scenes) == 0 || height < 4 {
		return ""
	}
	cols := 2
	if len(m.scenes) == 1 {
		cols = 1
	}
	rows := (len(m.scenes) + cols - 1) / cols
	panelW := m.width/cols - 2
	panelH := height/rows - 2
	if panelH < 4 {
		panelH = 4
	}

	var rendered []string
	for r := 0; r < rows; r++ {
		var rowPanels []string
		for c := 0; c < cols; c++ {
			idx := r*cols + c
			if idx >= len(m.scenes) {
				break
			}
			rowPanels = append(rowPanels, m.renderPanel(m.scenes[idx], panelW, panelH))
		}
		rendered = append(rendered, lipgloss.JoinHorizontal(lipgloss.Top, rowPanels...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rendered...)
}

func (m tuiModel) renderPanel(s scene.Scene, w, h int) string {
	color := m.instanceColor(s.InstanceID)
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Width(w).Height(h)

	hud := lipgloss.NewStyle().Foreground(color).Bold(true).Render(truncate(s.HUD, w))
	status := s.Status
	if s.Stalled {
		status += " (stalled)"
	}
	statusLine := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).
		Render(truncate(fmt.Sprintf("status: %s", status), w))
	progress := renderProgressBar(s, w)

	canvasH := h - 3
	canvas := ""
	if canvasH > 0 {
		if len(s.Points) > 0 {
			canvas = renderProjection(s, w, canvasH)
		} else {
			canvas = lipgloss.Place(w, canvasH, lipgloss.Center, lipgloss.Center,
				lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true).
					Render("waiting for data..."))
		}
	}

	return border.Render(lipgloss.JoinVertical(lipgloss.Left, hud, statusLine, canvas, progress))
}

func renderProgressBar(s scene.Scene, w int) string {
	label := fmt.Sprintf(" t = %.1f/%.0f", s.CurrentTime, s.EndTime)
	barW := w - lipgloss.Width(label)
	if barW < 4 {
		return label
	}
	filled := int(s.Progress * float64(barW))
	if filled > barW {
		filled = barW
	}
	bar := lipgloss.NewStyle().Foreground(lipgloss.Color("114")).
		Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(lipgloss.Color("238")).
			Render(strings.Repeat("░", barW-filled))
	return bar + lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(label)
}

var scalarRamp = []lipgloss.Color{"25", "39", "51", "213", "201"}

// renderProjection draws an orthographic projection of the point cloud,
// rotated by the scene's display-only azimuth.
func renderProjection(s scene.Scene, w, h int) string {
	if w < 2 || h < 1 {
		return ""
	}
	maxRange := 0.0
	for _, p := range s.Points {
		for _, v := range []float64{math.Abs(p.X), math.Abs(p.Y), math.Abs(p.Z)} {
			if v > maxRange {
				maxRange = v
			}
		}
	}
	if maxRange == 0 {
		maxRange = 1
	}
	maxRange *= projectMargin

	azim := s.Rotation * math.Pi / 180
	elev := elevationDeg * math.Pi / 180
	sinA, cosA := math.Sin(azim), math.Cos(azim)
	sinE, cosE := math.Sin(elev), math.Cos(elev)

	project := func(pos [3]float64) (int, int, bool) {
		xr := pos[0]*cosA + pos[1]*sinA
		yr := -pos[0]*sinA + pos[1]*cosA
		u := xr / maxRange
		v := (pos[2]*cosE + yr*sinE) / maxRange
		col := int((u + 1) / 2 * float64(w-1))
		row := int((1 - v) / 2 * float64(h-1))
		if col < 0 || col >= w || row < 0 || row >= h {
			return 0, 0, false
		}
		return col, row, true
	}

	cells := make([][]rune, h)
	colors := make([][]lipgloss.Color, h)
	for i := range cells {
		cells[i] = make([]rune, w)
		colors[i] = make([]lipgloss.Color, w)
		for j := range cells[i] {
			cells[i][j] = ' '
		}
	}

	for _, tr := range s.Trails {
		for _, pos := range tr.Points {
			if col, row, ok := project(pos); ok && cells[row][col] == ' ' {
				cells[row][col] = '·'
				colors[row][col] = "240"
			}
		}
	}
	for _, p := range s.Points {
		col, row, ok := project([3]float64{p.X, p.Y, p.Z})
		if !ok {
			continue
		}
		cells[row][col] = pointRune(p.Size)
		colors[row][col] = scalarRamp[scalarBucket(p.Scalar)]
	}

	var b strings.Builder
	for i, rowCells := range cells {
		if i > 0 {
			b.WriteString("\n")
		}
		for j, r := range rowCells {
			if r == ' ' {
				b.WriteString(" ")
				continue
			}
			b.WriteString(lipgloss.NewStyle().Foreground(colors[i][j]).Render(string(r)))
		}
	}
	return b.String()
}

func pointRune(size float64) rune {
	switch {
	case size >= 180:
		return '●'
	case size >= 90:
		return '•'
	default:
		return '∙'
	}
}

func scalarBucket(v float64) int {
	idx := int(v * float64(len(scalarRamp)))
	if idx >= len(scalarRamp) {
		idx = len(scalarRamp) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

func truncate(s string, w int) string {
	if w <= 0 || len(s) <= w {
		return s
	}
	if w <= 3 {
		return s[:w]
	}
	return s[:w-3] + "..."
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func pausedLabel(b bool) string {
	if b {
		return "PAUSED"
	}
	return "live"
}

func helpView() string {
	lines := []string{
		"nbodywatch keys",
		"",
		"  q / ctrl+c   quit",
		"  p / space    pause / resume",
		"  t            toggle trails",
		"  + / -        particle size scale",
		"  ] / [        rotation speed",
		"  } / {        playback speed",
		"  w            wrap log lines",
		"  s            toggle autoscroll",
		"  ? / esc      close help",
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
}
