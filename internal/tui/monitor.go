// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spectrum/internal/audio"
	"spectrum/internal/display"
	"spectrum/internal/spectrum"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	meterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
	holdStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F"))
	clipStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#25A065")).
			Padding(0, 1)
)

var (
	recordKey  = key.NewBinding(key.WithKeys("r"))
	playKey    = key.NewBinding(key.WithKeys("p"))
	suspendKey = key.NewBinding(key.WithKeys(" "))
	windowKey  = key.NewBinding(key.WithKeys("w"))
)

// Controller is the part of the engine the monitor drives. Calls are made
// through Post so they run on the engine goroutine.
type Controller interface {
	Post(fn func())
	StartRecording()
	StartPlayback()
	Suspend()
	SetWindowFunction(spectrum.Window)
}

// Views are the display models the monitor draws. They must be subscribed to the
// engine by the caller.
type Views struct {
	Level        *display.LevelMeter
	Spectrograph *display.Spectrograph
	Progress     *display.ProgressBar
	Waveform     *display.Waveform
	Status       *display.Status
}

// NewViews creates display models sized for the monitor and subscribes them to
// engine.
func NewViews(engine interface{ Subscribe(audio.Listener) }, bars int, low, high float64, columns int) Views {
	v := Views{
		Level:        display.NewLevelMeter(nil),
		Spectrograph: display.NewSpectrograph(bars, low, high),
		Progress:     display.NewProgressBar(),
		Waveform:     display.NewWaveform(columns),
		Status:       display.NewStatus(nil),
	}
	engine.Subscribe(v.Level)
	engine.Subscribe(v.Spectrograph)
	engine.Subscribe(v.Progress)
	engine.Subscribe(v.Waveform)
	engine.Subscribe(v.Status)
	return v
}

type redrawMsg time.Time

// MonitorModel redraws the display models every display.RedrawInterval and maps
// keys onto engine controls.
type MonitorModel struct {
	title  string
	engine Controller
	views  Views
	window spectrum.Window
	width  int
}

// NewMonitorModel creates a monitor. window is the engine's current window
// function, toggled by the w key.
func NewMonitorModel(title string, engine Controller, views Views, window spectrum.Window) MonitorModel {
	return MonitorModel{title: title, engine: engine, views: views, window: window, width: 80}
}

func redraw() tea.Cmd {
	return tea.Tick(display.RedrawInterval, func(t time.Time) tea.Msg { return redrawMsg(t) })
}

func (m MonitorModel) Init() tea.Cmd {
	return redraw()
}

func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case redrawMsg:
		m.views.Level.Tick()
		return m, redraw()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, quitKey):
			return m, tea.Quit
		case key.Matches(msg, recordKey):
			m.views.Status.DismissError()
			m.engine.Post(m.engine.StartRecording)
		case key.Matches(msg, playKey):
			m.views.Status.DismissError()
			m.engine.Post(m.engine.StartPlayback)
		case key.Matches(msg, suspendKey):
			m.engine.Post(m.engine.Suspend)
		case key.Matches(msg, windowKey):
			if m.window == spectrum.HannWindow {
				m.window = spectrum.NoWindow
			} else {
				m.window = spectrum.HannWindow
			}
			w := m.window
			m.engine.Post(func() { m.engine.SetWindowFunction(w) })
		}
	}
	return m, nil
}

func (m MonitorModel) View() string {
	inner := max(m.width-6, 20)
	status := m.views.Status.Snapshot()

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	line := fmt.Sprintf("%s %s • %s • window: %s", status.Mode, status.State, formatLabel(status), m.window)
	if peak, ok := m.views.Spectrograph.Peak(); ok {
		line += fmt.Sprintf(" • peak: %.0f Hz", peak.Frequency)
	}
	sb.WriteString(infoStyle.Render(line))
	sb.WriteString("\n")
	if status.Info != "" {
		sb.WriteString(dimStyle.Render(status.Info))
		sb.WriteString("\n")
	}
	if status.Error != nil {
		sb.WriteString(errorStyle.Render(status.Error.Heading + ": " + status.Error.Detail))
		sb.WriteString("\n")
	}

	panel := strings.Join([]string{
		renderLevel(m.views.Level.Snapshot(), inner),
		renderProgress(m.views.Progress.Snapshot(), inner),
		renderWaveform(m.views.Waveform),
		renderBars(m.views.Spectrograph.Bars(), 8),
	}, "\n\n")
	sb.WriteString(panelStyle.Render(panel))
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("r: Record • p: Play • space: Suspend • w: Window • q: Quit"))
	return sb.String()
}

func formatLabel(s display.StatusReading) string {
	if !s.Format.IsValid() {
		return "no format"
	}
	return s.Format.String()
}

func renderLevel(r display.LevelReading, width int) string {
	cells := func(v float64) int { return min(max(int(v*float64(width)), 0), width) }
	rms, peak, hold := cells(r.RMS), cells(r.Peak), cells(r.PeakHold)

	row := make([]string, width)
	for i := range row {
		switch {
		case i < rms:
			row[i] = meterStyle.Render("█")
		case i < peak:
			row[i] = meterStyle.Render("▒")
		case hold > 0 && i == hold-1:
			row[i] = holdStyle.Render("|")
		default:
			row[i] = dimStyle.Render("·")
		}
	}
	return "Level\n" + strings.Join(row, "")
}

func renderProgress(p display.Progress, width int) string {
	at := func(v float64) int { return min(int(v*float64(width)), width-1) }
	recorded, played := at(p.Recorded), at(p.Played)
	winStart, winEnd := at(p.WindowStart), at(p.WindowEnd)

	row := make([]string, width)
	for i := range row {
		switch {
		case p.Played > 0 && i == played:
			row[i] = holdStyle.Render("▲")
		case p.WindowEnd > p.WindowStart && i >= winStart && i <= winEnd:
			row[i] = meterStyle.Render("▓")
		case p.Recorded > 0 && i <= recorded:
			row[i] = meterStyle.Render("█")
		default:
			row[i] = dimStyle.Render("─")
		}
	}
	return "Buffer\n" + strings.Join(row, "")
}

var levels = []rune(" ▁▂▃▄▅▆▇█")

func renderWaveform(w *display.Waveform) string {
	_, cols := w.Snapshot()
	var sb strings.Builder
	sb.WriteString("Waveform\n")
	for _, c := range cols {
		mag := max(-c.Min, c.Max)
		sb.WriteRune(levels[min(int(mag*float64(len(levels)-1)+0.5), len(levels)-1)])
	}
	return meterStyle.Render(sb.String())
}

// renderBars draws bars as columns of the given height, two cells per bar.
func renderBars(bars []display.Bar, height int) string {
	rows := make([]string, height)
	for r := range height {
		var sb strings.Builder
		threshold := float64(height-r-1) / float64(height)
		for _, b := range bars {
			cell := "  "
			if b.Value > threshold {
				cell = "█ "
			}
			if b.Clipped {
				sb.WriteString(clipStyle.Render(cell))
			} else {
				sb.WriteString(meterStyle.Render(cell))
			}
		}
		rows[r] = sb.String()
	}
	return "Spectrum\n" + strings.Join(rows, "\n")
}

// RunMonitor runs the monitor full screen until the user quits or ctx is done.
func RunMonitor(ctx context.Context, m MonitorModel) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
