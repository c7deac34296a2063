// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"

	"spectrum/internal/audio"
	"spectrum/internal/device"
	"spectrum/internal/display"
	"spectrum/internal/spectrum"

	tea "github.com/charmbracelet/bubbletea"
)

var testDevices = []device.Info{
	{ID: 0, Name: "Built-in Microphone", MaxInputChannels: 2, DefaultSampleRate: 44100},
	{ID: 3, Name: "USB Interface", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 22222, DefaultInput: true},
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m DevicePickerModel, msgs ...tea.Msg) DevicePickerModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(DevicePickerModel)
	}
	return m
}

func TestDevicePickerSelection(t *testing.T) {
	m := NewDevicePickerModel("Input Devices", func() ([]device.Info, error) { return testDevices, nil })
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24}, m.Init()())

	if m.selectedIndex != 1 {
		t.Fatalf("initial selection = %d, want the default device", m.selectedIndex)
	}
	if v := m.View(); !strings.Contains(v, "USB Interface [default]") {
		t.Errorf("list view missing default device:\n%s", v)
	}

	m = update(t, m, keyMsg("up"), keyMsg("down"), keyMsg("enter"))
	if m.activeScreen != ConfigScreen {
		t.Fatalf("enter did not open the configuration screen")
	}
	rates := m.sampleRates()
	if rates[m.sampleRateIndex] != 22222 {
		t.Errorf("preselected rate = %d, want the device default", rates[m.sampleRateIndex])
	}

	m = update(t, m, keyMsg("down"), keyMsg("enter"))
	sel, ok := m.Selection()
	if !ok {
		t.Fatal("no selection after confirming")
	}
	if sel.Device.ID != 3 || sel.SampleRate != 32000 {
		t.Errorf("selection = %+v, want device 3 at 32000 Hz", sel)
	}
}

func TestDevicePickerBackAndQuit(t *testing.T) {
	m := NewDevicePickerModel("Output Devices", func() ([]device.Info, error) { return testDevices, nil })
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24}, m.Init()(), keyMsg("enter"), keyMsg("esc"))
	if m.activeScreen != ListScreen {
		t.Errorf("esc did not return to the list")
	}

	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("q did not quit")
	}
	if _, ok := m.Selection(); ok {
		t.Errorf("selection set without confirming")
	}
}

func TestDevicePickerError(t *testing.T) {
	errNoHost := errors.New("no host api")
	m := NewDevicePickerModel("Input Devices", func() ([]device.Info, error) { return nil, errNoHost })
	m = update(t, m, m.Init()())
	if !errors.Is(m.err, errNoHost) {
		t.Fatalf("err = %v, want %v", m.err, errNoHost)
	}
	if v := m.View(); !strings.Contains(v, "no host api") {
		t.Errorf("view does not show error:\n%s", v)
	}
}

type fakeController struct {
	calls  []string
	window spectrum.Window
}

func (c *fakeController) Post(fn func())   { fn() }
func (c *fakeController) StartRecording() { c.calls = append(c.calls, "record") }
func (c *fakeController) StartPlayback()  { c.calls = append(c.calls, "play") }
func (c *fakeController) Suspend()        { c.calls = append(c.calls, "suspend") }
func (c *fakeController) SetWindowFunction(w spectrum.Window) {
	c.calls = append(c.calls, "window")
	c.window = w
}

type subscriber struct{ listeners []audio.Listener }

func (s *subscriber) Subscribe(l audio.Listener) { s.listeners = append(s.listeners, l) }

func (s *subscriber) emit(ev audio.Event) {
	for _, l := range s.listeners {
		l.HandleEvent(ev)
	}
}

func TestMonitorKeys(t *testing.T) {
	ctl := &fakeController{}
	views := NewViews(&subscriber{}, 10, 0, 1000, 40)
	var m tea.Model = NewMonitorModel("Spectrum Analyser", ctl, views, spectrum.HannWindow)

	for _, k := range []string{"r", " ", "p", "w", "w"} {
		m, _ = m.Update(keyMsg(k))
	}
	want := []string{"record", "suspend", "play", "window", "window"}
	if strings.Join(ctl.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", ctl.calls, want)
	}
	if ctl.window != spectrum.HannWindow {
		t.Errorf("window after two toggles = %v, want %v", ctl.window, spectrum.HannWindow)
	}
}

func TestMonitorView(t *testing.T) {
	sub := &subscriber{}
	views := NewViews(sub, 10, 0, 1000, 40)
	if len(sub.listeners) != 5 {
		t.Fatalf("subscribed %d views, want 5", len(sub.listeners))
	}

	sub.emit(audio.StateChanged{Mode: audio.OutputMode, State: device.Active})
	sub.emit(audio.ErrorMessage{Heading: audio.HeadingAudioIOError, Detail: "stream lost"})
	sub.emit(audio.LevelChanged{RMS: 0.5, Peak: 0.9, NumSamples: 4410})
	sub.emit(audio.SpectrumChanged{Spectrum: spectrum.FrequencySpectrum{{Frequency: 440, Amplitude: 0.8, Clipped: true}}})

	m := NewMonitorModel("Spectrum Analyser", &fakeController{}, views, spectrum.NoWindow)
	next, cmd := m.Update(redrawMsg{})
	if cmd == nil {
		t.Error("redraw did not schedule the next frame")
	}
	v := next.View()
	for _, want := range []string{"Spectrum Analyser", "output active", "stream lost", "window: none", "peak: 440 Hz"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}
}

func TestRenderBars(t *testing.T) {
	out := renderBars([]display.Bar{{Value: 1}, {Value: 0}}, 4)
	rows := strings.Split(out, "\n")[1:]
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	for i, r := range rows {
		if !strings.Contains(r, "█") {
			t.Errorf("row %d of a full bar is empty: %q", i, r)
		}
	}
}
