// SPDX-License-Identifier: MIT
package display

import (
	"math"
	"testing"
	"time"

	"spectrum/internal/audio"
	"spectrum/internal/device"
	"spectrum/internal/pcm"
	"spectrum/internal/spectrum"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestLevelMeterSmoothing(t *testing.T) {
	m := NewLevelMeter(nil)
	m.HandleEvent(audio.LevelChanged{RMS: 1, Peak: 1, NumSamples: 256})

	got := m.Snapshot()
	if !approx(got.RMS, 0.1) {
		t.Errorf("RMS after one window = %v, want 0.1", got.RMS)
	}
	if got.Peak != 1 || got.PeakHold != 1 {
		t.Errorf("peak = %v, hold = %v, want 1 and 1", got.Peak, got.PeakHold)
	}

	m.HandleEvent(audio.LevelChanged{RMS: 1, Peak: 0.5, NumSamples: 512})
	want := 0.1*0.81 + 0.19
	if got := m.Snapshot().RMS; !approx(got, want) {
		t.Errorf("RMS after two windows = %v, want %v", got, want)
	}
}

func TestLevelMeterPeakDecay(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	m := NewLevelMeter(clock.now)

	m.LevelChanged(0.2, 0.8, 100)
	clock.advance(300 * time.Millisecond)
	m.Tick()
	got := m.Snapshot()
	if !approx(got.Peak, 0.5) {
		t.Errorf("decayed peak = %v, want 0.5", got.Peak)
	}
	if got.PeakHold != 0.8 {
		t.Errorf("peak hold = %v, want 0.8", got.PeakHold)
	}

	// A lower reading above the decayed peak restarts the decay from there.
	m.LevelChanged(0.2, 0.6, 100)
	if got := m.Snapshot(); got.Peak != 0.6 || got.PeakHold != 0.8 {
		t.Errorf("after 0.6: peak = %v, hold = %v", got.Peak, got.PeakHold)
	}

	clock.advance(time.Second)
	m.Tick()
	if got := m.Snapshot().Peak; got != 0 {
		t.Errorf("peak after full decay = %v, want 0", got)
	}

	clock.advance(PeakHoldDuration)
	m.Tick()
	if got := m.Snapshot().PeakHold; got != 0 {
		t.Errorf("peak hold after %s = %v, want 0", PeakHoldDuration, got)
	}
}

func TestLevelMeterReset(t *testing.T) {
	m := NewLevelMeter(nil)
	m.LevelChanged(0.5, 0.9, 1024)
	m.Reset()
	if got := m.Snapshot(); got != (LevelReading{}) {
		t.Errorf("after Reset: %+v", got)
	}
}

func TestSpectrographBars(t *testing.T) {
	s := NewSpectrograph(4, 0, 1000)
	bins := spectrum.FrequencySpectrum{
		{Frequency: 100, Amplitude: 0.2},
		{Frequency: 200, Amplitude: 0.7},
		{Frequency: 300, Amplitude: 0.9, Clipped: true},
		{Frequency: 999, Amplitude: 0.4},
		{Frequency: 1000, Amplitude: 1},
		{Frequency: 4000, Amplitude: 1},
	}
	s.HandleEvent(audio.SpectrumChanged{Spectrum: bins})

	want := []Bar{
		{Value: 0.7},
		{Value: 0.9, Clipped: true},
		{},
		{Value: 0.4},
	}
	got := s.Bars()
	if len(got) != len(want) {
		t.Fatalf("got %d bars, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bar %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if peak, ok := s.Peak(); !ok || peak.Frequency != 300 {
		t.Errorf("Peak() = %+v, %v, want the 300 Hz bin", peak, ok)
	}

	if lo, hi := s.BarRange(1); lo != 250 || hi != 500 {
		t.Errorf("BarRange(1) = [%v, %v), want [250, 500)", lo, hi)
	}

	s.HandleEvent(audio.SpectrumChanged{})
	if _, ok := s.Peak(); ok {
		t.Error("peak survived a cleared spectrum")
	}
	for i, b := range s.Bars() {
		if b != (Bar{}) {
			t.Errorf("bar %d not cleared: %+v", i, b)
		}
	}
}

func TestSpectrographNoBars(t *testing.T) {
	s := NewSpectrograph(0, 0, 1000)
	s.SpectrumChanged(spectrum.FrequencySpectrum{{Frequency: 10, Amplitude: 1}})
	if got := s.Bars(); len(got) != 0 {
		t.Errorf("got %d bars, want 0", len(got))
	}
}

func TestProgressBar(t *testing.T) {
	p := NewProgressBar()
	if got := p.Snapshot(); got != (Progress{}) {
		t.Errorf("initial snapshot = %+v", got)
	}

	p.HandleEvent(audio.BufferLengthChanged{Length: 1000})
	p.HandleEvent(audio.RecordPositionChanged{Position: 500})
	p.HandleEvent(audio.PlayPositionChanged{Position: 250})
	p.HandleEvent(audio.BufferChanged{Position: 100, Length: 200})

	want := Progress{Recorded: 0.5, Played: 0.25, WindowStart: 0.1, WindowEnd: 0.3}
	if got := p.Snapshot(); got != want {
		t.Errorf("snapshot = %+v, want %+v", got, want)
	}

	p.HandleEvent(audio.BufferChanged{Position: 900, Length: 400})
	if got := p.Snapshot().WindowEnd; got != 1 {
		t.Errorf("window end past buffer = %v, want 1", got)
	}

	p.HandleEvent(audio.BufferLengthChanged{Length: 2000})
	if got := p.Snapshot(); got != (Progress{}) {
		t.Errorf("after new buffer length = %+v, want zeros", got)
	}
}

func TestWaveformEnvelope(t *testing.T) {
	format := pcm.S16LE(8000, 2)
	w := NewWaveform(2)
	w.HandleEvent(audio.FormatChanged{Format: format})

	// Four stereo frames; the right channel is ignored.
	left := []int16{-16384, 8192, 16384, 0}
	data := make([]byte, len(left)*format.BytesPerFrame())
	for i, v := range left {
		pcm.PutSample(data, i*4, v)
		pcm.PutSample(data, i*4+2, 32767)
	}
	w.HandleEvent(audio.BufferChanged{Position: 64, Length: int64(len(data)), Data: data})

	pos, cols := w.Snapshot()
	if pos != 64 {
		t.Errorf("position = %d, want 64", pos)
	}
	want := []Column{{Min: -0.5, Max: 0.25}, {Min: 0, Max: 0.5}}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("column %d = %+v, want %+v", i, cols[i], want[i])
		}
	}

	w.HandleEvent(audio.BufferLengthChanged{Length: 0})
	if _, cols := w.Snapshot(); cols[0] != (Column{}) {
		t.Errorf("columns not cleared: %+v", cols)
	}
}

func TestWaveformWithoutFormat(t *testing.T) {
	w := NewWaveform(4)
	w.HandleEvent(audio.BufferChanged{Data: make([]byte, 64)})
	_, cols := w.Snapshot()
	for i, c := range cols {
		if c != (Column{}) {
			t.Errorf("column %d = %+v, want zero", i, c)
		}
	}
}

func BenchmarkSpectrograph(b *testing.B) {
	bins := make(spectrum.FrequencySpectrum, 2048)
	for i := range bins {
		bins[i].Frequency = float64(i) * 10
		bins[i].Amplitude = float64(i%100) / 100
	}
	s := NewSpectrograph(20, 0, 10000)
	b.ReportAllocs()
	for b.Loop() {
		s.SpectrumChanged(bins)
	}
}

func TestStatus(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := NewStatus(clock.now)

	s.HandleEvent(audio.FormatChanged{Format: pcm.S16LE(44100, 1)})
	s.HandleEvent(audio.StateChanged{Mode: audio.OutputMode, State: device.Suspended})
	s.HandleEvent(audio.InfoMessage{Text: "Playing tone", Timeout: time.Second})
	s.HandleEvent(audio.ErrorMessage{Heading: audio.HeadingAudioIOError, Detail: "underrun"})

	got := s.Snapshot()
	if got.Mode != audio.OutputMode || got.State != device.Suspended {
		t.Errorf("mode/state = %v/%v", got.Mode, got.State)
	}
	if got.Format.SampleRate != 44100 {
		t.Errorf("format = %v", got.Format)
	}
	if got.Info != "Playing tone" {
		t.Errorf("info = %q", got.Info)
	}
	if got.Error == nil || got.Error.Detail != "underrun" {
		t.Errorf("error = %+v", got.Error)
	}

	clock.advance(time.Second)
	if got := s.Snapshot().Info; got != "" {
		t.Errorf("info after timeout = %q, want empty", got)
	}

	s.HandleEvent(audio.StateChanged{Mode: audio.InputMode, State: device.Active})
	if got := s.Snapshot().Error; got != nil {
		t.Errorf("error survived activation: %+v", got)
	}

	s.HandleEvent(audio.InfoMessage{Text: "sticky"})
	clock.advance(time.Hour)
	if got := s.Snapshot().Info; got != "sticky" {
		t.Errorf("info without timeout = %q", got)
	}
}
