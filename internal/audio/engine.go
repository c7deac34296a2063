// SPDX-License-Identifier: MIT
/*
Package audio implements the spectrum analyser engine:
- Capture into, or synthesize a tone into, a fixed-duration sample buffer
- Play back the buffer or a WAV file
- Periodic level (RMS/peak) and spectrum calculation over sliding windows
- Mode/state tracking and event publication to rendering consumers

Threading:
- All Engine state is owned by a single goroutine. Methods other than Post, Call
  and Subscribe must be called on that goroutine: before Run starts, from inside
  Run via Post/Call, or from tests that drive the engine directly.
- Device callbacks only enqueue notifications; the spectrum FFT runs on the
  analyser's worker and its results are marshalled back through Run.
*/
package audio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"spectrum/internal/device"
	applog "spectrum/internal/log"
	"spectrum/internal/pcm"
	"spectrum/internal/spectrum"
	"spectrum/internal/wavfile"
)

// Defaults for Options.
const (
	DefaultBufferDuration = 10 * time.Second
	DefaultNotifyInterval = time.Second
	DefaultLevelWindow    = 100 * time.Millisecond
	DefaultWaveformWindow = 500 * time.Millisecond
	DefaultSpectrumLength = 4096
	DefaultHighFrequency  = 1000.0
)

// Options configures an Engine.
type Options struct {
	BufferDuration time.Duration // capacity of the sample buffer
	NotifyInterval time.Duration // period of the level/spectrum tick
	LevelWindow    time.Duration // span of each level calculation
	WaveformWindow time.Duration // slack read past the analysis windows when staging a file

	SpectrumLength int // samples per spectrum block, a power of two
	Window         spectrum.Window
	Multiplier     float64
	HighFrequency  float64 // upper bound for a swept tone's default end frequency

	// PreferredFormat is tried first during format selection. The zero value
	// disables it.
	PreferredFormat pcm.Format

	InputDevice  int
	OutputDevice int

	// DumpDir receives a WAV copy of every recording when it stops. Empty disables.
	DumpDir string
}

// DefaultOptions returns the stock engine configuration.
func DefaultOptions() Options {
	return Options{
		BufferDuration: DefaultBufferDuration,
		NotifyInterval: DefaultNotifyInterval,
		LevelWindow:    DefaultLevelWindow,
		WaveformWindow: DefaultWaveformWindow,
		SpectrumLength: DefaultSpectrumLength,
		Window:         spectrum.DefaultWindow,
		Multiplier:     spectrum.DefaultMultiplier,
		HighFrequency:  DefaultHighFrequency,
		InputDevice:    device.DefaultID,
		OutputDevice:   device.DefaultID,
	}
}

type Engine struct {
	opts Options

	// Device backends and selection.
	in       device.InputBackend // nil when capture is unavailable
	out      device.OutputBackend
	inputID  int
	outputID int
	input    device.Input
	output   device.Output

	mode  Mode
	state device.State

	// Source selection.
	generateTone bool
	tone         pcm.SweptTone
	file         *wavfile.Reader // playback handle
	analysisFile *wavfile.Reader // random-access handle for staging windows

	format pcm.Format

	// Sample buffer and cursors, all in bytes.
	buffer         []byte
	bufferPosition int64 // stream offset of buffer[0]
	bufferLength   int64
	dataLength     int64
	recordPosition int64
	playPosition   int64

	levelBufferLength    int64
	spectrumBufferLength int64
	spectrumPosition     int64
	rmsLevel             float64
	peakLevel            float64

	analyser  *spectrum.Analyser
	listeners []Listener

	notifications chan device.Notification
	dataPending   atomic.Bool // a DataReady notification is queued
	calls         chan func()
	done          chan struct{} // closed when Run returns
	stopOnce      sync.Once
}

// ErrStopped is returned by Call once Run has returned.
var ErrStopped = errors.New("audio: engine loop stopped")

// NewEngine creates an Engine. in may be nil, in which case recording is
// unavailable; out is required.
func NewEngine(opts Options, in device.InputBackend, out device.OutputBackend) (*Engine, error) {
	if out == nil {
		return nil, errors.New("audio: an output backend is required")
	}
	analyser, err := spectrum.NewAnalyser(opts.SpectrumLength, opts.Window, opts.Multiplier)
	if err != nil {
		return nil, err
	}
	return &Engine{
		opts:          opts,
		in:            in,
		out:           out,
		inputID:       opts.InputDevice,
		outputID:      opts.OutputDevice,
		mode:          InputMode,
		state:         device.Stopped,
		analyser:      analyser,
		notifications: make(chan device.Notification, 64),
		calls:         make(chan func(), 16),
		done:          make(chan struct{}),
	}, nil
}

// Subscribe adds a listener. It must be called before Run.
func (e *Engine) Subscribe(l Listener) {
	e.listeners = append(e.listeners, l)
}

func (e *Engine) emit(ev Event) {
	for _, l := range e.listeners {
		l.HandleEvent(ev)
	}
}

// Run is the engine's event loop. It returns nil when ctx is cancelled. Calls
// posted after Run returns are dropped.
func (e *Engine) Run(ctx context.Context) error {
	defer e.stopOnce.Do(func() { close(e.done) })
	ticker := time.NewTicker(e.opts.NotifyInterval)
	defer ticker.Stop()

	applog.Debugf("Engine: running, notify interval %v", e.opts.NotifyInterval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.tick()
		case n := <-e.notifications:
			e.handleNotification(n)
		case r := <-e.analyser.Results():
			e.spectrumReady(r)
		case fn := <-e.calls:
			fn()
		}
	}
}

// Post queues fn to run on the engine goroutine. It never blocks once Run has
// returned; fn is then discarded.
func (e *Engine) Post(fn func()) {
	select {
	case e.calls <- fn:
	case <-e.done:
	}
}

// Call runs fn on the engine goroutine and waits for it to return.
func (e *Engine) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case e.calls <- func() { fn(); close(done) }:
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-e.done:
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close resets the engine and stops the analyser worker.
func (e *Engine) Close() error {
	e.Reset()
	return e.analyser.Close()
}

// deviceNotify is handed to devices. It runs on device goroutines and never
// blocks; at most one DataReady is queued at a time.
func (e *Engine) deviceNotify(n device.Notification) {
	if n.Kind == device.DataReady && e.dataPending.Swap(true) {
		return
	}
	select {
	case e.notifications <- n:
	default:
		if n.Kind == device.DataReady {
			e.dataPending.Store(false)
		}
		applog.Warnf("Engine: notification queue full, dropping kind %d", n.Kind)
	}
}

func (e *Engine) handleNotification(n device.Notification) {
	switch n.Kind {
	case device.DataReady:
		e.dataPending.Store(false)
		if e.mode == InputMode && e.input != nil && n.Source == any(e.input) {
			e.audioDataReady()
		}
	case device.StateChanged:
		e.audioStateChanged(n.Source)
	}
}

// activeDevice returns the device serving the current mode, or nil.
func (e *Engine) activeDevice() device.Device {
	if e.mode == InputMode && e.input != nil {
		return e.input
	}
	if e.mode == OutputMode && e.output != nil {
		return e.output
	}
	return nil
}

// tick runs the periodic notification while the active device is running.
func (e *Engine) tick() {
	dev := e.activeDevice()
	if dev == nil {
		return
	}
	if s := dev.State(); s == device.Active || s == device.Idle {
		e.audioNotify()
	}
}

// Mode returns the current direction.
func (e *Engine) Mode() Mode { return e.mode }

// State returns the state of the active device as last observed.
func (e *Engine) State() device.State { return e.state }

// Format returns the negotiated format, or the zero Format.
func (e *Engine) Format() pcm.Format { return e.format }

func (e *Engine) RecordPosition() int64 { return e.recordPosition }
func (e *Engine) PlayPosition() int64   { return e.playPosition }
func (e *Engine) RMSLevel() float64     { return e.rmsLevel }
func (e *Engine) PeakLevel() float64    { return e.peakLevel }

// BufferLength is the capacity of the buffer, or the PCM length of a loaded file.
func (e *Engine) BufferLength() int64 { return e.bufferLength }

// DataLength is the number of valid bytes staged in the buffer.
func (e *Engine) DataLength() int64 { return e.dataLength }

// BufferPosition is the stream offset of the first staged byte.
func (e *Engine) BufferPosition() int64 { return e.bufferPosition }

func (e *Engine) LevelBufferLength() int64    { return e.levelBufferLength }
func (e *Engine) SpectrumBufferLength() int64 { return e.spectrumBufferLength }

// SpectrumPosition is the stream offset of the most recently analysed block.
func (e *Engine) SpectrumPosition() int64 { return e.spectrumPosition }

func (e *Engine) InputDevice() int  { return e.inputID }
func (e *Engine) OutputDevice() int { return e.outputID }

// WindowFunction returns the window used for spectrum calculations.
func (e *Engine) WindowFunction() spectrum.Window { return e.analyser.WindowFunction() }

// Tone returns the tone that was last generated, with a resolved end frequency.
func (e *Engine) Tone() pcm.SweptTone { return e.tone }

// IsGeneratingTone reports whether the buffer holds a synthesized tone.
func (e *Engine) IsGeneratingTone() bool { return e.generateTone }

// HasFile reports whether a WAV file is loaded.
func (e *Engine) HasFile() bool { return e.file != nil }
