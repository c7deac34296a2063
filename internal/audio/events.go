// SPDX-License-Identifier: MIT
package audio

import (
	"time"

	"spectrum/internal/device"
	"spectrum/internal/pcm"
	"spectrum/internal/spectrum"
)

// Mode is the direction the engine is working in.
type Mode int

const (
	InputMode Mode = iota
	OutputMode
)

func (m Mode) String() string {
	if m == OutputMode {
		return "output"
	}
	return "input"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Event is published by the Engine to its listeners.
type Event interface {
	EventName() string
}

// Listener receives engine events on the engine goroutine. HandleEvent must not
// block and must not retain byte slices carried by an event past its return.
type Listener interface {
	HandleEvent(Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

func (f ListenerFunc) HandleEvent(ev Event) { f(ev) }

type StateChanged struct {
	Mode  Mode         `json:"mode"`
	State device.State `json:"state"`
}

type FormatChanged struct {
	Format pcm.Format `json:"format"`
}

type BufferLengthChanged struct {
	Length int64 `json:"length"`
}

type DataLengthChanged struct {
	Length int64 `json:"length"`
}

type RecordPositionChanged struct {
	Position int64 `json:"position"`
}

type PlayPositionChanged struct {
	Position int64 `json:"position"`
}

// LevelChanged carries the RMS and peak level, both in [0,1], of the most recent
// level window.
type LevelChanged struct {
	RMS        float64 `json:"rms"`
	Peak       float64 `json:"peak"`
	NumSamples int     `json:"num_samples"`
}

// SpectrumChanged carries the spectrum of the block at [Position, Position+Length).
// An empty spectrum with zero Position and Length clears the display.
type SpectrumChanged struct {
	Position int64                      `json:"position"`
	Length   int64                      `json:"length"`
	Spectrum spectrum.FrequencySpectrum `json:"spectrum"`
}

// BufferChanged announces that the staged bytes covering [Position,
// Position+Length) of the stream changed. Data aliases the engine buffer.
type BufferChanged struct {
	Position int64  `json:"position"`
	Length   int64  `json:"length"`
	Data     []byte `json:"-"`
}

// InfoMessage is transient status text. A zero Timeout means the message stays
// until replaced.
type InfoMessage struct {
	Text    string        `json:"text"`
	Timeout time.Duration `json:"timeout"`
}

// ErrorMessage reports a failure that left the engine stopped or reset.
type ErrorMessage struct {
	Heading string `json:"heading"`
	Detail  string `json:"detail"`
}

func (StateChanged) EventName() string          { return "state_changed" }
func (FormatChanged) EventName() string         { return "format_changed" }
func (BufferLengthChanged) EventName() string   { return "buffer_length_changed" }
func (DataLengthChanged) EventName() string     { return "data_length_changed" }
func (RecordPositionChanged) EventName() string { return "record_position_changed" }
func (PlayPositionChanged) EventName() string   { return "play_position_changed" }
func (LevelChanged) EventName() string          { return "level_changed" }
func (SpectrumChanged) EventName() string       { return "spectrum_changed" }
func (BufferChanged) EventName() string         { return "buffer_changed" }
func (InfoMessage) EventName() string           { return "info_message" }
func (ErrorMessage) EventName() string          { return "error_message" }

// Error headings published in ErrorMessage events.
const (
	HeadingFormatNotSupported = "Audio format not supported"
	HeadingCouldNotOpenFile   = "Could not open file"
	HeadingNoSuitableFormat   = "No suitable format found"
	HeadingNoCommonFormat     = "No common input / output format found"
	HeadingAudioIOError       = "Audio I/O error"
)
