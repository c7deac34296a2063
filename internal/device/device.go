// SPDX-License-Identifier: MIT
/*
Package device defines the capture and playback contracts the audio engine drives.

Backends (PortAudio, oto) implement InputBackend and/or OutputBackend. Devices report
activity through a Notify callback that may run on any goroutine, typically the audio
callback thread; the receiver must not block.
*/
package device

import (
	"errors"
	"fmt"
	"io"
	"time"

	"spectrum/internal/pcm"
)

// DefaultID selects the system default device.
const DefaultID = -1

var (
	ErrUnsupported = errors.New("format not supported by device")
	ErrNotOpen     = errors.New("device not open")
)

// StandardSampleRates are the rates probed during format negotiation, ascending.
var StandardSampleRates = []int{8000, 11025, 16000, 22050, 32000, 44100, 48000, 88200, 96000}

// State is the run state of an open device.
type State int

const (
	Stopped State = iota
	Active
	Suspended
	Idle // running but starved of data
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Active:
		return "active"
	case Suspended:
		return "suspended"
	case Idle:
		return "idle"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Error is the last error a device encountered.
type Error int

const (
	NoError Error = iota
	OpenError
	IOError
	UnderrunError
	FatalError
)

// Error returns a human-readable description.
func (e Error) Error() string {
	switch e {
	case NoError:
		return "No error"
	case OpenError:
		return "Unable to open audio device"
	case IOError:
		return "Audio device I/O error"
	case UnderrunError:
		return "Audio device underrun"
	case FatalError:
		return "Fatal audio device error"
	default:
		return fmt.Sprintf("Unknown audio device error %d", int(e))
	}
}

// Info describes a host device.
type Info struct {
	ID                int     `json:"id"`
	Name              string  `json:"name"`
	MaxInputChannels  int     `json:"max_input_channels"`
	MaxOutputChannels int     `json:"max_output_channels"`
	DefaultSampleRate float64 `json:"default_sample_rate"`
	DefaultInput      bool    `json:"default_input"`
	DefaultOutput     bool    `json:"default_output"`
}

// Kind returns "Input", "Output" or "Input/Output".
func (i Info) Kind() string {
	switch {
	case i.MaxInputChannels > 0 && i.MaxOutputChannels > 0:
		return "Input/Output"
	case i.MaxInputChannels > 0:
		return "Input"
	case i.MaxOutputChannels > 0:
		return "Output"
	default:
		return ""
	}
}

// Find returns the device with the given id. DefaultID resolves to the entry
// flagged as the default for the requested direction.
func Find(devices []Info, id int, input bool) (Info, bool) {
	for _, d := range devices {
		if id == DefaultID {
			if (input && d.DefaultInput) || (!input && d.DefaultOutput) {
				return d, true
			}
			continue
		}
		if d.ID == id {
			return d, true
		}
	}
	return Info{}, false
}

// NotificationKind identifies what a device is reporting.
type NotificationKind int

const (
	DataReady NotificationKind = iota
	StateChanged
)

// Notification is posted by a device. Source is the device that raised it, so the
// receiver can discard notifications from devices it has since replaced.
type Notification struct {
	Kind   NotificationKind
	Source any
}

// Notify receives device notifications. Implementations must not block.
type Notify func(Notification)

// Device is the part of the contract shared by capture and playback devices.
type Device interface {
	Format() pcm.Format
	State() State
	Error() Error
	// Processed returns the amount of audio moved through the device since Start.
	Processed() time.Duration
	Suspend() error
	Resume() error
	// Stop halts the device and releases its stream. The device may be started again.
	Stop() error
	Close() error
}

// Input is a capture device. Once started it raises DataReady whenever captured
// bytes can be read.
type Input interface {
	Device
	Start() error
	BytesAvailable() int
	io.Reader
}

// Output is a playback device that pulls from src until it is exhausted, at which
// point it enters Idle.
type Output interface {
	Device
	Start(src io.Reader) error
}

// InputBackend opens capture devices.
type InputBackend interface {
	InputDevices() ([]Info, error)
	IsInputFormatSupported(id int, f pcm.Format) bool
	OpenInput(id int, f pcm.Format, notify Notify) (Input, error)
}

// OutputBackend opens playback devices.
type OutputBackend interface {
	OutputDevices() ([]Info, error)
	IsOutputFormatSupported(id int, f pcm.Format) bool
	OpenOutput(id int, f pcm.Format, notify Notify) (Output, error)
}
