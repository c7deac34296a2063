// SPDX-License-Identifier: MIT
/*
Package portaudio implements capture and playback devices on PortAudio callback
streams. Initialize must be called before any other function and paired with
Terminate.
*/
package portaudio

import (
	"fmt"
	"time"

	"spectrum/internal/device"
	"spectrum/internal/pcm"

	pa "github.com/gordonklaus/portaudio"
)

var (
	_ device.InputBackend  = (*Backend)(nil)
	_ device.OutputBackend = (*Backend)(nil)
)

// PortAudio entry points, swapped out in tests.
var (
	paInitialize          = pa.Initialize
	paTerminate           = pa.Terminate
	paDevicesFunc         = pa.Devices
	paDefaultInputDevice  = pa.DefaultInputDevice
	paDefaultOutputDevice = pa.DefaultOutputDevice
)

// Initialize sets up the PortAudio subsystem.
func Initialize() error {
	if err := paInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate shuts down the PortAudio subsystem.
func Terminate() error {
	if err := paTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// Backend opens PortAudio streams for the host's devices.
type Backend struct {
	framesPerBuffer int
	lowLatency      bool
}

// New returns a Backend whose streams deliver framesPerBuffer frames per callback.
func New(framesPerBuffer int, lowLatency bool) *Backend {
	return &Backend{framesPerBuffer: framesPerBuffer, lowLatency: lowLatency}
}

// HostDevices returns every device PortAudio reports, input or output.
func HostDevices() ([]device.Info, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defIn, _ := paDefaultInputDevice()
	defOut, _ := paDefaultOutputDevice()

	devices := make([]device.Info, len(infos))
	for i, info := range infos {
		devices[i] = device.Info{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			DefaultInput:      defIn != nil && info.Name == defIn.Name,
			DefaultOutput:     defOut != nil && info.Name == defOut.Name,
		}
	}
	return devices, nil
}

// InputDevices lists devices with at least one input channel.
func (b *Backend) InputDevices() ([]device.Info, error) {
	return filter(func(d device.Info) bool { return d.MaxInputChannels > 0 })
}

// OutputDevices lists devices with at least one output channel.
func (b *Backend) OutputDevices() ([]device.Info, error) {
	return filter(func(d device.Info) bool { return d.MaxOutputChannels > 0 })
}

func filter(keep func(device.Info) bool) ([]device.Info, error) {
	all, err := HostDevices()
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, d := range all {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// lookup resolves a device id. device.DefaultID selects the system default for
// the requested direction.
func lookup(id int, input bool) (*pa.DeviceInfo, error) {
	if id == device.DefaultID {
		if input {
			return paDefaultInputDevice()
		}
		return paDefaultOutputDevice()
	}
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	if id < 0 || id >= len(infos) {
		return nil, fmt.Errorf("invalid device ID: %d", id)
	}
	return infos[id], nil
}

func (b *Backend) params(info *pa.DeviceInfo, f pcm.Format, input bool) pa.StreamParameters {
	p := pa.StreamParameters{
		FramesPerBuffer: b.framesPerBuffer,
		SampleRate:      float64(f.SampleRate),
	}
	if input {
		latency := info.DefaultHighInputLatency
		if b.lowLatency {
			latency = info.DefaultLowInputLatency
		}
		p.Input = pa.StreamDeviceParameters{Device: info, Channels: f.Channels, Latency: latency}
	} else {
		latency := info.DefaultHighOutputLatency
		if b.lowLatency {
			latency = info.DefaultLowOutputLatency
		}
		p.Output = pa.StreamDeviceParameters{Device: info, Channels: f.Channels, Latency: latency}
	}
	return p
}

func (b *Backend) supported(id int, f pcm.Format, input bool) bool {
	if !f.IsS16LE() {
		return false
	}
	info, err := lookup(id, input)
	if err != nil || info == nil {
		return false
	}
	maxChannels := info.MaxOutputChannels
	if input {
		maxChannels = info.MaxInputChannels
	}
	if f.Channels > maxChannels {
		return false
	}
	return pa.IsFormatSupported(b.params(info, f, input), func([]int16) {}) == nil
}

// IsInputFormatSupported reports whether the capture device accepts f.
func (b *Backend) IsInputFormatSupported(id int, f pcm.Format) bool {
	return b.supported(id, f, true)
}

// IsOutputFormatSupported reports whether the playback device accepts f.
func (b *Backend) IsOutputFormatSupported(id int, f pcm.Format) bool {
	return b.supported(id, f, false)
}

// OpenInput prepares a capture device. The stream is opened on Start.
func (b *Backend) OpenInput(id int, f pcm.Format, notify device.Notify) (device.Input, error) {
	info, err := lookup(id, true)
	if err != nil {
		return nil, err
	}
	if !b.supported(id, f, true) {
		return nil, fmt.Errorf("%s: %w: %s", info.Name, device.ErrUnsupported, f)
	}
	s := &Input{stream: stream{params: b.params(info, f, true), format: f, notify: notify}}
	// One second of headroom between the callback and the engine's reads.
	s.queue = device.NewQueue(int(f.BytesForDuration(time.Second)))
	s.scratch = make([]byte, b.framesPerBuffer*f.BytesPerFrame())
	return s, nil
}

// OpenOutput prepares a playback device. The stream is opened on Start.
func (b *Backend) OpenOutput(id int, f pcm.Format, notify device.Notify) (device.Output, error) {
	info, err := lookup(id, false)
	if err != nil {
		return nil, err
	}
	if !b.supported(id, f, false) {
		return nil, fmt.Errorf("%s: %w: %s", info.Name, device.ErrUnsupported, f)
	}
	s := &Output{stream: stream{params: b.params(info, f, false), format: f, notify: notify}}
	s.scratch = make([]byte, b.framesPerBuffer*f.BytesPerFrame())
	return s, nil
}
