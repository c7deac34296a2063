// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"io"
	"sync"
	"time"

	"spectrum/internal/device"
	"spectrum/internal/pcm"
)

// fakeDevice holds the state shared by fake capture and playback devices. Tests
// move it along by hand and raise notifications explicitly.
type fakeDevice struct {
	mu        sync.Mutex
	id        int
	format    pcm.Format
	notify    device.Notify
	state     device.State
	err       device.Error
	processed time.Duration
	started   int
	resumed   int
	closed    bool
	calls     []string // start and stop, in order
}

func (d *fakeDevice) Format() pcm.Format { return d.format }

func (d *fakeDevice) State() device.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *fakeDevice) Error() device.Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *fakeDevice) Processed() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.processed
}

func (d *fakeDevice) set(state device.State, err device.Error) {
	d.mu.Lock()
	d.state, d.err = state, err
	d.mu.Unlock()
}

func (d *fakeDevice) setProcessed(p time.Duration) {
	d.mu.Lock()
	d.processed = p
	d.mu.Unlock()
}

func (d *fakeDevice) Suspend() error {
	d.set(device.Suspended, device.NoError)
	return nil
}

func (d *fakeDevice) Resume() error {
	d.mu.Lock()
	d.resumed++
	d.state = device.Active
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	d.calls = append(d.calls, "stop")
	d.state, d.err = device.Stopped, device.NoError
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) history() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.state = device.Stopped
	d.mu.Unlock()
	return nil
}

type fakeInput struct {
	fakeDevice
	pending []byte
}

func (in *fakeInput) Start() error {
	in.mu.Lock()
	in.started++
	in.state = device.Active
	in.processed = 0
	in.mu.Unlock()
	return nil
}

// push queues captured bytes for the next read.
func (in *fakeInput) push(p []byte) {
	in.mu.Lock()
	in.pending = append(in.pending, p...)
	in.mu.Unlock()
}

func (in *fakeInput) BytesAvailable() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.pending)
}

func (in *fakeInput) Read(p []byte) (int, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	n := copy(p, in.pending)
	in.pending = in.pending[n:]
	return n, nil
}

func (in *fakeInput) raise(kind device.NotificationKind) {
	in.notify(device.Notification{Kind: kind, Source: in})
}

type fakeOutput struct {
	fakeDevice
	src io.Reader
}

func (out *fakeOutput) Start(src io.Reader) error {
	out.mu.Lock()
	out.started++
	out.calls = append(out.calls, "start")
	out.src = src
	out.state = device.Active
	out.processed = 0
	out.mu.Unlock()
	return nil
}

func (out *fakeOutput) source() io.Reader {
	out.mu.Lock()
	defer out.mu.Unlock()
	return out.src
}

// pull reads up to n bytes from the source the way a host callback would. It
// reads nothing once the output has been stopped.
func (out *fakeOutput) pull(n int) int {
	out.mu.Lock()
	defer out.mu.Unlock()
	if out.state != device.Active || out.src == nil {
		return 0
	}
	read, _ := io.ReadFull(out.src, make([]byte, n))
	return read
}

func (out *fakeOutput) raise(kind device.NotificationKind) {
	out.notify(device.Notification{Kind: kind, Source: out})
}

var (
	_ device.Input         = (*fakeInput)(nil)
	_ device.Output        = (*fakeOutput)(nil)
	_ device.InputBackend  = (*fakeBackend)(nil)
	_ device.OutputBackend = (*fakeBackend)(nil)
)

var errFakeOpen = errors.New("fake: device busy")

// fakeBackend serves both directions. supports restricts the accepted formats;
// nil accepts every 16-bit format.
type fakeBackend struct {
	mu       sync.Mutex
	devices  []device.Info
	supports func(pcm.Format) bool
	openErr  error
	inputs   []*fakeInput
	outputs  []*fakeOutput
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		devices: []device.Info{
			{ID: 0, Name: "fake duplex", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 48000, DefaultInput: true, DefaultOutput: true},
			{ID: 3, Name: "fake mic", MaxInputChannels: 1, DefaultSampleRate: 16000},
		},
	}
}

func (b *fakeBackend) accepts(f pcm.Format) bool {
	if !f.IsS16LE() {
		return false
	}
	return b.supports == nil || b.supports(f)
}

func (b *fakeBackend) InputDevices() ([]device.Info, error)  { return b.devices, nil }
func (b *fakeBackend) OutputDevices() ([]device.Info, error) { return b.devices, nil }

func (b *fakeBackend) IsInputFormatSupported(id int, f pcm.Format) bool  { return b.accepts(f) }
func (b *fakeBackend) IsOutputFormatSupported(id int, f pcm.Format) bool { return b.accepts(f) }

func (b *fakeBackend) OpenInput(id int, f pcm.Format, notify device.Notify) (device.Input, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	in := &fakeInput{fakeDevice: fakeDevice{id: id, format: f, notify: notify}}
	b.inputs = append(b.inputs, in)
	return in, nil
}

func (b *fakeBackend) OpenOutput(id int, f pcm.Format, notify device.Notify) (device.Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	out := &fakeOutput{fakeDevice: fakeDevice{id: id, format: f, notify: notify}}
	b.outputs = append(b.outputs, out)
	return out, nil
}

func (b *fakeBackend) lastInput() *fakeInput {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.inputs) == 0 {
		return nil
	}
	return b.inputs[len(b.inputs)-1]
}

func (b *fakeBackend) lastOutput() *fakeOutput {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.outputs) == 0 {
		return nil
	}
	return b.outputs[len(b.outputs)-1]
}

func (b *fakeBackend) opened() (inputs, outputs int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inputs), len(b.outputs)
}

// recorder collects events in emission order.
type recorder struct {
	events []Event
}

func (r *recorder) HandleEvent(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) reset() { r.events = nil }

// errorMessages returns the ErrorMessage events received so far.
func (r *recorder) errorMessages() []ErrorMessage {
	var out []ErrorMessage
	for _, ev := range r.events {
		if m, ok := ev.(ErrorMessage); ok {
			out = append(out, m)
		}
	}
	return out
}

func (r *recorder) count(name string) int {
	n := 0
	for _, ev := range r.events {
		if ev.EventName() == name {
			n++
		}
	}
	return n
}
