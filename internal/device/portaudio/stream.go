// SPDX-License-Identifier: MIT
package portaudio

import (
	"errors"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"spectrum/internal/device"
	applog "spectrum/internal/log"
	"spectrum/internal/pcm"

	pa "github.com/gordonklaus/portaudio"
)

var (
	_ device.Input  = (*Input)(nil)
	_ device.Output = (*Output)(nil)
)

// stream holds the lifecycle shared by Input and Output. Control methods run on
// the engine goroutine; the PortAudio callback only touches frames, the queue and
// the state through setState.
type stream struct {
	params pa.StreamParameters
	format pcm.Format
	notify device.Notify

	mu     sync.Mutex
	handle *pa.Stream
	state  device.State
	err    device.Error

	frames atomic.Int64 // frames moved since Start
}

func (s *stream) Format() pcm.Format { return s.format }

func (s *stream) State() device.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *stream) Error() device.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stream) Processed() time.Duration {
	return time.Duration(s.frames.Load()) * time.Second / time.Duration(s.format.SampleRate)
}

// setState records a transition and notifies source if the state changed.
func (s *stream) setState(source any, state device.State, err device.Error) {
	s.mu.Lock()
	changed := s.state != state || s.err != err
	s.state, s.err = state, err
	s.mu.Unlock()
	if changed && s.notify != nil {
		s.notify(device.Notification{Kind: device.StateChanged, Source: source})
	}
}

func (s *stream) start(source any, callback any) error {
	s.stop(source)
	s.frames.Store(0)

	st, err := pa.OpenStream(s.params, callback)
	if err != nil {
		s.setState(source, device.Stopped, device.OpenError)
		return err
	}
	if err := st.Start(); err != nil {
		st.Close()
		s.setState(source, device.Stopped, device.OpenError)
		return err
	}
	s.mu.Lock()
	s.handle = st
	s.mu.Unlock()
	s.setState(source, device.Active, device.NoError)
	return nil
}

func (s *stream) suspend(source any) error {
	s.mu.Lock()
	st, state := s.handle, s.state
	s.mu.Unlock()
	if st == nil {
		return device.ErrNotOpen
	}
	if state != device.Active && state != device.Idle {
		return nil
	}
	if err := st.Stop(); err != nil {
		s.setState(source, device.Stopped, device.IOError)
		return err
	}
	s.setState(source, device.Suspended, device.NoError)
	return nil
}

func (s *stream) resume(source any) error {
	s.mu.Lock()
	st, state := s.handle, s.state
	s.mu.Unlock()
	if st == nil {
		return device.ErrNotOpen
	}
	if state != device.Suspended {
		return nil
	}
	if err := st.Start(); err != nil {
		s.setState(source, device.Stopped, device.IOError)
		return err
	}
	s.setState(source, device.Active, device.NoError)
	return nil
}

func (s *stream) stop(source any) error {
	s.mu.Lock()
	st := s.handle
	s.handle = nil
	s.mu.Unlock()
	if st == nil {
		return nil
	}
	err := st.Stop()
	if cerr := st.Close(); err == nil {
		err = cerr
	}
	s.setState(source, device.Stopped, device.NoError)
	return err
}

// Input is a PortAudio capture device.
type Input struct {
	stream
	queue   *device.Queue
	scratch []byte
}

// Start opens the stream and begins capture.
func (in *Input) Start() error {
	in.queue.Reset()
	return in.start(in, in.process)
}

func (in *Input) Suspend() error { return in.suspend(in) }
func (in *Input) Resume() error  { return in.resume(in) }
func (in *Input) Stop() error    { return in.stop(in) }
func (in *Input) Close() error   { return in.stop(in) }

// BytesAvailable returns the number of captured bytes waiting to be read.
func (in *Input) BytesAvailable() int { return in.queue.Len() }

// Read drains captured bytes. It never blocks and returns 0, nil when empty.
func (in *Input) Read(p []byte) (int, error) {
	return in.queue.Read(p), nil
}

// process is the PortAudio callback. It runs on the audio thread.
func (in *Input) process(samples []int16) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	n := len(samples) * 2
	if n > len(in.scratch) {
		in.scratch = make([]byte, n)
	}
	buf := in.scratch[:n]
	for i, v := range samples {
		pcm.PutSample(buf, i*2, v)
	}
	if written := in.queue.Write(buf); written < n {
		applog.Debugf("portaudio: capture overrun, dropped %d bytes", n-written)
	}
	in.frames.Add(int64(len(samples) / in.format.Channels))
	if in.notify != nil {
		in.notify(device.Notification{Kind: device.DataReady, Source: in})
	}
}

// Output is a PortAudio playback device.
type Output struct {
	stream
	src     io.Reader
	scratch []byte
	drained atomic.Bool
}

// Start opens the stream and begins pulling from src.
func (out *Output) Start(src io.Reader) error {
	out.stop(out)
	out.src = src
	out.drained.Store(false)
	return out.start(out, out.process)
}

func (out *Output) Suspend() error { return out.suspend(out) }
func (out *Output) Resume() error  { return out.resume(out) }
func (out *Output) Stop() error    { return out.stop(out) }
func (out *Output) Close() error   { return out.stop(out) }

// process is the PortAudio callback. It fills samples from src and pads with
// silence once src is exhausted.
func (out *Output) process(samples []int16) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	n := len(samples) * 2
	if n > len(out.scratch) {
		out.scratch = make([]byte, n)
	}
	buf := out.scratch[:n]

	read := 0
	if !out.drained.Load() {
		var err error
		read, err = io.ReadFull(out.src, buf)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			out.drained.Store(true)
			defer out.setState(out, device.Idle, device.NoError)
		default:
			out.drained.Store(true)
			applog.Errorf("portaudio: playback source: %v", err)
			defer out.setState(out, device.Stopped, device.IOError)
		}
	}

	frameBytes := out.format.BytesPerFrame()
	read -= read % frameBytes
	for i := range samples {
		if i*2 < read {
			samples[i] = pcm.SampleAt(buf, i*2)
		} else {
			samples[i] = 0
		}
	}
	out.frames.Add(int64(read / frameBytes))
}
