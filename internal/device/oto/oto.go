// SPDX-License-Identifier: MIT
/*
Package oto implements a playback-only device on ebitengine/oto. The host allows a
single oto context per process, so the first opened format sticks for the lifetime
of the Backend.
*/
package oto

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"spectrum/internal/device"
	applog "spectrum/internal/log"
	"spectrum/internal/pcm"

	"github.com/ebitengine/oto/v3"
)

var (
	_ device.OutputBackend = (*Backend)(nil)
	_ device.Output        = (*Output)(nil)
	_ otoPlayer            = (*oto.Player)(nil)
)

// newContext is swapped out in tests.
var newContext = oto.NewContext

// drainPoll is how often a finished source checks whether the player has played
// out its buffer.
const drainPoll = 10 * time.Millisecond

// otoPlayer is the part of *oto.Player an Output drives.
type otoPlayer interface {
	Play()
	Pause()
	BufferedSize() int
	Close() error
}

// Backend opens oto players on a shared context.
type Backend struct {
	bufferSize time.Duration

	mu     sync.Mutex
	ctx    *oto.Context
	format pcm.Format
}

// New returns a Backend whose context buffers bufferSize of audio.
func New(bufferSize time.Duration) *Backend {
	return &Backend{bufferSize: bufferSize}
}

// OutputDevices reports the single system output oto plays through.
func (b *Backend) OutputDevices() ([]device.Info, error) {
	return []device.Info{{
		ID:                0,
		Name:              "System output (oto)",
		MaxOutputChannels: 2,
		DefaultSampleRate: 48000,
		DefaultOutput:     true,
	}}, nil
}

// IsOutputFormatSupported accepts mono or stereo 16-bit PCM, restricted to the
// context format once a context exists.
func (b *Backend) IsOutputFormatSupported(id int, f pcm.Format) bool {
	if id != device.DefaultID && id != 0 {
		return false
	}
	if !f.IsS16LE() || f.Channels < 1 || f.Channels > 2 {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx == nil || b.format == f
}

func (b *Backend) context(f pcm.Format) (*oto.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx != nil {
		return b.ctx, nil
	}
	ctx, ready, err := newContext(&oto.NewContextOptions{
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   b.bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready
	b.ctx, b.format = ctx, f
	applog.Debugf("oto: context ready at %s", f)
	return ctx, nil
}

// OpenOutput prepares a player for f. The context is created on first use.
func (b *Backend) OpenOutput(id int, f pcm.Format, notify device.Notify) (device.Output, error) {
	if !b.IsOutputFormatSupported(id, f) {
		return nil, fmt.Errorf("oto: %w: %s", device.ErrUnsupported, f)
	}
	ctx, err := b.context(f)
	if err != nil {
		return nil, err
	}
	return &Output{ctx: ctx, format: f, notify: notify}, nil
}

// Output plays a source through an oto player.
type Output struct {
	ctx    *oto.Context
	format pcm.Format
	notify device.Notify

	mu     sync.Mutex
	player otoPlayer
	src    *source
	state  device.State
	err    device.Error
}

func (o *Output) Format() pcm.Format { return o.format }

func (o *Output) State() device.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Output) Error() device.Error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Processed is the audio handed to the host, excluding what oto still buffers.
func (o *Output) Processed() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.src == nil {
		return 0
	}
	played := o.src.consumed.Load()
	if o.player != nil {
		played -= int64(o.player.BufferedSize())
	}
	return o.format.DurationForBytes(max(played, 0))
}

func (o *Output) setState(state device.State, err device.Error) {
	o.mu.Lock()
	changed := o.state != state || o.err != err
	o.state, o.err = state, err
	o.mu.Unlock()
	if changed && o.notify != nil {
		o.notify(device.Notification{Kind: device.StateChanged, Source: o})
	}
}

// sourceDone applies a state change raised by s unless s has been replaced or
// the player stopped.
func (o *Output) sourceDone(s *source, state device.State, err device.Error) {
	o.mu.Lock()
	current := o.src == s && o.player != nil
	o.mu.Unlock()
	if current {
		o.setState(state, err)
	}
}

// drain reports Idle for s once the player has played everything it buffered.
// It gives up when s is replaced or the player stops.
func (o *Output) drain(s *source) {
	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()
	for {
		o.mu.Lock()
		p := o.player
		current := o.src == s && p != nil
		o.mu.Unlock()
		if !current {
			return
		}
		if p.BufferedSize() == 0 {
			o.sourceDone(s, device.Idle, device.NoError)
			return
		}
		<-ticker.C
	}
}

// Start begins pulling from src.
func (o *Output) Start(src io.Reader) error {
	o.Stop()

	s := &source{r: src, out: o}
	p := o.ctx.NewPlayer(s)
	o.mu.Lock()
	o.src, o.player = s, p
	o.mu.Unlock()
	p.Play()
	o.setState(device.Active, device.NoError)
	return nil
}

func (o *Output) Suspend() error {
	o.mu.Lock()
	player, state := o.player, o.state
	o.mu.Unlock()
	if player == nil {
		return device.ErrNotOpen
	}
	if state != device.Active && state != device.Idle {
		return nil
	}
	player.Pause()
	o.setState(device.Suspended, device.NoError)
	return nil
}

func (o *Output) Resume() error {
	o.mu.Lock()
	player, state := o.player, o.state
	o.mu.Unlock()
	if player == nil {
		return device.ErrNotOpen
	}
	if state != device.Suspended {
		return nil
	}
	player.Play()
	o.setState(device.Active, device.NoError)
	return nil
}

func (o *Output) Stop() error {
	o.mu.Lock()
	player := o.player
	o.player = nil
	o.mu.Unlock()
	if player == nil {
		return nil
	}
	player.Pause()
	err := player.Close()
	o.setState(device.Stopped, device.NoError)
	return err
}

func (o *Output) Close() error {
	return o.Stop()
}

// source counts the bytes oto pulls and reports exhaustion. EOF becomes Idle
// only after the player drains.
type source struct {
	r        io.Reader
	out      *Output
	consumed atomic.Int64
	done     atomic.Bool
}

func (s *source) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	s.consumed.Add(int64(n))
	if err != nil && !s.done.Swap(true) {
		if errors.Is(err, io.EOF) {
			go s.out.drain(s)
		} else {
			applog.Errorf("oto: playback source: %v", err)
			s.out.sourceDone(s, device.Stopped, device.IOError)
		}
	}
	return n, err
}
