// SPDX-License-Identifier: MIT
package spectrum

import (
	"context"
	"errors"
	"sync"

	applog "spectrum/internal/log"
	"spectrum/internal/pcm"
)

// State is the lifecycle of an Analyser calculation.
type State int

const (
	Idle State = iota
	Busy
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Busy:
		return "busy"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is delivered by the worker once per accepted calculation, including
// cancelled ones. Pass it back to Analyser.Complete on the owning goroutine.
type Result struct {
	seq       uint64
	spectrum  FrequencySpectrum
	cancelled bool
}

type job struct {
	ctx    context.Context
	seq    uint64
	data   []byte
	format pcm.Format
	window Window
}

// Analyser runs a Transform on a dedicated worker goroutine.
//
// All methods except Results must be called from the same goroutine (the owner).
// The owner submits work with Calculate, receives completions from Results and
// hands each one to Complete, which yields the spectrum unless the calculation was
// cancelled in the meantime.
type Analyser struct {
	transform *Transform // owned by the worker goroutine
	window    Window
	state     State
	seq       uint64
	cancel    context.CancelFunc

	jobs    chan job
	results chan Result
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewAnalyser creates an Analyser for blocks of length samples and starts its
// worker.
func NewAnalyser(length int, w Window, multiplier float64) (*Analyser, error) {
	t, err := NewTransform(length, w, multiplier)
	if err != nil {
		return nil, err
	}
	a := &Analyser{
		transform: t,
		window:    w,
		jobs:      make(chan job, 1),
		results:   make(chan Result, 1),
		done:      make(chan struct{}),
	}
	a.wg.Add(1)
	go a.run()
	return a, nil
}

// Length is the number of samples per analysed block.
func (a *Analyser) Length() int {
	return a.transform.Length()
}

// State reports the current state.
func (a *Analyser) State() State {
	return a.state
}

// IsReady reports whether a new calculation may be submitted.
func (a *Analyser) IsReady() bool {
	return a.state == Idle
}

// SetWindowFunction selects the window for subsequent calculations.
func (a *Analyser) SetWindowFunction(w Window) {
	a.window = w
}

// WindowFunction returns the window that the next calculation will use.
func (a *Analyser) WindowFunction() Window {
	return a.window
}

// Results delivers one Result per accepted calculation.
func (a *Analyser) Results() <-chan Result {
	return a.results
}

// Calculate submits a copy of buf for analysis. It returns false, logging the
// violation, if a calculation is already in flight or the analyser is closed.
func (a *Analyser) Calculate(buf []byte, f pcm.Format) bool {
	if a.state != Idle {
		applog.Errorf("Analyser: calculate called while %s, ignoring", a.state)
		return false
	}
	select {
	case <-a.done:
		applog.Warnf("Analyser: calculate called after close")
		return false
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.seq++
	a.cancel = cancel
	a.state = Busy

	data := make([]byte, len(buf))
	copy(data, buf)
	a.jobs <- job{ctx: ctx, seq: a.seq, data: data, format: f, window: a.window}
	applog.Debugf("Analyser: submitted block %d (%d bytes)", a.seq, len(buf))
	return true
}

// CancelCalculation requests that the in-flight calculation be discarded. It does
// not wait for the worker; the pending Result is absorbed by Complete. Calling it
// while Idle does nothing.
func (a *Analyser) CancelCalculation() {
	if a.state != Busy {
		return
	}
	a.state = Cancelled
	if a.cancel != nil {
		a.cancel()
	}
}

// Complete consumes a Result received from Results and returns the spectrum if the
// calculation it belongs to was not cancelled.
func (a *Analyser) Complete(r Result) (FrequencySpectrum, bool) {
	if r.seq != a.seq || a.state == Idle {
		applog.Errorf("Analyser: unexpected result %d in state %s", r.seq, a.state)
		return nil, false
	}
	delivered := a.state == Busy && !r.cancelled
	a.state = Idle
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if !delivered {
		applog.Debugf("Analyser: dropped result %d", r.seq)
		return nil, false
	}
	return r.spectrum, true
}

// Close stops the worker. A calculation in flight is abandoned.
func (a *Analyser) Close() error {
	a.once.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		close(a.done)
		a.wg.Wait()
	})
	return nil
}

func (a *Analyser) run() {
	defer a.wg.Done()
	for {
		select {
		case <-a.done:
			return
		case j := <-a.jobs:
			a.transform.SetWindow(j.window)
			spectrum, err := a.transform.Calculate(j.ctx, j.data, j.format)
			r := Result{seq: j.seq, spectrum: spectrum}
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					applog.Errorf("Analyser: block %d: %v", j.seq, err)
				}
				r.cancelled = true
			}
			select {
			case a.results <- r:
			case <-a.done:
				return
			}
		}
	}
}
