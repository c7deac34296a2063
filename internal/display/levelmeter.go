// SPDX-License-Identifier: MIT
/*
Package display holds the state behind the analyser's visual readouts. Each model
is an audio.Listener fed on the engine goroutine and read through a snapshot
method from any goroutine; drawing is left to the caller.
*/
package display

import (
	"math"
	"sync"
	"time"

	"spectrum/internal/audio"
)

const (
	// RedrawInterval is how often a renderer should call LevelMeter.Tick.
	RedrawInterval = 100 * time.Millisecond

	// PeakDecayRate is the fall of the displayed peak per millisecond.
	PeakDecayRate = 0.001

	// PeakHoldDuration is how long the highest peak stays marked.
	PeakHoldDuration = 2 * time.Second

	// smoothingSamples sets the RMS smoothing time constant: each batch of n
	// samples keeps 0.9^(n/smoothingSamples) of the previous reading.
	smoothingSamples = 256
)

// LevelReading is what a level meter draws. All values are in [0,1].
type LevelReading struct {
	RMS      float64 // smoothed
	Peak     float64 // decaying
	PeakHold float64
}

// LevelMeter smooths RMS readings and decays peaks over wall-clock time.
type LevelMeter struct {
	now func() time.Time

	mu               sync.Mutex
	rmsLevel         float64
	peakLevel        float64 // peak at the moment it was set
	decayedPeakLevel float64
	peakChanged      time.Time
	peakHoldLevel    float64
	peakHoldChanged  time.Time
}

// NewLevelMeter returns a meter at rest. now may be nil to use the wall clock.
func NewLevelMeter(now func() time.Time) *LevelMeter {
	if now == nil {
		now = time.Now
	}
	return &LevelMeter{now: now}
}

// HandleEvent implements audio.Listener.
func (m *LevelMeter) HandleEvent(ev audio.Event) {
	if l, ok := ev.(audio.LevelChanged); ok {
		m.LevelChanged(l.RMS, l.Peak, l.NumSamples)
	}
}

// LevelChanged folds in a new reading.
func (m *LevelMeter) LevelChanged(rms, peak float64, numSamples int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	smooth := math.Pow(0.9, float64(numSamples)/smoothingSamples)
	m.rmsLevel = m.rmsLevel*smooth + rms*(1-smooth)

	now := m.now()
	if peak > m.decayedPeakLevel {
		m.peakLevel = peak
		m.decayedPeakLevel = peak
		m.peakChanged = now
	}
	if peak > m.peakHoldLevel {
		m.peakHoldLevel = peak
		m.peakHoldChanged = now
	}
}

// Tick decays the peak and expires the peak hold. Renderers call it every
// RedrawInterval before taking a Snapshot.
func (m *LevelMeter) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	elapsed := float64(now.Sub(m.peakChanged).Milliseconds())
	if decay := PeakDecayRate * elapsed; decay < m.peakLevel {
		m.decayedPeakLevel = m.peakLevel - decay
	} else {
		m.decayedPeakLevel = 0
	}
	if now.Sub(m.peakHoldChanged) > PeakHoldDuration {
		m.peakHoldLevel = 0
	}
}

// Reset returns the meter to rest.
func (m *LevelMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rmsLevel, m.peakLevel, m.decayedPeakLevel, m.peakHoldLevel = 0, 0, 0, 0
}

// Snapshot returns the current reading.
func (m *LevelMeter) Snapshot() LevelReading {
	m.mu.Lock()
	defer m.mu.Unlock()
	return LevelReading{RMS: m.rmsLevel, Peak: m.decayedPeakLevel, PeakHold: m.peakHoldLevel}
}
