// SPDX-License-Identifier: MIT
package display

import (
	"sync"

	"spectrum/internal/audio"
	"spectrum/internal/spectrum"
)

// Bar is one frequency band of the spectrograph.
type Bar struct {
	Value   float64 // highest amplitude in the band, [0,1]
	Clipped bool    // any bin in the band clipped
}

// Spectrograph groups spectrum bins into equal-width bars over [low, high).
type Spectrograph struct {
	mu       sync.Mutex
	lowFreq  float64
	highFreq float64
	bars     []Bar
	peak     spectrum.Element
	hasPeak  bool
}

// NewSpectrograph returns a spectrograph with numBars bars over [low, high).
func NewSpectrograph(numBars int, low, high float64) *Spectrograph {
	s := &Spectrograph{}
	s.SetParams(numBars, low, high)
	return s
}

// SetParams changes the band layout and clears the bars.
func (s *Spectrograph) SetParams(numBars int, low, high float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lowFreq, s.highFreq = low, high
	s.bars = make([]Bar, max(numBars, 0))
}

// HandleEvent implements audio.Listener.
func (s *Spectrograph) HandleEvent(ev audio.Event) {
	if sc, ok := ev.(audio.SpectrumChanged); ok {
		s.SpectrumChanged(sc.Spectrum)
	}
}

// SpectrumChanged recomputes every bar from bins. Bins outside [low, high) are
// ignored; an empty spectrum clears the display.
func (s *Spectrograph) SpectrumChanged(bins spectrum.FrequencySpectrum) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.bars)
	s.hasPeak = false
	if i := bins.PeakIndex(s.lowFreq, s.highFreq); i >= 0 {
		s.peak, s.hasPeak = bins[i], true
	}
	if len(s.bars) == 0 {
		return
	}
	for _, e := range bins {
		if e.Frequency < s.lowFreq || e.Frequency >= s.highFreq {
			continue
		}
		bar := &s.bars[s.barIndex(e.Frequency)]
		bar.Value = max(bar.Value, e.Amplitude)
		bar.Clipped = bar.Clipped || e.Clipped
	}
}

func (s *Spectrograph) bandWidth() float64 {
	return (s.highFreq - s.lowFreq) / float64(len(s.bars))
}

func (s *Spectrograph) barIndex(freq float64) int {
	i := int((freq - s.lowFreq) / s.bandWidth())
	// Rounding can push the top bin of the range past the last bar.
	return min(max(i, 0), len(s.bars)-1)
}

// BarRange returns the frequency band [low, high) covered by bar i.
func (s *Spectrograph) BarRange(i int) (low, high float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.bandWidth()
	return s.lowFreq + float64(i)*w, s.lowFreq + float64(i+1)*w
}

// Peak returns the loudest bin within [low, high) of the last spectrum. ok is
// false when the display is clear.
func (s *Spectrograph) Peak() (e spectrum.Element, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak, s.hasPeak
}

// Bars returns a copy of the current bars.
func (s *Spectrograph) Bars() []Bar {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Bar, len(s.bars))
	copy(out, s.bars)
	return out
}
