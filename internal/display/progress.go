// SPDX-License-Identifier: MIT
package display

import (
	"sync"

	"spectrum/internal/audio"
)

// Progress is the buffer overview as fractions of the buffer length, each in
// [0,1].
type Progress struct {
	Recorded    float64
	Played      float64
	WindowStart float64
	WindowEnd   float64
}

// ProgressBar tracks the record and play cursors and the staged window within
// the buffer.
type ProgressBar struct {
	mu             sync.Mutex
	bufferLength   int64
	recordPosition int64
	playPosition   int64
	windowPosition int64
	windowLength   int64
}

func NewProgressBar() *ProgressBar { return &ProgressBar{} }

// HandleEvent implements audio.Listener.
func (p *ProgressBar) HandleEvent(ev audio.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch ev := ev.(type) {
	case audio.BufferLengthChanged:
		p.bufferLength = ev.Length
		p.recordPosition, p.playPosition = 0, 0
		p.windowPosition, p.windowLength = 0, 0
	case audio.RecordPositionChanged:
		p.recordPosition = ev.Position
	case audio.PlayPositionChanged:
		p.playPosition = ev.Position
	case audio.BufferChanged:
		p.windowPosition, p.windowLength = ev.Position, ev.Length
	}
}

// Snapshot returns the current fractions. An empty buffer reads as all zeros.
func (p *ProgressBar) Snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bufferLength <= 0 {
		return Progress{}
	}
	frac := func(n int64) float64 {
		return min(max(float64(n)/float64(p.bufferLength), 0), 1)
	}
	return Progress{
		Recorded:    frac(p.recordPosition),
		Played:      frac(p.playPosition),
		WindowStart: frac(p.windowPosition),
		WindowEnd:   frac(p.windowPosition + p.windowLength),
	}
}
