// SPDX-License-Identifier: MIT
package display

import (
	"sync"

	"spectrum/internal/audio"
	"spectrum/internal/pcm"
)

// Column is the sample range of one waveform column, in [-1,1).
type Column struct {
	Min float64
	Max float64
}

// Waveform reduces the most recently staged window to a min/max envelope with a
// fixed number of columns. Only the first channel is drawn.
type Waveform struct {
	mu       sync.Mutex
	format   pcm.Format
	position int64
	columns  []Column
}

func NewWaveform(columns int) *Waveform {
	return &Waveform{columns: make([]Column, max(columns, 0))}
}

// HandleEvent implements audio.Listener. BufferChanged data is reduced before
// returning, so the engine buffer is never retained.
func (w *Waveform) HandleEvent(ev audio.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch ev := ev.(type) {
	case audio.FormatChanged:
		w.format = ev.Format
		w.position = 0
		clear(w.columns)
	case audio.BufferLengthChanged:
		w.position = 0
		clear(w.columns)
	case audio.BufferChanged:
		w.position = ev.Position
		w.reduce(ev.Data)
	}
}

func (w *Waveform) reduce(data []byte) {
	clear(w.columns)
	if len(w.columns) == 0 || !w.format.IsS16LE() {
		return
	}
	frameBytes := w.format.BytesPerFrame()
	frames := len(data) / frameBytes
	if frames == 0 {
		return
	}
	for c := range w.columns {
		first := c * frames / len(w.columns)
		last := (c + 1) * frames / len(w.columns)
		if last <= first {
			last = first + 1
		}
		col := Column{Min: 1, Max: -1}
		for f := first; f < last && f < frames; f++ {
			v := pcm.ToReal(pcm.SampleAt(data, f*frameBytes))
			col.Min = min(col.Min, v)
			col.Max = max(col.Max, v)
		}
		if col.Min > col.Max {
			col = Column{}
		}
		w.columns[c] = col
	}
}

// Snapshot returns the stream position of the drawn window and a copy of its
// columns.
func (w *Waveform) Snapshot() (position int64, columns []Column) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Column, len(w.columns))
	copy(out, w.columns)
	return w.position, out
}
