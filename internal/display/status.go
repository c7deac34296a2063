// SPDX-License-Identifier: MIT
package display

import (
	"sync"
	"time"

	"spectrum/internal/audio"
	"spectrum/internal/device"
	"spectrum/internal/pcm"
)

// StatusReading is the engine status line.
type StatusReading struct {
	Mode   audio.Mode
	State  device.State
	Format pcm.Format
	Info   string
	Error  *audio.ErrorMessage
}

// Status tracks mode, state and format, and the current info and error text.
// Info messages with a timeout expire on their own.
type Status struct {
	now func() time.Time

	mu          sync.Mutex
	reading     StatusReading
	infoExpires time.Time // zero when the info never expires
}

// NewStatus returns an empty status. now may be nil to use the wall clock.
func NewStatus(now func() time.Time) *Status {
	if now == nil {
		now = time.Now
	}
	return &Status{now: now}
}

// HandleEvent implements audio.Listener.
func (s *Status) HandleEvent(ev audio.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev := ev.(type) {
	case audio.StateChanged:
		s.reading.Mode, s.reading.State = ev.Mode, ev.State
		if ev.State == device.Active {
			s.reading.Error = nil
		}
	case audio.FormatChanged:
		s.reading.Format = ev.Format
	case audio.InfoMessage:
		s.reading.Info = ev.Text
		s.infoExpires = time.Time{}
		if ev.Timeout > 0 {
			s.infoExpires = s.now().Add(ev.Timeout)
		}
	case audio.ErrorMessage:
		e := ev
		s.reading.Error = &e
	}
}

// DismissError clears the current error.
func (s *Status) DismissError() {
	s.mu.Lock()
	s.reading.Error = nil
	s.mu.Unlock()
}

// Snapshot returns the current status.
func (s *Status) Snapshot() StatusReading {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.infoExpires.IsZero() && !s.now().Before(s.infoExpires) {
		s.reading.Info = ""
		s.infoExpires = time.Time{}
	}
	r := s.reading
	if r.Error != nil {
		e := *r.Error
		r.Error = &e
	}
	return r
}
