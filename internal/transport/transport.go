// SPDX-License-Identifier: MIT
/*
Package transport publishes engine events to consumers outside the process.

A Forwarder subscribes to the engine and wraps each event in a Message that it
hands to every configured Transport. Send must not block: it is called on the
engine goroutine.
*/
package transport

import (
	"time"

	"spectrum/internal/audio"
)

// Transport defines a generic interface for sending events.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(msg Message) error
	Close() error
}

// Message is the envelope sent for every event. Raw buffer bytes are omitted by
// the event types themselves; only positions and lengths travel.
type Message struct {
	Event string      `json:"event"`
	Time  int64       `json:"time"` // unix nanoseconds
	Data  audio.Event `json:"data"`
}

// Forwarder fans engine events out to transports.
type Forwarder struct {
	transports []Transport
	now        func() time.Time
}

// NewForwarder returns a Forwarder sending to ts.
func NewForwarder(ts ...Transport) *Forwarder {
	return &Forwarder{transports: ts, now: time.Now}
}

// HandleEvent implements audio.Listener.
func (f *Forwarder) HandleEvent(ev audio.Event) {
	msg := Message{Event: ev.EventName(), Time: f.now().UnixNano(), Data: ev}
	for _, t := range f.transports {
		// Transports log their own failures.
		_ = t.Send(msg)
	}
}

// Close closes every transport and returns the first error.
func (f *Forwarder) Close() error {
	var first error
	for _, t := range f.transports {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ audio.Listener = (*Forwarder)(nil)
