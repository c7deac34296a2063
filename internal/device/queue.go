// SPDX-License-Identifier: MIT
package device

import "sync"

// Queue is a bounded FIFO of PCM bytes between an audio callback (writer) and the
// engine (reader). Writes that do not fit are truncated; the caller decides how to
// report the overrun.
type Queue struct {
	mu   sync.Mutex
	data []byte
	head int // next read position
	size int
}

// NewQueue creates a Queue holding at most capacity bytes.
func NewQueue(capacity int) *Queue {
	return &Queue{data: make([]byte, capacity)}
}

// Write appends as much of p as fits and returns the number of bytes stored.
func (q *Queue) Write(p []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := min(len(p), len(q.data)-q.size)
	if n == 0 {
		return 0
	}
	tail := (q.head + q.size) % len(q.data)
	first := copy(q.data[tail:], p[:n])
	copy(q.data, p[first:n])
	q.size += n
	return n
}

// Read moves up to len(p) bytes out of the queue.
func (q *Queue) Read(p []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := min(len(p), q.size)
	if n == 0 {
		return 0
	}
	first := copy(p[:n], q.data[q.head:])
	copy(p[first:n], q.data)
	q.head = (q.head + n) % len(q.data)
	q.size -= n
	return n
}

// Len returns the number of buffered bytes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Reset discards all buffered bytes.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.head, q.size = 0, 0
}
