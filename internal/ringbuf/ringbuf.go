// Package ringbuf provides a fixed-capacity FIFO ring for model.LogEntry.
// When full, a push evicts the oldest entry. The ring itself is not
// synchronized; the owner guards it with its own lock.
package ringbuf

import "trading-agent/internal/model"

// Ring is a bounded log ring. It retains exactly the requested capacity;
// callers size it to what they actually want to show.
type Ring struct {
	buf  []model.LogEntry
	head uint64 // next write position
	tail uint64 // oldest retained entry

	evicted uint64
}

// New creates a ring holding exactly capacity entries, minimum 1.
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]model.LogEntry, capacity)}
}

// Push appends an entry, evicting the oldest one when the ring is full.
func (r *Ring) Push(e model.LogEntry) {
	if r.head-r.tail >= uint64(len(r.buf)) {
		r.tail++
		r.evicted++
	}
	r.buf[r.head%uint64(len(r.buf))] = e
	r.head++
}

// Snapshot returns the retained entries, oldest first.
func (r *Ring) Snapshot() []model.LogEntry {
	out := make([]model.LogEntry, 0, r.head-r.tail)
	for i := r.tail; i < r.head; i++ {
		out = append(out, r.buf[i%uint64(len(r.buf))])
	}
	return out
}

// Len returns the number of retained entries.
func (r *Ring) Len() int { return int(r.head - r.tail) }

// Cap returns the ring capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Evicted returns the total number of entries dropped to make room.
func (r *Ring) Evicted() uint64 { return r.evicted }
