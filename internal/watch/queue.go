package watch

import (
	"sync/atomic"
	"time"

	"nbodywatch/internal/snapshot"
)

// Update is one fan-in message from a watcher to the render tick. Either
// Snapshot is set (a newly decoded snapshot with its local sequence number
// and decode duration) or Status is set (the status marker text changed).
type Update struct {
	InstanceID string
	Snapshot   *snapshot.Snapshot
	Sequence   int
	DecodeTime time.Duration
	Status     string
}

// Queue is the bounded multi-producer/single-consumer handoff between
// watchers and the render tick. When full, the oldest update is dropped so
// the freshest state wins; enqueueing after Close is a silent no-op. The
// underlying channel is never closed, so producers can never panic on a
// late send.
type Queue struct {
	ch     chan Update
	closed atomic.Bool
}

// NewQueue creates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan Update, capacity)}
}

// Enqueue adds an update without ever blocking. It reports whether the
// update was accepted; false means the queue has been closed.
func (q *Queue) Enqueue(u Update) bool {
	if q.closed.Load() {
		return false
	}
	select {
	case q.ch <- u:
		return true
	default:
	}
	// Full: evict the oldest entry and retry once. Another producer may win
	// the freed slot, in which case this update is the one dropped.
	select {
	case <-q.ch:
	default:
	}
	select {
	case q.ch <- u:
		return true
	default:
		return true
	}
}

// Drain returns every update currently available without waiting for more.
func (q *Queue) Drain() []Update {
	var out []Update
	for {
		select {
		case u := <-q.ch:
			out = append(out, u)
		default:
			return out
		}
	}
}

// Close marks the queue closed and discards anything still buffered.
// Closing twice is harmless.
func (q *Queue) Close() {
	q.closed.Store(true)
	q.Drain()
}

// Len reports the number of buffered updates.
func (q *Queue) Len() int { return len(q.ch) }
