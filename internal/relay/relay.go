// Package relay carries outcome entries from background calls back to the
// foreground loop.
package relay

import (
	"sync"
	"time"

	"codeberg.org/mutker/hdsim/internal/errors"
)

// Relay is an unbounded FIFO queue with any number of producers and one
// draining consumer. Send never blocks; growth is bounded only by the
// consumer draining, which the foreground loop does every tick.
type Relay struct {
	mu      sync.Mutex
	queue   []Entry
	nextSeq uint64
	closed  bool
	notify  chan struct{}
	now     func() time.Time
}

// New returns an open, empty relay.
func New() *Relay {
	return &Relay{
		notify: make(chan struct{}, 1),
		now:    time.Now,
	}
}

// Send appends e, stamping its sequence number and, if unset, its time.
// After Close it returns ErrClosed instead of panicking.
func (r *Relay) Send(e Entry) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errors.New().WithData(ErrClosed, e.Text)
	}

	r.nextSeq++
	e.Seq = r.nextSeq
	if e.Time.IsZero() {
		e.Time = r.now().UTC()
	}
	r.queue = append(r.queue, e)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

// Drain removes and returns every queued entry in arrival order. It never
// blocks and returns nil when the queue is empty.
func (r *Relay) Drain() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.queue) == 0 {
		return nil
	}
	out := r.queue
	r.queue = nil
	return out
}

// Len returns the number of entries waiting to be drained.
func (r *Relay) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Notify fires at least once after entries arrive, so a consumer can wait
// for work instead of polling.
func (r *Relay) Notify() <-chan struct{} {
	return r.notify
}

// Close stops accepting entries. Queued entries stay drainable.
func (r *Relay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// Closed reports whether Close has been called.
func (r *Relay) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
