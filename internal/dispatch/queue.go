// Package dispatch provides the serialized execution contexts used by the
// capture core: a FIFO work queue drained by one goroutine and a single-slot
// latest-wins buffer.
package dispatch

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Queue runs submitted funcs one at a time, in submission order, on its own
// goroutine. Async never blocks the caller.
type Queue struct {
	name string

	mu      sync.Mutex
	pending []func()
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func NewQueue(name string) *Queue {
	q := &Queue{
		name: name,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *Queue) Name() string { return q.name }

// Async enqueues f. It reports false if the queue is closed.
func (q *Queue) Async(f func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.pending = append(q.pending, f)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Sync enqueues f and waits for it to finish. Calling Sync from the queue's
// own goroutine deadlocks.
func (q *Queue) Sync(f func()) bool {
	done := make(chan struct{})
	if !q.Async(func() {
		defer close(done)
		f()
	}) {
		return false
	}
	<-done
	return true
}

// Flush waits until everything submitted before the call has run.
func (q *Queue) Flush() { q.Sync(func() {}) }

// Close stops accepting work, drains what is pending and waits for the
// worker to exit.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
	<-q.done
}

func (q *Queue) loop() {
	defer close(q.done)
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		closed := q.closed
		q.mu.Unlock()

		for _, f := range batch {
			q.run(f)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-q.wake
	}
}

func (q *Queue) run(f func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("queue", q.name).Interface("panic", r).Msg("queued work panicked")
		}
	}()
	f()
}
