package irc

import (
	"context"
	"sync"
)

// fifo is an unbounded first-in first-out queue safe for concurrent use.
//
// Besides ordering it keeps a count of unfinished tasks: every Push adds one
// and every Done removes one. Idle returns a channel that is closed while
// that count is zero, which lets Drain wait for the consumer to catch up.
type fifo[T any] struct {
	mu         sync.Mutex
	items      []T
	notify     chan struct{}
	unfinished int
	idle       chan struct{}
}

func newFIFO[T any]() *fifo[T] {
	idle := make(chan struct{})
	close(idle)
	return &fifo[T]{
		notify: make(chan struct{}, 1),
		idle:   idle,
	}
}

// Push appends v. It never blocks.
func (q *fifo[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	if q.unfinished == 0 {
		q.idle = make(chan struct{})
	}
	q.unfinished++
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// TryPop removes and returns the oldest item without blocking.
// The item counts as finished as soon as it is handed out.
func (q *fifo[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	v, ok := q.shift()
	if ok {
		q.doneLocked()
	}
	return v, ok
}

// Pop removes and returns the oldest item, waiting until one is available or
// ctx is done. The caller must call Done once it has processed the item.
func (q *fifo[T]) Pop(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		v, ok := q.shift()
		q.mu.Unlock()
		if ok {
			return v, nil
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Done marks one item returned by Pop as processed.
func (q *fifo[T]) Done() {
	q.mu.Lock()
	q.doneLocked()
	q.mu.Unlock()
}

// Idle returns a channel closed once every pushed item has been processed.
func (q *fifo[T]) Idle() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.idle
}

// Len returns the number of queued items.
func (q *fifo[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *fifo[T]) shift() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

func (q *fifo[T]) doneLocked() {
	if q.unfinished == 0 {
		return
	}
	q.unfinished--
	if q.unfinished == 0 {
		close(q.idle)
	}
}
