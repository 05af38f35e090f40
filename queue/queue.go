package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Push and Close after the end marker was pushed.
var ErrClosed = errors.New("queue: closed")

// compactThreshold is the number of consumed slots kept before the backing
// slice is compacted.
const compactThreshold = 1024

// Entry is either a value or the end-of-stream marker.
type Entry[T any] struct {
	Value T
	// End is true for the single end-of-stream marker pushed by Close.
	End bool
}

// Stats is a point-in-time snapshot of queue counters.
type Stats struct {
	// Pushed is the number of values pushed (the end marker is not counted).
	Pushed int64
	// Popped is the number of values popped (the end marker is not counted).
	Popped int64
	// Pending is Pushed - Popped.
	Pending int64
	// HighWater is the largest Pending observed.
	HighWater int64
	// Closed is true once the end marker was pushed.
	Closed bool
}

// Queue is an unbounded FIFO with exactly one producer and one consumer.
// The producer calls Push for every value and Close once; the consumer calls
// Pop until it receives the end marker.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []Entry[T]
	head   int
	closed bool
	// drained is set once the consumer has taken the end marker.
	drained bool
	notify  chan struct{}

	pushed    int64
	popped    int64
	highWater int64
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{notify: make(chan struct{}, 1)}
}

// Push appends v. It never blocks.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, Entry[T]{Value: v})
	q.pushed++
	if pending := q.pushed - q.popped; pending > q.highWater {
		q.highWater = pending
	}
	q.mu.Unlock()
	q.signal()
	return nil
}

// Close pushes the end marker. It must be called exactly once, after the
// last Push.
func (q *Queue[T]) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.closed = true
	q.items = append(q.items, Entry[T]{End: true})
	q.mu.Unlock()
	q.signal()
	return nil
}

// Pop removes and returns the oldest entry, blocking until one exists or ctx
// is done. Once the end marker has been taken, every later Pop returns it
// again without blocking.
func (q *Queue[T]) Pop(ctx context.Context) (Entry[T], error) {
	for {
		if e, ok := q.TryPop(); ok {
			return e, nil
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return Entry[T]{}, ctx.Err()
		}
	}
}

// TryPop removes and returns the oldest entry if one is available.
func (q *Queue[T]) TryPop() (Entry[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.drained {
		return Entry[T]{End: true}, true
	}
	if q.head >= len(q.items) {
		return Entry[T]{}, false
	}

	e := q.items[q.head]
	var zero Entry[T]
	q.items[q.head] = zero
	q.head++

	if e.End {
		q.drained = true
	} else {
		q.popped++
	}

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= compactThreshold && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return e, true
}

// Len returns the number of values waiting to be popped, excluding the end
// marker.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.pushed - q.popped)
}

// Stats returns a snapshot of the queue counters.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Pushed:    q.pushed,
		Popped:    q.popped,
		Pending:   q.pushed - q.popped,
		HighWater: q.highWater,
		Closed:    q.closed,
	}
}

func (q *Queue[T]) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
