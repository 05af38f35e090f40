// Package queue provides the alignment queue that pairs each input line's
// remainder with the matching line of filter output.
//
// A Queue has one producer and one consumer. The producer pushes one value
// per input line and finally calls Close, which appends a single end marker.
// The consumer pops entries in exactly the order they were pushed; Pop
// blocks until an entry is available or its context is cancelled.
//
// The queue is unbounded. A consumer that falls far behind the producer makes
// the queue grow by the difference; Stats exposes Pending and HighWater so
// callers can observe it.
//
//	q := queue.New[[][]byte]()
//	_ = q.Push(remainder)
//	_ = q.Close()
//
//	e, err := q.Pop(ctx)
//	if e.End { ... }
package queue
