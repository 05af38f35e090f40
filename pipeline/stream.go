package pipeline

import "context"

// Iterator yields values one at a time. Next returns (zero, false, nil) once
// the source is exhausted.
type Iterator[T any] interface {
	Next(ctx context.Context) (T, bool, error)
	Close() error
}

// Stream is a lazy sequence built from an Iterator. Nothing is read until it
// is drained.
type Stream[T any] struct {
	open func(ctx context.Context) Iterator[T]
}

// Runnable is a drained stream waiting to be run.
type Runnable struct {
	run func(ctx context.Context) error
}

// Run pulls the stream to the end. It stops at the first error and checks
// ctx between values.
func (r *Runnable) Run(ctx context.Context) error { return r.run(ctx) }

// From wraps iter in a Stream.
func From[T any](iter Iterator[T]) *Stream[T] {
	return &Stream[T]{open: func(context.Context) Iterator[T] { return iter }}
}

// Map converts each value with fn. An error from fn ends the stream.
func Map[I, O any](s *Stream[I], fn func(context.Context, I) (O, error)) *Stream[O] {
	return &Stream[O]{open: func(ctx context.Context) Iterator[O] {
		src := s.open(ctx)
		return &funcIter[O]{
			close: src.Close,
			next: func(ctx context.Context) (O, bool, error) {
				var zero O
				v, ok, err := src.Next(ctx)
				if err != nil || !ok {
					return zero, false, err
				}
				out, err := fn(ctx, v)
				if err != nil {
					return zero, false, err
				}
				return out, true, nil
			},
		}
	}}
}

// Tap runs fn on each value before passing it on unchanged.
func Tap[T any](s *Stream[T], fn func(context.Context, T) error) *Stream[T] {
	return Map(s, func(ctx context.Context, v T) (T, error) {
		if err := fn(ctx, v); err != nil {
			var zero T
			return zero, err
		}
		return v, nil
	})
}

// Drain sends every value of s to sink.
func Drain[T any](s *Stream[T], sink func(context.Context, T) error) *Runnable {
	return &Runnable{run: func(ctx context.Context) error {
		it := s.open(ctx)
		defer it.Close()
		for ctx.Err() == nil {
			v, ok, err := it.Next(ctx)
			if err != nil || !ok {
				return err
			}
			if err := sink(ctx, v); err != nil {
				return err
			}
		}
		return ctx.Err()
	}}
}

type funcIter[T any] struct {
	next  func(context.Context) (T, bool, error)
	close func() error
}

func (it *funcIter[T]) Next(ctx context.Context) (T, bool, error) { return it.next(ctx) }

func (it *funcIter[T]) Close() error { return it.close() }
