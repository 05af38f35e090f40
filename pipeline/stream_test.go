package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type sliceIter[T any] struct {
	items  []T
	idx    int
	closed bool
}

func (s *sliceIter[T]) Next(_ context.Context) (T, bool, error) {
	if s.idx >= len(s.items) {
		var zero T
		return zero, false, nil
	}
	v := s.items[s.idx]
	s.idx++
	return v, true, nil
}

func (s *sliceIter[T]) Close() error {
	s.closed = true
	return nil
}

func TestMapTapDrain(t *testing.T) {
	src := &sliceIter[int]{items: []int{1, 2, 3}}
	var tapped, sunk []int
	doubled := Map(From[int](src), func(_ context.Context, n int) (int, error) { return n * 2, nil })
	seen := Tap(doubled, func(_ context.Context, n int) error {
		tapped = append(tapped, n)
		return nil
	})
	err := Drain(seen, func(_ context.Context, n int) error {
		sunk = append(sunk, n)
		return nil
	}).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sunk) != 3 || sunk[0] != 2 || sunk[2] != 6 {
		t.Errorf("unexpected sink values %v", sunk)
	}
	if len(tapped) != 3 {
		t.Errorf("expected tap to see 3 values, got %v", tapped)
	}
	if !src.closed {
		t.Error("expected source to be closed after drain")
	}
}

func TestMapErrorStopsStream(t *testing.T) {
	src := &sliceIter[string]{items: []string{"a", "bad", "c"}}
	boom := errors.New("boom")
	var sunk []string
	s := Map(From[string](src), func(_ context.Context, v string) (string, error) {
		if v == "bad" {
			return "", boom
		}
		return strings.ToUpper(v), nil
	})
	err := Drain(s, func(_ context.Context, v string) error {
		sunk = append(sunk, v)
		return nil
	}).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(sunk) != 1 || sunk[0] != "A" {
		t.Errorf("expected only the first value to reach the sink, got %v", sunk)
	}
}

func TestTapErrorSkipsSink(t *testing.T) {
	src := &sliceIter[int]{items: []int{1}}
	boom := errors.New("tap failed")
	called := false
	s := Tap(From[int](src), func(context.Context, int) error { return boom })
	err := Drain(s, func(context.Context, int) error {
		called = true
		return nil
	}).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected tap error, got %v", err)
	}
	if called {
		t.Error("sink must not see a value whose tap failed")
	}
}

func TestDrainHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &sliceIter[int]{items: []int{1, 2, 3}}
	count := 0
	err := Drain(From[int](src), func(context.Context, int) error {
		count++
		cancel()
		return nil
	}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if count != 1 {
		t.Errorf("expected drain to stop after the first value, got %d", count)
	}
}
