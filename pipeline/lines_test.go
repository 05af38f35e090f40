package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func readAllLines(t *testing.T, it *lineIter) []string {
	t.Helper()
	var out []string
	for {
		line, ok, err := it.Next(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			return out
		}
		out = append(out, string(line))
	}
}

func TestLineIter(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"terminated", "a\tb\nc\td\n", []string{"a\tb\n", "c\td\n"}},
		{"unterminated last line", "a\nb", []string{"a\n", "b"}},
		{"blank lines", "\n\n", []string{"\n", "\n"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			it := newLineIter(strings.NewReader(tc.input), 16, nil)
			got := readAllLines(t, it)
			if len(got) != len(tc.want) {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("line %d: got %q, want %q", i, got[i], tc.want[i])
				}
			}
			if it.Count() != int64(len(tc.want)) {
				t.Errorf("Count() = %d, want %d", it.Count(), len(tc.want))
			}
		})
	}
}

func TestLineIterLongLine(t *testing.T) {
	long := strings.Repeat("x", 3*defaultBufferSize) + "\tend\n"
	it := newLineIter(strings.NewReader(long), 0, nil)
	got := readAllLines(t, it)
	if len(got) != 1 || got[0] != long {
		t.Fatalf("long line was not read whole (got %d lines)", len(got))
	}
}

func TestLineIterStaysExhausted(t *testing.T) {
	it := newLineIter(strings.NewReader("only"), 0, nil)
	readAllLines(t, it)
	if _, ok, err := it.Next(context.Background()); ok || err != nil {
		t.Errorf("expected exhausted iterator, got ok=%v err=%v", ok, err)
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestLineIterReadError(t *testing.T) {
	boom := errors.New("disk on fire")
	it := newLineIter(failingReader{boom}, 0, nil)
	if _, _, err := it.Next(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestLineIterClose(t *testing.T) {
	rc := &closeRecorder{Reader: bytes.NewReader(nil)}
	it := newLineIter(rc, 0, rc)
	if err := it.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !rc.closed {
		t.Error("expected closer to be called")
	}
}
