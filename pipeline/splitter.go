package pipeline

import (
	"bufio"
	"context"
	"io"

	"github.com/kbukum/colpipe/column"
	apperrors "github.com/kbukum/colpipe/errors"
	"github.com/kbukum/colpipe/queue"
)

// record is one input line cut at the target column.
type record struct {
	field []byte
	rest  [][]byte
}

// splitter reads input lines, queues their remainders and feeds the target
// fields to the subprocess. It closes the subprocess stdin only after the
// whole input went through; on failure the process group is killed instead.
type splitter struct {
	column int
	lines  *lineIter
	stdin  io.WriteCloser
	w      *bufio.Writer
	queue  *queue.Queue[[][]byte]
	count  *counters
}

func newSplitter(col int, in io.Reader, stdin io.WriteCloser, q *queue.Queue[[][]byte], c *counters, readSize, writeSize int) *splitter {
	if writeSize <= 0 {
		writeSize = defaultBufferSize
	}
	return &splitter{
		column: col,
		lines:  newLineIter(in, readSize, nil),
		stdin:  stdin,
		w:      bufio.NewWriterSize(stdin, writeSize),
		queue:  q,
		count:  c,
	}
}

func (s *splitter) run(ctx context.Context) error {
	records := Tap(Map(From[[]byte](s.lines), s.split), s.enqueue)
	if err := Drain(records, s.write).Run(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, ok := apperrors.AsAppError(err); ok {
			return err
		}
		return apperrors.Unexpected("read input", err)
	}

	if err := s.queue.Close(); err != nil {
		return apperrors.Unexpected("close remainder queue", err)
	}
	if err := s.w.Flush(); err != nil {
		return apperrors.Unexpected("write to subprocess", err)
	}
	if err := s.stdin.Close(); err != nil {
		return apperrors.Unexpected("close subprocess input", err)
	}
	return nil
}

func (s *splitter) split(_ context.Context, line []byte) (record, error) {
	field, rest, n, ok := column.Split(column.TrimNewline(line), s.column)
	if !ok {
		return record{}, apperrors.ColumnOutOfRange(s.lines.Count(), s.column, n)
	}
	return record{field: field, rest: rest}, nil
}

// enqueue runs before write so the merger never sees a subprocess line whose
// remainder is not yet queued.
func (s *splitter) enqueue(_ context.Context, r record) error {
	if err := s.queue.Push(r.rest); err != nil {
		return apperrors.Unexpected("queue remainder", err)
	}
	return nil
}

func (s *splitter) write(_ context.Context, r record) error {
	if _, err := s.w.Write(r.field); err != nil {
		return apperrors.Unexpected("write to subprocess", err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return apperrors.Unexpected("write to subprocess", err)
	}
	s.count.split.Add(1)
	return nil
}
