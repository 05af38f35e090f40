package pipeline

import (
	"bufio"
	"context"
	"io"

	"github.com/kbukum/colpipe/column"
	apperrors "github.com/kbukum/colpipe/errors"
	"github.com/kbukum/colpipe/queue"
)

// merger pairs each subprocess output line with the oldest queued remainder
// and writes the rebuilt line to the output.
type merger struct {
	column int
	lines  *lineIter
	queue  *queue.Queue[[][]byte]
	w      *bufio.Writer
	buf    []byte
	count  *counters
}

func newMerger(col int, stdout io.ReadCloser, out io.Writer, q *queue.Queue[[][]byte], c *counters, readSize, writeSize int) *merger {
	if writeSize <= 0 {
		writeSize = defaultBufferSize
	}
	return &merger{
		column: col,
		lines:  newLineIter(stdout, readSize, stdout),
		queue:  q,
		w:      bufio.NewWriterSize(out, writeSize),
		count:  c,
	}
}

func (m *merger) run(ctx context.Context) error {
	if err := Drain(From[[]byte](m.lines), m.merge).Run(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, ok := apperrors.AsAppError(err); ok {
			return err
		}
		return apperrors.Unexpected("read subprocess output", err)
	}

	// The subprocess is done writing; the next queue entry must be the end
	// marker.
	e, err := m.queue.Pop(ctx)
	if err != nil {
		return err
	}
	if !e.End {
		return apperrors.RowCountDeficit(m.count.merged.Load())
	}
	if err := m.w.Flush(); err != nil {
		return apperrors.Unexpected("write output", err)
	}
	return nil
}

func (m *merger) merge(ctx context.Context, line []byte) error {
	e, err := m.queue.Pop(ctx)
	if err != nil {
		return err
	}
	if e.End {
		return apperrors.RowCountExcess(m.count.merged.Load())
	}
	m.buf = column.AppendJoin(m.buf[:0], e.Value, m.column, column.TrimNewline(line))
	m.buf = append(m.buf, '\n')
	if _, err := m.w.Write(m.buf); err != nil {
		return apperrors.Unexpected("write output", err)
	}
	m.count.merged.Add(1)
	return nil
}
