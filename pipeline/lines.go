package pipeline

import (
	"bufio"
	"context"
	"errors"
	"io"
)

// lineIter yields the lines of a reader, each with its trailing newline. A
// final line without one is still yielded. Lines have no length limit.
type lineIter struct {
	r      *bufio.Reader
	closer io.Closer
	n      int64
	eof    bool
}

// newLineIter reads lines from r. closer, if non-nil, is closed by Close.
func newLineIter(r io.Reader, size int, closer io.Closer) *lineIter {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &lineIter{r: bufio.NewReaderSize(r, size), closer: closer}
}

func (it *lineIter) Next(_ context.Context) ([]byte, bool, error) {
	if it.eof {
		return nil, false, nil
	}
	line, err := it.r.ReadBytes('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, false, err
		}
		it.eof = true
		if len(line) == 0 {
			return nil, false, nil
		}
	}
	it.n++
	return line, true, nil
}

// Count returns the number of lines yielded so far.
func (it *lineIter) Count() int64 { return it.n }

func (it *lineIter) Close() error {
	if it.closer != nil {
		return it.closer.Close()
	}
	return nil
}
