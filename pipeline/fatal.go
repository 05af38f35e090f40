package pipeline

import "sync"

// Fatal is a one-shot signal shared by the flows of a run. The first raised
// error wins; later ones are kept as suppressed.
type Fatal struct {
	mu         sync.Mutex
	err        error
	suppressed []error
	done       chan struct{}
}

// NewFatal creates an unraised signal.
func NewFatal() *Fatal {
	return &Fatal{done: make(chan struct{})}
}

// Raise records err and reports whether it was the first error raised.
func (f *Fatal) Raise(err error) bool {
	if err == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		f.suppressed = append(f.suppressed, err)
		return false
	}
	f.err = err
	close(f.done)
	return true
}

// Done is closed by the first Raise.
func (f *Fatal) Done() <-chan struct{} {
	return f.done
}

// Err returns the first raised error, or nil.
func (f *Fatal) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Suppressed returns the errors raised after the first one.
func (f *Fatal) Suppressed() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.suppressed...)
}
