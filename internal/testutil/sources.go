package testutil

import (
	"bytes"
	"errors"
	"io"
)

// ErrSimulatedRead is returned by FailingSource.
var ErrSimulatedRead = errors.New("simulated read failure")

// FailingSource is an upload source whose read always fails.
type FailingSource struct {
	FileName string
	// FailOpen fails at open time instead of during the read.
	FailOpen bool
}

func (s FailingSource) Name() string { return s.FileName }

func (s FailingSource) Open() (io.ReadCloser, error) {
	if s.FailOpen {
		return nil, ErrSimulatedRead
	}
	return io.NopCloser(failingReader{}), nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, ErrSimulatedRead }

// BlockingSource blocks its read until Release is closed. Opened is closed
// once the read has started.
type BlockingSource struct {
	FileName string
	Data     []byte
	Opened   chan struct{}
	Release  chan struct{}
}

// NewBlockingSource creates a BlockingSource with fresh channels.
func NewBlockingSource(name string, data []byte) *BlockingSource {
	return &BlockingSource{
		FileName: name,
		Data:     data,
		Opened:   make(chan struct{}),
		Release:  make(chan struct{}),
	}
}

func (s *BlockingSource) Name() string { return s.FileName }

func (s *BlockingSource) Open() (io.ReadCloser, error) {
	close(s.Opened)
	<-s.Release
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}
