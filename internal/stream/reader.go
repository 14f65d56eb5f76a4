package stream

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/muesli/cancelreader"

	"github.com/catcher-sh/catcher/internal/errors"
	"github.com/catcher-sh/catcher/internal/logging"
)

// ReaderSource reads lines from an io.Reader, typically a pipe on stdin
// (`make test 2>&1 | catcher watch`). Reads of files and terminals can be
// interrupted by Stop or context cancellation; other readers stop when the
// next read returns.
type ReaderSource struct {
	reader  io.Reader
	emitter *emitter
	logger  *logging.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	err     error

	cancel cancelreader.CancelReader
	done   chan struct{}
}

// NewReaderSource creates a source reading from r. bufferSize is the line
// channel capacity (<= 0 uses the default); the logger may be nil.
func NewReaderSource(r io.Reader, bufferSize int, logger *logging.Logger) *ReaderSource {
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logger.WithComponent("stream")
	return &ReaderSource{
		reader:  r,
		emitter: newEmitter(bufferSize, logger),
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start begins reading lines in the background.
func (s *ReaderSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.ErrSourceStarted
	}
	s.started = true
	s.mu.Unlock()

	cr, err := cancelreader.NewReader(s.reader)
	if err != nil {
		return errors.NewStreamError("creating cancelable reader", err)
	}
	s.cancel = cr

	go s.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			s.cancel.Cancel()
		case <-s.done:
		}
	}()

	return nil
}

// Lines returns the delivery channel.
func (s *ReaderSource) Lines() <-chan Line {
	return s.emitter.ch
}

// Err returns the error that ended the stream, if any.
func (s *ReaderSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Dropped returns how many lines were dropped because the consumer lagged.
func (s *ReaderSource) Dropped() uint64 {
	return s.emitter.Dropped()
}

// Stop interrupts reading and waits for the read loop to finish.
func (s *ReaderSource) Stop() error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel.Cancel()
	<-s.done
	return nil
}

// readLoop scans lines until EOF, cancellation, or a read error.
func (s *ReaderSource) readLoop() {
	defer close(s.done)
	defer s.emitter.close()

	scanner := bufio.NewScanner(s.cancel)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		s.emitter.emit(scanner.Text())
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, cancelreader.ErrCanceled) {
		s.mu.Lock()
		s.err = errors.NewStreamError("reading input", err).WithSeq(s.emitter.Seq())
		s.mu.Unlock()
		s.logger.Error("input stream failed", "error", err, "seq", s.emitter.Seq())
	}
}
