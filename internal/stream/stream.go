// Package stream turns terminal output into a channel of sequenced lines.
//
// # Sources
//
// A Source reads raw output and delivers it line by line. ReaderSource wraps
// any io.Reader (typically a pipe on stdin); PTYSource runs a command under a
// pseudo-terminal so the child behaves exactly as it would interactively,
// echoing its raw output through while catcher watches a copy.
//
// # Sequence Numbers
//
// Every line a source reads gets the next sequence number, whether or not it
// is delivered. When the consumer falls behind, lines are dropped instead of
// stalling the read loop, and the skipped sequence numbers let the consumer
// detect and report the gap.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/catcher-sh/catcher/internal/logging"
)

// Line is one line of watched output.
type Line struct {
	// Seq is the 1-based sequence number assigned by the source.
	// A jump between consecutively delivered lines means lines were dropped.
	Seq uint64

	// Text is the line content without the trailing newline.
	Text string

	// Time is when the source read the line.
	Time time.Time
}

// Source produces lines from an output stream.
type Source interface {
	// Start begins reading in the background. Canceling the context
	// interrupts a blocked read and stops the source.
	Start(ctx context.Context) error

	// Lines returns the delivery channel. It is closed when the source
	// stops, after which Err reports why.
	Lines() <-chan Line

	// Err returns the error that ended the stream, or nil for a clean end
	// (EOF, process exit, or Stop).
	Err() error

	// Stop interrupts reading and releases resources. It is safe to call
	// more than once.
	Stop() error
}

// defaultBufferSize is used when a source is created with a non-positive
// buffer size.
const defaultBufferSize = 1024

// maxLineBytes caps a single line. Lines beyond this end the stream with an
// error; terminal output this long is a program bug upstream.
const maxLineBytes = 1024 * 1024

// dropLogInterval controls how often sustained dropping is logged.
const dropLogInterval = 1000

// emitter assigns sequence numbers and delivers lines without blocking the
// read loop. A full channel drops the line; the sequence number still
// advances so the gap is detectable downstream.
type emitter struct {
	ch     chan Line
	logger *logging.Logger

	mu      sync.Mutex
	seq     uint64
	dropped uint64
}

func newEmitter(bufferSize int, logger *logging.Logger) *emitter {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &emitter{
		ch:     make(chan Line, bufferSize),
		logger: logger,
	}
}

// emit numbers the line and offers it to the consumer. Returns false when
// the line was dropped.
func (e *emitter) emit(text string) bool {
	e.mu.Lock()
	e.seq++
	line := Line{Seq: e.seq, Text: text, Time: time.Now()}
	e.mu.Unlock()

	select {
	case e.ch <- line:
		return true
	default:
	}

	e.mu.Lock()
	e.dropped++
	dropped := e.dropped
	e.mu.Unlock()

	// Log the first drop and then periodically while the consumer lags
	if dropped == 1 || dropped%dropLogInterval == 0 {
		e.logger.Warn("dropping output lines, consumer is behind",
			"dropped", dropped,
			"seq", line.Seq)
	}
	return false
}

// close closes the delivery channel. Call only after the read loop is done.
func (e *emitter) close() {
	close(e.ch)
}

// Dropped returns how many lines were dropped so far.
func (e *emitter) Dropped() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropped
}

// Seq returns the last assigned sequence number.
func (e *emitter) Seq() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}
