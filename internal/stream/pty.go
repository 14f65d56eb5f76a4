package stream

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/creack/pty"

	"github.com/catcher-sh/catcher/internal/errors"
	"github.com/catcher-sh/catcher/internal/logging"
)

// killGrace is how long Stop waits after SIGTERM before killing the child.
const killGrace = 2 * time.Second

// PTYSource runs a command under a pseudo-terminal and watches its output.
// The child sees a real tty, so it keeps colors, progress bars, and
// interactive prompts exactly as it would when run directly. Raw output is
// echoed through unchanged while a copy is scanned into lines.
type PTYSource struct {
	name    string
	args    []string
	echo    io.Writer
	emitter *emitter
	logger  *logging.Logger

	mu       sync.Mutex
	started  bool
	stopped  bool
	err      error
	exitCode int
	waitErr  error

	cmd    *exec.Cmd
	ptmx   *os.File
	winch  chan os.Signal
	done   chan struct{}
	waited chan struct{}
}

// NewPTYSource creates a source that will run the named command with args
// under a pseudo-terminal. Raw output is copied to echo as it arrives (nil
// disables echoing); bufferSize is the line channel capacity.
func NewPTYSource(name string, args []string, bufferSize int, echo io.Writer, logger *logging.Logger) *PTYSource {
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logger.WithComponent("stream")
	return &PTYSource{
		name:     name,
		args:     args,
		echo:     echo,
		emitter:  newEmitter(bufferSize, logger),
		logger:   logger,
		exitCode: -1,
		done:     make(chan struct{}),
		waited:   make(chan struct{}),
	}
}

// Start launches the command under a pseudo-terminal and begins reading.
func (s *PTYSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.ErrSourceStarted
	}
	s.started = true
	s.mu.Unlock()

	cmd := exec.Command(s.name, s.args...)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return errors.NewStreamError("starting command under pty", err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.ptmx = ptmx
	s.mu.Unlock()

	s.setupResize(ptmx)

	s.logger.Info("command started under pty",
		"command", s.name,
		"pid", cmd.Process.Pid)

	go s.readLoop(ptmx)
	go s.reap(cmd)
	go func() {
		select {
		case <-ctx.Done():
			_ = cmd.Process.Signal(syscall.SIGTERM)
			_ = ptmx.Close()
		case <-s.done:
		}
	}()

	return nil
}

// setupResize keeps the child's terminal size in sync with ours. Without a
// real terminal on stdin the child gets a fixed 80x24.
func (s *PTYSource) setupResize(ptmx *os.File) {
	if !term.IsTerminal(os.Stdin.Fd()) {
		_ = pty.Setsize(ptmx, &pty.Winsize{Rows: 24, Cols: 80})
		return
	}

	_ = pty.InheritSize(os.Stdin, ptmx)

	s.winch = make(chan os.Signal, 1)
	signal.Notify(s.winch, syscall.SIGWINCH)
	go func() {
		for range s.winch {
			_ = pty.InheritSize(os.Stdin, ptmx)
		}
	}()
}

// Lines returns the delivery channel.
func (s *PTYSource) Lines() <-chan Line {
	return s.emitter.ch
}

// Err returns the error that ended the stream, if any. A child exiting and
// closing its side of the pty is a clean end, not an error.
func (s *PTYSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Dropped returns how many lines were dropped because the consumer lagged.
func (s *PTYSource) Dropped() uint64 {
	return s.emitter.Dropped()
}

// Write sends input to the child through the pseudo-terminal. This carries
// forwarded user keystrokes and lets actions inject input into the watched
// program.
func (s *PTYSource) Write(p []byte) (int, error) {
	s.mu.Lock()
	ptmx := s.ptmx
	s.mu.Unlock()
	if ptmx == nil {
		return 0, errors.ErrStreamClosed
	}
	return ptmx.Write(p)
}

// Wait blocks until the command has exited and its output is fully read.
// It returns the error from the command itself (nil on exit status 0).
func (s *PTYSource) Wait() error {
	<-s.waited
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitErr
}

// ExitCode returns the command's exit code, or -1 before it has exited.
func (s *PTYSource) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

// Stop terminates the child (SIGTERM, then SIGKILL after a grace period)
// and waits for the stream to drain.
func (s *PTYSource) Stop() error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	cmd := s.cmd
	ptmx := s.ptmx
	s.mu.Unlock()

	// Start failed before the command launched; nothing to tear down
	if cmd == nil {
		return nil
	}

	if cmd.Process != nil {
		_ = cmd.Process.Signal(syscall.SIGTERM)
	}

	select {
	case <-s.waited:
	case <-time.After(killGrace):
		s.logger.Warn("command ignored SIGTERM, killing", "command", s.name)
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-s.waited
	}

	if s.winch != nil {
		signal.Stop(s.winch)
		close(s.winch)
	}
	_ = ptmx.Close()
	<-s.done
	return nil
}

// readLoop scans child output into lines, echoing the raw bytes through.
func (s *PTYSource) readLoop(ptmx *os.File) {
	defer close(s.done)
	defer s.emitter.close()

	var r io.Reader = ptmx
	if s.echo != nil {
		r = io.TeeReader(ptmx, s.echo)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		s.emitter.emit(scanner.Text())
	}

	// Reading the pty master returns EIO when the child exits; that is the
	// normal end of stream on Linux.
	if err := scanner.Err(); err != nil && !errors.Is(err, syscall.EIO) && !errors.Is(err, os.ErrClosed) {
		s.mu.Lock()
		s.err = errors.NewStreamError("reading pty output", err).WithSeq(s.emitter.Seq())
		s.mu.Unlock()
		s.logger.Error("pty stream failed", "error", err, "seq", s.emitter.Seq())
	}
}

// reap waits for the child after its output has drained and records the
// exit code.
func (s *PTYSource) reap(cmd *exec.Cmd) {
	<-s.done
	err := cmd.Wait()

	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}

	s.mu.Lock()
	s.waitErr = err
	s.exitCode = code
	s.mu.Unlock()
	close(s.waited)

	s.logger.Info("command exited", "command", s.name, "exit_code", code)
}
