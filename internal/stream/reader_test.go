package stream

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/catcher-sh/catcher/internal/errors"
)

// collect drains a source's line channel until it closes.
func collect(t *testing.T, src Source, timeout time.Duration) []Line {
	t.Helper()
	var lines []Line
	deadline := time.After(timeout)
	for {
		select {
		case line, ok := <-src.Lines():
			if !ok {
				return lines
			}
			lines = append(lines, line)
		case <-deadline:
			t.Fatalf("timed out collecting lines, got %d so far", len(lines))
		}
	}
}

// readOne receives a single line or fails.
func readOne(t *testing.T, src Source, timeout time.Duration) Line {
	t.Helper()
	select {
	case line, ok := <-src.Lines():
		if !ok {
			t.Fatal("line channel closed unexpectedly")
		}
		return line
	case <-time.After(timeout):
		t.Fatal("timed out waiting for a line")
	}
	return Line{}
}

// waitFor polls cond until it returns true or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestReaderSource_DeliversLines(t *testing.T) {
	src := NewReaderSource(strings.NewReader("alpha\nbeta\ngamma\n"), 16, nil)

	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	lines := collect(t, src, 2*time.Second)

	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	wantTexts := []string{"alpha", "beta", "gamma"}
	for i, line := range lines {
		if line.Text != wantTexts[i] {
			t.Errorf("line %d text = %q, want %q", i, line.Text, wantTexts[i])
		}
		if line.Seq != uint64(i+1) {
			t.Errorf("line %d seq = %d, want %d", i, line.Seq, i+1)
		}
		if line.Time.IsZero() {
			t.Errorf("line %d has zero time", i)
		}
	}

	if err := src.Err(); err != nil {
		t.Errorf("Err() = %v, want nil on clean EOF", err)
	}
	if src.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", src.Dropped())
	}
}

func TestReaderSource_NoTrailingNewline(t *testing.T) {
	src := NewReaderSource(strings.NewReader("last line without newline"), 16, nil)

	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	lines := collect(t, src, 2*time.Second)
	if len(lines) != 1 || lines[0].Text != "last line without newline" {
		t.Errorf("lines = %+v, want the final partial line", lines)
	}
}

func TestReaderSource_SequenceGapOnSlowConsumer(t *testing.T) {
	pr, pw := io.Pipe()
	src := NewReaderSource(pr, 1, nil)

	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// First line flows through normally
	if _, err := pw.Write([]byte("line1\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readOne(t, src, time.Second); got.Seq != 1 {
		t.Fatalf("first line seq = %d, want 1", got.Seq)
	}

	// With the consumer idle and a 1-line buffer, a 3-line burst buffers
	// one line and drops two. The sequence numbers keep advancing.
	if _, err := pw.Write([]byte("line2\nline3\nline4\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return src.Dropped() == 2 },
		"timed out waiting for lines to be dropped")

	if got := readOne(t, src, time.Second); got.Seq != 2 {
		t.Fatalf("buffered line seq = %d, want 2", got.Seq)
	}

	// The next delivered line jumps over the dropped sequence numbers
	if _, err := pw.Write([]byte("line5\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := readOne(t, src, time.Second)
	if got.Seq != 5 {
		t.Errorf("post-gap line seq = %d, want 5", got.Seq)
	}
	if got.Text != "line5" {
		t.Errorf("post-gap line text = %q, want line5", got.Text)
	}

	_ = pw.Close()
	collect(t, src, time.Second)

	if err := src.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
	if src.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", src.Dropped())
	}
}

func TestReaderSource_StartTwice(t *testing.T) {
	src := NewReaderSource(strings.NewReader(""), 16, nil)

	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	if err := src.Start(context.Background()); !errors.Is(err, errors.ErrSourceStarted) {
		t.Errorf("second Start() error = %v, want ErrSourceStarted", err)
	}
}

func TestReaderSource_StopUnblocksFileRead(t *testing.T) {
	// os.Pipe gives file-backed descriptors whose reads can be canceled
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer pw.Close()

	src := NewReaderSource(pr, 16, nil)
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		_ = src.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not unblock the pending read")
	}

	// Channel closes and a canceled read is not an error
	collect(t, src, time.Second)
	if err := src.Err(); err != nil {
		t.Errorf("Err() = %v, want nil after Stop", err)
	}

	// Stop again is a no-op
	if err := src.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestReaderSource_ContextCancelStopsSource(t *testing.T) {
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	src := NewReaderSource(pr, 16, nil)
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	cancel()

	lines := collect(t, src, 2*time.Second)
	if len(lines) != 0 {
		t.Errorf("got %d lines, want 0", len(lines))
	}
	if err := src.Err(); err != nil {
		t.Errorf("Err() = %v, want nil after cancellation", err)
	}
}
