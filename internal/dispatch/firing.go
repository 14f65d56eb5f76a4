package dispatch

import (
	"sync"
	"time"

	"github.com/catcher-sh/catcher/internal/match"
	"github.com/catcher-sh/catcher/internal/rules"
	"github.com/catcher-sh/catcher/internal/stream"
)

// Status represents the lifecycle state of a firing.
type Status int

const (
	// StatusPending indicates the firing has been created but its action
	// has not started yet.
	StatusPending Status = iota
	// StatusRunning indicates the action is currently executing.
	StatusRunning
	// StatusCompleted indicates the firing finished successfully. For
	// observe-only rules this is reached without running anything.
	StatusCompleted
	// StatusFailed indicates the action could not be started, exited
	// non-zero, timed out, or panicked.
	StatusFailed
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal returns true if the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Firing records one rule match and the execution of its action.
// All methods are safe for concurrent use.
type Firing struct {
	mu sync.RWMutex

	rule    rules.Rule
	matched string
	line    string
	seq     uint64

	status     Status
	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
	exitCode   int
	err        error
}

// newFiring creates a pending firing for a match on the given line.
func newFiring(m match.Match, line stream.Line) *Firing {
	return &Firing{
		rule:      m.Rule,
		matched:   m.Text,
		line:      line.Text,
		seq:       line.Seq,
		status:    StatusPending,
		createdAt: time.Now(),
		exitCode:  -1,
	}
}

// Rule returns the rule that fired.
func (f *Firing) Rule() rules.Rule {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.rule
}

// MatchedText returns the text the rule matched on. The loop guard keys
// on this value.
func (f *Firing) MatchedText() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.matched
}

// LineText returns the full output line that triggered the firing.
func (f *Firing) LineText() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.line
}

// Seq returns the sequence number of the triggering line.
func (f *Firing) Seq() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.seq
}

// Status returns the current lifecycle state.
func (f *Firing) Status() Status {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.status
}

// ExitCode returns the action's exit code, or -1 if it never ran.
func (f *Firing) ExitCode() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.exitCode
}

// Err returns the error recorded for a failed firing, or nil.
func (f *Firing) Err() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.err
}

// CreatedAt returns when the firing was created.
func (f *Firing) CreatedAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.createdAt
}

// Duration returns how long the action ran. It is zero while pending or
// for observe-only firings, and grows while the action is running.
func (f *Firing) Duration() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.startedAt.IsZero() {
		return 0
	}
	if f.finishedAt.IsZero() {
		return time.Since(f.startedAt)
	}
	return f.finishedAt.Sub(f.startedAt)
}

// markRunning transitions pending -> running. Returns false if the firing
// already left the pending state.
func (f *Firing) markRunning(now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != StatusPending {
		return false
	}
	f.status = StatusRunning
	f.startedAt = now
	return true
}

// complete transitions to completed with the action's exit code. Returns
// false if the firing was already terminal.
func (f *Firing) complete(now time.Time, exitCode int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status.Terminal() {
		return false
	}
	f.status = StatusCompleted
	f.finishedAt = now
	f.exitCode = exitCode
	return true
}

// fail transitions to failed with the exit code and error. Returns false
// if the firing was already terminal.
func (f *Firing) fail(now time.Time, exitCode int, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status.Terminal() {
		return false
	}
	f.status = StatusFailed
	f.finishedAt = now
	f.exitCode = exitCode
	f.err = err
	return true
}
