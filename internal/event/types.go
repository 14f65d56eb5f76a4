// Package event defines event types for decoupling components in catcher.
// These events enable communication between the watcher, dispatcher, rules
// loader, and CLI without requiring direct dependencies.
package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "firing.started", "config.reloaded")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Config Events
// -----------------------------------------------------------------------------

// ConfigReloadedEvent is emitted when the rules file is successfully reloaded
// and a new rule set snapshot becomes current.
type ConfigReloadedEvent struct {
	baseEvent
	Path    string // Path to the rules file
	Version int    // Monotonic version of the new rule set
	Rules   int    // Number of valid rules loaded
	Skipped int    // Number of invalid rule entries skipped
}

// NewConfigReloadedEvent creates a ConfigReloadedEvent.
func NewConfigReloadedEvent(path string, version, rules, skipped int) ConfigReloadedEvent {
	return ConfigReloadedEvent{
		baseEvent: newBaseEvent("config.reloaded"),
		Path:      path,
		Version:   version,
		Rules:     rules,
		Skipped:   skipped,
	}
}

// ConfigErrorEvent is emitted when a rules reload fails and the previous
// rule set is retained.
type ConfigErrorEvent struct {
	baseEvent
	Path  string // Path to the rules file
	Error string // Description of the failure
}

// NewConfigErrorEvent creates a ConfigErrorEvent.
func NewConfigErrorEvent(path, errMsg string) ConfigErrorEvent {
	return ConfigErrorEvent{
		baseEvent: newBaseEvent("config.error"),
		Path:      path,
		Error:     errMsg,
	}
}

// -----------------------------------------------------------------------------
// Watcher Events
// -----------------------------------------------------------------------------

// WatchState represents a watcher lifecycle state.
// Mirrors watch.State for decoupling.
type WatchState string

const (
	WatchIdle      WatchState = "idle"
	WatchWatching  WatchState = "watching"
	WatchReloading WatchState = "reloading_config"
	WatchStopped   WatchState = "stopped"
)

// WatcherStateChangedEvent is emitted when the watcher transitions between
// lifecycle states.
type WatcherStateChangedEvent struct {
	baseEvent
	Session       string     // Watch session name
	PreviousState WatchState // Previous state (empty if first transition)
	CurrentState  WatchState // New current state
}

// NewWatcherStateChangedEvent creates a WatcherStateChangedEvent.
func NewWatcherStateChangedEvent(session string, previous, current WatchState) WatcherStateChangedEvent {
	return WatcherStateChangedEvent{
		baseEvent:     newBaseEvent("watcher.state_changed"),
		Session:       session,
		PreviousState: previous,
		CurrentState:  current,
	}
}

// StreamGapEvent is emitted when the watcher observes a jump in line sequence
// numbers, meaning lines were dropped between the source and the watcher.
type StreamGapEvent struct {
	baseEvent
	Session     string // Watch session name
	ExpectedSeq uint64 // Sequence number the watcher expected next
	ActualSeq   uint64 // Sequence number actually observed
	Missed      uint64 // Number of lines skipped over
}

// NewStreamGapEvent creates a StreamGapEvent.
func NewStreamGapEvent(session string, expectedSeq, actualSeq uint64) StreamGapEvent {
	missed := uint64(0)
	if actualSeq > expectedSeq {
		missed = actualSeq - expectedSeq
	}
	return StreamGapEvent{
		baseEvent:   newBaseEvent("stream.gap"),
		Session:     session,
		ExpectedSeq: expectedSeq,
		ActualSeq:   actualSeq,
		Missed:      missed,
	}
}

// -----------------------------------------------------------------------------
// Firing Events
// -----------------------------------------------------------------------------

// FiringStartedEvent is emitted when a firing's action begins execution.
// Observe-only rules (empty action) emit started and finished back to back.
type FiringStartedEvent struct {
	baseEvent
	Pattern string // Rule pattern that matched
	Action  string // Action command (empty for observe-only rules)
	Seq     uint64 // Sequence number of the triggering line
}

// NewFiringStartedEvent creates a FiringStartedEvent.
func NewFiringStartedEvent(pattern, action string, seq uint64) FiringStartedEvent {
	return FiringStartedEvent{
		baseEvent: newBaseEvent("firing.started"),
		Pattern:   pattern,
		Action:    action,
		Seq:       seq,
	}
}

// FiringFinishedEvent is emitted when a firing reaches a terminal status.
type FiringFinishedEvent struct {
	baseEvent
	Pattern  string // Rule pattern that matched
	Action   string // Action command
	Seq      uint64 // Sequence number of the triggering line
	Status   string // Terminal status: "completed" or "failed"
	ExitCode int    // Action exit code (-1 if it never ran)
	Duration string // How long the action ran
	Error    string // Error message (if failed)
}

// NewFiringFinishedEvent creates a FiringFinishedEvent.
func NewFiringFinishedEvent(pattern, action string, seq uint64, status string, exitCode int, duration, errMsg string) FiringFinishedEvent {
	return FiringFinishedEvent{
		baseEvent: newBaseEvent("firing.finished"),
		Pattern:   pattern,
		Action:    action,
		Seq:       seq,
		Status:    status,
		ExitCode:  exitCode,
		Duration:  duration,
		Error:     errMsg,
	}
}

// SkipReason explains why a matched rule did not produce a running action.
type SkipReason int

const (
	SkipBusy       SkipReason = iota // Rule's previous action still running
	SkipSuppressed                   // Loop guard suppressed the match
	SkipStopped                      // Dispatcher was already stopped
)

// String returns a human-readable name for a skip reason.
func (r SkipReason) String() string {
	switch r {
	case SkipBusy:
		return "busy"
	case SkipSuppressed:
		return "suppressed"
	case SkipStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// FiringSkippedEvent is emitted when a match is dropped rather than executed.
type FiringSkippedEvent struct {
	baseEvent
	Pattern string     // Rule pattern that matched
	Action  string     // Action command
	Seq     uint64     // Sequence number of the triggering line
	Reason  SkipReason // Why the firing was skipped
}

// NewFiringSkippedEvent creates a FiringSkippedEvent.
func NewFiringSkippedEvent(pattern, action string, seq uint64, reason SkipReason) FiringSkippedEvent {
	return FiringSkippedEvent{
		baseEvent: newBaseEvent("firing.skipped"),
		Pattern:   pattern,
		Action:    action,
		Seq:       seq,
		Reason:    reason,
	}
}

// FiringQueuedEvent is emitted when a match arrives while the rule's action
// is still running and the rule is configured to queue instead of drop.
type FiringQueuedEvent struct {
	baseEvent
	Pattern string // Rule pattern that matched
	Action  string // Action command
	Seq     uint64 // Sequence number of the triggering line
}

// NewFiringQueuedEvent creates a FiringQueuedEvent.
func NewFiringQueuedEvent(pattern, action string, seq uint64) FiringQueuedEvent {
	return FiringQueuedEvent{
		baseEvent: newBaseEvent("firing.queued"),
		Pattern:   pattern,
		Action:    action,
		Seq:       seq,
	}
}

// -----------------------------------------------------------------------------
// Guard Events
// -----------------------------------------------------------------------------

// GuardSuppressedEvent is emitted when the loop guard suppresses a match
// inside its debounce window.
type GuardSuppressedEvent struct {
	baseEvent
	Pattern   string // Rule pattern that matched
	Text      string // Matched text the guard keyed on
	Seq       uint64 // Sequence number of the suppressed line
	Remaining string // Time left in the debounce window
}

// NewGuardSuppressedEvent creates a GuardSuppressedEvent.
func NewGuardSuppressedEvent(pattern, text string, seq uint64, remaining string) GuardSuppressedEvent {
	return GuardSuppressedEvent{
		baseEvent: newBaseEvent("guard.suppressed"),
		Pattern:   pattern,
		Text:      text,
		Seq:       seq,
		Remaining: remaining,
	}
}
