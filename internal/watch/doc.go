// Package watch runs the line-processing loop at the heart of catcher:
// read a line from the stream, match it against the active rules, hand
// the matches to the dispatcher, repeat.
//
// # Lifecycle
//
// A [Watcher] moves through four states: idle until [Watcher.Run] is
// called, watching while processing lines, briefly reloading_config
// while swapping in a new rule set, and stopped once the stream ends,
// the context is canceled, or the stream fails. Stopped is terminal; a
// watcher is not reusable. Each transition is logged and published as a
// watcher.state_changed event.
//
// # Rule Reloads
//
// The watcher subscribes to the rules loader and keeps the subset of
// rules scoped to its session. A new snapshot is applied between lines,
// never in the middle of one, so a line is matched entirely against one
// rule set version. Only the newest pending snapshot is kept when
// reloads arrive faster than lines are processed.
//
// # Dropped Lines
//
// Line sequence numbers are checked as lines arrive. A jump means the
// stream source dropped lines while the loop was busy; the watcher logs
// the gap, publishes a stream.gap event, and keeps going. Matching is
// best-effort: dropped lines are never recovered.
package watch
