// Package dispatch turns rule matches into action executions.
//
// The [Dispatcher] receives one match at a time from the watch loop and
// decides whether it becomes a [Firing]: a loop guard suppresses repeats
// of the same match inside a debounce window, and a per-rule busy check
// serializes executions so a rule never has two actions running at once.
// Accepted firings run on a bounded goroutine pool.
//
// # Loop Guard
//
// An action whose own output re-matches its rule would otherwise fire
// forever. The [Guard] remembers each (rule, matched text) pair it allows
// and suppresses the pair again until the debounce window expires. The
// window defaults to the dispatch configuration and can be overridden per
// rule; a zero window disables the guard.
//
// # Busy Rules
//
// While a rule's action is running, further matches of that rule are
// dropped (the default) or queued behind it, per the rule's on_busy
// policy. Queued firings run in arrival order on the same worker, so a
// rule's actions never overlap. Rules are identified by their pattern and
// action text, not by position, so busy state survives rule set reloads.
//
// # Failure Containment
//
// A failed or panicking action marks its firing failed and is logged;
// it never stops the dispatcher or the watch loop.
package dispatch
