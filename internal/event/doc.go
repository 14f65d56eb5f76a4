// Package event provides a pub-sub event bus for decoupled inter-component
// communication in catcher.
//
// This package enables loose coupling between the watcher, dispatcher, rules
// loader, and CLI by allowing them to communicate through events rather than
// direct method calls. Components can publish events without knowing who will
// receive them, and subscribe to events without knowing who will produce them.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// The package defines several categories of events:
//
// Config Events:
//   - [ConfigReloadedEvent]: Emitted when the rules file reloads successfully
//   - [ConfigErrorEvent]: Emitted when a reload fails and the old rules stay
//
// Watcher Events:
//   - [WatcherStateChangedEvent]: Emitted on watcher lifecycle transitions
//   - [StreamGapEvent]: Emitted when line sequence numbers skip ahead
//
// Firing Events:
//   - [FiringStartedEvent]: Emitted when a matched rule's action starts
//   - [FiringFinishedEvent]: Emitted when a firing completes or fails
//   - [FiringSkippedEvent]: Emitted when a match is dropped (busy rule)
//   - [FiringQueuedEvent]: Emitted when a match is queued behind a busy rule
//   - [GuardSuppressedEvent]: Emitted when the loop guard debounces a match
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Multiple goroutines can publish
// and subscribe concurrently. Handlers are called synchronously and protected
// against panics - a panicking handler will not prevent other handlers from
// being called.
//
// # Basic Usage
//
//	bus := event.NewBus()
//
//	// Subscribe to specific event types
//	bus.Subscribe("firing.started", func(e event.Event) {
//	    started := e.(event.FiringStartedEvent)
//	    log.Printf("Rule %q fired on line %d", started.Pattern, started.Seq)
//	})
//
//	// Subscribe to all events (useful for logging)
//	bus.SubscribeAll(func(e event.Event) {
//	    log.Printf("Event: %s at %v", e.EventType(), e.Timestamp())
//	})
//
//	// Publish events
//	bus.Publish(event.NewFiringStartedEvent("panic:", "notify.sh", 812))
//
//	// Unsubscribe when done
//	id := bus.Subscribe("firing.finished", handler)
//	bus.Unsubscribe(id)
//
// # Event Type Naming Convention
//
// Event types follow the pattern "category.action":
//   - config.reloaded, config.error
//   - watcher.state_changed
//   - stream.gap
//   - firing.started, firing.finished, firing.skipped, firing.queued
//   - guard.suppressed
package event
