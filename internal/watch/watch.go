package watch

import (
	"context"
	"sync"
	"time"

	"github.com/catcher-sh/catcher/internal/config"
	"github.com/catcher-sh/catcher/internal/dispatch"
	"github.com/catcher-sh/catcher/internal/errors"
	"github.com/catcher-sh/catcher/internal/event"
	"github.com/catcher-sh/catcher/internal/logging"
	"github.com/catcher-sh/catcher/internal/match"
	"github.com/catcher-sh/catcher/internal/rules"
	"github.com/catcher-sh/catcher/internal/stream"
)

// State represents the watcher lifecycle state.
type State int

const (
	// StateIdle indicates the watcher was created but Run has not been
	// called yet.
	StateIdle State = iota
	// StateWatching indicates the watcher is processing lines.
	StateWatching
	// StateReloadingConfig indicates the watcher is swapping in a new
	// rule set between lines.
	StateReloadingConfig
	// StateStopped indicates the watcher has finished. Terminal.
	StateStopped
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWatching:
		return "watching"
	case StateReloadingConfig:
		return "reloading_config"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// eventState maps the state to its bus representation.
func (s State) eventState() event.WatchState {
	switch s {
	case StateIdle:
		return event.WatchIdle
	case StateWatching:
		return event.WatchWatching
	case StateReloadingConfig:
		return event.WatchReloading
	case StateStopped:
		return event.WatchStopped
	default:
		return event.WatchState("unknown")
	}
}

// Stats reports the watcher's line-processing counters.
type Stats struct {
	Lines   uint64 // lines processed
	Matches uint64 // rule matches found (a line can contribute several)
	Gaps    uint64 // sequence gaps observed
	LastSeq uint64 // sequence number of the last processed line
}

// Options configures a Watcher.
type Options struct {
	// Session names this watch; rules scoped to other sessions are
	// filtered out.
	Session string

	// Watch holds line-handling settings (ANSI stripping).
	Watch config.WatchConfig

	// Source supplies the output lines. The caller starts and stops it;
	// Run only consumes its channel.
	Source stream.Source

	// Loader supplies rule set snapshots. The watcher subscribes for
	// reloads and seeds its rules from the current snapshot.
	Loader *rules.Loader

	// Dispatcher executes the matches. Run stops it on exit.
	Dispatcher *dispatch.Dispatcher

	// ShutdownGrace is how long the dispatcher gets to finish running
	// actions when the watcher exits.
	ShutdownGrace time.Duration

	// Logger is the parent logger. Nil logs nothing.
	Logger *logging.Logger

	// Bus receives watcher events. Nil publishes nothing.
	Bus *event.Bus
}

// Watcher is the line-processing loop for one session. Create it with
// NewWatcher, then call Run once.
type Watcher struct {
	session    string
	cfg        config.WatchConfig
	source     stream.Source
	loader     *rules.Loader
	dispatcher *dispatch.Dispatcher
	grace      time.Duration
	logger     *logging.Logger
	bus        *event.Bus

	// reloadCh holds at most one pending rule set; newer sets replace it
	reloadCh chan *rules.Set

	mu      sync.RWMutex
	state   State
	active  []rules.Rule
	version int
	err     error
	lines   uint64
	matches uint64
	gaps    uint64
	lastSeq uint64
}

// NewWatcher creates a watcher and subscribes it to the loader's reload
// notifications.
func NewWatcher(opts Options) *Watcher {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	w := &Watcher{
		session:    opts.Session,
		cfg:        opts.Watch,
		source:     opts.Source,
		loader:     opts.Loader,
		dispatcher: opts.Dispatcher,
		grace:      opts.ShutdownGrace,
		logger:     logger.WithSession(opts.Session).WithComponent("watch"),
		bus:        opts.Bus,
		reloadCh:   make(chan *rules.Set, 1),
		state:      StateIdle,
	}
	w.loader.OnChange(w.enqueueReload)
	return w
}

// Session returns the watch session name.
func (w *Watcher) Session() string {
	return w.session
}

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// ActiveRules returns a copy of the rules currently matched against,
// already filtered to this session.
func (w *Watcher) ActiveRules() []rules.Rule {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]rules.Rule, len(w.active))
	copy(out, w.active)
	return out
}

// RulesVersion returns the version of the applied rule set.
func (w *Watcher) RulesVersion() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.version
}

// Stats returns current line-processing counters.
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Stats{
		Lines:   w.lines,
		Matches: w.matches,
		Gaps:    w.gaps,
		LastSeq: w.lastSeq,
	}
}

// Err returns the stream error that terminated the watcher, or nil.
func (w *Watcher) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.err
}

// Run processes lines until the stream ends, the context is canceled, or
// the stream fails. It returns nil on a clean stop and the stream error
// otherwise. On exit it stops the dispatcher with the shutdown grace.
//
// Run may be called once; later calls return ErrWatcherStarted or, after
// the watcher stopped, ErrWatcherStopped.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	switch w.state {
	case StateIdle:
	case StateStopped:
		w.mu.Unlock()
		return errors.ErrWatcherStopped
	default:
		w.mu.Unlock()
		return errors.ErrWatcherStarted
	}
	seed := w.loader.Current().ForSession(w.session)
	w.active = seed.Rules()
	w.version = seed.Version()
	w.mu.Unlock()

	w.transition(StateWatching)
	w.logger.Info("watching",
		"rules", seed.Len(), "rules_version", seed.Version(),
		"strip_ansi", w.cfg.StripANSI)

	defer w.dispatcher.Stop(w.grace)
	defer w.transition(StateStopped)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping watcher", "reason", "canceled")
			return nil

		case set := <-w.reloadCh:
			w.applyRules(set)

		case line, ok := <-w.source.Lines():
			if !ok {
				if err := w.source.Err(); err != nil {
					var serr *errors.StreamError
					if errors.As(err, &serr) && serr.Session == "" {
						serr.WithSession(w.session)
					}
					w.logger.Error("stream failed", "error", err.Error())
					w.setErr(err)
					return err
				}
				w.logger.Info("stream ended")
				return nil
			}
			w.processLine(line)
		}
	}
}

// enqueueReload hands a new rule set to the run loop, replacing any
// pending one. Called by the loader on its own goroutine.
func (w *Watcher) enqueueReload(set *rules.Set) {
	for {
		select {
		case w.reloadCh <- set:
			return
		default:
			// Drop the stale pending set and try again
			select {
			case <-w.reloadCh:
			default:
			}
		}
	}
}

// applyRules swaps the active rules for this session. Runs between
// lines, so a line never sees a half-applied rule set.
func (w *Watcher) applyRules(set *rules.Set) {
	w.transition(StateReloadingConfig)

	scoped := set.ForSession(w.session)
	w.mu.Lock()
	w.active = scoped.Rules()
	w.version = set.Version()
	w.mu.Unlock()

	w.logger.Info("rules applied",
		"rules_version", set.Version(), "total", set.Len(), "active", scoped.Len())
	w.transition(StateWatching)
}

// processLine checks for a sequence gap, matches the line, and hands the
// matches to the dispatcher in rule order.
func (w *Watcher) processLine(line stream.Line) {
	w.mu.Lock()
	expected := w.lastSeq + 1
	gap := line.Seq > expected
	if gap {
		w.gaps++
	}
	w.lastSeq = line.Seq
	w.lines++
	active := w.active
	w.mu.Unlock()

	if gap {
		w.logger.Warn("dropped lines detected",
			"expected_seq", expected, "actual_seq", line.Seq,
			"missed", line.Seq-expected)
		w.publish(event.NewStreamGapEvent(w.session, expected, line.Seq))
	}

	text := line.Text
	if w.cfg.StripANSI {
		text = match.StripANSI(text)
	}

	found := match.Line(text, active)
	if len(found) == 0 {
		return
	}

	w.mu.Lock()
	w.matches += uint64(len(found))
	w.mu.Unlock()

	matched := line
	matched.Text = text
	for _, m := range found {
		// Busy, suppressed, and stopped drops are the dispatcher's
		// call; the loop just hands over every match in rule order
		_, _ = w.dispatcher.Dispatch(m, matched)
	}
}

func (w *Watcher) setErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = err
}

// transition moves to the next state and announces the change. Stopped
// is terminal; transitions out of it are ignored.
func (w *Watcher) transition(next State) {
	w.mu.Lock()
	prev := w.state
	if prev == next || prev == StateStopped {
		w.mu.Unlock()
		return
	}
	w.state = next
	w.mu.Unlock()

	w.logger.Debug("watcher state changed", "from", prev.String(), "to", next.String())
	w.publish(event.NewWatcherStateChangedEvent(w.session, prev.eventState(), next.eventState()))
}

func (w *Watcher) publish(e event.Event) {
	if w.bus != nil {
		w.bus.Publish(e)
	}
}
