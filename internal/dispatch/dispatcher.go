package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/catcher-sh/catcher/internal/config"
	"github.com/catcher-sh/catcher/internal/errors"
	"github.com/catcher-sh/catcher/internal/event"
	"github.com/catcher-sh/catcher/internal/logging"
	"github.com/catcher-sh/catcher/internal/match"
	"github.com/catcher-sh/catcher/internal/stream"
	"github.com/catcher-sh/catcher/internal/util"
)

// maxQueuedPerRule bounds a rule's queue when its action is much slower
// than its trigger rate; matches beyond the cap are dropped as busy.
const maxQueuedPerRule = 16

// ruleState tracks the running action and queued firings for one rule.
type ruleState struct {
	running bool
	queue   []*Firing
}

// Snapshot reports dispatcher activity counters.
type Snapshot struct {
	Dispatched uint64 // firings executed or observed (includes dequeued ones)
	Completed  uint64 // firings that reached completed
	Failed     uint64 // firings that reached failed
	Suppressed uint64 // matches suppressed by the loop guard
	Skipped    uint64 // matches dropped (rule busy, queue full, or stopping)
	Queued     uint64 // matches queued behind a running action
	Running    int    // actions currently executing
}

// Dispatcher turns matches into firings and runs their actions on a
// bounded goroutine pool. Matches for a busy rule are dropped or queued
// per the rule's on_busy policy. It is safe for concurrent use, though
// in practice a single watch loop feeds it.
type Dispatcher struct {
	cfg    config.DispatchConfig
	runner Runner
	logger *logging.Logger
	bus    *event.Bus
	guard  *Guard
	pool   *pool.Pool

	// actionsCtx is the parent context of every action; Stop cancels it
	// when the grace period runs out.
	actionsCtx context.Context
	cancelAll  context.CancelFunc

	// submitWG tracks in-flight pool submissions so Stop never calls
	// pool.Wait while a Dispatch is still handing work to the pool.
	submitWG sync.WaitGroup

	mu      sync.Mutex
	states  map[string]*ruleState
	stopped bool

	dispatched uint64
	completed  uint64
	failed     uint64
	suppressed uint64
	skipped    uint64
	queued     uint64
}

// NewDispatcher creates a dispatcher that executes actions with the given
// runner. A nil logger logs nothing; a nil bus publishes nothing.
func NewDispatcher(cfg config.DispatchConfig, runner Runner, logger *logging.Logger, bus *event.Bus) *Dispatcher {
	if logger == nil {
		logger = logging.NopLogger()
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		cfg:        cfg,
		runner:     runner,
		logger:     logger.WithComponent("dispatch"),
		bus:        bus,
		guard:      NewGuard(cfg.Debounce()),
		pool:       pool.New().WithMaxGoroutines(maxConcurrent),
		actionsCtx: ctx,
		cancelAll:  cancel,
		states:     make(map[string]*ruleState),
	}
}

// Dispatch decides what happens to one match: the firing runs on the
// pool, is queued behind the rule's running action, or is dropped. It
// never waits for an action to finish, though when every pool worker is
// busy it does wait for a free worker; the stream buffer upstream
// absorbs that backpressure and drops lines with sequence gaps beyond
// its capacity.
//
// The returned firing is nil when the match was suppressed or dropped,
// with the error telling why (ErrLoopSuppressed, ErrRuleBusy, or
// ErrDispatcherStopped).
func (d *Dispatcher) Dispatch(m match.Match, line stream.Line) (*Firing, error) {
	pattern := m.Rule.Pattern
	action := m.Rule.Action

	d.mu.Lock()
	if d.stopped {
		d.skipped++
		d.mu.Unlock()
		d.logger.Debug("dropping match, dispatcher stopped",
			"pattern", pattern, "seq", line.Seq)
		d.publish(event.NewFiringSkippedEvent(pattern, action, line.Seq, event.SkipStopped))
		return nil, errors.ErrDispatcherStopped
	}
	d.mu.Unlock()

	now := time.Now()
	if allowed, remaining := d.guard.Allow(m.Rule, m.Text, now); !allowed {
		d.mu.Lock()
		d.suppressed++
		d.mu.Unlock()
		d.logger.Debug("firing suppressed by loop guard",
			"pattern", pattern, "text", m.Text, "seq", line.Seq,
			"remaining", remaining.Round(time.Millisecond).String())
		d.publish(event.NewGuardSuppressedEvent(pattern, m.Text, line.Seq,
			remaining.Round(time.Millisecond).String()))
		return nil, errors.ErrLoopSuppressed
	}

	f := newFiring(m, line)

	if m.Rule.ObserveOnly() {
		d.observe(f, now)
		return f, nil
	}

	key := ruleKey(m.Rule)
	d.mu.Lock()
	if d.stopped {
		// Raced with Stop; the early check already covers the common path
		d.skipped++
		d.mu.Unlock()
		return nil, errors.ErrDispatcherStopped
	}
	st := d.states[key]
	if st == nil {
		st = &ruleState{}
		d.states[key] = st
	}
	if st.running {
		policy := m.Rule.BusyPolicy(d.cfg.OnBusy)
		if policy == "queue" && len(st.queue) < maxQueuedPerRule {
			st.queue = append(st.queue, f)
			depth := len(st.queue)
			d.queued++
			d.mu.Unlock()
			d.logger.Info("queueing match behind running action",
				"pattern", pattern, "seq", line.Seq, "depth", depth)
			d.publish(event.NewFiringQueuedEvent(pattern, action, line.Seq))
			return f, nil
		}
		d.skipped++
		d.mu.Unlock()
		d.logger.Info("skipping match, action still running",
			"pattern", pattern, "action", action, "seq", line.Seq)
		d.publish(event.NewFiringSkippedEvent(pattern, action, line.Seq, event.SkipBusy))
		return nil, errors.ErrRuleBusy
	}
	st.running = true
	d.dispatched++
	d.submitWG.Add(1)
	d.mu.Unlock()

	d.pool.Go(func() {
		d.runChain(f)
	})
	d.submitWG.Done()
	return f, nil
}

// observe completes an observe-only firing without running anything.
func (d *Dispatcher) observe(f *Firing, now time.Time) {
	f.complete(now, -1)
	d.mu.Lock()
	d.dispatched++
	d.completed++
	d.mu.Unlock()

	d.logger.Info("pattern matched",
		"pattern", f.rule.Pattern, "seq", f.seq,
		"line", util.TruncateString(f.line, 100))
	d.publish(event.NewFiringStartedEvent(f.rule.Pattern, "", f.seq))
	d.publish(event.NewFiringFinishedEvent(f.rule.Pattern, "", f.seq,
		StatusCompleted.String(), -1, "0s", ""))
}

// runChain executes a firing and then any firings queued behind its rule,
// one at a time, so a rule's actions never overlap.
func (d *Dispatcher) runChain(f *Firing) {
	for f != nil {
		d.runOne(f)
		f = d.takeNext(f)
	}
}

// runOne executes a single firing with panic containment. A panicking
// runner marks the firing failed instead of crashing the pool.
func (d *Dispatcher) runOne(f *Firing) {
	var pc panics.Catcher
	pc.Try(func() { d.execute(f) })
	if r := pc.Recovered(); r != nil {
		derr := errors.NewDispatchError("action runner panicked", r.AsError()).
			WithRule(f.rule.Pattern, f.rule.Action).
			WithSeverity(errors.SeverityError)
		if f.fail(time.Now(), -1, derr) {
			d.mu.Lock()
			d.failed++
			d.mu.Unlock()
			d.logger.Error("action runner panicked",
				"pattern", f.rule.Pattern, "action", f.rule.Action,
				"seq", f.seq, "panic", r.String())
			d.publish(event.NewFiringFinishedEvent(f.rule.Pattern, f.rule.Action,
				f.seq, StatusFailed.String(), -1, f.Duration().String(), derr.Error()))
		}
	}
}

// execute runs the firing's action and records the outcome.
func (d *Dispatcher) execute(f *Firing) {
	rlog := d.logger.WithRule(f.rule.Pattern)

	start := time.Now()
	f.markRunning(start)
	rlog.Info("action started",
		"action", f.rule.Action, "seq", f.seq, "matched", f.matched)
	d.publish(event.NewFiringStartedEvent(f.rule.Pattern, f.rule.Action, f.seq))

	ctx := d.actionsCtx
	if timeout := d.cfg.ActionTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	code, err := d.runner.Run(ctx, f.rule.Action)
	now := time.Now()

	if err != nil {
		message := "action failed"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			message = "action timed out"
		}
		derr := errors.NewDispatchError(message, err).
			WithRule(f.rule.Pattern, f.rule.Action).
			WithExitCode(code)
		f.fail(now, code, derr)
		d.mu.Lock()
		d.failed++
		d.mu.Unlock()
		rlog.Warn(message,
			"action", f.rule.Action, "seq", f.seq, "exit_code", code,
			"duration", now.Sub(start).Round(time.Millisecond).String(),
			"error", err.Error())
		d.publish(event.NewFiringFinishedEvent(f.rule.Pattern, f.rule.Action,
			f.seq, StatusFailed.String(), code, now.Sub(start).String(), derr.Error()))
		return
	}

	f.complete(now, code)
	d.mu.Lock()
	d.completed++
	d.mu.Unlock()
	rlog.Info("action completed",
		"action", f.rule.Action, "seq", f.seq, "exit_code", code,
		"duration", now.Sub(start).Round(time.Millisecond).String())
	d.publish(event.NewFiringFinishedEvent(f.rule.Pattern, f.rule.Action,
		f.seq, StatusCompleted.String(), code, now.Sub(start).String(), ""))
}

// takeNext releases prev's rule slot and returns the next queued firing
// for that rule, keeping the slot held when one exists. Returns nil when
// the queue is empty or the dispatcher is stopping.
func (d *Dispatcher) takeNext(prev *Firing) *Firing {
	key := ruleKey(prev.rule)

	d.mu.Lock()
	defer d.mu.Unlock()

	st := d.states[key]
	if st == nil {
		return nil
	}
	if d.stopped || len(st.queue) == 0 {
		st.running = false
		if len(st.queue) == 0 {
			delete(d.states, key)
		}
		return nil
	}
	next := st.queue[0]
	st.queue = st.queue[1:]
	d.dispatched++
	return next
}

// Snapshot returns current activity counters.
func (d *Dispatcher) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	running := 0
	for _, st := range d.states {
		if st.running {
			running++
		}
	}
	return Snapshot{
		Dispatched: d.dispatched,
		Completed:  d.completed,
		Failed:     d.failed,
		Suppressed: d.suppressed,
		Skipped:    d.skipped,
		Queued:     d.queued,
		Running:    running,
	}
}

// Stop waits up to grace for running actions to finish, then cancels the
// rest. Queued firings that never started are dropped. Safe to call more
// than once; later calls return immediately.
func (d *Dispatcher) Stop(grace time.Duration) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true

	var drained []*Firing
	for _, st := range d.states {
		drained = append(drained, st.queue...)
		st.queue = nil
	}
	d.skipped += uint64(len(drained))
	d.mu.Unlock()

	for _, f := range drained {
		d.logger.Debug("dropping queued firing on shutdown",
			"pattern", f.rule.Pattern, "seq", f.seq)
		d.publish(event.NewFiringSkippedEvent(f.rule.Pattern, f.rule.Action,
			f.seq, event.SkipStopped))
	}

	d.submitWG.Wait()

	done := make(chan struct{})
	go func() {
		d.pool.Wait()
		close(done)
	}()

	if grace <= 0 {
		d.cancelAll()
		<-done
	} else {
		select {
		case <-done:
		case <-time.After(grace):
			d.logger.Warn("shutdown grace elapsed, canceling running actions",
				"grace", grace.String())
			d.cancelAll()
			<-done
		}
	}
	d.cancelAll()

	snap := d.Snapshot()
	d.logger.Info("dispatcher stopped",
		"dispatched", snap.Dispatched, "completed", snap.Completed,
		"failed", snap.Failed, "suppressed", snap.Suppressed,
		"skipped", snap.Skipped)
}

func (d *Dispatcher) publish(e event.Event) {
	if d.bus != nil {
		d.bus.Publish(e)
	}
}
