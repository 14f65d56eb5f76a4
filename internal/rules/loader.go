package rules

import (
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/catcher-sh/catcher/internal/errors"
	"github.com/catcher-sh/catcher/internal/event"
	"github.com/catcher-sh/catcher/internal/logging"
)

// Loader owns the current rule set and keeps it fresh. It reloads the rules
// file when it changes on disk (coalescing bursts of change notifications)
// and on SIGHUP, always swapping in a complete new Set.
//
// A failed reload never discards rules: the previous Set stays current and
// the failure is recorded, logged, and published on the bus.
type Loader struct {
	path     string
	debounce time.Duration
	logger   *logging.Logger
	bus      *event.Bus

	mu       sync.RWMutex
	current  *Set
	lastErr  error
	skipped  []SkippedRule
	version  int
	onChange []func(*Set)

	watcher  *fsnotify.Watcher
	hupCh    chan os.Signal
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewLoader creates a loader for the rules file at path. The debounce window
// coalesces file-change bursts into a single reload; 0 reloads immediately.
// The logger may be nil; the bus may be nil to disable event publishing.
func NewLoader(path string, debounce time.Duration, logger *logging.Logger, bus *event.Bus) *Loader {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Loader{
		path:     filepath.Clean(path),
		debounce: debounce,
		logger:   logger.WithComponent("rules"),
		bus:      bus,
		current:  EmptySet(),
		stopCh:   make(chan struct{}),
	}
}

// Path returns the rules file path the loader reads from.
func (l *Loader) Path() string {
	return l.path
}

// Current returns the active rule set. It is never nil: before the first
// successful load it returns the empty set.
func (l *Loader) Current() *Set {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// LastError returns the most recent load failure, or nil if the last load
// succeeded.
func (l *Loader) LastError() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastErr
}

// Skipped returns the invalid entries from the most recent successful load.
func (l *Loader) Skipped() []SkippedRule {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make([]SkippedRule, len(l.skipped))
	copy(result, l.skipped)
	return result
}

// OnChange registers a callback invoked with the new Set after every
// successful reload. Callbacks run outside the loader's lock.
func (l *Loader) OnChange(fn func(*Set)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Load performs a synchronous load of the rules file. On failure the previous
// set (or the empty set) stays current and the error is returned; callers can
// treat a missing file as a soft start condition via
// errors.Is(err, errors.ErrRulesFileNotFound).
func (l *Loader) Load() error {
	return l.reload()
}

// Start begins watching the rules file for changes and listening for SIGHUP.
// It watches the containing directory rather than the file itself so that
// editors doing atomic saves (write temp file, rename over) are still seen.
func (l *Loader) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating rules file watcher")
	}

	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return errors.NewConfigError("watching rules directory", err).WithPath(dir)
	}
	l.watcher = watcher

	l.hupCh = make(chan os.Signal, 1)
	signal.Notify(l.hupCh, syscall.SIGHUP)

	go l.watchLoop()
	return nil
}

// Stop stops watching for changes. The current rule set remains available.
func (l *Loader) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		if l.hupCh != nil {
			signal.Stop(l.hupCh)
		}
		if l.watcher != nil {
			_ = l.watcher.Close()
		}
	})
}

// watchLoop processes file change notifications and reload signals.
func (l *Loader) watchLoop() {
	// Editors often write a file several times for a single save. Collect
	// events for the debounce window and reload once per burst.
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer

	pending := false

	for {
		select {
		case <-l.stopCh:
			return

		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if !l.isRulesFileEvent(ev) {
				continue
			}
			pending = true
			debounceTimer.Reset(l.debounce)

		case <-debounceTimer.C:
			if !pending {
				continue
			}
			pending = false
			_ = l.reload()

		case <-l.hupCh:
			l.logger.Info("received SIGHUP, reloading rules", "path", l.path)
			_ = l.reload()

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn("rules file watcher error", "error", err)
		}
	}
}

// isRulesFileEvent reports whether a filesystem event concerns the rules file.
func (l *Loader) isRulesFileEvent(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Clean(ev.Name) == l.path
}

// reload parses the rules file and swaps in a new Set on success.
func (l *Loader) reload() error {
	parsed, skipped, err := ParseFile(l.path)
	if err != nil {
		l.mu.Lock()
		l.lastErr = err
		l.mu.Unlock()

		l.logger.Warn("rules load failed, keeping previous rules",
			"path", l.path,
			"error", err)
		if l.bus != nil {
			l.bus.Publish(event.NewConfigErrorEvent(l.path, err.Error()))
		}
		return err
	}

	l.mu.Lock()
	l.version++
	set := NewSet(parsed, l.version)
	l.current = set
	l.lastErr = nil
	l.skipped = skipped
	callbacks := slices.Clone(l.onChange)
	l.mu.Unlock()

	for _, s := range skipped {
		l.logger.Warn("skipping invalid rule",
			"index", s.Index,
			"pattern", s.Pattern,
			"reason", s.Reason)
	}
	l.logger.Info("rules loaded",
		"path", l.path,
		"version", set.Version(),
		"rules", set.Len(),
		"skipped", len(skipped))

	if l.bus != nil {
		l.bus.Publish(event.NewConfigReloadedEvent(l.path, set.Version(), set.Len(), len(skipped)))
	}

	for _, fn := range callbacks {
		fn(set)
	}
	return nil
}
