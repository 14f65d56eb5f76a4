package dispatch

import (
	"sync"
	"time"

	"github.com/catcher-sh/catcher/internal/rules"
)

// guardMaxEntries caps the suppression table; when exceeded, expired
// entries are pruned on the next insert.
const guardMaxEntries = 4096

// guardKey identifies one suppressible firing: a rule (by value, so the
// key survives rule set reloads) and the exact text it matched.
type guardKey struct {
	rule string
	text string
}

// ruleKey identifies a rule by its pattern and action text. Exact
// duplicate rules share a key, which is harmless: the guard suppresses
// the duplicate's firing inside the window anyway.
func ruleKey(r rules.Rule) string {
	return r.Pattern + "\x00" + r.Action
}

// Guard suppresses repeated firings of the same rule on the same matched
// text within a debounce window. This breaks feedback loops where an
// action's own output re-matches the rule that launched it.
//
// Time is passed in explicitly so suppression windows can be tested
// without sleeping.
type Guard struct {
	mu       sync.Mutex
	debounce time.Duration
	until    map[guardKey]time.Time
}

// NewGuard creates a guard with the given default debounce window.
// Rules can override the window per rule; a window of zero or less
// disables suppression for that rule.
func NewGuard(debounce time.Duration) *Guard {
	return &Guard{
		debounce: debounce,
		until:    make(map[guardKey]time.Time),
	}
}

// Allow reports whether a firing for the rule and matched text may
// proceed at the given time. When suppressed, the second return value is
// the time remaining in the window.
//
// An allowed firing opens a new window immediately, so of N identical
// matches inside one window only the first fires.
func (g *Guard) Allow(r rules.Rule, text string, now time.Time) (bool, time.Duration) {
	window := r.Debounce(g.debounce)
	if window <= 0 {
		return true, 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key := guardKey{rule: ruleKey(r), text: text}
	if deadline, ok := g.until[key]; ok && now.Before(deadline) {
		return false, deadline.Sub(now)
	}

	g.until[key] = now.Add(window)
	if len(g.until) > guardMaxEntries {
		g.prune(now)
	}
	return true, 0
}

// prune drops expired entries. Caller must hold the lock.
func (g *Guard) prune(now time.Time) {
	for key, deadline := range g.until {
		if !now.Before(deadline) {
			delete(g.until, key)
		}
	}
}
