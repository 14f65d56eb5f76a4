package rules

import (
	"time"

	"github.com/gobwas/glob"
)

// Rule pairs a literal pattern with a shell action. When the pattern appears
// in a watched output line, the action is dispatched.
type Rule struct {
	// Pattern is the literal substring to look for in output lines.
	// Matching is case-sensitive and no wildcard or regexp interpretation
	// is applied.
	Pattern string `json:"pattern"`

	// Action is the shell command to run when the pattern matches.
	// Empty means observe-only: the match is logged and counted but
	// nothing is executed.
	Action string `json:"action,omitempty"`

	// Sessions restricts the rule to watch sessions whose name matches one
	// of these glob patterns (e.g. "build-*"). Empty means the rule applies
	// to every session.
	Sessions []string `json:"sessions,omitempty"`

	// DebounceMs overrides dispatch.debounce_ms for this rule.
	// Nil means use the global window; 0 disables the loop guard for
	// this rule entirely.
	DebounceMs *int `json:"debounce_ms,omitempty"`

	// OnBusy overrides dispatch.on_busy for this rule ("drop" or "queue").
	// Empty means use the global policy.
	OnBusy string `json:"on_busy,omitempty"`
}

// ObserveOnly reports whether the rule logs matches without running anything.
func (r Rule) ObserveOnly() bool {
	return r.Action == ""
}

// Debounce returns the loop-guard window for this rule, falling back to the
// given global default when the rule has no override.
func (r Rule) Debounce(def time.Duration) time.Duration {
	if r.DebounceMs == nil {
		return def
	}
	return time.Duration(*r.DebounceMs) * time.Millisecond
}

// BusyPolicy returns the busy policy for this rule, falling back to the
// given global default when the rule has no override.
func (r Rule) BusyPolicy(def string) string {
	if r.OnBusy == "" {
		return def
	}
	return r.OnBusy
}

// AppliesTo reports whether the rule is active for the named session.
// Rules without session patterns apply everywhere.
func (r Rule) AppliesTo(session string) bool {
	if len(r.Sessions) == 0 {
		return true
	}

	for _, pattern := range r.Sessions {
		g, err := glob.Compile(pattern)
		if err != nil {
			continue
		}
		if g.Match(session) {
			return true
		}
	}

	return false
}

// Set is an immutable, ordered snapshot of rules. The loader builds a new
// Set on every reload and swaps it in whole, so a consumer holding a Set
// never observes a half-applied rule change.
type Set struct {
	rules    []Rule
	version  int
	loadedAt time.Time
}

// NewSet creates a rule set snapshot with the given monotonic version.
// The input slice is copied; order is preserved and duplicates are kept.
func NewSet(rules []Rule, version int) *Set {
	rs := make([]Rule, len(rules))
	copy(rs, rules)
	return &Set{
		rules:    rs,
		version:  version,
		loadedAt: time.Now(),
	}
}

// EmptySet returns a set with no rules and version 0, used before the first
// successful load.
func EmptySet() *Set {
	return &Set{}
}

// Rules returns a copy of the rules in declaration order.
func (s *Set) Rules() []Rule {
	result := make([]Rule, len(s.rules))
	copy(result, s.rules)
	return result
}

// Len returns the number of rules in the set.
func (s *Set) Len() int {
	return len(s.rules)
}

// Version returns the monotonic version assigned when the set was loaded.
func (s *Set) Version() int {
	return s.version
}

// LoadedAt returns when the set was created.
func (s *Set) LoadedAt() time.Time {
	return s.loadedAt
}

// ForSession returns a set containing only the rules that apply to the named
// session, preserving order, version, and load time.
func (s *Set) ForSession(session string) *Set {
	filtered := make([]Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.AppliesTo(session) {
			filtered = append(filtered, r)
		}
	}
	return &Set{
		rules:    filtered,
		version:  s.version,
		loadedAt: s.loadedAt,
	}
}
