package rules

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gobwas/glob"

	"github.com/catcher-sh/catcher/internal/config"
	"github.com/catcher-sh/catcher/internal/errors"
)

// SkippedRule records a rule entry that failed validation during parsing.
// Invalid entries are skipped individually so one bad rule does not take
// down the rest of the file.
type SkippedRule struct {
	Index   int    // Position in the rules array
	Pattern string // Pattern of the skipped entry (may be empty)
	Reason  string // Why the entry was skipped
}

// Parse decodes a rules file payload. The payload must be a JSON object with
// a "rules" array; "errors" is accepted as a legacy alias for the same array.
// Unknown top-level keys and unknown per-rule keys are ignored.
//
// Structurally broken payloads (not an object, no rule key, rule value not an
// array) return an error. Individually invalid rule entries are skipped and
// reported; the remaining rules still load.
func Parse(data []byte) ([]Rule, []SkippedRule, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, nil, errors.Wrap(err, "rules file is not a JSON object")
	}

	raw, ok := top["rules"]
	if !ok {
		// Older rules files call this key "errors"; accept it so they
		// keep working.
		raw, ok = top["errors"]
	}
	if !ok {
		return nil, nil, errors.ErrNoRuleKey
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, nil, errors.Wrap(err, `"rules" must be an array`)
	}

	valid := make([]Rule, 0, len(entries))
	var skipped []SkippedRule

	for i, entry := range entries {
		var rule Rule
		if err := json.Unmarshal(entry, &rule); err != nil {
			skipped = append(skipped, SkippedRule{Index: i, Reason: "not a rule object"})
			continue
		}
		if reason := validateRule(rule); reason != "" {
			skipped = append(skipped, SkippedRule{Index: i, Pattern: rule.Pattern, Reason: reason})
			continue
		}
		valid = append(valid, rule)
	}

	return valid, skipped, nil
}

// validateRule returns a skip reason for an invalid rule, or "" if the rule
// is usable.
func validateRule(r Rule) string {
	if r.Pattern == "" {
		return "empty pattern"
	}
	if r.DebounceMs != nil && *r.DebounceMs < 0 {
		return "negative debounce_ms"
	}
	if r.OnBusy != "" && !config.IsValidBusyPolicy(r.OnBusy) {
		return fmt.Sprintf("invalid on_busy %q", r.OnBusy)
	}
	for _, pattern := range r.Sessions {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Sprintf("invalid session glob %q", pattern)
		}
	}
	return ""
}

// ParseFile reads and parses the rules file at path.
func ParseFile(path string) ([]Rule, []SkippedRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.NewConfigError("reading rules file", errors.ErrRulesFileNotFound).WithPath(path)
		}
		return nil, nil, errors.NewConfigError("reading rules file", err).WithPath(path)
	}

	parsed, skipped, err := Parse(data)
	if err != nil {
		return nil, nil, errors.NewConfigError("parsing rules file", err).WithPath(path)
	}

	return parsed, skipped, nil
}
