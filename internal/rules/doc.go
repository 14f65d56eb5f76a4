// Package rules defines catcher's pattern/action rules and keeps them loaded.
//
// # Rules File
//
// Rules live in a JSON file (default ~/.catcher/rules.json) shaped like:
//
//	{
//	  "rules": [
//	    {"pattern": "Connection refused", "action": "restart-proxy.sh"},
//	    {"pattern": "panic:", "action": "notify 'build panicked'", "sessions": ["build-*"]},
//	    {"pattern": "WARN", "action": ""}
//	  ]
//	}
//
// "errors" is accepted as a legacy alias for the "rules" key. A rule's
// pattern is a literal, case-sensitive substring; an empty action makes the
// rule observe-only. Per-rule "debounce_ms" and "on_busy" override the
// global dispatch settings, and "sessions" holds glob patterns restricting
// which watch sessions the rule applies to.
//
// # Snapshots
//
// A Set is an immutable snapshot of the parsed rules. Consumers hold one Set
// at a time and swap to a new one between lines, so a rule change is never
// half-applied to a line.
//
// # Loading
//
// Loader reads the file, skips individually invalid entries (reporting each
// one), and republishes a new Set on file change or SIGHUP. When a reload
// fails, the previous Set stays current and the failure is logged and
// published as a config.error event.
package rules
