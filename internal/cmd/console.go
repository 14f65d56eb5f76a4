package cmd

import (
	"fmt"
	"io"

	"github.com/catcher-sh/catcher/internal/event"
)

// consoleNotices prints one-line notices for engine events. Watch keeps
// stdout untouched so pipelines pass through; notices go to stderr.
type consoleNotices struct {
	w io.Writer
}

func (c *consoleNotices) handle(e event.Event) {
	switch ev := e.(type) {
	case event.FiringStartedEvent:
		if ev.Action == "" {
			fmt.Fprintf(c.w, "catcher: pattern %q matched (line %d)\n", ev.Pattern, ev.Seq)
			return
		}
		fmt.Fprintf(c.w, "catcher: pattern %q matched (line %d), running action\n", ev.Pattern, ev.Seq)
	case event.FiringFinishedEvent:
		if ev.Status == "failed" {
			fmt.Fprintf(c.w, "catcher: action for %q failed: %s\n", ev.Pattern, ev.Error)
		}
	case event.FiringSkippedEvent:
		if ev.Reason == event.SkipBusy {
			fmt.Fprintf(c.w, "catcher: pattern %q matched while its action was running, dropped\n", ev.Pattern)
		}
	case event.ConfigReloadedEvent:
		fmt.Fprintf(c.w, "catcher: rules reloaded (%d rules, version %d)\n", ev.Rules, ev.Version)
	case event.ConfigErrorEvent:
		fmt.Fprintf(c.w, "catcher: rules reload failed, keeping previous rules: %s\n", ev.Error)
	case event.StreamGapEvent:
		fmt.Fprintf(c.w, "catcher: %d line(s) missed, watcher fell behind\n", ev.Missed)
	}
}
