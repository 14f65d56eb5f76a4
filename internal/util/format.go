package util

import (
	"fmt"
	"time"
)

// FormatDuration formats a duration for display (e.g., "45s", "5m 30s",
// "2h 5m"). Used for session uptimes and firing durations in CLI output.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
