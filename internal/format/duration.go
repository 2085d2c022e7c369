// Package format holds the human-readable formatting shared by the CLI, the
// dashboard and the Markdown report.
package format

import (
	"fmt"
	"time"
)

// FormatExecutionDuration formats a time.Duration for display.
// It shows microseconds for durations less than a millisecond, milliseconds for
// durations less than a second, and the default string representation,
// rounded to the millisecond, otherwise.
//
// Parameters:
//   - d: The duration to format.
//
// Returns:
//   - string: A formatted string representing the duration.
func FormatExecutionDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	} else if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(time.Millisecond).String()
}

// FormatETA describes progress toward a time limit as "elapsed, ~left left".
// Without a limit (limit <= 0) only the elapsed time is shown. Times are
// rounded to the second.
func FormatETA(elapsed, limit time.Duration) string {
	elapsed = elapsed.Round(time.Second)
	if limit <= 0 {
		return elapsed.String()
	}
	left := (limit - elapsed).Round(time.Second)
	if left < 0 {
		left = 0
	}
	return fmt.Sprintf("%s, ~%s left", elapsed, left)
}
