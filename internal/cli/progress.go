package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/agbru/optix/internal/format"
)

// DisplayProgress shows a spinner with the elapsed time until ctx is done.
// It returns after the spinner has stopped.
//
// Parameters:
//   - ctx: Stops the display when done.
//   - out: The writer the spinner draws to.
//   - label: Text shown before the elapsed time.
//   - limit: The session time limit, used for the remaining-time estimate.
//     Zero or negative shows the elapsed time only.
func DisplayProgress(ctx context.Context, out io.Writer, label string, limit time.Duration) {
	s := newSpinner(out)
	start := time.Now()
	s.UpdateSuffix(fmt.Sprintf(" %s", label))
	s.Start()
	defer s.Stop()

	ticker := time.NewTicker(SpinnerRefreshRate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.UpdateSuffix(fmt.Sprintf(" %s (%s)", label, format.FormatETA(time.Since(start), limit)))
		}
	}
}
