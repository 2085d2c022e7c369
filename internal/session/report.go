package session

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/agbru/optix/internal/format"
)

// DefaultReportPath is where WriteReport saves when no path is given.
const DefaultReportPath = "optix_report.md"

// maxReportRows bounds the sample table; longer sessions are thinned evenly.
const maxReportRows = 20

// RenderMarkdown formats s as a Markdown report.
func RenderMarkdown(s *Summary) string {
	var b strings.Builder

	b.WriteString("# optix performance report\n\n")
	fmt.Fprintf(&b, "- **Run ID:** `%s`\n", s.RunID)
	fmt.Fprintf(&b, "- **Workload:** `%s`\n", s.Workload)
	fmt.Fprintf(&b, "- **Started:** %s\n", s.Started.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Duration:** %s\n", s.Elapsed.Round(time.Millisecond))
	if s.TimedOut {
		b.WriteString("- **Stopped:** duration limit reached\n")
	}
	if s.WorkloadErr != nil {
		fmt.Fprintf(&b, "- **Workload error:** %v\n", s.WorkloadErr)
	}

	b.WriteString("\n## Summary\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Samples | %d |\n", len(s.Samples))
	fmt.Fprintf(&b, "| Average CPU | %.2f %% |\n", s.AvgCPU)
	fmt.Fprintf(&b, "| Peak memory | %s |\n", format.FormatBytes(s.PeakMemory))

	if len(s.Samples) == 0 {
		b.WriteString("\nNo samples were collected.\n")
		return b.String()
	}

	b.WriteString("\n## Samples\n\n")
	b.WriteString("| # | Offset | CPU % | Memory |\n|---|---|---|---|\n")
	step := 1
	if len(s.Samples) > maxReportRows {
		step = (len(s.Samples) + maxReportRows - 1) / maxReportRows
	}
	for i := 0; i < len(s.Samples); i += step {
		snap := s.Samples[i]
		fmt.Fprintf(&b, "| %d | %s | %.2f | %s |\n",
			snap.Seq, snap.TakenAt.Sub(s.Started).Round(time.Millisecond), snap.CPUUsage, format.FormatBytes(snap.MemoryUsed))
	}
	return b.String()
}

// WriteReport renders s and writes it to path (DefaultReportPath when empty).
// It returns the path written.
func WriteReport(s *Summary, path string) (string, error) {
	if path == "" {
		path = DefaultReportPath
	}
	if err := os.WriteFile(path, []byte(RenderMarkdown(s)), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
