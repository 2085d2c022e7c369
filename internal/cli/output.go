// # Naming Conventions
//
//   - Display* functions write formatted, colorized output to an [io.Writer].
//   - Format* functions return a string without performing I/O.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/agbru/optix/internal/collab"
	"github.com/agbru/optix/internal/format"
	"github.com/agbru/optix/internal/linkcfg"
	"github.com/agbru/optix/internal/profiler"
	"github.com/agbru/optix/internal/session"
	"github.com/agbru/optix/internal/ui"
)

// DisplaySnapshot prints one snapshot, as JSON when asJSON is set.
//
// Parameters:
//   - out: The output writer.
//   - snap: The snapshot to print.
//   - asJSON: Emit the host-facing dictionary as JSON instead of text.
//
// Returns:
//   - error: An error if JSON encoding fails.
func DisplaySnapshot(out io.Writer, snap profiler.Snapshot, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(out).Encode(snap.Map())
	}
	t := ui.GetCurrentTheme()
	fmt.Fprintf(out, "%s %s\n", ui.Paint(t.Dim, "CPU usage:   "), ui.Paint(t.Primary, fmt.Sprintf("%.2f %%", snap.CPUUsage)))
	fmt.Fprintf(out, "%s %s\n", ui.Paint(t.Dim, "Memory used: "), ui.Paint(t.Primary, format.FormatBytes(snap.MemoryUsed)))
	return nil
}

// DisplayOptimization prints an optimization result and, when suggestion is
// not empty, the suggested backend.
func DisplayOptimization(out io.Writer, res *collab.OptimizationResult, suggestion string) {
	t := ui.GetCurrentTheme()
	if suggestion != "" {
		fmt.Fprintf(out, "%s\n", ui.Paint(t.Primary, "Suggested backend: "+suggestion))
	}
	fmt.Fprintf(out, "%s\n", ui.Paint(t.Success, "Optimization complete"))
	fmt.Fprintf(out, "Device:         %s\n", res.Device)
	fmt.Fprintf(out, "Optimized:      %t\n", res.Optimized)
	fmt.Fprintf(out, "Execution time: %s\n", format.FormatExecutionDuration(res.ExecutionTime))
}

// DisplayTypes lists the constructible types one per line.
func DisplayTypes(out io.Writer, types []string) {
	for _, name := range types {
		fmt.Fprintln(out, name)
	}
}

// FormatLinkPlan renders a link plan as shell-ready lines.
//
// Parameters:
//   - plan: The resolved link plan.
//
// Returns:
//   - string: A comment line describing the plan followed by the
//     CGO_LDFLAGS assignment and the build command.
func FormatLinkPlan(plan linkcfg.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", plan)
	fmt.Fprintf(&b, "export %s\n", quoteEnv(plan.Env()))
	b.WriteString("go build -tags kernels ./...\n")
	return b.String()
}

// DisplayLinkPlan writes FormatLinkPlan(plan) to out.
func DisplayLinkPlan(out io.Writer, plan linkcfg.Plan) {
	fmt.Fprint(out, FormatLinkPlan(plan))
}

func quoteEnv(assign string) string {
	name, value, _ := strings.Cut(assign, "=")
	return fmt.Sprintf("%s='%s'", name, strings.ReplaceAll(value, "'", `'\''`))
}

// DisplaySummary prints a short session summary and where the report went.
func DisplaySummary(out io.Writer, sum *session.Summary, reportPath string) {
	t := ui.GetCurrentTheme()
	fmt.Fprintf(out, "%s %s\n", ui.Paint(t.Bold, "Run"), sum.RunID)
	fmt.Fprintf(out, "  Workload:    %s\n", sum.Workload)
	fmt.Fprintf(out, "  Duration:    %s\n", format.FormatExecutionDuration(sum.Elapsed))
	fmt.Fprintf(out, "  Samples:     %d\n", len(sum.Samples))
	fmt.Fprintf(out, "  Average CPU: %.2f %%\n", sum.AvgCPU)
	fmt.Fprintf(out, "  Peak memory: %s\n", format.FormatBytes(sum.PeakMemory))
	if sum.TimedOut {
		fmt.Fprintf(out, "  %s\n", ui.Paint(t.Warning, "Stopped at the duration limit"))
	}
	if sum.WorkloadErr != nil {
		fmt.Fprintf(out, "  %s\n", ui.Paint(t.Error, "Workload failed: "+sum.WorkloadErr.Error()))
	}
	if reportPath != "" {
		fmt.Fprintf(out, "%s\n", ui.Paint(t.Primary, "Report saved to "+reportPath))
	}
}
