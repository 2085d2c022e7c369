package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/agbru/optix/internal/collab"
	"github.com/agbru/optix/internal/linkcfg"
	"github.com/agbru/optix/internal/profiler"
	"github.com/agbru/optix/internal/session"
	"github.com/agbru/optix/internal/ui"
)

func TestDisplaySnapshot(t *testing.T) {
	ui.InitTheme(true)
	snap := profiler.Snapshot{CPUUsage: 12.5, MemoryUsed: 3 << 30, Seq: 4}

	var buf bytes.Buffer
	if err := DisplaySnapshot(&buf, snap, false); err != nil {
		t.Fatalf("DisplaySnapshot() error = %v", err)
	}
	for _, want := range []string{"CPU usage:", "12.50 %", "Memory used:", "3.0 GiB"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("text output missing %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := DisplaySnapshot(&buf, snap, true); err != nil {
		t.Fatalf("DisplaySnapshot(json) error = %v", err)
	}
	var got map[string]float64
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if len(got) != 2 || got["cpu_usage_percent"] != 12.5 || got["memory_used_bytes"] != float64(3<<30) {
		t.Errorf("JSON output = %v", got)
	}
}

func TestDisplayOptimization(t *testing.T) {
	ui.InitTheme(true)
	res := &collab.OptimizationResult{Device: "cpu/go", Optimized: true, ExecutionTime: 1500 * time.Microsecond}

	tests := []struct {
		name       string
		suggestion string
		contains   []string
		excludes   []string
	}{
		{"with suggestion", "cpu", []string{"Suggested backend: cpu", "cpu/go", "true", "1ms"}, nil},
		{"forced backend", "", []string{"Device:", "cpu/go"}, []string{"Suggested backend"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			DisplayOptimization(&buf, res, tt.suggestion)
			for _, want := range tt.contains {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(buf.String(), bad) {
					t.Errorf("output should not contain %q:\n%s", bad, buf.String())
				}
			}
		})
	}
}

func TestDisplayTypes(t *testing.T) {
	var buf bytes.Buffer
	DisplayTypes(&buf, []string{"A", "B"})
	if buf.String() != "A\nB\n" {
		t.Errorf("DisplayTypes() = %q", buf.String())
	}
}

func TestFormatLinkPlan(t *testing.T) {
	out := FormatLinkPlan(linkcfg.For("linux", "/tmp/out"))
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "# linux: kernels_cpu") {
		t.Errorf("plan line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "export CGO_LDFLAGS='") || !strings.Contains(lines[1], "-lkernels_cpu") {
		t.Errorf("export line = %q", lines[1])
	}
	if !strings.Contains(lines[2], "-tags kernels") {
		t.Errorf("build line = %q", lines[2])
	}
}

func TestQuoteEnv(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"A=b c", "A='b c'"},
		{"A=it's", `A='it'\''s'`},
		{"A=", "A=''"},
	}
	for _, tt := range tests {
		if got := quoteEnv(tt.in); got != tt.want {
			t.Errorf("quoteEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplaySummary(t *testing.T) {
	ui.InitTheme(true)
	sum := &session.Summary{
		RunID:       "run-1",
		Workload:    "job.sh",
		Elapsed:     2 * time.Second,
		AvgCPU:      40,
		PeakMemory:  2048,
		Samples:     make([]profiler.Snapshot, 3),
		TimedOut:    true,
		WorkloadErr: errors.New("exit status 1"),
	}
	var buf bytes.Buffer
	DisplaySummary(&buf, sum, "report.md")
	for _, want := range []string{"run-1", "job.sh", "Samples:     3", "40.00 %", "2.0 KiB", "duration limit", "exit status 1", "Report saved to report.md"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("summary missing %q:\n%s", want, buf.String())
		}
	}
}
