// Package session samples a profiler while a workload runs and summarizes
// the result.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/agbru/optix/internal/errors"
	"github.com/agbru/optix/internal/profiler"
)

// Default sampling parameters.
const (
	DefaultInterval = time.Second
	DefaultDuration = 10 * time.Second
)

// Snapshotter is the part of the profiler a session needs.
type Snapshotter interface {
	SnapshotContext(ctx context.Context) (profiler.Snapshot, error)
}

// Workload is the work being profiled. Run must return when ctx is done.
type Workload interface {
	Name() string
	Run(ctx context.Context) error
}

// WorkloadFunc adapts a function to Workload.
type WorkloadFunc func(ctx context.Context) error

// Name implements Workload.
func (f WorkloadFunc) Name() string { return "func" }

// Run implements Workload.
func (f WorkloadFunc) Run(ctx context.Context) error { return f(ctx) }

// CommandWorkload runs an external program.
type CommandWorkload struct {
	Path   string
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

// Name returns the program base name and its arguments.
func (c CommandWorkload) Name() string {
	return strings.TrimSpace(filepath.Base(c.Path) + " " + strings.Join(c.Args, " "))
}

// Run starts the program and waits for it. The process is killed when ctx is done.
func (c CommandWorkload) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	return cmd.Run()
}

// Options configures a session.
type Options struct {
	// Interval between samples. Zero means DefaultInterval.
	Interval time.Duration
	// Duration caps the session; the workload is stopped when it elapses.
	// Zero means DefaultDuration, negative means no cap.
	Duration time.Duration
	Logger   zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Duration == 0 {
		o.Duration = DefaultDuration
	}
	return o
}

// Summary is the outcome of one session.
type Summary struct {
	RunID      string              `json:"run_id"`
	Workload   string              `json:"workload"`
	Started    time.Time           `json:"started"`
	Elapsed    time.Duration       `json:"elapsed_ns"`
	AvgCPU     float64             `json:"avg_cpu_percent"`
	PeakMemory uint64              `json:"peak_memory_bytes"`
	Samples    []profiler.Snapshot `json:"samples"`
	// TimedOut reports that Duration elapsed before the workload finished.
	TimedOut bool `json:"timed_out"`
	// WorkloadErr is the workload's own failure. It does not fail the session.
	WorkloadErr error `json:"-"`
}

// Run profiles w with p until w returns or opts.Duration elapses.
//
// Sampling starts with a priming snapshot and ends with a final one taken
// when w returns, so a finished workload always yields at least one sample.
// A poisoned profiler aborts the session and stops the workload; transient
// telemetry errors are logged and the sample is skipped. The workload's
// error is recorded in the summary rather than returned, so a crashing
// workload still yields a report of what was observed.
func Run(ctx context.Context, p Snapshotter, w Workload, opts Options) (*Summary, error) {
	opts = opts.withDefaults()
	log := opts.Logger

	sum := &Summary{
		RunID:    uuid.NewString(),
		Workload: w.Name(),
		Started:  time.Now(),
	}
	log = log.With().Str("run_id", sum.RunID).Logger()

	runCtx := ctx
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(runCtx)
	done := make(chan struct{})

	// The first successful snapshot only primes the CPU counters: its usage
	// covers no interval, so it is not recorded.
	var (
		mu      sync.Mutex
		primed  bool
		samples []profiler.Snapshot
	)
	sample := func() error {
		snap, err := p.SnapshotContext(gctx)
		var telemErr apperrors.TelemetryError
		switch {
		case err == nil:
			mu.Lock()
			if primed {
				samples = append(samples, snap)
			}
			primed = true
			mu.Unlock()
			return nil
		case errors.As(err, &telemErr):
			log.Error().Err(err).Msg("sample skipped")
			return nil
		default:
			return err
		}
	}

	g.Go(func() error {
		defer close(done)
		if err := w.Run(gctx); err != nil {
			sum.WorkloadErr = err
		}
		return nil
	})

	g.Go(func() error {
		if err := sample(); err != nil {
			return err
		}
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return sample()
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := sample(); err != nil {
					return err
				}
			}
		}
	})

	err := g.Wait()
	sum.Elapsed = time.Since(sum.Started)
	sum.Samples = samples
	sum.summarize()

	if err != nil {
		log.Error().Err(err).Int("samples", len(samples)).Msg("session aborted")
		return sum, err
	}
	if ctx.Err() != nil {
		return sum, ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		sum.TimedOut = true
		if errors.Is(sum.WorkloadErr, context.DeadlineExceeded) || isKilled(sum.WorkloadErr) {
			sum.WorkloadErr = nil
		}
	}

	ev := log.Info()
	if sum.WorkloadErr != nil {
		ev = log.Warn().Err(sum.WorkloadErr)
	}
	ev.Int("samples", len(sum.Samples)).
		Float64("avg_cpu", sum.AvgCPU).
		Uint64("peak_memory", sum.PeakMemory).
		Bool("timed_out", sum.TimedOut).
		Dur("elapsed", sum.Elapsed).
		Msg("session complete")
	return sum, nil
}

func (s *Summary) summarize() {
	if len(s.Samples) == 0 {
		return
	}
	var total float64
	for _, snap := range s.Samples {
		total += float64(snap.CPUUsage)
		s.PeakMemory = max(s.PeakMemory, snap.MemoryUsed)
	}
	s.AvgCPU = total / float64(len(s.Samples))
}

// isKilled reports an exec error caused by the context killing the process.
func isKilled(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && !exitErr.Exited()
}

func (s *Summary) String() string {
	return fmt.Sprintf("%s: %d samples, avg cpu %.1f%%, peak memory %d bytes", s.RunID, len(s.Samples), s.AvgCPU, s.PeakMemory)
}
