package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/agbru/optix/internal/buildtool"
	"github.com/agbru/optix/internal/cli"
	"github.com/agbru/optix/internal/collab"
	apperrors "github.com/agbru/optix/internal/errors"
	"github.com/agbru/optix/internal/format"
	"github.com/agbru/optix/internal/linkcfg"
	"github.com/agbru/optix/internal/logging"
	"github.com/agbru/optix/internal/profiler"
	"github.com/agbru/optix/internal/registry"
	"github.com/agbru/optix/internal/server"
	"github.com/agbru/optix/internal/session"
	"github.com/agbru/optix/internal/tui"
)

// runSnapshot prints one reading. CPU usage is measured over --interval:
// the first snapshot only primes the counters.
func (a *Application) runSnapshot(ctx context.Context, out io.Writer) error {
	p := a.NewProfiler(profiler.WithLogger(a.logger()))
	defer p.Close()

	if _, err := p.SnapshotContext(ctx); err != nil {
		return err
	}
	timer := time.NewTimer(a.Config.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	snap, err := p.SnapshotContext(ctx)
	if err != nil {
		return err
	}
	return cli.DisplaySnapshot(out, snap, a.Config.JSON)
}

// runProfile runs the program named by the positional arguments under a
// sampling session and writes the Markdown report. The report is written
// even when the program fails; the exit code then reports the failure.
func (a *Application) runProfile(ctx context.Context, out io.Writer) int {
	log := a.logger()
	p := a.NewProfiler(profiler.WithLogger(log))
	defer p.Close()

	w := session.CommandWorkload{
		Path:   a.Config.Args[0],
		Args:   a.Config.Args[1:],
		Stdout: out,
		Stderr: a.ErrWriter,
	}

	progressCtx, stopProgress := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if !a.Config.JSON {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cli.DisplayProgress(progressCtx, a.ErrWriter, "Profiling "+w.Name(), a.Config.ProfileDuration())
		}()
	}
	sum, err := session.Run(ctx, p, w, session.Options{
		Interval: a.Config.Interval,
		Duration: a.Config.ProfileDuration(),
		Logger:   log,
	})
	stopProgress()
	wg.Wait()
	if err != nil {
		return a.exitCode(err)
	}

	path, err := session.WriteReport(sum, a.Config.Report)
	if err != nil {
		return a.exitCode(err)
	}
	if a.Config.JSON {
		if err := json.NewEncoder(out).Encode(sum); err != nil {
			return a.exitCode(err)
		}
	} else {
		cli.DisplaySummary(out, sum, path)
	}
	if sum.WorkloadErr != nil {
		return apperrors.ExitErrorGeneric
	}
	return apperrors.ExitSuccess
}

func (a *Application) runWatch(ctx context.Context, out io.Writer) error {
	p := a.NewProfiler(profiler.WithLogger(a.logger()))
	defer p.Close()
	return tui.Run(ctx, p, tui.Options{
		Interval: a.Config.Interval,
		Version:  Version,
		Output:   out,
	})
}

// runServe exports snapshots over HTTP until ctx is done. The profiler feeds
// the Prometheus gauges through its observer.
func (a *Application) runServe(ctx context.Context) error {
	log := a.logger()
	metrics := server.NewMetrics()
	profOpts := []profiler.Option{profiler.WithLogger(log), profiler.WithObserver(metrics.ObserveSnapshot)}

	p := a.NewProfiler(profOpts...)
	defer p.Close()
	mod, err := registry.Init(registry.Deps{Logger: log, Profiler: profOpts})
	if err != nil {
		return err
	}
	defer mod.Close()

	cfg := server.DefaultConfig()
	cfg.Addr = a.Config.Addr
	srv := server.New(p, mod, cfg,
		server.WithLogger(logging.NewZerologAdapter(log)),
		server.WithMetrics(metrics),
	)
	return srv.Run(ctx)
}

type linkOutput struct {
	GOOS      string            `json:"goos"`
	Libraries []linkcfg.Library `json:"libraries"`
	LDFLAGS   []string          `json:"ldflags"`
	Built     bool              `json:"built"`
	Verified  bool              `json:"verified"`
}

// runLink prints the link plan for --goos. --build compiles the kernels
// into --out first (and verifies the result); --check only verifies.
func (a *Application) runLink(ctx context.Context, out io.Writer) error {
	plan := linkcfg.For(a.Config.GOOS, a.Config.OutDir)
	verified := false
	switch {
	case a.Config.Build:
		res, err := buildtool.New(a.Config.SourceDir, a.Config.OutDir, a.Config.GOOS,
			buildtool.WithLogger(a.logger())).Build(ctx)
		if err != nil {
			return err
		}
		plan, verified = res.Plan, true
		fmt.Fprintf(a.ErrWriter, "Built %s in %s with %s\n", res.BuildDir, format.FormatExecutionDuration(res.Elapsed), res.Tool)
	case a.Config.Check:
		if err := plan.Verify(linkcfg.FSLocator{}); err != nil {
			return err
		}
		verified = true
	}

	if a.Config.JSON {
		return json.NewEncoder(out).Encode(linkOutput{
			GOOS:      plan.GOOS,
			Libraries: plan.Libraries,
			LDFLAGS:   plan.LDFLAGS(),
			Built:     a.Config.Build,
			Verified:  verified,
		})
	}
	cli.DisplayLinkPlan(out, plan)
	return nil
}

type optimizeOutput struct {
	SuggestedBackend string `json:"suggested_backend,omitempty"`
	*collab.OptimizationResult
}

// runOptimize fills a random --rows x --cols matrix and optimizes it. Unless
// --backend forces one, the optimizer suggests a backend first.
func (a *Application) runOptimize(ctx context.Context, out io.Writer) error {
	log := a.logger()
	rows, cols := a.Config.Rows, a.Config.Cols
	if err := collab.CheckShape(rows, cols); err != nil {
		return err
	}

	opt := collab.NewKernelOptimizer("")
	backend, suggestion := a.Config.Backend, ""
	if backend == "" {
		suggestion = opt.SuggestBackend(collab.EstimateBytes(rows, cols))
		backend = suggestion
	}
	if backend == collab.BackendGPU {
		log.Warn().Msg("no GPU backend is available, running on the CPU")
	}

	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = rand.Float32()
	}

	start := time.Now()
	res, err := opt.Optimize(ctx, data, rows, cols)
	if err != nil {
		return err
	}
	log.Debug().Dur("total", time.Since(start)).Str("device", res.Device).Msg("optimization finished")

	if a.Config.JSON {
		return json.NewEncoder(out).Encode(optimizeOutput{SuggestedBackend: suggestion, OptimizationResult: res})
	}
	cli.DisplayOptimization(out, res, suggestion)
	return nil
}

func (a *Application) runTypes(out io.Writer) error {
	mod, err := registry.Init(registry.Deps{Logger: a.logger()})
	if err != nil {
		return err
	}
	defer mod.Close()

	if a.Config.JSON {
		return json.NewEncoder(out).Encode(mod.Types())
	}
	cli.DisplayTypes(out, mod.Types())
	return nil
}
