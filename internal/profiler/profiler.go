// Package profiler provides SystemProfiler, a thread-safe point-in-time view
// of system-wide CPU and memory usage.
//
// A SystemProfiler owns one telemetry.Source behind a mutex. Every snapshot
// refreshes the source and reads both counters inside the same critical
// section, so snapshots on one instance form a single serial history. A holder
// that terminates abnormally inside the critical section poisons the instance:
// from then on every snapshot fails with apperrors.ErrTelemetryUnavailable.
package profiler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/agbru/optix/internal/errors"
	"github.com/agbru/optix/internal/telemetry"
)

const tracerName = "github.com/agbru/optix/internal/profiler"

// snapshotKind is what a snapshot refreshes: CPU and memory jointly.
const snapshotKind = telemetry.RefreshCPU | telemetry.RefreshMemory

// State is the lifecycle state of a profiler instance.
type State int

const (
	StateReady State = iota
	StatePoisoned
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StatePoisoned:
		return "poisoned"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Snapshot is one consistent read of CPU usage and used memory.
type Snapshot struct {
	CPUUsage   float32   `json:"cpu_usage_percent"`
	MemoryUsed uint64    `json:"memory_used_bytes"`
	Seq        uint64    `json:"seq"`
	TakenAt    time.Time `json:"taken_at"`
}

// Map returns the snapshot keyed the way host-side callers expect it.
func (s Snapshot) Map() map[string]any {
	return map[string]any{
		"cpu_usage_percent": s.CPUUsage,
		"memory_used_bytes": s.MemoryUsed,
	}
}

// Observer is notified after every snapshot attempt, successful or not.
// It runs while the instance is locked, so calls arrive in Seq order; it
// must not call back into the profiler.
type Observer func(Snapshot, error)

// guarded is the state shared by every holder of one profiler.
type guarded struct {
	mu     sync.Mutex
	src    telemetry.Source
	poison *apperrors.TelemetryUnavailableError
	seq    uint64
	refs   int
	closed bool

	logger   zerolog.Logger
	tracer   trace.Tracer
	observer Observer
	now      func() time.Time
}

// SystemProfiler is one holder of a shared, lock-guarded telemetry source.
// Holders are created by New and Clone and released by Close.
type SystemProfiler struct {
	g        *guarded
	released atomic.Bool
}

// Option configures a SystemProfiler.
type Option func(*guarded)

// WithLogger sets the logger for poisoning and release events.
func WithLogger(l zerolog.Logger) Option {
	return func(g *guarded) { g.logger = l }
}

// WithTracer overrides the OpenTelemetry tracer. The default comes from the
// global provider.
func WithTracer(t trace.Tracer) Option {
	return func(g *guarded) { g.tracer = t }
}

// WithObserver registers a hook called after every snapshot.
func WithObserver(o Observer) Option {
	return func(g *guarded) { g.observer = o }
}

// WithClock overrides the time source used for Snapshot.TakenAt.
func WithClock(now func() time.Time) Option {
	return func(g *guarded) { g.now = now }
}

// New builds a profiler over the system source with the CPU capability
// enabled. It does not query the OS.
func New(opts ...Option) *SystemProfiler {
	return NewWithSource(telemetry.NewSystem(telemetry.RefreshCPU), opts...)
}

// NewWithSource builds a profiler over src. The profiler takes ownership of
// src and closes it when the last holder is released.
func NewWithSource(src telemetry.Source, opts ...Option) *SystemProfiler {
	g := &guarded{
		src:    src,
		refs:   1,
		logger: zerolog.Nop(),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return &SystemProfiler{g: g}
}

// Snapshot is SnapshotContext with a background context.
func (p *SystemProfiler) Snapshot() (Snapshot, error) {
	return p.SnapshotContext(context.Background())
}

// SnapshotContext blocks until it holds the source, refreshes CPU and memory
// counters, reads both and returns them as one Snapshot. ctx carries tracing
// only: an issued snapshot runs to completion even if ctx is canceled.
func (p *SystemProfiler) SnapshotContext(ctx context.Context) (Snapshot, error) {
	if p.released.Load() {
		return Snapshot{}, apperrors.ErrProfilerClosed
	}
	g := p.g
	ctx, span := g.tracer.Start(ctx, "profiler.snapshot")
	defer span.End()

	snap, err := g.snapshot(context.WithoutCancel(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.Float64("optix.cpu_usage_percent", float64(snap.CPUUsage)),
			attribute.Int64("optix.memory_used_bytes", int64(snap.MemoryUsed)),
			attribute.Int64("optix.seq", int64(snap.Seq)),
		)
	}
	return snap, err
}

func (g *guarded) snapshot(ctx context.Context) (snap Snapshot, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	defer func() {
		if g.observer != nil {
			g.observer(snap, err)
		}
	}()

	if g.poison != nil {
		return Snapshot{}, *g.poison
	}
	if g.closed {
		return Snapshot{}, apperrors.ErrProfilerClosed
	}

	completed := false
	defer func() {
		if completed {
			return
		}
		// Either a panic or runtime.Goexit left the critical section early.
		r := recover()
		reason := "holder exited inside the critical section"
		if r != nil {
			reason = fmt.Sprint(r)
		}
		g.poison = &apperrors.TelemetryUnavailableError{Reason: reason}
		g.logger.Error().Str("reason", reason).Uint64("seq", g.seq).Msg("telemetry lock poisoned")
		snap, err = Snapshot{}, *g.poison
	}()

	snap, err = g.refreshAndRead(ctx)
	completed = true
	return snap, err
}

// refreshAndRead must run with g.mu held.
func (g *guarded) refreshAndRead(ctx context.Context) (Snapshot, error) {
	if err := g.src.Refresh(ctx, snapshotKind); err != nil {
		return Snapshot{}, err
	}
	g.seq++
	return Snapshot{
		CPUUsage:   g.src.GlobalCPUUsage(),
		MemoryUsed: g.src.UsedMemory(),
		Seq:        g.seq,
		TakenAt:    g.now(),
	}, nil
}

// Clone returns a new holder sharing this profiler's source and lock.
func (p *SystemProfiler) Clone() (*SystemProfiler, error) {
	if p.released.Load() {
		return nil, apperrors.ErrProfilerClosed
	}
	g := p.g
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, apperrors.ErrProfilerClosed
	}
	g.refs++
	return &SystemProfiler{g: g}, nil
}

// Close releases this holder. The source is closed when the last holder is
// released. Closing a holder twice is a no-op.
func (p *SystemProfiler) Close() error {
	if p.released.Swap(true) {
		return nil
	}
	g := p.g
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refs--
	if g.refs > 0 {
		return nil
	}
	g.closed = true
	g.logger.Debug().Uint64("snapshots", g.seq).Msg("telemetry source released")
	return g.src.Close()
}

// Holders returns the number of live holders of the shared source.
func (p *SystemProfiler) Holders() int {
	p.g.mu.Lock()
	defer p.g.mu.Unlock()
	return p.g.refs
}

// State reports the lifecycle state as seen by this holder.
func (p *SystemProfiler) State() State {
	if p.released.Load() {
		return StateClosed
	}
	g := p.g
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.poison != nil:
		return StatePoisoned
	case g.closed:
		return StateClosed
	}
	return StateReady
}
