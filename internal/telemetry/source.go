//go:generate mockgen -source=source.go -destination=mocks/mock_source.go -package=mocks

// Package telemetry wraps OS-level CPU and memory counters behind a
// refreshable handle.
package telemetry

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	apperrors "github.com/agbru/optix/internal/errors"
)

// RefreshKind selects which subsystems a Refresh re-queries.
type RefreshKind uint8

const (
	// RefreshCPU re-reads aggregate CPU times. It must be enabled at
	// construction because usage is a delta against the previous reading.
	RefreshCPU RefreshKind = 1 << iota
	// RefreshMemory re-reads system memory. It needs no prior state.
	RefreshMemory
)

// Has reports whether every bit of other is set in k.
func (k RefreshKind) Has(other RefreshKind) bool { return k&other == other }

func (k RefreshKind) String() string {
	switch k {
	case 0:
		return "none"
	case RefreshCPU:
		return "cpu"
	case RefreshMemory:
		return "memory"
	case RefreshCPU | RefreshMemory:
		return "cpu+memory"
	}
	return "unknown"
}

var (
	// ErrCapability is returned when a refresh asks for a subsystem the source
	// was not constructed with.
	ErrCapability = errors.New("telemetry: refresh kind not enabled")
	// ErrClosed is returned by Refresh after Close.
	ErrClosed = errors.New("telemetry: source closed")
)

// Source is a mutable handle over OS counters. Readers are only meaningful
// after a successful Refresh, and every Refresh re-queries the OS.
// Implementations are not safe for concurrent use; callers serialize access.
type Source interface {
	Refresh(ctx context.Context, kind RefreshKind) error
	GlobalCPUUsage() float32
	UsedMemory() uint64
	Close() error
}

// System is the gopsutil-backed Source.
type System struct {
	enabled RefreshKind

	cpuTimes      func(ctx context.Context) ([]cpu.TimesStat, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)

	prev     cpu.TimesStat
	havePrev bool
	cpuUsage float32
	memUsed  uint64
	closed   atomic.Bool
}

// Option configures a System.
type Option func(*System)

// WithCPUTimes replaces the CPU times query.
func WithCPUTimes(fn func(ctx context.Context) ([]cpu.TimesStat, error)) Option {
	return func(s *System) { s.cpuTimes = fn }
}

// WithVirtualMemory replaces the memory query.
func WithVirtualMemory(fn func(ctx context.Context) (*mem.VirtualMemoryStat, error)) Option {
	return func(s *System) { s.virtualMemory = fn }
}

// NewSystem registers the enabled capabilities. It does not touch the OS.
func NewSystem(enabled RefreshKind, opts ...Option) *System {
	s := &System{
		enabled: enabled,
		cpuTimes: func(ctx context.Context) ([]cpu.TimesStat, error) {
			return cpu.TimesWithContext(ctx, false)
		},
		virtualMemory: mem.VirtualMemoryWithContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled returns the capabilities registered at construction.
func (s *System) Enabled() RefreshKind { return s.enabled }

// Refresh re-queries the subsystems in kind. CPU requires the RefreshCPU
// capability; memory is always available.
func (s *System) Refresh(ctx context.Context, kind RefreshKind) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if kind.Has(RefreshCPU) {
		if !s.enabled.Has(RefreshCPU) {
			return ErrCapability
		}
		if err := s.refreshCPU(ctx); err != nil {
			return err
		}
	}
	if kind.Has(RefreshMemory) {
		vm, err := s.virtualMemory(ctx)
		if err != nil {
			return apperrors.TelemetryError{Op: "memory", Cause: err}
		}
		if vm != nil {
			s.memUsed = vm.Used
		}
	}
	return nil
}

func (s *System) refreshCPU(ctx context.Context) error {
	times, err := s.cpuTimes(ctx)
	if err != nil {
		return apperrors.TelemetryError{Op: "cpu times", Cause: err}
	}
	if len(times) == 0 {
		return apperrors.TelemetryError{Op: "cpu times", Cause: errors.New("no aggregate reading")}
	}
	cur := times[0]
	if s.havePrev {
		s.cpuUsage = usageBetween(s.prev, cur, s.cpuUsage)
	}
	s.prev = cur
	s.havePrev = true
	return nil
}

// GlobalCPUUsage returns the aggregate busy percentage between the last two
// CPU refreshes, 0 before the second one.
func (s *System) GlobalCPUUsage() float32 { return s.cpuUsage }

// UsedMemory returns system-wide used memory in bytes as of the last memory refresh.
func (s *System) UsedMemory() uint64 { return s.memUsed }

// Close releases the handle. Further refreshes fail with ErrClosed.
func (s *System) Close() error {
	s.closed.Store(true)
	return nil
}

func totalTime(t cpu.TimesStat) float64 {
	return t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
}

func busyTime(t cpu.TimesStat) float64 {
	return totalTime(t) - t.Idle - t.Iowait
}

// usageBetween returns the busy share of the interval in [0,100]. An empty or
// backwards interval (counter reset) keeps last.
func usageBetween(prev, cur cpu.TimesStat, last float32) float32 {
	total := totalTime(cur) - totalTime(prev)
	if total <= 0 {
		return last
	}
	busy := busyTime(cur) - busyTime(prev)
	pct := busy / total * 100
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	return float32(pct)
}
