// Package collab holds the collaborator types exposed next to the profiler:
// Optimizer, OptimizationResult and DataLoader.
//
// Only their constructibility is part of the module contract. The default
// implementations here exercise the kernel bridge and an in-memory batch
// source; they make no claim about the real optimization or loading strategy.
package collab

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/agbru/optix/internal/errors"
	"github.com/agbru/optix/internal/kernels"
)

// MaxElements bounds rows*cols for a single optimization request.
const MaxElements = 100_000_000

// GPUThreshold is the working-set size from which SuggestBackend prefers "gpu".
const GPUThreshold uint64 = 256 << 20

// Backend names returned by SuggestBackend.
const (
	BackendCPU = "cpu"
	BackendGPU = "gpu"
)

// OptimizationResult describes one completed optimization.
type OptimizationResult struct {
	Device        string        `json:"device"`
	Optimized     bool          `json:"optimized"`
	ExecutionTime time.Duration `json:"execution_time_ns"`
}

func (r OptimizationResult) String() string {
	return fmt.Sprintf("device=%s optimized=%t time=%s", r.Device, r.Optimized, r.ExecutionTime)
}

// Optimizer runs an optimization over a row-major matrix.
type Optimizer interface {
	Name() string
	Optimize(ctx context.Context, data []float32, rows, cols int) (*OptimizationResult, error)
	// SuggestBackend picks a device for a working set of the given size.
	SuggestBackend(bytes uint64) string
}

// KernelOptimizer computes data·dataᵀ through the native kernel bridge.
type KernelOptimizer struct {
	name string
	now  func() time.Time
}

// NewKernelOptimizer returns a KernelOptimizer. An empty name defaults to "kernel".
func NewKernelOptimizer(name string) *KernelOptimizer {
	if name == "" {
		name = "kernel"
	}
	return &KernelOptimizer{name: name, now: time.Now}
}

// Name returns the optimizer name.
func (o *KernelOptimizer) Name() string { return o.name }

// Optimize validates the shape, then multiplies the matrix by its transpose.
// The Gram matrix itself is discarded; only timing and device are reported.
func (o *KernelOptimizer) Optimize(ctx context.Context, data []float32, rows, cols int) (*OptimizationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := CheckShape(rows, cols); err != nil {
		return nil, err
	}
	if len(data) != rows*cols {
		return nil, apperrors.ValidationError{Field: "data", Message: fmt.Sprintf("has %d elements, shape needs %d", len(data), rows*cols)}
	}

	t := make([]float32, cols*rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			t[j*rows+i] = data[i*cols+j]
		}
	}
	gram := make([]float32, rows*rows)

	start := o.now()
	if err := kernels.MatMul(data, t, gram, rows, rows, cols); err != nil {
		return nil, err
	}
	return &OptimizationResult{
		Device:        BackendCPU + "/" + kernels.Backend(),
		Optimized:     true,
		ExecutionTime: o.now().Sub(start),
	}, nil
}

// CheckShape reports whether a rows×cols matrix and its rows×rows product
// fit under MaxElements. Callers can use it before allocating the matrix.
func CheckShape(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return apperrors.ValidationError{Field: "rows/cols", Message: fmt.Sprintf("shape %dx%d must be positive", rows, cols)}
	}
	if uint64(rows)*uint64(cols) > MaxElements {
		return apperrors.ValidationError{Field: "rows*cols", Message: fmt.Sprintf("%d elements exceed limit %d", uint64(rows)*uint64(cols), MaxElements)}
	}
	if uint64(rows)*uint64(rows) > MaxElements {
		return apperrors.ValidationError{Field: "rows", Message: fmt.Sprintf("%dx%d product exceeds limit %d", rows, rows, MaxElements)}
	}
	return nil
}

// SuggestBackend returns BackendGPU at or above GPUThreshold, BackendCPU below.
func (o *KernelOptimizer) SuggestBackend(bytes uint64) string {
	if bytes >= GPUThreshold {
		return BackendGPU
	}
	return BackendCPU
}

// EstimateBytes is the float64 working-set estimate for a rows×cols matrix.
func EstimateBytes(rows, cols int) uint64 {
	if rows <= 0 || cols <= 0 {
		return 0
	}
	return uint64(rows) * uint64(cols) * 8
}
