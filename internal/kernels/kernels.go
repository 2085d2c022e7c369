// Package kernels bridges to the native compute kernel library.
//
// Built with `-tags kernels` (and cgo enabled), calls go to the statically
// linked kernels_cpu archive; the link flags come from internal/linkcfg.
// Without the tag a portable Go implementation with the same contract is used.
package kernels

import (
	"fmt"
	"strings"

	"golang.org/x/sys/cpu"

	apperrors "github.com/agbru/optix/internal/errors"
)

// maxDim bounds each matrix dimension to what the C ABI (int) can carry.
const maxDim = 1<<31 - 1

// MatMul computes c = a × b for row-major a (m×k), b (k×n) and c (m×n).
func MatMul(a, b, c []float32, m, n, k int) error {
	if err := checkDims(len(a), len(b), len(c), m, n, k); err != nil {
		return err
	}
	if m == 0 || n == 0 {
		return nil
	}
	if k == 0 {
		clear(c[:m*n])
		return nil
	}
	matMul(a, b, c, m, n, k)
	return nil
}

func checkDims(la, lb, lc, m, n, k int) error {
	for _, d := range []struct {
		name string
		v    int
	}{{"m", m}, {"n", n}, {"k", k}} {
		if d.v < 0 || d.v > maxDim {
			return apperrors.ValidationError{Field: d.name, Message: fmt.Sprintf("dimension %d out of range", d.v)}
		}
	}
	// Products are taken in uint64: each factor is below 2^31, so they
	// cannot wrap even where int is 32 bits.
	switch {
	case uint64(la) < uint64(m)*uint64(k):
		return apperrors.ValidationError{Field: "a", Message: fmt.Sprintf("has %d elements, need %d", la, uint64(m)*uint64(k))}
	case uint64(lb) < uint64(k)*uint64(n):
		return apperrors.ValidationError{Field: "b", Message: fmt.Sprintf("has %d elements, need %d", lb, uint64(k)*uint64(n))}
	case uint64(lc) < uint64(m)*uint64(n):
		return apperrors.ValidationError{Field: "c", Message: fmt.Sprintf("has %d elements, need %d", lc, uint64(m)*uint64(n))}
	}
	return nil
}

// Backend names the implementation compiled into this binary: "native" or "go".
func Backend() string { return backend }

// CPUFeatures lists the SIMD extensions relevant to the kernels.
type CPUFeatures struct {
	AVX2    bool
	AVX512F bool
	FMA     bool
	NEON    bool
}

// Features reports the host's SIMD support.
func Features() CPUFeatures {
	return CPUFeatures{
		AVX2:    cpu.X86.HasAVX2,
		AVX512F: cpu.X86.HasAVX512F,
		FMA:     cpu.X86.HasFMA,
		NEON:    cpu.ARM64.HasASIMD,
	}
}

func (f CPUFeatures) String() string {
	var names []string
	if f.AVX2 {
		names = append(names, "avx2")
	}
	if f.AVX512F {
		names = append(names, "avx512f")
	}
	if f.FMA {
		names = append(names, "fma")
	}
	if f.NEON {
		names = append(names, "neon")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}
