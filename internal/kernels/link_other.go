//go:build cgo && kernels && !linux

package kernels

// #cgo LDFLAGS: -lkernels_cpu
import "C"
