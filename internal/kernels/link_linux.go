//go:build cgo && kernels && linux

package kernels

// The search directory (-L) is supplied through CGO_LDFLAGS by `optix link`.

// #cgo LDFLAGS: -Wl,-Bstatic -lkernels_cpu -Wl,-Bdynamic -lgomp
import "C"
