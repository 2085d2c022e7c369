//go:build cgo && kernels

package kernels

/*
void mat_mul_cpu(const float* a, const float* b, float* c, int M, int N, int K);
*/
import "C"

import "unsafe"

const backend = "native"

// matMul hands the buffers to mat_mul_cpu. Dimensions are validated and
// non-zero by the time this is called.
func matMul(a, b, c []float32, m, n, k int) {
	C.mat_mul_cpu(
		(*C.float)(unsafe.Pointer(&a[0])),
		(*C.float)(unsafe.Pointer(&b[0])),
		(*C.float)(unsafe.Pointer(&c[0])),
		C.int(m), C.int(n), C.int(k),
	)
}
