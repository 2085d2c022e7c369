//go:build !(cgo && kernels)

package kernels

const backend = "go"

// matMul is the portable implementation, i-k-j ordered so the inner loop
// walks b and c contiguously.
func matMul(a, b, c []float32, m, n, k int) {
	for i := 0; i < m; i++ {
		row := c[i*n : (i+1)*n]
		clear(row)
		for p := 0; p < k; p++ {
			aip := a[i*k+p]
			if aip == 0 {
				continue
			}
			brow := b[p*n : (p+1)*n]
			for j := range row {
				row[j] += aip * brow[j]
			}
		}
	}
}
