//go:build amd64 && !noasm

package simd

import "unsafe"

func init() {
	squaredL2Kernels[AVX2] = squaredL2AVX2
	dotKernels[AVX2] = dotAVX2
}

//go:noescape
func squaredL2Avx2(a, b unsafe.Pointer, n int64, result unsafe.Pointer)

//go:noescape
func dotProductAvx2(a, b unsafe.Pointer, n int64, result unsafe.Pointer)

func squaredL2AVX2(a, b []float32) float32 {
	var ret float32
	if len(a) > 0 {
		squaredL2Avx2(unsafe.Pointer(&a[0]), unsafe.Pointer(&b[0]), int64(len(a)), unsafe.Pointer(&ret))
	}
	return ret
}

func dotAVX2(a, b []float32) float32 {
	var ret float32
	if len(a) > 0 {
		dotProductAvx2(unsafe.Pointer(&a[0]), unsafe.Pointer(&b[0]), int64(len(a)), unsafe.Pointer(&ret))
	}
	return ret
}
