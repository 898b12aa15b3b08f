// Package distance provides the public API for vector distance
// calculations. All functions use the SIMD-optimized kernels from
// internal/simd when the CPU supports them (AVX2+FMA on x86-64).
package distance

import (
	"github.com/hupe1980/redboxdb/internal/simd"
)

// SquaredL2 calculates the squared L2 (Euclidean) distance between two
// vectors. Squared L2 is monotone in true Euclidean distance, so rankings
// are preserved without the square root.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	return simd.SquaredL2(a, b)
}

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	return simd.Dot(a, b)
}

// Kernel returns the squared-L2 kernel selected by the one-time CPU
// capability probe. Hot loops should capture it once and call it
// directly so the path decision stays out of the inner loop.
func Kernel() func(a, b []float32) float32 {
	fn, _ := simd.SquaredL2Kernel(simd.Available())
	return fn
}

// Accelerated reports whether a SIMD kernel (rather than the portable Go
// implementation) was selected.
func Accelerated() bool {
	return simd.Available() != simd.Generic
}
