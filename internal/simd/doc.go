// Package simd provides the float32 distance kernels used by the query
// path: a portable Go implementation and an AVX2+FMA assembly
// implementation selected by a one-time CPU capability probe.
//
// Callers on the hot path should capture a kernel once via
// SquaredL2Kernel (or DotKernel) and
// invoke it directly rather than going through the package-level
// convenience functions on every call.
//
// The environment variable REDBOXDB_SIMD overrides the probe ("generic"
// or "avx2"); an override naming an ISA the CPU cannot run is ignored.
package simd
