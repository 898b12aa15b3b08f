//go:build !amd64 || noasm

package simd

// Only the generic kernels are registered on this platform; hasAVX2
// stays false and Available resolves to Generic.
