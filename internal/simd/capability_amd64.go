//go:build amd64 && !noasm

package simd

import "golang.org/x/sys/cpu"

func init() {
	// FMA is required: the assembly kernels accumulate with VFMADD231PS.
	hasAVX2 = cpu.X86.HasAVX2 && cpu.X86.HasFMA
}
