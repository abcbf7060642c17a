//go:build !noasm

package workload

import (
	"github.com/klauspost/cpuid/v2"

	"github.com/weiihann/napkin/harness"
)

var hasAVX2 = cpuid.CPU.Supports(cpuid.AVX2)

func simdAvailable() error {
	if !hasAVX2 {
		return harness.Unsupported("cpu lacks AVX2")
	}

	return nil
}

// mulloAVX2 computes dst = a * b lane-wise with VPMULLD.
//
//go:noescape
func mulloAVX2(dst, a, b *[simdLanes]uint32)

func mullo(dst, a, b *[simdLanes]uint32) {
	if hasAVX2 {
		mulloAVX2(dst, a, b)
		return
	}

	mulloScalar(dst, a, b)
}
