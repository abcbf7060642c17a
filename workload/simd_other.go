//go:build !amd64 || noasm

package workload

import "github.com/weiihann/napkin/harness"

func simdAvailable() error {
	return harness.Unsupported("simd workload requires amd64 with AVX2")
}

func mullo(dst, a, b *[simdLanes]uint32) {
	mulloScalar(dst, a, b)
}
