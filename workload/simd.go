package workload

import "github.com/weiihann/napkin/harness"

const simdLanes = 8

// simdState multiplies two vectors of eight 32-bit lanes, keeping the low
// half of each product.
type simdState struct {
	a, b, dst [simdLanes]uint32
}

func simd() harness.Workload {
	return harness.Workload{
		Name:              "simd",
		Label:             "SIMD mullo epi32",
		BytesPerIteration: simdLanes * 4,
		Available:         simdAvailable,
		Setup: func() (harness.State, error) {
			s := &simdState{
				a: [simdLanes]uint32{8, 7, 6, 5, 4, 3, 2, 1},
				b: [simdLanes]uint32{8, 7, 6, 5, 4, 3, 2, 1},
			}

			return s, nil
		},
	}
}

func (s *simdState) Step() (bool, error) {
	mullo(&s.dst, &s.a, &s.b)
	harness.Consume(s.dst)

	// Feed the product back so consecutive steps depend on each other.
	s.a[0] = s.dst[0] | 1

	return true, nil
}

func mulloScalar(dst, a, b *[simdLanes]uint32) {
	for i := range dst {
		dst[i] = a[i] * b[i]
	}
}
