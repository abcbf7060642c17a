package harness

import "unsafe"

// Consume forces v to be materialised in memory and read, so a value a
// workload computes but never uses cannot be removed as dead code. v is
// dropped afterwards without calling Close or any finalizer on it; the cost
// of releasing its resources is not attributed to the caller.
func Consume[T any](v T) {
	consume(unsafe.Pointer(&v), unsafe.Sizeof(v))
}
