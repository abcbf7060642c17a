//go:build (amd64 || arm64) && !noasm

package harness

// Cycles reads the per-core hardware counter: RDTSC on amd64 and the
// CNTVCT_EL0 virtual counter on arm64.
func Cycles() uint64
