// Package harness runs workloads through a calibrated two-phase timing loop
// and records iterations, wall time and hardware cycles.
package harness

import "time"

// Result holds the raw numbers from the measurement phase of one workload.
type Result struct {
	Iterations int
	Duration   time.Duration
	Cycles     uint64
}

// Valid reports whether per-iteration averages can be derived from r.
func (r Result) Valid() bool {
	return r.Iterations > 0 && r.Duration > 0
}
