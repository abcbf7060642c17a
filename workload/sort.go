package workload

import (
	"slices"

	"github.com/weiihann/napkin/harness"
)

// sortWorkload sorts SortSize bytes of random uint64s once per phase: the
// only step reports completion, so each phase times exactly one sort.
func sortWorkload(cfg Config) harness.Workload {
	return harness.Workload{
		Name:              "sort",
		Label:             "Sort",
		BytesPerIteration: cfg.SortSize,
		Setup: func() (harness.State, error) {
			values := NewGenerator(cfg.Seed).Uint64s(int(cfg.SortSize / 8))

			return harness.StepFunc(func() (bool, error) {
				slices.Sort(values)
				harness.Consume(values)

				return false, nil
			}), nil
		},
	}
}
