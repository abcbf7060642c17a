package workload

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/weiihann/napkin/harness"
)

// ErrInvalidPattern is returned by Select for a pattern that does not compile.
var ErrInvalidPattern = errors.New("invalid selection pattern")

// Registry is an ordered set of named workloads. Insertion order is
// execution order.
type Registry struct {
	workloads []harness.Workload
	index     map[string]int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register appends w. Names must be non-empty and unique.
func (r *Registry) Register(w harness.Workload) error {
	if w.Name == "" {
		return fmt.Errorf("register workload: empty name")
	}

	if _, ok := r.index[w.Name]; ok {
		return fmt.Errorf("register workload %q: already registered", w.Name)
	}

	r.index[w.Name] = len(r.workloads)
	r.workloads = append(r.workloads, w)

	return nil
}

// Lookup returns the workload registered under name.
func (r *Registry) Lookup(name string) (harness.Workload, bool) {
	i, ok := r.index[name]
	if !ok {
		return harness.Workload{}, false
	}

	return r.workloads[i], true
}

// All returns every workload in registration order.
func (r *Registry) All() []harness.Workload {
	out := make([]harness.Workload, len(r.workloads))
	copy(out, r.workloads)

	return out
}

// Len returns the number of registered workloads.
func (r *Registry) Len() int {
	return len(r.workloads)
}

// Select returns the workloads whose name matches pattern, in registration
// order. An empty pattern selects nothing. The pattern is compiled before
// anything is returned, so an invalid one never yields a partial selection.
func (r *Registry) Select(pattern string) ([]harness.Workload, error) {
	if pattern == "" {
		return nil, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, pattern, err)
	}

	var selected []harness.Workload

	for _, w := range r.workloads {
		if re.MatchString(w.Name) {
			selected = append(selected, w)
		}
	}

	return selected, nil
}
