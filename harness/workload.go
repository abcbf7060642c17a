package harness

import (
	"errors"
	"fmt"
)

// ErrUnsupported is wrapped by Workload.Available when a workload cannot run
// on the current platform.
var ErrUnsupported = errors.New("unsupported on this platform")

// State is the workload-owned value a phase mutates. Step performs exactly
// one iteration and returns false once the workload has naturally finished.
//
// A State that also implements io.Closer is closed when its phase ends.
type State interface {
	Step() (bool, error)
}

// Workload describes a named, pluggable unit of measured work.
type Workload struct {
	Name              string
	Label             string
	BytesPerIteration uint64

	// Setup builds a fresh State. It is called once per phase.
	Setup func() (State, error)

	// Available returns an error wrapping ErrUnsupported when the workload
	// cannot run here. Nil means always available.
	Available func() error
}

// Title is the name printed in reports.
func (w Workload) Title() string {
	if w.Label != "" {
		return w.Label
	}

	return w.Name
}

// CheckAvailable reports whether w can run on this platform.
func (w Workload) CheckAvailable() error {
	if w.Available == nil {
		return nil
	}

	return w.Available()
}

// Unsupported returns an error wrapping ErrUnsupported with a reason.
func Unsupported(reason string) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, reason)
}

// StepFunc adapts a function to the State interface.
type StepFunc func() (bool, error)

// Step calls f.
func (f StepFunc) Step() (bool, error) {
	return f()
}
