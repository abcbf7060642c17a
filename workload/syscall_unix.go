//go:build unix

package workload

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/weiihann/napkin/harness"
)

func getpid() int {
	return unix.Getpid()
}

func getrusageAvailable() error {
	return nil
}

// rusageState reuses one buffer so the step measures the syscall rather
// than an allocation.
type rusageState struct {
	ru unix.Rusage
}

func newRusageState() (harness.State, error) {
	return &rusageState{}, nil
}

func (s *rusageState) Step() (bool, error) {
	if err := unix.Getrusage(unix.RUSAGE_SELF, &s.ru); err != nil {
		return false, fmt.Errorf("getrusage: %w", err)
	}

	harness.Consume(s.ru.Utime)

	return true, nil
}
