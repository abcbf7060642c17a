package workload

import (
	"fmt"
	"os"
	"time"

	"github.com/weiihann/napkin/harness"
)

func syscallWorkloads(cfg Config) []harness.Workload {
	return []harness.Workload{
		{
			Name:  "syscall_getpid",
			Label: "Syscall getpid(2)",
			Setup: func() (harness.State, error) {
				return harness.StepFunc(func() (bool, error) {
					harness.Consume(getpid())
					return true, nil
				}), nil
			},
		},
		{
			// Usually served from the vDSO without entering the kernel.
			Name:  "syscall_time",
			Label: "Syscall clock_gettime(2)",
			Setup: func() (harness.State, error) {
				return harness.StepFunc(func() (bool, error) {
					harness.Consume(time.Now())
					return true, nil
				}), nil
			},
		},
		{
			Name:      "syscall_getrusage",
			Label:     "Syscall getrusage(2)",
			Available: getrusageAvailable,
			Setup:     newRusageState,
		},
		{
			Name:  "syscall_stat",
			Label: "Syscall fstat(2)",
			Setup: func() (harness.State, error) {
				f, err := os.Open(cfg.TempDir)
				if err != nil {
					return nil, fmt.Errorf("open %s: %w", cfg.TempDir, err)
				}

				return &statState{f: f}, nil
			},
		},
	}
}

type statState struct {
	f *os.File
}

func (s *statState) Step() (bool, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", s.f.Name(), err)
	}

	harness.Consume(fi)

	return true, nil
}

func (s *statState) Close() error {
	return s.f.Close()
}
