//go:build !linux

package workload

import (
	"os"

	"github.com/weiihann/napkin/harness"
)

const (
	adviceSequential = 0
	adviceRandom     = 0
)

func adviseFile(*os.File, int) {}

func syncData(f *os.File) error {
	return f.Sync()
}

func batchedAvailable() error {
	return harness.Unsupported("batched reads rely on posix_fadvise read-ahead, linux only")
}

func newBatchedRead(Config) (harness.State, error) {
	return nil, batchedAvailable()
}
