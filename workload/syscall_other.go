//go:build !unix

package workload

import (
	"os"

	"github.com/weiihann/napkin/harness"
)

func getpid() int {
	return os.Getpid()
}

func getrusageAvailable() error {
	return harness.Unsupported("getrusage(2) requires a unix kernel")
}

func newRusageState() (harness.State, error) {
	return nil, getrusageAvailable()
}
