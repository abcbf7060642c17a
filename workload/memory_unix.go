//go:build linux || darwin || freebsd

package workload

import "golang.org/x/sys/unix"

// Access-pattern hints are advisory; a misaligned or rejected range is
// ignored.
func adviseRandom(b []byte) {
	_ = unix.Madvise(b, unix.MADV_RANDOM)
}

func adviseSequential(b []byte) {
	_ = unix.Madvise(b, unix.MADV_SEQUENTIAL)
}
