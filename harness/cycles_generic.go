//go:build (!amd64 && !arm64) || noasm

package harness

import "time"

var epoch = time.Now()

// Cycles has no hardware counter on this platform and returns monotonic
// nanoseconds since process start instead.
func Cycles() uint64 {
	return uint64(time.Since(epoch))
}
