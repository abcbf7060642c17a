//go:build (!amd64 && !arm64) || noasm

package harness

import "unsafe"

var sink byte

//go:noinline
func consume(p unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}

	b := unsafe.Slice((*byte)(p), n)
	for _, c := range b {
		sink ^= c
	}
}
