//go:build (amd64 || arm64) && !noasm

package harness

import "unsafe"

// consume is opaque to the compiler. It loads the first byte at p when n > 0.
//
//go:noescape
func consume(p unsafe.Pointer, n uintptr)
