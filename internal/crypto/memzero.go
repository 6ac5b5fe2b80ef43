package crypto

import "runtime"

// Wipe zeroes every provided buffer. This is best-effort: it narrows the
// window secrets spend in memory but cannot reach copies the runtime made.
//
//go:noinline
func Wipe(bufs ...[]byte) {
	for _, b := range bufs {
		for i := range b {
			b[i] = 0
		}
	}
	runtime.KeepAlive(bufs)
}
