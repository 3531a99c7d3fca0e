//go:build !linux

package shmmutex

import "time"

// wait is the non-Linux fallback: a short sleep instead of a futex park.
// Correctness does not depend on this being a real wakeup signal — Lock
// always re-checks the word after returning — only latency does.
func wait(addr *uint32, expect uint32) {
	time.Sleep(200 * time.Microsecond)
}

func wake(addr *uint32, n int) {
	// No-op: waiters on this platform are polling via wait's sleep loop.
}
