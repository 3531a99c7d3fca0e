//go:build linux

package shmmutex

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// wait blocks until *addr no longer equals expect or a waiter is woken.
// It uses the Linux futex directly rather than x/sys/unix's higher-level
// helpers because the wait must be a non-private, shared futex: the waking
// process is not guaranteed to share this process's virtual memory mapping
// of the region, only the same physical pages.
func wait(addr *uint32, expect uint32) {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(unix.FUTEX_WAIT),
		uintptr(expect),
		0, 0, 0,
	)
	_ = errno // EAGAIN (value changed) and EINTR are both fine to ignore; caller re-checks
}

func wake(addr *uint32, n int) {
	unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(unix.FUTEX_WAKE),
		uintptr(n),
		0, 0, 0,
	)
}
