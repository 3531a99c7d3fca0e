package shmmutex

import (
	"os"
	"unsafe"
)

// wordPointer returns a pointer to region[offset], used to overlay atomic
// lock words on caller-owned shared memory. The region must be at least
// 4-byte aligned at offset for the atomic ops to be valid on all supported
// architectures; mmap'd regions are page-aligned so this always holds for
// the offsets the pool header computes.
func wordPointer(region []byte, offset int) unsafe.Pointer {
	return unsafe.Pointer(&region[offset])
}

func pid() int {
	return os.Getpid()
}
