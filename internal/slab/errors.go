package slab

import "fmt"

// Kind identifies one of the allocator's corruption or resource-exhaustion
// conditions. All of them except OutOfMemory are silent
// from the caller's perspective: they are logged through the pool's
// LogHandle and absorbed, because they indicate a caller bug the allocator
// cannot meaningfully repair.
type Kind int

const (
	// OutOfMemory means no free run could satisfy an allocation request.
	OutOfMemory Kind = iota
	// OutsidePool means a freed address falls outside the data area.
	OutsidePool
	// WrongChunk means a freed address is misaligned for the size class
	// implied by its owning descriptor.
	WrongChunk
	// DoubleFree means the bitmap bit at the computed position was
	// already zero.
	DoubleFree
	// WrongPage means a freed address points into the interior of a
	// multi-page run (a busy continuation descriptor).
	WrongPage
	// PageAlreadyFree means a page-granularity free targeted a
	// descriptor already on the free-run list.
	PageAlreadyFree
)

func (k Kind) String() string {
	switch k {
	case OutOfMemory:
		return "OutOfMemory"
	case OutsidePool:
		return "OutsidePool"
	case WrongChunk:
		return "WrongChunk"
	case DoubleFree:
		return "DoubleFree"
	case WrongPage:
		return "WrongPage"
	case PageAlreadyFree:
		return "PageAlreadyFree"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// level is the log severity assigned to each Kind.
func (k Kind) level() string {
	if k == OutOfMemory {
		return "CRIT"
	}
	return "ALERT"
}

// PoolError describes a corruption or exhaustion condition detected by the
// allocator. It is never returned to Alloc/Free callers directly — Alloc
// signals OutOfMemory via a null address, and every other Kind is logged
// and the offending call becomes a no-op — but it is the value passed to
// the pool's LogHandle, and tests look for its Kind name in the logged
// text.
type PoolError struct {
	Kind Kind
	Addr Addr
	Msg  string
}

func (e *PoolError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("slab: %s at addr %d: %s", e.Kind, e.Addr, e.Msg)
	}
	return fmt.Sprintf("slab: %s at addr %d", e.Kind, e.Addr)
}
