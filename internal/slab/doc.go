// Package slab implements the pool's core memory allocator: region layout
// and initialization, the page-run (multi-page) allocator, and the
// sub-page (slab) allocator that carves a single page into equal-sized
// slots tracked by an in-band bitmap.
//
// The pool operates entirely on a caller-supplied byte slice — normally a
// shared mapping from internal/shm, but any []byte works, which is what
// makes the allocator's tests able to run without mmap. No address in the
// pool is ever stored as an absolute Go pointer: every reference between
// pool header, slot directory, and page descriptors is an index, resolved
// against the region on each access. That is what lets every worker
// process map the same region at a different virtual address and still
// see a consistent structure.
//
// All mutation happens under the pool's mutex (internal/shmmutex). The
// exported Alloc/Free take the lock internally; AllocLocked/FreeLocked
// assume the caller already holds it.
package slab
