package slab

import (
	"fmt"

	"github.com/shmslab/shmslab/internal/shmmutex"
)

// Pool is a view over a shared region implementing the allocator's four
// core operations: Init, Alloc, Free, and Attach. Multiple Pool values — one per worker
// process, each wrapping that process's own mapping of the same bytes —
// observe and mutate the same logical allocator state once all of them
// hold the mutex in turn.
type Pool struct {
	region []byte
	l      *layout
	mu     shmmutex.Locker
	log    LogHandle

	// lastOOMSize is the requested size of the most recently logged
	// out-of-memory failure, or -1 if none is pending. A repeated
	// failure for the same size is counted but not re-logged, so a
	// caller retrying (or looping) an allocation that can't be
	// satisfied doesn't flood the log; any successful Alloc clears it.
	lastOOMSize int
}

// Init prepares a zeroed region as a fresh pool. region must be at least
// large enough to hold a pool header,
// the slot directory, and one data page; it is typically a shared mapping
// from internal/shm but any byte slice works.
func Init(region []byte, cfg Config) (*Pool, error) {
	l, err := computeLayout(len(region), cfg)
	if err != nil {
		return nil, err
	}
	initRegion(region, l)

	mu, err := shmmutex.New(region, 0, shmmutex.DefaultConfig())
	if err != nil {
		return nil, err
	}
	log := cfg.Log
	if log == nil {
		log = discardLog{}
	}
	return &Pool{region: region, l: l, mu: mu, log: log, lastOOMSize: -1}, nil
}

// Attach opens a view over a region another call to Init already prepared
// (possibly in a different process, mapped at a different address). It
// performs no mutation.
func Attach(region []byte, log LogHandle) (*Pool, error) {
	l, err := readLayout(region)
	if err != nil {
		return nil, err
	}
	mu, err := shmmutex.New(region, 0, shmmutex.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = discardLog{}
	}
	return &Pool{region: region, l: l, mu: mu, log: log, lastOOMSize: -1}, nil
}

// PageSize reports P for this pool.
func (p *Pool) PageSize() int { return p.l.pageSize }

// MaxSize reports max_size: requests at or above this go through the
// page-run path.
func (p *Pool) MaxSize() int { return p.l.maxSize() }

// MinSize reports the smallest block a sub-page allocation can return.
func (p *Pool) MinSize() int { return p.l.minSize() }

// StaticFingerprint reports the region's immutable shape parameters:
// the minimum block shift, the exact-fit shift, and the data page
// count. Unlike Stats, these never change after Init and are what
// internal/shm hashes to detect a stale or foreign mapping on attach.
func (p *Pool) StaticFingerprint() (minShift, exactShift uint, pages int) {
	return p.l.minShift, p.l.exactShift, p.l.pages
}

// Stats is the pool-level counters every caller of the allocator wants
// but which ngx_slab itself keeps only implicitly: running
// pages_used/pages_free totals plus a cumulative out-of-memory count.
type Stats struct {
	PagesTotal int
	PagesFree  int
	PagesUsed  int
	OOMCount   uint64
}

// Stats reports current pool utilization. It takes the lock internally,
// like Alloc/Free, since reading allocator metadata without holding the
// lock is explicitly unsupported.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statsLocked()
}

func (p *Pool) statsLocked() Stats {
	free := p.countFreePages()
	return Stats{
		PagesTotal: p.l.pages,
		PagesFree:  free,
		PagesUsed:  p.l.pages - free,
		OOMCount:   p.oomCount(),
	}
}

// Alloc satisfies a request of size bytes, locking internally. size == 0
// is coerced to MinSize.
func (p *Pool) Alloc(size int) Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.AllocLocked(size)
}

// AllocLocked is Alloc for a caller that already holds the pool's mutex.
func (p *Pool) AllocLocked(size int) Addr {
	if size <= 0 {
		size = p.l.minSize()
	}
	var addr Addr
	if size >= p.l.maxSize() {
		pages := (size + p.l.pageSize - 1) / p.l.pageSize
		idx, ok := p.allocPages(pages)
		if !ok {
			p.reportOOM(fmt.Sprintf("page-run alloc of %d pages failed", pages), size)
			return NullAddr
		}
		addr = Addr(p.l.pageBase(idx))
	} else {
		addr = p.allocSubPage(size)
	}
	if addr != NullAddr {
		p.lastOOMSize = -1
	}
	return addr
}

// Free releases the block at addr, locking internally.
func (p *Pool) Free(addr Addr) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FreeLocked(addr)
}

// FreeLocked is Free for a caller that already holds the pool's mutex.
func (p *Pool) FreeLocked(addr Addr) {
	if addr < Addr(p.l.dataStart) || addr >= Addr(p.l.dataEnd) {
		p.reportError(OutsidePool, addr, "")
		return
	}
	pageIdx := int((int64(addr) - p.l.dataStart) / int64(p.l.pageSize))
	n := p.l.pageNode(pageIdx)
	_, t := p.prevGet(n)
	offsetInPage := (int64(addr) - p.l.dataStart) % int64(p.l.pageSize)

	switch t {
	case tagPage:
		p.freePageAddr(n, pageIdx, addr, offsetInPage)
	case tagSmall, tagExact, tagBig:
		p.freeSubSlot(n, t, addr, offsetInPage)
	}
}

// LockOwner reports the pool mutex's current holder (a PID on the
// primary atomic implementation), for a supervisor deciding whether to
// reap a dead worker's lock.
func (p *Pool) LockOwner() (owner uint32, held bool) {
	return p.mu.Owner()
}

// ForceUnlock clears the pool mutex if it is currently held by owner.
// It is the supervisor-only escape hatch for a worker that died while
// holding the lock; see shmmutex.Locker.ForceUnlock.
func (p *Pool) ForceUnlock(owner uint32) bool {
	return p.mu.ForceUnlock(owner)
}

func (p *Pool) reportError(k Kind, addr Addr, msg string) {
	p.logError(&PoolError{Kind: k, Addr: addr, Msg: msg})
}

// reportOOM records the failure unconditionally but only logs it when
// size differs from the last logged OOM size, suppressing repeats for
// a caller stuck retrying (or looping) the same request.
func (p *Pool) reportOOM(msg string, size int) {
	p.bumpOOMCount()
	if size == p.lastOOMSize {
		return
	}
	p.lastOOMSize = size
	p.reportError(OutOfMemory, NullAddr, msg)
}
