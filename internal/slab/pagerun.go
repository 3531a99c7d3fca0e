package slab

// allocPages implements alloc_pages(n): first-fit scan
// of the free-run list, splitting the first run that is large enough.
// Returns the data-page index of the run's head page and true, or
// (0, false) if no run can satisfy the request.
func (p *Pool) allocPages(n int) (int, bool) {
	if n <= 0 || n > p.l.pages {
		return 0, false
	}
	sentinel := p.l.freeSentinel()
	for cur := p.nextGet(sentinel); cur != sentinel; cur = p.nextGet(cur) {
		length := int(p.slabGet(cur))
		if length < n {
			continue
		}
		headIdx, _ := p.l.pageIndexOf(cur)
		if length > n {
			p.splitRun(cur, n, length)
		} else {
			p.listUnlink(cur)
		}
		p.startRun(cur, n)
		return headIdx, true
	}
	return 0, false
}

// splitRun carves the first n pages off a free run of runLen pages headed
// at d, leaving the remaining runLen-n pages as a free run at d+n with the
// original list links transplanted onto the new head.
func (p *Pool) splitRun(d nodeRef, n, runLen int) {
	idx, _ := p.l.pageIndexOf(d)
	tail := p.l.pageNode(idx + n)

	next := p.nextGet(d)
	prev, _ := p.prevGet(d)

	p.slabSet(tail, uint64(runLen-n))
	p.nextSet(tail, next)
	p.prevSet(tail, prev, tagPage)

	p.nextSet(prev, tail)
	_, nextTag := p.prevGet(next)
	p.prevSet(next, tail, nextTag)
}

// startRun marks the n pages at d as an allocated run: the head carries
// the run length with runStartFlag set, interior pages are RUN_BUSY
// continuations with no list membership.
func (p *Pool) startRun(d nodeRef, n int) {
	idx, _ := p.l.pageIndexOf(d)
	p.slabSet(d, uint64(n)|runStartFlag)
	p.nextSet(d, nilNode)
	p.prevSet(d, nilNode, tagPage)
	for i := 1; i < n; i++ {
		interior := p.l.pageNode(idx + i)
		p.slabSet(interior, runBusy)
		p.nextSet(interior, nilNode)
		p.prevSet(interior, nilNode, tagPage)
	}
}

// freePages zeroes the interior descriptors, marks d a free run of n
// pages, and links it at the head of the free-run list. No coalescing
// with adjacent free runs is performed — see DESIGN.md.
func (p *Pool) freePages(d nodeRef, n int) {
	idx, _ := p.l.pageIndexOf(d)
	for i := 1; i < n; i++ {
		interior := p.l.pageNode(idx + i)
		p.slabSet(interior, 0)
		p.nextSet(interior, 0)
		p.prevSet(interior, 0, tagSmall)
	}
	p.slabSet(d, uint64(n))
	p.listInsertFront(p.l.freeSentinel(), d, tagPage)
}

// freePageAddr handles Free for an address whose owning descriptor carries
// tagPage: validate it names a live, page-aligned, run-head allocation,
// then hand off to freePages.
func (p *Pool) freePageAddr(d nodeRef, pageIdx int, addr Addr, offsetInPage int64) {
	if offsetInPage != 0 {
		p.reportError(WrongChunk, addr, "page-granularity free must be page-aligned")
		return
	}
	slab := p.slabGet(d)
	switch {
	case slab == runBusy:
		p.reportError(WrongPage, addr, "address is an interior page of a multi-page run")
	case slab&runStartFlag == 0:
		p.reportError(PageAlreadyFree, addr, "")
	default:
		n := int(slab &^ runStartFlag)
		p.freePages(d, n)
	}
}

// countFreePages sums the lengths of every run on the free-run list, used
// by Stats.
func (p *Pool) countFreePages() int {
	total := 0
	sentinel := p.l.freeSentinel()
	for cur := p.nextGet(sentinel); cur != sentinel; cur = p.nextGet(cur) {
		total += int(p.slabGet(cur))
	}
	return total
}
