package slab

import "testing"

func TestAllocFreePagesRoundTrip(t *testing.T) {
	p := newTestPool(t, 1<<20, Config{PageSize: 4096, MinShift: 3})
	total := p.l.pages

	idx, ok := p.allocPages(3)
	if !ok {
		t.Fatal("allocPages(3) failed on a fresh pool")
	}
	if got := p.countFreePages(); got != total-3 {
		t.Fatalf("countFreePages = %d, want %d", got, total-3)
	}

	d := p.l.pageNode(idx)
	p.freePages(d, 3)
	if got := p.countFreePages(); got != total {
		t.Fatalf("countFreePages after free = %d, want %d", got, total)
	}
}

func TestAllocPagesSplitsOversizedRun(t *testing.T) {
	p := newTestPool(t, 1<<20, Config{PageSize: 4096, MinShift: 3})
	total := p.l.pages

	idx, ok := p.allocPages(1)
	if !ok {
		t.Fatal("allocPages(1) failed")
	}
	if idx != 0 {
		t.Fatalf("first allocation should take page 0, got %d", idx)
	}
	if got := p.countFreePages(); got != total-1 {
		t.Fatalf("countFreePages = %d, want %d", got, total-1)
	}

	idx2, ok := p.allocPages(1)
	if !ok {
		t.Fatal("allocPages(1) second call failed")
	}
	if idx2 != 1 {
		t.Fatalf("second allocation should take page 1 (the split remainder head), got %d", idx2)
	}
}

func TestAllocPagesExhaustion(t *testing.T) {
	p := newTestPool(t, 1<<20, Config{PageSize: 4096, MinShift: 3})
	total := p.l.pages

	if _, ok := p.allocPages(total); !ok {
		t.Fatalf("allocPages(%d) should consume the entire pool", total)
	}
	if _, ok := p.allocPages(1); ok {
		t.Fatal("allocPages(1) should fail once the pool is fully allocated")
	}
	if got := p.countFreePages(); got != 0 {
		t.Fatalf("countFreePages = %d, want 0", got)
	}
}

func TestAllocPagesRejectsOutOfRangeRequest(t *testing.T) {
	p := newTestPool(t, 1<<20, Config{PageSize: 4096, MinShift: 3})
	if _, ok := p.allocPages(0); ok {
		t.Fatal("allocPages(0) should fail")
	}
	if _, ok := p.allocPages(p.l.pages + 1); ok {
		t.Fatal("allocPages(pages+1) should fail")
	}
}

func TestFreePageAddrDetectsMisuse(t *testing.T) {
	p := newTestPool(t, 1<<20, Config{PageSize: 4096, MinShift: 3})
	idx, ok := p.allocPages(2)
	if !ok {
		t.Fatal("allocPages(2) failed")
	}
	base := Addr(p.l.pageBase(idx))

	// Misaligned offset.
	p.freePageAddr(p.l.pageNode(idx), idx, base+1, 1)
	if got := p.countFreePages(); got != p.l.pages-2 {
		t.Fatalf("misaligned free must be a no-op, countFreePages = %d", got)
	}

	// Interior page of the run.
	p.freePageAddr(p.l.pageNode(idx+1), idx+1, Addr(p.l.pageBase(idx+1)), 0)
	if got := p.countFreePages(); got != p.l.pages-2 {
		t.Fatalf("freeing an interior run page must be a no-op, countFreePages = %d", got)
	}

	// Legitimate free.
	p.freePageAddr(p.l.pageNode(idx), idx, base, 0)
	if got := p.countFreePages(); got != p.l.pages {
		t.Fatalf("countFreePages after legitimate free = %d, want %d", got, p.l.pages)
	}

	// Double free.
	p.freePageAddr(p.l.pageNode(idx), idx, base, 0)
	if got := p.countFreePages(); got != p.l.pages {
		t.Fatalf("double free must be a no-op, countFreePages = %d", got)
	}
}

func TestNoCoalescingOfAdjacentFreeRuns(t *testing.T) {
	p := newTestPool(t, 1<<20, Config{PageSize: 4096, MinShift: 3})
	idxA, _ := p.allocPages(1)
	idxB, _ := p.allocPages(1)

	p.freePages(p.l.pageNode(idxA), 1)
	p.freePages(p.l.pageNode(idxB), 1)

	// Two separate one-page runs must remain separate entries on the
	// free-run list rather than merging into a two-page run.
	sentinel := p.l.freeSentinel()
	count := 0
	for cur := p.nextGet(sentinel); cur != sentinel; cur = p.nextGet(cur) {
		count++
	}
	if count < 2 {
		t.Fatalf("expected at least 2 separate free runs after freeing two adjacent pages, got %d", count)
	}
}
