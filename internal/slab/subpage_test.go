package slab

import (
	"fmt"
	"strings"
	"testing"
)

type capturingLog struct {
	lines []string
}

func (c *capturingLog) Printf(format string, args ...any) {
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}

func (c *capturingLog) hasKind(k Kind) bool {
	for _, l := range c.lines {
		if strings.Contains(l, k.String()) {
			return true
		}
	}
	return false
}

func TestSmallAllocFreeRoundTrip(t *testing.T) {
	p := newTestPool(t, 1<<20, Config{PageSize: 4096, MinShift: 3})
	a := p.AllocLocked(8)
	if a == NullAddr {
		t.Fatal("AllocLocked(8) returned NullAddr")
	}
	b := p.AllocLocked(8)
	if b == NullAddr || b == a {
		t.Fatalf("second AllocLocked(8) returned %d, want a distinct non-null address from %d", b, a)
	}
	if got := p.countFreePages(); got != p.l.pages-1 {
		t.Fatalf("one page should back both SMALL allocations, countFreePages = %d, want %d", got, p.l.pages-1)
	}

	p.FreeLocked(a)
	p.FreeLocked(b)
	if got := p.countFreePages(); got != p.l.pages {
		t.Fatalf("page should return to the free-run list once its SMALL slots are all freed, got %d free, want %d", got, p.l.pages)
	}
}

func TestSmallAllocFillsWholePage(t *testing.T) {
	p := newTestPool(t, 1<<20, Config{PageSize: 4096, MinShift: 3})
	shift := shiftFor(8, p.l.minShift)
	nSlots := p.l.pageSize >> shift
	reserved := smallReservedSlots(p.l.pageSize, shift)
	want := nSlots - reserved

	addrs := make([]Addr, 0, want)
	for i := 0; i < want; i++ {
		a := p.AllocLocked(8)
		if a == NullAddr {
			t.Fatalf("allocation %d/%d returned NullAddr before the page should be full", i, want)
		}
		addrs = append(addrs, a)
	}
	if got := p.countFreePages(); got != p.l.pages-1 {
		t.Fatalf("filling one SMALL page should only consume one data page, countFreePages = %d", got)
	}

	// The page is now saturated; the next request must start a new page.
	a := p.AllocLocked(8)
	if a == NullAddr {
		t.Fatal("allocation past a saturated page returned NullAddr")
	}
	if got := p.countFreePages(); got != p.l.pages-2 {
		t.Fatalf("overflow allocation should consume a second page, countFreePages = %d", got)
	}

	for _, addr := range addrs {
		p.FreeLocked(addr)
	}
	p.FreeLocked(a)
	if got := p.countFreePages(); got != p.l.pages {
		t.Fatalf("countFreePages after freeing everything = %d, want %d", got, p.l.pages)
	}
}

func TestExactAllocFreeRoundTrip(t *testing.T) {
	p := newTestPool(t, 1<<20, Config{PageSize: 4096, MinShift: 3})
	exactSize := p.l.exactSize()

	a := p.AllocLocked(exactSize)
	b := p.AllocLocked(exactSize)
	if a == NullAddr || b == NullAddr || a == b {
		t.Fatalf("EXACT allocations must be distinct non-null addresses, got %d and %d", a, b)
	}
	if got := p.countFreePages(); got != p.l.pages-1 {
		t.Fatalf("countFreePages = %d, want %d", got, p.l.pages-1)
	}

	p.FreeLocked(a)
	p.FreeLocked(b)
	if got := p.countFreePages(); got != p.l.pages {
		t.Fatalf("countFreePages after freeing both EXACT slots = %d, want %d", got, p.l.pages)
	}
}

func TestBigAllocFreeRoundTrip(t *testing.T) {
	p := newTestPool(t, 1<<20, Config{PageSize: 4096, MinShift: 3})
	size := p.l.exactSize() * 2 // shift = exactShift+1, a BIG class

	a := p.AllocLocked(size)
	b := p.AllocLocked(size)
	if a == NullAddr || b == NullAddr || a == b {
		t.Fatalf("BIG allocations must be distinct non-null addresses, got %d and %d", a, b)
	}

	p.FreeLocked(a)
	p.FreeLocked(b)
	if got := p.countFreePages(); got != p.l.pages {
		t.Fatalf("countFreePages after freeing both BIG slots = %d, want %d", got, p.l.pages)
	}
}

func TestDoubleFreeIsLoggedAndIgnored(t *testing.T) {
	log := &capturingLog{}
	region := make([]byte, 1<<20)
	p, err := Init(region, Config{PageSize: 4096, MinShift: 3, Log: log})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	a := p.AllocLocked(8)
	p.FreeLocked(a)
	p.FreeLocked(a)

	if !log.hasKind(DoubleFree) {
		t.Fatalf("expected a DoubleFree log entry, got %v", log.lines)
	}
}

func TestWrongChunkOnMisalignedFree(t *testing.T) {
	log := &capturingLog{}
	region := make([]byte, 1<<20)
	p, err := Init(region, Config{PageSize: 4096, MinShift: 3, Log: log})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	a := p.AllocLocked(8)
	p.FreeLocked(a + 1)

	if !log.hasKind(WrongChunk) {
		t.Fatalf("expected a WrongChunk log entry for a misaligned free, got %v", log.lines)
	}
	// The rejected free must not have reached the double-free check.
	if log.hasKind(DoubleFree) {
		t.Fatal("a misaligned free must not also register as a double free")
	}
}

func TestFreeOutsidePoolIsLogged(t *testing.T) {
	log := &capturingLog{}
	region := make([]byte, 1<<20)
	p, err := Init(region, Config{PageSize: 4096, MinShift: 3, Log: log})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	p.FreeLocked(Addr(len(region) + 1))
	if !log.hasKind(OutsidePool) {
		t.Fatalf("expected an OutsidePool log entry, got %v", log.lines)
	}
}

func TestOOMReportedWhenPagesExhausted(t *testing.T) {
	log := &capturingLog{}
	region := make([]byte, 1<<20)
	p, err := Init(region, Config{PageSize: 4096, MinShift: 3, Log: log})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	for {
		if p.AllocLocked(p.MaxSize()) == NullAddr {
			break
		}
	}
	if !log.hasKind(OutOfMemory) {
		t.Fatalf("expected an OutOfMemory log entry once the pool is exhausted, got %v", log.lines)
	}
	if p.Stats().OOMCount == 0 {
		t.Fatal("Stats().OOMCount should be nonzero after an OOM")
	}
}

func TestRepeatedOOMForSameSizeIsLoggedOnce(t *testing.T) {
	log := &capturingLog{}
	region := make([]byte, 1<<20)
	p, err := Init(region, Config{PageSize: 4096, MinShift: 3, Log: log})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	reqSize := p.MaxSize()
	for p.AllocLocked(reqSize) != NullAddr {
	}
	firstCount := len(log.lines)
	if firstCount == 0 {
		t.Fatal("expected at least one log line after exhausting the pool")
	}

	for i := 0; i < 5; i++ {
		if p.AllocLocked(reqSize) != NullAddr {
			t.Fatal("expected AllocLocked to keep failing once the pool is exhausted")
		}
	}
	if got := len(log.lines); got != firstCount {
		t.Fatalf("retrying the same size after OOM logged %d more lines, want the repeat suppressed (stayed at %d)", got-firstCount, firstCount)
	}
	if got := p.Stats().OOMCount; got < uint64(firstCount+5) {
		t.Fatalf("OOMCount = %d, want every failed attempt counted even though logging was suppressed", got)
	}

	if p.AllocLocked(8) != NullAddr {
		t.Fatal("a smaller distinct size should also fail once pages are exhausted")
	}
	if got := len(log.lines); got <= firstCount {
		t.Fatal("a different requested size must log again even while the pool stays exhausted")
	}
}
