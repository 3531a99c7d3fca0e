package slab

import "encoding/binary"

// oomCount reads the pool-wide out-of-memory counter from the header. It is
// part of the supplemented pool-level stats counters (see SPEC_FULL.md):
// the allocator itself has no notion of "total OOM events", but every
// caller of Stats wants one, and the header already has room for it.
func (p *Pool) oomCount() uint64 {
	return binary.LittleEndian.Uint64(p.region[hOOMCountOff:])
}

func (p *Pool) bumpOOMCount() {
	n := p.oomCount() + 1
	binary.LittleEndian.PutUint64(p.region[hOOMCountOff:], n)
}
