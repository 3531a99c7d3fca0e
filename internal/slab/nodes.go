package slab

import "encoding/binary"

// The unified node array holds, in order: one free-run-list sentinel
// (index 0), one sentinel per size class (indices 1..numClasses, the
// slot directory), then one descriptor per data page (indices
// numClasses+1..numClasses+pages). Every node is three 8-byte
// little-endian words: slab, next, prev. Sentinels only ever use
// next/prev (their slab word is unused); page descriptors use all three.
//
// Folding the free-run sentinel and the slot directory into the same
// array as the page descriptors is what lets next/prev be a single
// nodeRef type everywhere: a page on a class's partial list and a run on
// the free-run list are both "the next node in some circular doubly
// linked list", and the list's head is just another node.

func (p *Pool) nodeOffset(n nodeRef) int64 { return p.l.nodeOffset(n) }

func (p *Pool) slabGet(n nodeRef) uint64 {
	off := p.nodeOffset(n)
	return binary.LittleEndian.Uint64(p.region[off:])
}

func (p *Pool) slabSet(n nodeRef, v uint64) {
	off := p.nodeOffset(n)
	binary.LittleEndian.PutUint64(p.region[off:], v)
}

func (p *Pool) nextGet(n nodeRef) nodeRef {
	off := p.nodeOffset(n) + 8
	return nodeRef(binary.LittleEndian.Uint64(p.region[off:]))
}

func (p *Pool) nextSet(n nodeRef, v nodeRef) {
	off := p.nodeOffset(n) + 8
	binary.LittleEndian.PutUint64(p.region[off:], uint64(v))
}

// prevGet returns the previous node pointer and the regime tag. The tag is
// meaningless for sentinel nodes (0 and 1..numClasses) and for free-run
// nodes, which always carry tagPage.
func (p *Pool) prevGet(n nodeRef) (nodeRef, tag) {
	off := p.nodeOffset(n) + 16
	raw := binary.LittleEndian.Uint64(p.region[off:])
	t := tag(raw & 0x3)
	idx := nodeRef(raw >> 2)
	return idx, t
}

func (p *Pool) prevSet(n nodeRef, v nodeRef, t tag) {
	off := p.nodeOffset(n) + 16
	raw := (uint64(v) << 2) | uint64(t)
	binary.LittleEndian.PutUint64(p.region[off:], raw)
}

// selfLink makes n a one-element circular list (the "empty list" marker
// used for slot sentinels at Init and whenever a class's partial-page
// list drains to nothing).
func (p *Pool) selfLink(n nodeRef, t tag) {
	p.nextSet(n, n)
	p.prevSet(n, n, t)
}

func (p *Pool) isEmpty(head nodeRef) bool {
	return p.nextGet(head) == head
}

// listInsertFront splices n in immediately after head, i.e. n becomes the
// new first element of head's list.
func (p *Pool) listInsertFront(head, n nodeRef, t tag) {
	old := p.nextGet(head)
	p.nextSet(head, n)
	p.prevSet(n, head, t)
	p.nextSet(n, old)
	_, oldTag := p.prevGet(old)
	p.prevSet(old, n, oldTag)
}

// listUnlink removes n from whatever circular list it is currently on.
// The tag of n's own prev/next links is left untouched (callers overwrite
// it when relinking n elsewhere); only the neighbors' links are repaired.
func (p *Pool) listUnlink(n nodeRef) {
	next := p.nextGet(n)
	prev, prevTag := p.prevGet(n)
	_ = prevTag
	nextPrev, nextPrevTag := p.prevGet(next)
	_ = nextPrev
	p.nextSet(prev, next)
	p.prevSet(next, prev, nextPrevTag)
}
