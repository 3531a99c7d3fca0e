package slab

import "fmt"

// computeLayout implements region-initialization
// procedure: split the region into pool header, slot directory, page
// descriptor array, and page-aligned data area, estimating the page count
// from an upper bound and backing off until the data area actually fits.
func computeLayout(regionSize int, cfg Config) (*layout, error) {
	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = 4096
	}
	if err := validatePageSize(pageSize); err != nil {
		return nil, err
	}
	minShift := cfg.MinShift
	if minShift == 0 {
		minShift = 3
	}
	maxShift := log2(pageSize) - 1
	if minShift < 3 || minShift > maxShift {
		return nil, fmt.Errorf("slab: min_shift %d out of range [3,%d] for page size %d", minShift, maxShift, pageSize)
	}

	l := &layout{
		pageSize:   pageSize,
		minShift:   minShift,
		exactShift: log2(pageSize / wordBits),
		numClasses: log2(pageSize) - minShift,
	}
	l.nodesOffset = headerEnd

	fixedNodes := int64(1+int(l.numClasses)) * nodeSize
	remaining := int64(regionSize) - l.nodesOffset - fixedNodes
	if remaining <= int64(pageSize) {
		return nil, fmt.Errorf("slab: region of %d bytes too small for page size %d", regionSize, pageSize)
	}

	// Upper-bound estimate per spec 4.1 step 2: pages*(P+descriptor) <= remaining.
	pages := int(remaining / int64(pageSize+nodeSize))
	for pages > 0 {
		dataStart := l.nodesOffset + fixedNodes + int64(pages)*nodeSize
		aligned := alignUp(dataStart, int64(pageSize))
		if aligned+int64(pages)*int64(pageSize) <= int64(regionSize) {
			l.dataStart = aligned
			l.pages = pages
			l.dataEnd = aligned + int64(pages)*int64(pageSize)
			break
		}
		pages-- // alignment consumed a page's worth of slack: back off (spec 4.1 step 3)
	}
	if pages == 0 {
		return nil, fmt.Errorf("slab: region of %d bytes cannot fit even one data page", regionSize)
	}
	return l, nil
}

func alignUp(v, align int64) int64 {
	rem := v % align
	if rem == 0 {
		return v
	}
	return v + (align - rem)
}

// initRegion zero-fills the node array, writes the header, self-links
// every slot sentinel (the "no partial page yet" state), and links the
// free-run list to a single run spanning every data page.
func initRegion(region []byte, l *layout) {
	totalNodes := 1 + int(l.numClasses) + l.pages
	end := l.nodesOffset + int64(totalNodes)*nodeSize
	for i := range region[l.nodesOffset:end] {
		region[l.nodesOffset+int64(i)] = 0
	}

	writeHeader(region, l)

	p := &Pool{region: region, l: l, log: discardLogOrNil()}
	for i := 0; i < int(l.numClasses); i++ {
		p.selfLink(l.slotNode(i), tagSmall)
	}
	if l.pages == 0 {
		p.selfLink(l.freeSentinel(), tagPage)
		return
	}
	head := l.pageNode(0)
	p.selfLink(l.freeSentinel(), tagPage)
	p.listInsertFront(l.freeSentinel(), head, tagPage)
	p.slabSet(head, uint64(l.pages))
}

func discardLogOrNil() LogHandle { return discardLog{} }
