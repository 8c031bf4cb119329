package allocator

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// HeaderSize is the bookkeeping overhead charged for every block in a Heap arena.
const HeaderSize = 8

// errArenaTooSmall is returned when the arena cannot hold a single block.
var errArenaTooSmall = errors.New("allocator: arena too small")

// segment describes one contiguous region of the arena.
// The header of the region is not part of size.
type segment struct {
	offset int
	size   int
	free   bool
}

// end returns the offset right past the region, header included.
func (s segment) end() int {
	return s.offset + HeaderSize + s.size
}

// HeapStats is a point-in-time view of arena usage.
type HeapStats struct {
	// Capacity is the aligned arena size.
	Capacity int
	// InUse is the sum of allocated block sizes.
	InUse int
	// Free is the sum of free block sizes, headers excluded.
	Free int
	// Blocks is the number of allocated blocks.
	Blocks int
	// FreeBlocks is the number of free regions.
	FreeBlocks int
}

// Heap is a fixed-capacity arena allocator.
//
// Regions are kept in an offset-ordered slice rather than an intrusive list.
// Allocation is next-fit: the search resumes after the last allocated region.
// Oversized free regions are split, released regions are merged with a free
// successor, and a full defragmentation pass runs before a request fails.
type Heap struct {
	// segments covers the arena without gaps, ordered by offset.
	segments []segment
	// cursor is the index where the next search starts.
	cursor int
	// capacity is the aligned arena size.
	capacity int
	// mu protects the fields above.
	mu sync.Mutex
}

// NewHeap creates an arena of the given capacity, rounded down to the alignment.
func NewHeap(capacity int) (*Heap, error) {
	aligned := capacity &^ (Alignment - 1)
	if aligned < HeaderSize+MinSize {
		return nil, fmt.Errorf("%w: %d bytes", errArenaTooSmall, capacity)
	}

	return &Heap{
		segments: []segment{{
			offset: 0,
			size:   aligned - HeaderSize,
			free:   true,
		}},
		capacity: aligned,
	}, nil
}

// Allocate returns a block of at least size bytes from the arena.
func (h *Heap) Allocate(size int) (Block, error) {
	if size <= 0 {
		return Block{}, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	aligned := align(size)

	h.mu.Lock()
	defer h.mu.Unlock()

	if idx, ok := h.search(aligned); ok {
		return h.take(idx, aligned), nil
	}

	// Free neighbours left behind by out-of-order releases may add up.
	h.defragment()

	if idx, ok := h.search(aligned); ok {
		return h.take(idx, aligned), nil
	}

	return Block{}, fmt.Errorf("%w: %d bytes requested, arena of %d", ErrOutOfMemory, aligned, h.capacity)
}

// Release returns b to the arena and merges it with a free successor.
func (h *Heap) Release(b Block) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx, found := slices.BinarySearchFunc(h.segments, b.ref, func(s segment, offset int) int {
		return s.offset - offset
	})
	if !found || h.segments[idx].free || h.segments[idx].size != b.size {
		return fmt.Errorf("%w: offset %d", ErrInvalidBlock, b.ref)
	}

	h.segments[idx].free = true

	for idx+1 < len(h.segments) && h.segments[idx+1].free {
		h.merge(idx)
	}

	return nil
}

// Stats returns the current arena usage.
func (h *Heap) Stats() HeapStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := HeapStats{Capacity: h.capacity}

	for _, s := range h.segments {
		if s.free {
			stats.Free += s.size
			stats.FreeBlocks++

			continue
		}

		stats.InUse += s.size
		stats.Blocks++
	}

	return stats
}

// search finds a free region of at least size bytes, starting at the cursor.
func (h *Heap) search(size int) (int, bool) {
	n := len(h.segments)
	for i := range n {
		idx := (h.cursor + i) % n
		if h.segments[idx].free && h.segments[idx].size >= size {
			return idx, true
		}
	}

	return 0, false
}

// take marks the region at idx as used, splitting off the tail when it is
// large enough to form a block of its own.
func (h *Heap) take(idx, size int) Block {
	s := &h.segments[idx]

	if rest := s.size - size; rest >= HeaderSize+MinSize {
		tail := segment{
			offset: s.offset + HeaderSize + size,
			size:   rest - HeaderSize,
			free:   true,
		}
		s.size = size
		h.segments = slices.Insert(h.segments, idx+1, tail)
		s = &h.segments[idx]
	}

	s.free = false
	h.cursor = (idx + 1) % len(h.segments)

	return Block{ref: s.offset, size: s.size}
}

// merge folds the region after idx into the region at idx.
func (h *Heap) merge(idx int) {
	next := h.segments[idx+1]
	h.segments[idx].size = next.end() - h.segments[idx].offset - HeaderSize
	h.segments = slices.Delete(h.segments, idx+1, idx+2)

	if h.cursor > idx {
		h.cursor--
	}

	if h.cursor >= len(h.segments) {
		h.cursor = 0
	}
}

// defragment merges every run of adjacent free regions.
func (h *Heap) defragment() {
	for idx := 0; idx+1 < len(h.segments); {
		if h.segments[idx].free && h.segments[idx+1].free {
			h.merge(idx)

			continue
		}

		idx++
	}
}
