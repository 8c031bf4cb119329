package allocator

import (
	"fmt"
	"sync"
)

// Runtime is an unbounded allocator backed by the Go heap.
// It tracks live blocks so leaks and double releases are detectable.
type Runtime struct {
	// live maps block serials to their sizes.
	live map[int]int
	// next is the serial handed to the next block; zero is never used.
	next int
	// bytes is the sum of live block sizes.
	bytes int
	// mu protects the fields above.
	mu sync.Mutex
}

// NewRuntime creates an unbounded allocator.
func NewRuntime() *Runtime {
	return &Runtime{
		live: make(map[int]int),
	}
}

// Allocate returns a new block of at least size bytes.
func (r *Runtime) Allocate(size int) (Block, error) {
	if size <= 0 {
		return Block{}, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	aligned := align(size)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	r.live[r.next] = aligned
	r.bytes += aligned

	return Block{ref: r.next, size: aligned}, nil
}

// Release returns b to the allocator.
func (r *Runtime) Release(b Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	size, ok := r.live[b.ref]
	if !ok || size != b.size {
		return fmt.Errorf("%w: serial %d", ErrInvalidBlock, b.ref)
	}

	delete(r.live, b.ref)
	r.bytes -= size

	return nil
}

// Live returns the number of outstanding blocks and their total size.
func (r *Runtime) Live() (blocks, bytes int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.live), r.bytes
}
