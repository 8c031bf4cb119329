package allocator

import (
	"fmt"
	"sync"
)

// Limited wraps an allocator and refuses to hold more than a fixed number of
// live blocks at once.
type Limited struct {
	inner Allocator
	max   int
	live  int
	mu    sync.Mutex
}

// NewLimited caps inner at maxBlocks live blocks. A nil inner uses a fresh Runtime.
func NewLimited(inner Allocator, maxBlocks int) *Limited {
	if inner == nil {
		inner = NewRuntime()
	}

	return &Limited{
		inner: inner,
		max:   maxBlocks,
	}
}

// Allocate forwards to the wrapped allocator unless the cap is reached.
func (l *Limited) Allocate(size int) (Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.live >= l.max {
		return Block{}, fmt.Errorf("%w: limit of %d blocks reached", ErrOutOfMemory, l.max)
	}

	b, err := l.inner.Allocate(size)
	if err != nil {
		return Block{}, err
	}

	l.live++

	return b, nil
}

// Release forwards to the wrapped allocator.
func (l *Limited) Release(b Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.inner.Release(b); err != nil {
		return err
	}

	l.live--

	return nil
}

// SetLimit changes the cap. Blocks already live are unaffected.
func (l *Limited) SetLimit(maxBlocks int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.max = maxBlocks
}

// Live returns the number of outstanding blocks.
func (l *Limited) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.live
}
