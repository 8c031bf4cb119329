package allocator

import "errors"

const (
	// Alignment is the granularity every block size is rounded up to.
	Alignment = 8
	// MinSize is the smallest payload a block may carry.
	MinSize = 8
)

var (
	// ErrOutOfMemory is returned when a request cannot be satisfied.
	ErrOutOfMemory = errors.New("allocator: out of memory")
	// ErrInvalidBlock is returned when releasing a block that is not live.
	ErrInvalidBlock = errors.New("allocator: invalid block")
	// ErrInvalidSize is returned for non-positive allocation requests.
	ErrInvalidSize = errors.New("allocator: invalid size")
)

// Allocator hands out and takes back storage blocks.
// Implementations must be safe for concurrent use.
type Allocator interface {
	Allocate(size int) (Block, error)
	Release(b Block) error
}

// Block is an opaque handle to allocated storage.
// A block is owned by the allocator until Allocate returns it and by the
// caller until it is passed to Release.
type Block struct {
	// ref identifies the block inside its allocator (arena offset or serial).
	ref int
	// size is the usable, aligned size of the block.
	size int
}

// Size returns the usable size of the block in bytes.
func (b Block) Size() int {
	return b.size
}

// IsZero reports whether b is the zero Block, which no allocator returns.
func (b Block) IsZero() bool {
	return b == Block{}
}

// align rounds size up to the allocator alignment and the minimum block size.
func align(size int) int {
	aligned := (size + Alignment - 1) &^ (Alignment - 1)
	if aligned < MinSize {
		return MinSize
	}

	return aligned
}
