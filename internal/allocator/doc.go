// Package allocator provides the block allocators the alarm queue draws its
// state and node storage from.
//
// The queue only relies on the Allocator contract: Allocate either returns a
// Block or fails, and Release hands a Block back. Three implementations exist:
//   - Runtime never fails and counts live blocks, which is what production use wants,
//   - Heap manages a fixed-size arena with next-fit search, block splitting
//     and coalescing, so exhaustion is real and observable,
//   - Limited caps the number of live blocks of another allocator and is
//     used to inject allocation failures.
package allocator
