// Package memory implements owned, growable byte buffers and the allocators
// behind them.
//
// A Buffer grows geometrically: when an append does not fit, the capacity
// becomes the larger of twice the current capacity and the required size.
// Allocation failures surface as out_of_memory errors and leave the buffer
// unchanged.
//
// Four allocators are provided:
//
//   - GoAllocator, the default, allocates from the Go heap and refuses single
//     allocations above a configurable limit.
//   - Deallocator wraps memory owned elsewhere; it cannot grow and calls a
//     callback exactly once on release.
//   - PooledAllocator recycles memory through pool.BufferPool buckets.
//   - ArrowAllocator delegates to an arrow-go memory.Allocator.
//
// Multi-byte values are written in the platform's native byte order.
package memory
