// Package pool provides typed object pooling and size-bucketed byte buffer
// recycling.
//
// Pool[T] wraps sync.Pool with type safety and statistics. BufferPool keeps a
// Pool per bucket size and serves each request from the smallest bucket that
// fits. The memory package builds its pooled allocator on top of BufferPool so
// that buffers released by short-lived arrays are reused by the next builder.
//
// Example usage:
//
//	bp := pool.NewBufferPool()
//	buf := bp.Get(1000) // len 1000, cap 4096
//	// ... fill buf ...
//	bp.Put(buf)
//
// All types in this package are safe for concurrent use.
package pool
