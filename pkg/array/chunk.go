package array

// ResolveChunk64 returns the chunk that holds index given the cumulative
// chunk offsets, searching offsets[lo:hi+1]. offsets[k] is the first index
// of chunk k; empty chunks share their offset with the next chunk and are
// never returned for an index inside a later chunk.
func ResolveChunk64(index int64, offsets []int64, lo, hi int64) int64 {
	return resolveChunk(index, offsets, lo, hi)
}

// ResolveChunk32 is ResolveChunk64 for int32 offsets.
func ResolveChunk32(index int32, offsets []int32, lo, hi int32) int32 {
	return resolveChunk(index, offsets, lo, hi)
}

func resolveChunk[T int32 | int64](index T, offsets []T, lo, hi T) T {
	n := hi - lo
	for n > 1 {
		m := n >> 1
		mid := lo + m
		if index >= offsets[mid] {
			lo = mid
			n -= m
		} else {
			n = m
		}
	}
	return lo
}
