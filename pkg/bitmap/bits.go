// Package bitmap implements LSB-first bit packing over byte slices and a
// growable Bitmap built on memory.Buffer.
//
// Bit i of a packed region lives in byte i/8 at position i%8. Validity
// bitmaps use a set bit for a valid slot.
package bitmap

import "github.com/apache/arrow-go/v18/arrow/bitutil"

// BytesForBits returns the number of bytes needed to hold n bits.
func BytesForBits(n int64) int64 {
	return bitutil.BytesForBits(n)
}

// Get reports whether bit i is set.
func Get(bits []byte, i int64) bool {
	return bitutil.BitIsSet(bits, int(i))
}

// Set sets bit i.
func Set(bits []byte, i int64) {
	bitutil.SetBit(bits, int(i))
}

// Clear clears bit i.
func Clear(bits []byte, i int64) {
	bitutil.ClearBit(bits, int(i))
}

// SetTo sets bit i to v.
func SetTo(bits []byte, i int64, v bool) {
	bitutil.SetBitTo(bits, int(i), v)
}

// SetRangeTo sets length bits starting at start to v. Bits outside the range
// are preserved.
func SetRangeTo(bits []byte, start, length int64, v bool) {
	bitutil.SetBitsTo(bits, start, length, v)
}

// CountSet returns the number of set bits among length bits starting at start.
func CountSet(b []byte, start, length int64) int64 {
	if length == 0 {
		return 0
	}
	return int64(bitutil.CountSetBits(b, int(start), int(length)))
}

// UnpackInt8 writes length bits starting at start into out as 0 or 1.
func UnpackInt8(bits []byte, start, length int64, out []int8) {
	unpack(bits, start, length, out)
}

// UnpackInt32 writes length bits starting at start into out as 0 or 1.
func UnpackInt32(bits []byte, start, length int64, out []int32) {
	unpack(bits, start, length, out)
}

func unpack[T int8 | int32](bits []byte, start, length int64, out []T) {
	i := int64(0)
	// leading bits up to a byte boundary
	for ; i < length && (start+i)&7 != 0; i++ {
		out[i] = T(bits[(start+i)>>3] >> ((start + i) & 7) & 1)
	}
	// whole bytes
	for ; i+8 <= length; i += 8 {
		word := bits[(start+i)>>3]
		for j := int64(0); j < 8; j++ {
			out[i+j] = T(word >> j & 1)
		}
	}
	for ; i < length; i++ {
		out[i] = T(bits[(start+i)>>3] >> ((start + i) & 7) & 1)
	}
}
