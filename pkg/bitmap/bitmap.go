package bitmap

import (
	"github.com/apache/arrow-go/v18/arrow/bitutil"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/memory"
)

// Bitmap is a growable packed bit sequence. The zero value is empty.
type Bitmap struct {
	Buffer memory.Buffer
	size   int64
}

// Init empties b without releasing memory it may hold.
func (b *Bitmap) Init() {
	b.Buffer.Init()
	b.size = 0
}

// Len returns the number of bits.
func (b *Bitmap) Len() int64 { return b.size }

// Bytes returns the packed bytes backing the bitmap.
func (b *Bitmap) Bytes() []byte { return b.Buffer.Bytes() }

// Reserve ensures room for additional more bits. When the buffer grows, its
// last byte is zeroed so that a bitmap filled up to the reserved size has
// deterministic trailing bits.
func (b *Bitmap) Reserve(additional int64) error {
	if additional < 0 {
		return errors.Newf(errors.ErrorTypeInvalidArgument, "cannot reserve %d bits", additional)
	}
	minBytes := BytesForBits(b.size + additional)
	currentCap := b.Buffer.Cap()
	if minBytes <= currentCap {
		return nil
	}

	if err := b.Buffer.Reserve(minBytes - b.Buffer.Len()); err != nil {
		return err
	}
	data := b.Buffer.Data()
	data[len(data)-1] = 0
	return nil
}

// Resize sets the length to n bits, optionally shrinking the allocation.
func (b *Bitmap) Resize(n int64, shrinkToFit bool) error {
	if n < 0 {
		return errors.Newf(errors.ErrorTypeInvalidArgument, "cannot resize bitmap to %d bits", n)
	}
	if err := b.Buffer.Resize(BytesForBits(n), shrinkToFit); err != nil {
		return err
	}
	b.size = n
	return nil
}

// Append appends length copies of v.
func (b *Bitmap) Append(v bool, length int64) error {
	if err := b.Reserve(length); err != nil {
		return err
	}
	b.AppendUnsafe(v, length)
	return nil
}

// AppendUnsafe appends length copies of v. The caller must have reserved
// enough room.
func (b *Bitmap) AppendUnsafe(v bool, length int64) {
	SetRangeTo(b.Buffer.Data(), b.size, length, v)
	b.size += length
	b.Buffer.SetLenUnsafe(BytesForBits(b.size))
}

// AppendInt8Unsafe appends one bit per value, set when the value is non-zero.
// The caller must have reserved enough room.
func (b *Bitmap) AppendInt8Unsafe(values []int8) {
	appendValuesUnsafe(b, values)
}

// AppendInt32Unsafe appends one bit per value, set when the value is non-zero.
// The caller must have reserved enough room.
func (b *Bitmap) AppendInt32Unsafe(values []int32) {
	appendValuesUnsafe(b, values)
}

func appendValuesUnsafe[T int8 | int32](b *Bitmap, values []T) {
	n := int64(len(values))
	if n == 0 {
		return
	}

	data := b.Buffer.Data()
	out := b.size
	i := int64(0)

	// finish the partial first byte
	for ; i < n && out&7 != 0; i++ {
		SetTo(data, out, values[i] != 0)
		out++
	}

	// whole bytes
	for ; i+8 <= n; i += 8 {
		var packed uint8
		for j := int64(0); j < 8; j++ {
			if values[i+j] != 0 {
				packed |= bitutil.BitMask[j]
			}
		}
		data[out>>3] = packed
		out += 8
	}

	// trailing bits start a fresh byte
	if i < n {
		data[out>>3] = 0
		for ; i < n; i++ {
			SetTo(data, out, values[i] != 0)
			out++
		}
	}

	b.size += n
	b.Buffer.SetLenUnsafe(BytesForBits(b.size))
}

// Move transfers b to dst, leaving b empty.
func (b *Bitmap) Move(dst *Bitmap) {
	b.Buffer.Move(&dst.Buffer)
	dst.size = b.size
	b.size = 0
}

// Reset frees the memory and empties b.
func (b *Bitmap) Reset() {
	b.Buffer.Reset()
	b.size = 0
}
