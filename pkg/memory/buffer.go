package memory

import (
	"encoding/binary"
	"math"

	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/logger"
)

// Buffer is a growable, owned byte region. The zero value is an empty buffer
// using the default allocator; the allocator in effect at the first
// allocation stays with the buffer until Reset.
//
// Size is the number of valid bytes and capacity the number of bytes
// allocated; size never exceeds capacity.
type Buffer struct {
	data      []byte // len(data) is the capacity
	size      int64
	allocator Allocator
}

// Init resets b to an empty buffer with the default allocator without
// releasing what it held. Use Reset to release.
func (b *Buffer) Init() {
	*b = Buffer{}
}

// Allocator returns the allocator in use.
func (b *Buffer) Allocator() Allocator {
	if b.allocator == nil {
		return DefaultAllocator()
	}
	return b.allocator
}

// SetAllocator selects the allocator for future allocations. It fails with
// invalid-argument once memory has been allocated.
func (b *Buffer) SetAllocator(a Allocator) error {
	if b.data != nil {
		return errors.New(errors.ErrorTypeInvalidArgument, "cannot change the allocator of a buffer that holds memory")
	}
	b.allocator = a
	return nil
}

// Adopt releases whatever b held and takes ownership of data, which will be
// handed to fn exactly once when b is reset.
func (b *Buffer) Adopt(data []byte, fn DeallocatorFunc, privateData interface{}) {
	b.Reset()
	b.allocator = Deallocator(fn, privateData)
	b.data = data
	b.size = int64(len(data))
}

// Len returns the size in bytes.
func (b *Buffer) Len() int64 { return b.size }

// Cap returns the capacity in bytes.
func (b *Buffer) Cap() int64 { return int64(len(b.data)) }

// Bytes returns the valid bytes. The slice aliases the buffer and is
// invalidated by any call that reallocates.
func (b *Buffer) Bytes() []byte {
	if b.data == nil {
		return nil
	}
	return b.data[:b.size]
}

// Data returns the full allocation, including bytes past the size.
func (b *Buffer) Data() []byte { return b.data }

// SetLenUnsafe sets the size without touching memory. n must not exceed the
// capacity.
func (b *Buffer) SetLenUnsafe(n int64) { b.size = n }

func growByFactor(current, required int64) int64 {
	if doubled := current * 2; doubled > required {
		return doubled
	}
	return required
}

func (b *Buffer) reallocate(newCapacity int64) error {
	alloc := b.Allocator()
	if newCapacity == 0 {
		// Foreign memory goes back to its owner here, so the buffer falls
		// back to the default allocator and Reset will not free it again.
		alloc.Free(b.data, int64(len(b.data)))
		b.data = nil
		if _, foreign := alloc.(*deallocator); foreign {
			b.allocator = nil
		}
		return nil
	}
	data := alloc.Reallocate(b.data, int64(len(b.data)), newCapacity)
	if data == nil {
		logger.Debug("buffer allocation failed",
			zap.String("component", "memory"),
			zap.Int64("capacity", int64(len(b.data))),
			zap.Int64("requested", newCapacity))
		return errors.Newf(errors.ErrorTypeOutOfMemory, "failed to allocate %d bytes", newCapacity)
	}
	b.data = data[:newCapacity]
	b.allocator = alloc
	return nil
}

// Reserve ensures room for at least additional more bytes, growing the
// capacity to max(2*capacity, size+additional) when needed. Size and content
// are unchanged.
func (b *Buffer) Reserve(additional int64) error {
	if additional < 0 {
		return errors.Newf(errors.ErrorTypeInvalidArgument, "cannot reserve %d bytes", additional)
	}
	required := b.size + additional
	if required <= b.Cap() {
		return nil
	}
	return b.reallocate(growByFactor(b.Cap(), required))
}

// Resize sets the size to n bytes, growing the capacity when n exceeds it.
// With shrinkToFit the capacity is reduced to exactly n.
func (b *Buffer) Resize(n int64, shrinkToFit bool) error {
	if n < 0 {
		return errors.Newf(errors.ErrorTypeInvalidArgument, "cannot resize buffer to %d bytes", n)
	}
	if n > b.Cap() || (shrinkToFit && n < b.Cap()) {
		if err := b.reallocate(n); err != nil {
			return err
		}
	}
	b.size = n
	return nil
}

// AppendUnsafe copies p to the end of the buffer. The caller must have
// reserved enough capacity.
func (b *Buffer) AppendUnsafe(p []byte) {
	copy(b.data[b.size:], p)
	b.size += int64(len(p))
}

// Append copies p to the end of the buffer.
func (b *Buffer) Append(p []byte) error {
	if err := b.Reserve(int64(len(p))); err != nil {
		return err
	}
	b.AppendUnsafe(p)
	return nil
}

// AppendFill appends n copies of value.
func (b *Buffer) AppendFill(value byte, n int64) error {
	if n == 0 {
		return nil
	}
	if err := b.Reserve(n); err != nil {
		return err
	}
	fill := b.data[b.size : b.size+n]
	for i := range fill {
		fill[i] = value
	}
	b.size += n
	return nil
}

// AppendString appends the bytes of s.
func (b *Buffer) AppendString(s string) error {
	if err := b.Reserve(int64(len(s))); err != nil {
		return err
	}
	copy(b.data[b.size:], s)
	b.size += int64(len(s))
	return nil
}

// AppendBytes is an alias of Append kept for symmetry with AppendString.
func (b *Buffer) AppendBytes(p []byte) error {
	return b.Append(p)
}

func (b *Buffer) tail(n int64) ([]byte, error) {
	if err := b.Reserve(n); err != nil {
		return nil, err
	}
	out := b.data[b.size : b.size+n]
	b.size += n
	return out, nil
}

// AppendInt8 appends v.
func (b *Buffer) AppendInt8(v int8) error { return b.AppendUint8(uint8(v)) }

// AppendUint8 appends v.
func (b *Buffer) AppendUint8(v uint8) error {
	out, err := b.tail(1)
	if err != nil {
		return err
	}
	out[0] = v
	return nil
}

// AppendInt16 appends v in native byte order.
func (b *Buffer) AppendInt16(v int16) error { return b.AppendUint16(uint16(v)) }

// AppendUint16 appends v in native byte order.
func (b *Buffer) AppendUint16(v uint16) error {
	out, err := b.tail(2)
	if err != nil {
		return err
	}
	binary.NativeEndian.PutUint16(out, v)
	return nil
}

// AppendInt32 appends v in native byte order.
func (b *Buffer) AppendInt32(v int32) error { return b.AppendUint32(uint32(v)) }

// AppendUint32 appends v in native byte order.
func (b *Buffer) AppendUint32(v uint32) error {
	out, err := b.tail(4)
	if err != nil {
		return err
	}
	binary.NativeEndian.PutUint32(out, v)
	return nil
}

// AppendInt64 appends v in native byte order.
func (b *Buffer) AppendInt64(v int64) error { return b.AppendUint64(uint64(v)) }

// AppendUint64 appends v in native byte order.
func (b *Buffer) AppendUint64(v uint64) error {
	out, err := b.tail(8)
	if err != nil {
		return err
	}
	binary.NativeEndian.PutUint64(out, v)
	return nil
}

// AppendFloat32 appends v in native byte order.
func (b *Buffer) AppendFloat32(v float32) error { return b.AppendUint32(math.Float32bits(v)) }

// AppendFloat64 appends v in native byte order.
func (b *Buffer) AppendFloat64(v float64) error { return b.AppendUint64(math.Float64bits(v)) }

// Move transfers the contents and allocator of b to dst, leaving b empty.
// dst must not hold memory.
func (b *Buffer) Move(dst *Buffer) {
	*dst = *b
	*b = Buffer{}
}

// Reset frees the memory through the allocator and returns b to its zero
// state with the default allocator.
func (b *Buffer) Reset() {
	b.Allocator().Free(b.data, int64(len(b.data)))
	*b = Buffer{}
}
