package array

import (
	"encoding/binary"
	"math"

	"github.com/ajitpratap0/strata/pkg/bitmap"
	"github.com/ajitpratap0/strata/pkg/memory"
	"github.com/ajitpratap0/strata/pkg/schema"
	stringpool "github.com/ajitpratap0/strata/pkg/strings"
)

// The accessors below take an element index relative to the view offset and
// do not bounds-check it.

// IsNull reports whether element i is null. Elements of null-type arrays
// are always null and union elements never are.
func (v *View) IsNull(i int64) bool {
	switch v.StorageType {
	case schema.TypeNA:
		return true
	case schema.TypeSparseUnion, schema.TypeDenseUnion:
		return false
	}
	validity := v.buffers[0]
	if v.Layout.BufferType[0] != schema.BufferTypeValidity || len(validity) == 0 {
		return false
	}
	return !bitmap.Get(validity, v.Offset+i)
}

// ComputeNullCount returns the null count, counting the validity bitmap and
// storing the result when it is unknown.
func (v *View) ComputeNullCount() int64 {
	if v.NullCount >= 0 {
		return v.NullCount
	}
	switch {
	case v.Length == 0:
		v.NullCount = 0
	case v.StorageType == schema.TypeNA:
		v.NullCount = v.Length
	case v.Layout.BufferType[0] != schema.BufferTypeValidity || len(v.buffers[0]) == 0:
		v.NullCount = 0
	default:
		v.NullCount = v.Length - bitmap.CountSet(v.buffers[0], v.Offset, v.Length)
	}
	return v.NullCount
}

// UnionTypeID returns the type id of union element i.
func (v *View) UnionTypeID(i int64) int8 {
	return int8(v.buffers[0][v.Offset+i])
}

// UnionChildIndex returns the index of the child holding union element i.
func (v *View) UnionChildIndex(i int64) int {
	return v.unionChildIndex(v.UnionTypeID(i))
}

// UnionChildOffset returns the position of union element i in its child.
func (v *View) UnionChildOffset(i int64) int64 {
	if v.StorageType == schema.TypeDenseUnion {
		return int64(int32(binary.NativeEndian.Uint32(v.buffers[1][(v.Offset+i)*4:])))
	}
	return v.Offset + i
}

// ListChildOffset returns the offset into the child at which list element i
// starts. ListChildOffset(Length) is where the last element ends.
func (v *View) ListChildOffset(i int64) int64 {
	switch v.StorageType {
	case schema.TypeList, schema.TypeMap, schema.TypeLargeList:
		return v.offsetAt(v.Offset + i)
	case schema.TypeListView, schema.TypeLargeListView:
		offset, _ := v.listViewAt(v.Offset + i)
		return offset
	case schema.TypeFixedSizeList:
		return (v.Offset + i) * v.Layout.ChildSizeElements
	}
	return -1
}

// IntUnsafe returns element i as an int64. Types without an integer reading
// return math.MaxInt64.
func (v *View) IntUnsafe(i int64) int64 {
	j := v.Offset + i
	b := v.buffers[1]
	switch v.StorageType {
	case schema.TypeDouble:
		return int64(math.Float64frombits(binary.NativeEndian.Uint64(b[j*8:])))
	case schema.TypeFloat:
		return int64(math.Float32frombits(binary.NativeEndian.Uint32(b[j*4:])))
	case schema.TypeHalfFloat:
		return int64(memory.HalfToFloat(binary.NativeEndian.Uint16(b[j*2:])))
	}
	return v.intAt(j)
}

// UintUnsafe returns element i as a uint64. Types without an integer
// reading return math.MaxUint64.
func (v *View) UintUnsafe(i int64) uint64 {
	j := v.Offset + i
	b := v.buffers[1]
	switch v.StorageType {
	case schema.TypeUint64:
		return binary.NativeEndian.Uint64(b[j*8:])
	case schema.TypeInt8, schema.TypeUint8, schema.TypeInt16, schema.TypeUint16,
		schema.TypeInt32, schema.TypeUint32, schema.TypeInt64, schema.TypeBool:
		return uint64(v.intAt(j))
	case schema.TypeDouble:
		return uint64(math.Float64frombits(binary.NativeEndian.Uint64(b[j*8:])))
	case schema.TypeFloat:
		return uint64(math.Float32frombits(binary.NativeEndian.Uint32(b[j*4:])))
	case schema.TypeHalfFloat:
		return uint64(memory.HalfToFloat(binary.NativeEndian.Uint16(b[j*2:])))
	}
	return math.MaxUint64
}

// DoubleUnsafe returns element i as a float64. Types without a numeric
// reading return math.MaxFloat64.
func (v *View) DoubleUnsafe(i int64) float64 {
	j := v.Offset + i
	b := v.buffers[1]
	switch v.StorageType {
	case schema.TypeDouble:
		return math.Float64frombits(binary.NativeEndian.Uint64(b[j*8:]))
	case schema.TypeFloat:
		return float64(math.Float32frombits(binary.NativeEndian.Uint32(b[j*4:])))
	case schema.TypeHalfFloat:
		return float64(memory.HalfToFloat(binary.NativeEndian.Uint16(b[j*2:])))
	case schema.TypeUint64:
		return float64(binary.NativeEndian.Uint64(b[j*8:]))
	case schema.TypeInt8, schema.TypeUint8, schema.TypeInt16, schema.TypeUint16,
		schema.TypeInt32, schema.TypeUint32, schema.TypeInt64, schema.TypeBool:
		return float64(v.intAt(j))
	}
	return math.MaxFloat64
}

// BytesUnsafe returns element i of a binary, string or fixed-size binary
// view. The slice aliases the underlying buffer. Other types return nil.
func (v *View) BytesUnsafe(i int64) []byte {
	j := v.Offset + i
	switch v.StorageType {
	case schema.TypeString, schema.TypeBinary, schema.TypeLargeString, schema.TypeLargeBinary:
		start, end := v.offsetAt(j), v.offsetAt(j+1)
		return v.buffers[2][start:end:end]
	case schema.TypeFixedSizeBinary:
		size := v.Layout.ElementSizeBits[1] / 8
		return v.buffers[1][j*size : (j+1)*size : (j+1)*size]
	case schema.TypeBinaryView, schema.TypeStringView:
		view := v.buffers[1][j*binaryViewSize : (j+1)*binaryViewSize]
		size := int64(int32(binary.NativeEndian.Uint32(view[0:4])))
		if size <= binaryViewInlineSize {
			return view[4 : 4+size : 4+size]
		}
		index := binary.NativeEndian.Uint32(view[8:12])
		offset := int64(binary.NativeEndian.Uint32(view[12:16]))
		return v.variadic[index][offset : offset+size : offset+size]
	}
	return nil
}

// StringUnsafe returns element i as a string sharing memory with the buffer.
// It must not outlive the data behind the view.
func (v *View) StringUnsafe(i int64) string {
	return stringpool.BytesToString(v.BytesUnsafe(i))
}

// IntervalUnsafe returns element i of an interval view.
func (v *View) IntervalUnsafe(i int64) Interval {
	j := v.Offset + i
	b := v.buffers[1]
	out := Interval{Type: v.StorageType}
	switch v.StorageType {
	case schema.TypeIntervalMonths:
		out.Months = int32(binary.NativeEndian.Uint32(b[j*4:]))
	case schema.TypeIntervalDayTime:
		out.Days = int32(binary.NativeEndian.Uint32(b[j*8:]))
		out.Millis = int32(binary.NativeEndian.Uint32(b[j*8+4:]))
	case schema.TypeIntervalMonthDayNano:
		out.Months = int32(binary.NativeEndian.Uint32(b[j*16:]))
		out.Days = int32(binary.NativeEndian.Uint32(b[j*16+4:]))
		out.Nanos = int64(binary.NativeEndian.Uint64(b[j*16+8:]))
	}
	return out
}

// DecimalUnsafe reads element i of a decimal view into out, setting its bit
// width from the storage type. Precision and scale are left as they are.
func (v *View) DecimalUnsafe(i int64, out *Decimal) {
	out.BitWidth = v.StorageType.DecimalBitWidth()
	width := int64(out.BitWidth / 8)
	j := v.Offset + i
	out.SetBytes(v.buffers[1][j*width : (j+1)*width])
}
