package array

import (
	"encoding/binary"
	"math"

	"github.com/ajitpratap0/strata/pkg/bitmap"
	"github.com/ajitpratap0/strata/pkg/memory"
	"github.com/ajitpratap0/strata/pkg/schema"
	stringpool "github.com/ajitpratap0/strata/pkg/strings"
)

// StartAppending prepares a and its descendants for the Append methods by
// writing the leading zero offset of offset-based types.
func (a *Array) StartAppending() error {
	p, err := a.state()
	if err != nil {
		return err
	}
	if p.storageType == schema.TypeUninitialized {
		return invalidArg("cannot append to an array of uninitialized type")
	}

	for i := 0; i < schema.MaxFixedBuffers; i++ {
		if p.layout.BufferType[i] != schema.BufferTypeDataOffset {
			continue
		}
		buf := a.Buffer(i)
		switch p.layout.ElementSizeBits[i] {
		case 32:
			err = buf.AppendInt32(0)
		case 64:
			err = buf.AppendInt64(0)
		}
		if err != nil {
			return err
		}
	}

	for _, child := range a.Children {
		if err := child.StartAppending(); err != nil {
			return err
		}
	}
	if a.Dictionary != nil {
		return a.Dictionary.StartAppending()
	}
	return nil
}

// AppendNull appends n null elements.
func (a *Array) AppendNull(n int64) error {
	if _, err := a.state(); err != nil {
		return err
	}
	return a.appendEmpty(n, false)
}

// AppendEmpty appends n valid elements whose value is the zero value of the
// type: zero numbers, empty strings, empty lists and structs of empty
// children.
func (a *Array) AppendEmpty(n int64) error {
	if _, err := a.state(); err != nil {
		return err
	}
	return a.appendEmpty(n, true)
}

func (a *Array) appendEmpty(n int64, valid bool) error {
	p := a.priv
	if n == 0 {
		return nil
	}
	if n < 0 {
		return invalidArg("cannot append %d elements", n)
	}

	switch p.storageType {
	case schema.TypeNA:
		// an empty null-type element is a null
		a.NullCount += n
		a.Length += n
		return nil

	case schema.TypeDenseUnion:
		if len(a.Children) == 0 {
			return invalidArg("cannot append an empty element to a dense union with no children")
		}
		first := a.Children[0]
		if err := first.appendEmpty(1, valid); err != nil {
			return err
		}
		if err := p.buffers[0].AppendFill(byte(a.unionTypeID(0)), n); err != nil {
			return err
		}
		for i := int64(0); i < n; i++ {
			if err := p.buffers[1].AppendInt32(int32(first.Length - 1)); err != nil {
				return err
			}
		}
		// union elements are never counted as null
		a.Length += n
		return nil

	case schema.TypeSparseUnion:
		if len(a.Children) == 0 {
			return invalidArg("cannot append an empty element to a sparse union with no children")
		}
		if err := a.Children[0].appendEmpty(n, valid); err != nil {
			return err
		}
		for _, child := range a.Children[1:] {
			if err := child.AppendEmpty(n); err != nil {
				return err
			}
		}
		if err := p.buffers[0].AppendFill(byte(a.unionTypeID(0)), n); err != nil {
			return err
		}
		a.Length += n
		return nil

	case schema.TypeFixedSizeList:
		if len(a.Children) != 1 {
			return invalidArg("fixed-size list array must have exactly one child")
		}
		if err := a.Children[0].AppendEmpty(n * p.layout.ChildSizeElements); err != nil {
			return err
		}

	case schema.TypeStruct:
		for _, child := range a.Children {
			if err := child.AppendEmpty(n); err != nil {
				return err
			}
		}
	}

	if p.layout.BufferType[0] == schema.BufferTypeValidity {
		switch {
		case p.validity.Buffer.Data() == nil && !valid:
			// materialize the bitmap the first time a null shows up
			if err := p.validity.Reserve(a.Length + n); err != nil {
				return err
			}
			p.validity.AppendUnsafe(true, a.Length)
			p.validity.AppendUnsafe(false, n)
		case p.validity.Buffer.Data() != nil:
			if err := p.validity.Append(valid, n); err != nil {
				return err
			}
		}
	}

	for i := 1; i < schema.MaxFixedBuffers; i++ {
		buf := a.Buffer(i)
		bits := p.layout.ElementSizeBits[i]
		switch p.layout.BufferType[i] {
		case schema.BufferTypeDataOffset:
			if err := a.repeatLastOffset(i, n); err != nil {
				return err
			}
		case schema.BufferTypeData:
			if p.layout.BufferType[i-1] == schema.BufferTypeDataOffset {
				// offsets alone describe empty values
				continue
			}
			if bits%8 == 0 {
				if err := buf.AppendFill(0, bits/8*n); err != nil {
					return err
				}
			} else if err := a.appendBits(i, false, n); err != nil {
				return err
			}
		case schema.BufferTypeViewOffset, schema.BufferTypeSize:
			if err := buf.AppendFill(0, bits/8*n); err != nil {
				return err
			}
		}
	}

	a.Length += n
	if !valid {
		a.NullCount += n
	}
	return nil
}

func (a *Array) repeatLastOffset(i int, n int64) error {
	buf := a.Buffer(i)
	width := a.priv.layout.ElementSizeBits[i] / 8
	if buf.Len() < width {
		return invalidArg("%s array is not ready for appending; call StartAppending first", a.priv.storageType)
	}
	var last [8]byte
	copy(last[:], buf.Bytes()[buf.Len()-width:])
	for j := int64(0); j < n; j++ {
		if err := buf.Append(last[:width]); err != nil {
			return err
		}
	}
	return nil
}

// appendBits appends n copies of v to bit-packed buffer i.
func (a *Array) appendBits(i int, v bool, n int64) error {
	buf := a.Buffer(i)
	required := bitmap.BytesForBits(a.Length + n)
	if grow := required - buf.Len(); grow > 0 {
		if err := buf.AppendFill(0, grow); err != nil {
			return err
		}
	}
	bitmap.SetRangeTo(buf.Bytes(), a.Length, n, v)
	return nil
}

func (a *Array) finishValue() error {
	p := a.priv
	if p.layout.BufferType[0] == schema.BufferTypeValidity && p.validity.Buffer.Data() != nil {
		if err := p.validity.Append(true, 1); err != nil {
			return err
		}
	}
	a.Length++
	return nil
}

// AppendInt appends v, converting it to the storage type. Values that do not
// fit an integer storage type fail with a not-representable error and leave
// the array unchanged. Floating-point storage receives the nearest value.
func (a *Array) AppendInt(v int64) error {
	p, err := a.state()
	if err != nil {
		return err
	}
	data := &p.buffers[1]

	switch t := p.storageType; t {
	case schema.TypeInt64:
		err = data.AppendInt64(v)
	case schema.TypeInt32:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return notRepresentable(v, t)
		}
		err = data.AppendInt32(int32(v))
	case schema.TypeInt16:
		if v < math.MinInt16 || v > math.MaxInt16 {
			return notRepresentable(v, t)
		}
		err = data.AppendInt16(int16(v))
	case schema.TypeInt8:
		if v < math.MinInt8 || v > math.MaxInt8 {
			return notRepresentable(v, t)
		}
		err = data.AppendInt8(int8(v))
	case schema.TypeUint64, schema.TypeUint32, schema.TypeUint16, schema.TypeUint8:
		if v < 0 {
			return notRepresentable(v, t)
		}
		return a.AppendUint(uint64(v))
	case schema.TypeDouble:
		err = data.AppendFloat64(float64(v))
	case schema.TypeFloat:
		err = data.AppendFloat32(float32(v))
	case schema.TypeHalfFloat:
		err = data.AppendUint16(memory.FloatToHalf(float32(v)))
	case schema.TypeBool:
		err = a.appendBits(1, v != 0, 1)
	default:
		return invalidArg("cannot append an integer to a %s array", t)
	}
	if err != nil {
		return err
	}
	return a.finishValue()
}

// AppendUint appends v, converting it to the storage type. Values that do
// not fit an integer storage type fail with a not-representable error and
// leave the array unchanged.
func (a *Array) AppendUint(v uint64) error {
	p, err := a.state()
	if err != nil {
		return err
	}
	data := &p.buffers[1]

	switch t := p.storageType; t {
	case schema.TypeUint64:
		err = data.AppendUint64(v)
	case schema.TypeUint32:
		if v > math.MaxUint32 {
			return notRepresentable(v, t)
		}
		err = data.AppendUint32(uint32(v))
	case schema.TypeUint16:
		if v > math.MaxUint16 {
			return notRepresentable(v, t)
		}
		err = data.AppendUint16(uint16(v))
	case schema.TypeUint8:
		if v > math.MaxUint8 {
			return notRepresentable(v, t)
		}
		err = data.AppendUint8(uint8(v))
	case schema.TypeInt64, schema.TypeInt32, schema.TypeInt16, schema.TypeInt8:
		if v > math.MaxInt64 {
			return notRepresentable(v, t)
		}
		return a.AppendInt(int64(v))
	case schema.TypeDouble:
		err = data.AppendFloat64(float64(v))
	case schema.TypeFloat:
		err = data.AppendFloat32(float32(v))
	case schema.TypeHalfFloat:
		err = data.AppendUint16(memory.FloatToHalf(float32(v)))
	case schema.TypeBool:
		err = a.appendBits(1, v != 0, 1)
	default:
		return invalidArg("cannot append an unsigned integer to a %s array", t)
	}
	if err != nil {
		return err
	}
	return a.finishValue()
}

// AppendDouble appends v. Float and half-float storage round to the nearest
// value but reject finite values beyond their range; integer storage
// requires v to be a whole number in range.
func (a *Array) AppendDouble(v float64) error {
	p, err := a.state()
	if err != nil {
		return err
	}
	data := &p.buffers[1]

	switch t := p.storageType; {
	case t == schema.TypeDouble:
		err = data.AppendFloat64(v)
	case t == schema.TypeFloat:
		if !math.IsInf(v, 0) && !math.IsNaN(v) && math.Abs(v) > maxFloat32 {
			return notRepresentable(v, t)
		}
		err = data.AppendFloat32(float32(v))
	case t == schema.TypeHalfFloat:
		if !math.IsInf(v, 0) && !math.IsNaN(v) && math.Abs(v) > maxHalf {
			return notRepresentable(v, t)
		}
		err = data.AppendUint16(memory.FloatToHalf(float32(v)))
	case t.IsSignedInteger():
		if v != math.Trunc(v) || v < -twoTo63 || v >= twoTo63 {
			return notRepresentable(v, t)
		}
		return a.AppendInt(int64(v))
	case t.IsUnsignedInteger():
		if v != math.Trunc(v) || v < 0 || v >= twoTo64 {
			return notRepresentable(v, t)
		}
		return a.AppendUint(uint64(v))
	default:
		return invalidArg("cannot append a double to a %s array", t)
	}
	if err != nil {
		return err
	}
	return a.finishValue()
}

// AppendBytes appends one binary or string value. Fixed-size binary arrays
// require len(v) to equal the element size.
func (a *Array) AppendBytes(v []byte) error {
	p, err := a.state()
	if err != nil {
		return err
	}

	switch t := p.storageType; t {
	case schema.TypeBinaryView, schema.TypeStringView:
		if int64(len(v)) > math.MaxInt32 {
			return overflowf("value of %d bytes is too large for a %s array", len(v), t)
		}
		err = a.appendBinaryView(v)

	case schema.TypeString, schema.TypeBinary:
		offsets, values := &p.buffers[1], &p.buffers[2]
		if offsets.Len() < 4 {
			return invalidArg("%s array is not ready for appending; call StartAppending first", t)
		}
		last := int64(int32(binary.NativeEndian.Uint32(offsets.Bytes()[offsets.Len()-4:])))
		next := last + int64(len(v))
		if next > maxInt32I64 {
			return overflowf("%s array data would exceed %d bytes; use a large type", t, math.MaxInt32)
		}
		before := values.Len()
		if err := values.Append(v); err != nil {
			return err
		}
		if err := offsets.AppendInt32(int32(next)); err != nil {
			values.SetLenUnsafe(before)
			return err
		}

	case schema.TypeLargeString, schema.TypeLargeBinary:
		offsets, values := &p.buffers[1], &p.buffers[2]
		if offsets.Len() < 8 {
			return invalidArg("%s array is not ready for appending; call StartAppending first", t)
		}
		last := int64(binary.NativeEndian.Uint64(offsets.Bytes()[offsets.Len()-8:]))
		before := values.Len()
		if err := values.Append(v); err != nil {
			return err
		}
		if err := offsets.AppendInt64(last + int64(len(v))); err != nil {
			values.SetLenUnsafe(before)
			return err
		}

	case schema.TypeFixedSizeBinary:
		if size := p.layout.ElementSizeBits[1] / 8; int64(len(v)) != size {
			return invalidArg("expected value of %d bytes for a fixed_size_binary(%d) array but found %d bytes", size, size, len(v))
		}
		err = p.buffers[1].Append(v)

	default:
		return invalidArg("cannot append bytes to a %s array", t)
	}
	if err != nil {
		return err
	}
	return a.finishValue()
}

// AppendString appends one string value.
func (a *Array) AppendString(v string) error {
	if _, err := a.state(); err != nil {
		return err
	}
	switch t := a.priv.storageType; t {
	case schema.TypeString, schema.TypeLargeString, schema.TypeStringView,
		schema.TypeBinary, schema.TypeLargeBinary, schema.TypeBinaryView:
	default:
		return invalidArg("cannot append a string to a %s array", t)
	}
	return a.AppendBytes(stringpool.StringToBytes(v))
}

// appendBinaryView writes the 16-byte view of v. Values longer than the
// inline size go to the last variadic buffer, or to a new one when the
// last one cannot hold them within its block size.
func (a *Array) appendBinaryView(v []byte) error {
	p := a.priv
	var view [binaryViewSize]byte
	binary.NativeEndian.PutUint32(view[0:4], uint32(len(v)))

	if len(v) <= binaryViewInlineSize {
		copy(view[4:], v)
		return p.buffers[1].Append(view[:])
	}

	n := len(p.variadic)
	if n == 0 || p.variadic[n-1].Len()+int64(len(v)) > binaryViewBlockSize {
		if err := a.AddVariadicBuffers(1); err != nil {
			return err
		}
		n++
	}
	block := &p.variadic[n-1]
	offset := block.Len()
	if offset > math.MaxInt32 {
		return overflowf("binary view buffer offset %d exceeds int32", offset)
	}
	if err := block.Append(v); err != nil {
		return err
	}
	sizes := p.variadicSizes.Bytes()
	binary.NativeEndian.PutUint64(sizes[(n-1)*8:], uint64(block.Len()))

	copy(view[4:4+binaryViewPrefixSize], v)
	binary.NativeEndian.PutUint32(view[8:12], uint32(n-1))
	binary.NativeEndian.PutUint32(view[12:16], uint32(offset))
	return p.buffers[1].Append(view[:])
}

// AppendInterval appends v to an interval array of the same interval type.
func (a *Array) AppendInterval(v Interval) error {
	p, err := a.state()
	if err != nil {
		return err
	}
	t := p.storageType
	if v.Type != t {
		return invalidArg("cannot append a %s interval to a %s array", v.Type, t)
	}

	data := &p.buffers[1]
	switch t {
	case schema.TypeIntervalMonths:
		err = data.AppendInt32(v.Months)
	case schema.TypeIntervalDayTime:
		if err = data.Reserve(8); err == nil {
			_ = data.AppendInt32(v.Days)
			_ = data.AppendInt32(v.Millis)
		}
	case schema.TypeIntervalMonthDayNano:
		if err = data.Reserve(16); err == nil {
			_ = data.AppendInt32(v.Months)
			_ = data.AppendInt32(v.Days)
			_ = data.AppendInt64(v.Nanos)
		}
	default:
		return invalidArg("cannot append an interval to a %s array", t)
	}
	if err != nil {
		return err
	}
	return a.finishValue()
}

// AppendDecimal appends d. Its bit width must match the storage type.
func (a *Array) AppendDecimal(d *Decimal) error {
	p, err := a.state()
	if err != nil {
		return err
	}
	t := p.storageType
	if !t.IsDecimal() {
		return invalidArg("cannot append a decimal to a %s array", t)
	}
	if d.BitWidth != t.DecimalBitWidth() {
		return invalidArg("cannot append a %d-bit decimal to a %s array", d.BitWidth, t)
	}
	if err := p.buffers[1].Append(d.Bytes()); err != nil {
		return err
	}
	return a.finishValue()
}

// FinishElement completes one element of a nested type after its children
// have been appended to: one list or map entry, or one struct row.
func (a *Array) FinishElement() error {
	p, err := a.state()
	if err != nil {
		return err
	}

	t := p.storageType
	switch t {
	case schema.TypeList, schema.TypeMap, schema.TypeLargeList, schema.TypeFixedSizeList,
		schema.TypeListView, schema.TypeLargeListView:
		if len(a.Children) != 1 {
			return invalidArg("%s array must have exactly one child", t)
		}
	}

	switch t {
	case schema.TypeList, schema.TypeMap:
		childLen := a.Children[0].Length
		if childLen > maxInt32I64 {
			return overflowf("%s child length %d exceeds int32; use a large list", t, childLen)
		}
		err = p.buffers[1].AppendInt32(int32(childLen))

	case schema.TypeLargeList:
		err = p.buffers[1].AppendInt64(a.Children[0].Length)

	case schema.TypeFixedSizeList:
		want := (a.Length + 1) * p.layout.ChildSizeElements
		if got := a.Children[0].Length; got != want {
			return invalidArg("Expected child of fixed_size_list array to have length %d but found array with length %d", want, got)
		}

	case schema.TypeListView:
		childLen := a.Children[0].Length
		if childLen > maxInt32I64 {
			return overflowf("%s child length %d exceeds int32; use a large list view", t, childLen)
		}
		if err = p.buffers[1].AppendInt32(int32(p.listViewOffset)); err == nil {
			err = p.buffers[2].AppendInt32(int32(childLen - p.listViewOffset))
		}
		if err == nil {
			p.listViewOffset = childLen
		}

	case schema.TypeLargeListView:
		childLen := a.Children[0].Length
		if err = p.buffers[1].AppendInt64(p.listViewOffset); err == nil {
			err = p.buffers[2].AppendInt64(childLen - p.listViewOffset)
		}
		if err == nil {
			p.listViewOffset = childLen
		}

	case schema.TypeStruct:
		for i, child := range a.Children {
			if child.Length != a.Length+1 {
				return invalidArg("Expected length of struct child %d to be %d but found %d", i, a.Length+1, child.Length)
			}
		}

	default:
		return invalidArg("cannot finish an element of a %s array", t)
	}
	if err != nil {
		return err
	}
	return a.finishValue()
}

// FinishUnionElement completes one union element whose value was appended to
// the child with the given type id. Sparse unions get an empty element in
// every other child.
func (a *Array) FinishUnionElement(typeID int8) error {
	p, err := a.state()
	if err != nil {
		return err
	}
	t := p.storageType
	if !t.IsUnion() {
		return invalidArg("cannot finish a union element of a %s array", t)
	}

	childIndex := a.unionChildIndex(typeID)
	if typeID < 0 || childIndex < 0 || childIndex >= len(a.Children) {
		return invalidArg("union type id %d does not identify a child", typeID)
	}

	if t == schema.TypeDenseUnion {
		childLen := a.Children[childIndex].Length
		if childLen < 1 {
			return invalidArg("union child %d has no element to reference", childIndex)
		}
		if childLen-1 > maxInt32I64 {
			return overflowf("dense union child offset %d exceeds int32", childLen-1)
		}
		if err := p.buffers[1].AppendInt32(int32(childLen - 1)); err != nil {
			return err
		}
	} else {
		for i, child := range a.Children {
			if i == childIndex || child.Length == a.Length+1 {
				continue
			}
			if child.Length != a.Length {
				return invalidArg("Expected length of sparse union child %d to be %d but found %d", i, a.Length, child.Length)
			}
			if err := child.AppendEmpty(1); err != nil {
				return err
			}
		}
	}

	if err := p.buffers[0].AppendInt8(typeID); err != nil {
		return err
	}
	a.Length++
	return nil
}

// Reserve grows the buffers of a and its descendants so that additional
// more elements can be appended without reallocating the buffers whose size
// follows from the length.
func (a *Array) Reserve(additional int64) error {
	if _, err := a.state(); err != nil {
		return err
	}
	if additional < 0 {
		return invalidArg("cannot reserve %d elements", additional)
	}
	return a.reserve(a.Length + additional)
}

func (a *Array) reserve(length int64) error {
	p := a.priv
	sizes := fixedBufferSizes(p.layout, length)
	for i := 0; i < p.layout.NumBuffers(); i++ {
		if sizes[i] < 0 {
			continue
		}
		if p.layout.BufferType[i] == schema.BufferTypeValidity {
			if p.validity.Buffer.Data() == nil {
				continue
			}
			if grow := length - p.validity.Len(); grow > 0 {
				if err := p.validity.Reserve(grow); err != nil {
					return err
				}
			}
			continue
		}
		buf := a.Buffer(i)
		if grow := sizes[i] - buf.Len(); grow > 0 {
			if err := buf.Reserve(grow); err != nil {
				return err
			}
		}
	}

	switch p.storageType {
	case schema.TypeStruct, schema.TypeSparseUnion:
		for _, child := range a.Children {
			if err := child.reserve(length); err != nil {
				return err
			}
		}
	case schema.TypeFixedSizeList:
		if len(a.Children) == 1 {
			return a.Children[0].reserve(length * p.layout.ChildSizeElements)
		}
	}
	return nil
}
