package array

import (
	"encoding/binary"
	"math"

	"github.com/ajitpratap0/strata/pkg/bitmap"
	"github.com/ajitpratap0/strata/pkg/schema"
)

// Validate checks v at the given level. Each level includes the checks of
// the levels below it.
func (v *View) Validate(level ValidationLevel) error {
	switch level {
	case ValidationNone:
		return nil
	case ValidationMinimal:
		return v.validateMinimal()
	case ValidationDefault:
		return v.validateDefault()
	case ValidationFull:
		if err := v.validateDefault(); err != nil {
			return err
		}
		return v.validateFull()
	}
	return invalidArg("unknown validation level %d", int(level))
}

func (v *View) validateMinimal() error {
	if v.Length < 0 {
		return validationf("Expected length >= 0 but found length %d", v.Length)
	}
	if v.Offset < 0 {
		return validationf("Expected offset >= 0 but found offset %d", v.Offset)
	}
	if v.Offset > math.MaxInt64-v.Length {
		return validationf("Offset + length of %s array overflows int64", v.StorageType)
	}
	end := v.Offset + v.Length

	sizes := fixedBufferSizes(v.Layout, end)
	for i := 0; i < v.Layout.NumBuffers(); i++ {
		got := int64(len(v.buffers[i]))
		if v.Layout.BufferType[i] == schema.BufferTypeValidity && got == 0 && v.NullCount <= 0 {
			continue
		}
		if sizes[i] < 0 {
			continue
		}
		if got < sizes[i] {
			return validationf("Expected %s array buffer %d to have size >= %d bytes but found buffer with %d bytes",
				v.StorageType, i, sizes[i], got)
		}
	}

	switch v.StorageType {
	case schema.TypeList, schema.TypeLargeList, schema.TypeListView, schema.TypeLargeListView,
		schema.TypeFixedSizeList, schema.TypeMap:
		if len(v.Children) != 1 {
			return validationf("Expected 1 child of %s array but found %d child arrays", v.StorageType, len(v.Children))
		}
	case schema.TypeRunEndEncoded:
		if len(v.Children) != 2 {
			return validationf("Expected 2 children for %s array but found %d child arrays", v.StorageType, len(v.Children))
		}
	}

	switch v.StorageType {
	case schema.TypeStruct, schema.TypeSparseUnion:
		for i, child := range v.Children {
			if child.Length < end {
				return validationf("Expected %s child %d to have length >= %d but found child with length %d",
					v.StorageType, i+1, end, child.Length)
			}
		}

	case schema.TypeFixedSizeList:
		want := end * v.Layout.ChildSizeElements
		if got := v.Children[0].Length; got < want {
			return validationf("Expected child of fixed_size_list array to have length >= %d but found array with length %d",
				want, got)
		}

	case schema.TypeRunEndEncoded:
		if err := v.validateRunEndsMinimal(end); err != nil {
			return err
		}
	}

	for _, child := range v.Children {
		if err := child.validateMinimal(); err != nil {
			return err
		}
	}
	if v.Dictionary != nil {
		return v.Dictionary.validateMinimal()
	}
	return nil
}

func (v *View) validateRunEndsMinimal(end int64) error {
	runEnds, values := v.Children[0], v.Children[1]
	var maxEnd int64
	switch runEnds.StorageType {
	case schema.TypeInt16:
		maxEnd = math.MaxInt16
	case schema.TypeInt32:
		maxEnd = math.MaxInt32
	case schema.TypeInt64:
		maxEnd = math.MaxInt64
	default:
		return validationf("Expected run_ends child of run-end encoded array to be int16, int32 or int64 but found %s",
			runEnds.StorageType)
	}
	if end > maxEnd {
		return validationf("Offset + length of a run-end encoded array must fit in a value of the run end type %s but is %d",
			runEnds.StorageType, end)
	}
	if runEnds.Length > values.Length {
		return validationf("Length of run_ends is greater than the length of values: %d > %d",
			runEnds.Length, values.Length)
	}
	if runEnds.Length == 0 && values.Length != 0 {
		return validationf("Run-end encoded array has zero-length run_ends but non-zero values")
	}
	if runEnds.NullCount > 0 {
		return validationf("Null count must be 0 for run ends array, but is %d", runEnds.NullCount)
	}
	if runEnds.Length == 0 && v.Length != 0 {
		return validationf("Run-end encoded array has zero-length run_ends but non-zero length %d", v.Length)
	}
	return nil
}

// offsetAt reads element i of the offset buffer in slot 1.
func (v *View) offsetAt(i int64) int64 {
	b := v.buffers[1]
	if v.Layout.ElementSizeBits[1] == 64 {
		return int64(binary.NativeEndian.Uint64(b[i*8:]))
	}
	return int64(int32(binary.NativeEndian.Uint32(b[i*4:])))
}

func (v *View) validateDefault() error {
	if err := v.validateMinimal(); err != nil {
		return err
	}
	end := v.Offset + v.Length

	switch v.StorageType {
	case schema.TypeString, schema.TypeBinary, schema.TypeLargeString, schema.TypeLargeBinary,
		schema.TypeList, schema.TypeMap, schema.TypeLargeList:
		if v.Length == 0 {
			break
		}
		first, last := v.offsetAt(v.Offset), v.offsetAt(end)
		if first < 0 {
			return validationf("Expected first offset >= 0 but found %d", first)
		}
		if last < first {
			return validationf("Expected last offset >= first offset but found %d < %d", last, first)
		}
		switch v.StorageType {
		case schema.TypeList, schema.TypeMap, schema.TypeLargeList:
			if got := v.Children[0].Length; got < last {
				return validationf("Expected child of %s array to have length >= %d but found array with length %d",
					v.StorageType, last, got)
			}
		default:
			if got := int64(len(v.buffers[2])); got < last {
				return validationf("Expected %s array buffer 2 to have size >= %d bytes but found buffer with %d bytes",
					v.StorageType, last, got)
			}
		}

	case schema.TypeRunEndEncoded:
		runEnds := v.Children[0]
		if runEnds.Length == 0 {
			break
		}
		first := runEnds.intAt(runEnds.Offset)
		if first < 1 {
			return validationf("All run ends must be greater than 0 but the first run end is %d", first)
		}
		last := runEnds.intAt(runEnds.Offset + runEnds.Length - 1)
		if last < end {
			return validationf("Last run end is %d but it should be >= %d", last, end)
		}

	case schema.TypeBinaryView, schema.TypeStringView:
		want := int64(8 * len(v.variadic))
		if got := int64(len(v.variadicSizes)); got < want {
			return validationf("Expected variadic buffer sizes of %s array to have size >= %d bytes but found %d bytes",
				v.StorageType, want, got)
		}
	}

	for _, child := range v.Children {
		if err := child.validateDefault(); err != nil {
			return err
		}
	}
	if v.Dictionary != nil {
		return v.Dictionary.validateDefault()
	}
	return nil
}

func (v *View) validateFull() error {
	end := v.Offset + v.Length

	switch v.StorageType {
	case schema.TypeString, schema.TypeBinary, schema.TypeLargeString, schema.TypeLargeBinary,
		schema.TypeList, schema.TypeMap, schema.TypeLargeList:
		if v.Length == 0 {
			break
		}
		prev := v.offsetAt(v.Offset)
		for i := v.Offset + 1; i <= end; i++ {
			next := v.offsetAt(i)
			if next < prev {
				return validationf("[%d] Expected element size >= 0 but found element size %d", i-v.Offset-1, next-prev)
			}
			prev = next
		}

	case schema.TypeListView, schema.TypeLargeListView:
		childLen := v.Children[0].Length
		for i := v.Offset; i < end; i++ {
			offset, size := v.listViewAt(i)
			if offset < 0 || size < 0 || offset+size > childLen {
				return validationf("[%d] Expected list view offset %d and size %d to be within a child of length %d",
					i-v.Offset, offset, size, childLen)
			}
		}

	case schema.TypeSparseUnion, schema.TypeDenseUnion:
		if err := v.validateUnionFull(end); err != nil {
			return err
		}

	case schema.TypeRunEndEncoded:
		runEnds := v.Children[0]
		prev := int64(0)
		for i := runEnds.Offset; i < runEnds.Offset+runEnds.Length; i++ {
			next := runEnds.intAt(i)
			if next <= prev {
				return validationf("Expected run ends to be strictly increasing but found %d after %d at index %d",
					next, prev, i-runEnds.Offset)
			}
			prev = next
		}

	case schema.TypeBinaryView, schema.TypeStringView:
		for i := v.Offset; i < end; i++ {
			view := v.buffers[1][i*binaryViewSize : (i+1)*binaryViewSize]
			size := int64(int32(binary.NativeEndian.Uint32(view[0:4])))
			if size < 0 {
				return validationf("[%d] Expected binary view size >= 0 but found %d", i-v.Offset, size)
			}
			if size <= binaryViewInlineSize {
				continue
			}
			index := int64(int32(binary.NativeEndian.Uint32(view[8:12])))
			offset := int64(int32(binary.NativeEndian.Uint32(view[12:16])))
			if index < 0 || index >= int64(len(v.variadic)) {
				return validationf("[%d] Expected binary view buffer index in [0, %d) but found %d",
					i-v.Offset, len(v.variadic), index)
			}
			if offset < 0 || offset+size > int64(len(v.variadic[index])) {
				return validationf("[%d] Expected binary view range [%d, %d) to be within variadic buffer %d of %d bytes",
					i-v.Offset, offset, offset+size, index, len(v.variadic[index]))
			}
		}
	}

	if v.Dictionary != nil {
		dictLen := v.Dictionary.Length
		for i := int64(0); i < v.Length; i++ {
			if v.IsNull(i) {
				continue
			}
			index := v.IntUnsafe(i)
			if index < 0 || index >= dictLen {
				return validationf("[%d] Expected dictionary index in [0, %d) but found %d", i, dictLen, index)
			}
		}
	}

	for _, child := range v.Children {
		if err := child.validateFull(); err != nil {
			return err
		}
	}
	if v.Dictionary != nil {
		return v.Dictionary.validateFull()
	}
	return nil
}

func (v *View) validateUnionFull(end int64) error {
	typeIDs := v.buffers[0]
	for i := v.Offset; i < end; i++ {
		id := int8(typeIDs[i])
		child := v.unionChildIndex(id)
		if id < 0 || child < 0 || child >= len(v.Children) {
			return validationf("[%d] Expected union type id to identify one of %d children but found %d",
				i-v.Offset, len(v.Children), id)
		}
		if v.StorageType != schema.TypeDenseUnion {
			continue
		}
		offset := int64(int32(binary.NativeEndian.Uint32(v.buffers[1][i*4:])))
		if childLen := v.Children[child].Length; offset < 0 || offset >= childLen {
			return validationf("[%d] Expected union offset for child id %d to be in [0, %d) but found %d",
				i-v.Offset, id, childLen, offset)
		}
	}
	return nil
}

func (v *View) unionChildIndex(typeID int8) int {
	if v.UnionTypeIDMap == nil || typeID < 0 {
		return int(typeID)
	}
	return int(v.UnionTypeIDMap[typeID])
}

// listViewAt reads the offset and size of list view element i, where i
// already includes the view offset.
func (v *View) listViewAt(i int64) (offset, size int64) {
	if v.Layout.ElementSizeBits[1] == 64 {
		return int64(binary.NativeEndian.Uint64(v.buffers[1][i*8:])),
			int64(binary.NativeEndian.Uint64(v.buffers[2][i*8:]))
	}
	return int64(int32(binary.NativeEndian.Uint32(v.buffers[1][i*4:]))),
		int64(int32(binary.NativeEndian.Uint32(v.buffers[2][i*4:])))
}

// intAt reads integer element i, where i already includes the view offset.
func (v *View) intAt(i int64) int64 {
	b := v.buffers[1]
	switch v.StorageType {
	case schema.TypeInt8:
		return int64(int8(b[i]))
	case schema.TypeUint8:
		return int64(b[i])
	case schema.TypeInt16:
		return int64(int16(binary.NativeEndian.Uint16(b[i*2:])))
	case schema.TypeUint16:
		return int64(binary.NativeEndian.Uint16(b[i*2:]))
	case schema.TypeInt32:
		return int64(int32(binary.NativeEndian.Uint32(b[i*4:])))
	case schema.TypeUint32:
		return int64(binary.NativeEndian.Uint32(b[i*4:]))
	case schema.TypeInt64, schema.TypeUint64:
		return int64(binary.NativeEndian.Uint64(b[i*8:]))
	case schema.TypeBool:
		if bitmap.Get(b, i) {
			return 1
		}
		return 0
	}
	return math.MaxInt64
}
