package schema

// BufferType is the role a buffer plays in an array.
type BufferType int

const (
	BufferTypeNone BufferType = iota
	BufferTypeValidity
	BufferTypeTypeID
	BufferTypeUnionOffset
	BufferTypeDataOffset
	BufferTypeData
	BufferTypeVariadicData
	BufferTypeVariadicSize
	BufferTypeViewOffset
	BufferTypeSize
)

var bufferTypeNames = [...]string{
	BufferTypeNone:         "none",
	BufferTypeValidity:     "validity",
	BufferTypeTypeID:       "type_id",
	BufferTypeUnionOffset:  "union_offset",
	BufferTypeDataOffset:   "data_offset",
	BufferTypeData:         "data",
	BufferTypeVariadicData: "variadic_data",
	BufferTypeVariadicSize: "variadic_size",
	BufferTypeViewOffset:   "view_offset",
	BufferTypeSize:         "size",
}

func (b BufferType) String() string {
	if b < 0 || int(b) >= len(bufferTypeNames) {
		return "unknown"
	}
	return bufferTypeNames[b]
}

// MaxFixedBuffers is the number of buffers whose role is fixed by the type.
const MaxFixedBuffers = 3

// Layout describes the fixed buffers of a storage type.
type Layout struct {
	BufferType      [MaxFixedBuffers]BufferType
	BufferDataType  [MaxFixedBuffers]Type
	ElementSizeBits [MaxFixedBuffers]int64
	// ChildSizeElements is the number of child elements per parent element
	// for fixed-size lists.
	ChildSizeElements int64
}

// NumBuffers returns the number of leading buffers that are not BufferTypeNone.
func (l Layout) NumBuffers() int {
	n := 0
	for n < MaxFixedBuffers && l.BufferType[n] != BufferTypeNone {
		n++
	}
	return n
}

// NewLayout computes the layout of a storage type. fixedSize is the byte
// width of a fixed-size binary or the list size of a fixed-size list and is
// ignored otherwise.
func NewLayout(storage Type, fixedSize int64) Layout {
	l := Layout{
		BufferType:      [MaxFixedBuffers]BufferType{BufferTypeValidity, BufferTypeData, BufferTypeNone},
		BufferDataType:  [MaxFixedBuffers]Type{TypeBool, storage, TypeUninitialized},
		ElementSizeBits: [MaxFixedBuffers]int64{1, 0, 0},
	}

	switch storage {
	case TypeUninitialized, TypeNA, TypeRunEndEncoded:
		l.BufferType[0] = BufferTypeNone
		l.BufferDataType[0] = TypeUninitialized
		l.ElementSizeBits[0] = 0
		l.BufferType[1] = BufferTypeNone
		l.BufferDataType[1] = TypeUninitialized

	case TypeList, TypeMap:
		l.BufferType[1] = BufferTypeDataOffset
		l.BufferDataType[1] = TypeInt32
		l.ElementSizeBits[1] = 32

	case TypeLargeList:
		l.BufferType[1] = BufferTypeDataOffset
		l.BufferDataType[1] = TypeInt64
		l.ElementSizeBits[1] = 64

	case TypeListView:
		l.BufferType[1] = BufferTypeViewOffset
		l.BufferDataType[1] = TypeInt32
		l.ElementSizeBits[1] = 32
		l.BufferType[2] = BufferTypeSize
		l.BufferDataType[2] = TypeInt32
		l.ElementSizeBits[2] = 32

	case TypeLargeListView:
		l.BufferType[1] = BufferTypeViewOffset
		l.BufferDataType[1] = TypeInt64
		l.ElementSizeBits[1] = 64
		l.BufferType[2] = BufferTypeSize
		l.BufferDataType[2] = TypeInt64
		l.ElementSizeBits[2] = 64

	case TypeStruct, TypeFixedSizeList:
		l.BufferType[1] = BufferTypeNone
		l.BufferDataType[1] = TypeUninitialized
		if storage == TypeFixedSizeList {
			l.ChildSizeElements = fixedSize
		}

	case TypeBool:
		l.ElementSizeBits[1] = 1

	case TypeUint8, TypeInt8:
		l.ElementSizeBits[1] = 8

	case TypeUint16, TypeInt16, TypeHalfFloat:
		l.ElementSizeBits[1] = 16

	case TypeUint32, TypeInt32, TypeFloat, TypeDecimal32, TypeIntervalMonths:
		l.ElementSizeBits[1] = 32

	case TypeUint64, TypeInt64, TypeDouble, TypeDecimal64, TypeIntervalDayTime:
		l.ElementSizeBits[1] = 64

	case TypeDecimal128, TypeIntervalMonthDayNano:
		l.ElementSizeBits[1] = 128

	case TypeDecimal256:
		l.ElementSizeBits[1] = 256

	case TypeFixedSizeBinary:
		l.BufferDataType[1] = TypeBinary
		l.ElementSizeBits[1] = fixedSize * 8

	case TypeDenseUnion:
		l.BufferType[0] = BufferTypeTypeID
		l.BufferDataType[0] = TypeInt8
		l.ElementSizeBits[0] = 8
		l.BufferType[1] = BufferTypeUnionOffset
		l.BufferDataType[1] = TypeInt32
		l.ElementSizeBits[1] = 32

	case TypeSparseUnion:
		l.BufferType[0] = BufferTypeTypeID
		l.BufferDataType[0] = TypeInt8
		l.ElementSizeBits[0] = 8
		l.BufferType[1] = BufferTypeNone
		l.BufferDataType[1] = TypeUninitialized

	case TypeString, TypeBinary:
		l.BufferType[1] = BufferTypeDataOffset
		l.BufferDataType[1] = TypeInt32
		l.ElementSizeBits[1] = 32
		l.BufferType[2] = BufferTypeData
		l.BufferDataType[2] = storage

	case TypeLargeString:
		l.BufferType[1] = BufferTypeDataOffset
		l.BufferDataType[1] = TypeInt64
		l.ElementSizeBits[1] = 64
		l.BufferType[2] = BufferTypeData
		l.BufferDataType[2] = TypeString

	case TypeLargeBinary:
		l.BufferType[1] = BufferTypeDataOffset
		l.BufferDataType[1] = TypeInt64
		l.ElementSizeBits[1] = 64
		l.BufferType[2] = BufferTypeData
		l.BufferDataType[2] = TypeBinary

	case TypeBinaryView, TypeStringView:
		l.ElementSizeBits[1] = 128
	}

	return l
}
