package array

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/memory"
	"github.com/ajitpratap0/strata/pkg/schema"
)

func newAppending(t *testing.T, typ schema.Type) *Array {
	t.Helper()
	a, err := New(typ)
	require.NoError(t, err)
	require.NoError(t, a.StartAppending())
	t.Cleanup(a.Release)
	return a
}

func newAppendingFromFormat(t *testing.T, format string, childFormats ...string) *Array {
	t.Helper()
	s := &schema.Schema{}
	s.Init()
	defer s.Release()
	s.SetFormat(format)
	if len(childFormats) > 0 {
		require.NoError(t, s.AllocateChildren(len(childFormats)))
		for i, f := range childFormats {
			s.Children[i].Init()
			s.Children[i].SetFormat(f)
		}
	}

	a, err := NewFromSchema(s)
	require.NoError(t, err)
	require.NoError(t, a.StartAppending())
	t.Cleanup(a.Release)
	return a
}

func viewOf(t *testing.T, a *Array) *View {
	t.Helper()
	var v View
	require.NoError(t, v.initFromArray(a))
	require.NoError(t, v.SetArray(a))
	return &v
}

func TestZeroValueIsReleased(t *testing.T) {
	var a Array
	assert.True(t, a.IsReleased())
	a.Release()

	var nilArray *Array
	assert.True(t, nilArray.IsReleased())

	err := a.AppendInt(1)
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestInitFromTypeRejectsParameterizedTypes(t *testing.T) {
	for _, typ := range []schema.Type{schema.TypeDictionary, schema.TypeExtension, schema.Type(999)} {
		_, err := New(typ)
		assert.Error(t, err, typ.String())
	}
}

func TestReleaseAndMove(t *testing.T) {
	a, err := New(schema.TypeStruct)
	require.NoError(t, err)
	require.NoError(t, a.AllocateChildren(1))
	require.NoError(t, a.Children[0].InitFromType(schema.TypeInt32))
	child := a.Children[0]

	var dst Array
	a.Move(&dst)
	assert.True(t, a.IsReleased())
	assert.False(t, dst.IsReleased())
	assert.Equal(t, schema.TypeStruct, dst.StorageType())

	dst.Release()
	assert.True(t, dst.IsReleased())
	assert.True(t, child.IsReleased(), "release is recursive")
	dst.Release()
}

func TestAllocateTwiceFails(t *testing.T) {
	a, err := New(schema.TypeStruct)
	require.NoError(t, err)
	defer a.Release()
	require.NoError(t, a.AllocateChildren(2))
	assert.Error(t, a.AllocateChildren(2))
	require.NoError(t, a.AllocateDictionary())
	assert.Error(t, a.AllocateDictionary())
}

func TestStartAppendingUninitialized(t *testing.T) {
	a, err := New(schema.TypeUninitialized)
	require.NoError(t, err)
	defer a.Release()
	assert.True(t, errors.IsInvalidArgument(a.StartAppending()))
}

func TestAppendIntWithNulls(t *testing.T) {
	a := newAppending(t, schema.TypeInt32)
	require.NoError(t, a.AppendInt(1))
	require.NoError(t, a.AppendNull(2))
	require.NoError(t, a.AppendInt(4))
	require.NoError(t, a.FinishBuilding(ValidationFull))

	assert.Equal(t, int64(4), a.Length)
	assert.Equal(t, int64(2), a.NullCount)
	require.Len(t, a.Buffers, 2)
	assert.Equal(t, []byte{0b1001}, a.Buffers[0])

	v := viewOf(t, a)
	assert.False(t, v.IsNull(0))
	assert.True(t, v.IsNull(1))
	assert.True(t, v.IsNull(2))
	assert.Equal(t, int64(1), v.IntUnsafe(0))
	assert.Equal(t, int64(4), v.IntUnsafe(3))
	assert.Equal(t, 4.0, v.DoubleUnsafe(3))

	ok, msg, err := Compare(v, v, CompareEquivalent)
	require.NoError(t, err)
	assert.True(t, ok, msg)
}

func TestAppendIntNotRepresentable(t *testing.T) {
	tests := []struct {
		name  string
		typ   schema.Type
		value int64
	}{
		{"int8 high", schema.TypeInt8, 300},
		{"int8 low", schema.TypeInt8, -129},
		{"int16", schema.TypeInt16, math.MaxInt16 + 1},
		{"int32", schema.TypeInt32, math.MinInt32 - 1},
		{"uint8 negative", schema.TypeUint8, -1},
		{"uint8 high", schema.TypeUint8, 256},
		{"uint64 negative", schema.TypeUint64, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAppending(t, tt.typ)
			err := a.AppendInt(tt.value)
			require.Error(t, err)
			assert.True(t, errors.IsNotRepresentable(err))
			assert.Equal(t, int64(0), a.Length)
			assert.Equal(t, int64(0), a.Buffer(1).Len())
		})
	}
}

func TestAppendUint(t *testing.T) {
	a := newAppending(t, schema.TypeUint64)
	require.NoError(t, a.AppendUint(math.MaxUint64))
	require.NoError(t, a.FinishBuildingDefault())
	v := viewOf(t, a)
	assert.Equal(t, uint64(math.MaxUint64), v.UintUnsafe(0))

	signed := newAppending(t, schema.TypeInt64)
	assert.True(t, errors.IsNotRepresentable(signed.AppendUint(math.MaxUint64)))
	require.NoError(t, signed.AppendUint(7))
	assert.Equal(t, int64(1), signed.Length)
}

func TestAppendDouble(t *testing.T) {
	t.Run("float rounds", func(t *testing.T) {
		a := newAppending(t, schema.TypeFloat)
		require.NoError(t, a.AppendDouble(0.1))
		require.NoError(t, a.AppendDouble(math.Inf(1)))
		assert.True(t, errors.IsNotRepresentable(a.AppendDouble(1e300)))
		require.NoError(t, a.FinishBuildingDefault())
		v := viewOf(t, a)
		assert.InDelta(t, 0.1, v.DoubleUnsafe(0), 1e-7)
		assert.True(t, math.IsInf(v.DoubleUnsafe(1), 1))
	})

	t.Run("half float", func(t *testing.T) {
		a := newAppending(t, schema.TypeHalfFloat)
		require.NoError(t, a.AppendDouble(1.5))
		assert.True(t, errors.IsNotRepresentable(a.AppendDouble(70000)))
		require.NoError(t, a.FinishBuildingDefault())
		assert.Equal(t, 1.5, viewOf(t, a).DoubleUnsafe(0))
	})

	t.Run("integer storage requires whole numbers", func(t *testing.T) {
		a := newAppending(t, schema.TypeInt16)
		require.NoError(t, a.AppendDouble(12))
		assert.True(t, errors.IsNotRepresentable(a.AppendDouble(1.5)))
		assert.True(t, errors.IsNotRepresentable(a.AppendDouble(1e6)))
		assert.Equal(t, int64(1), a.Length)
	})

	t.Run("strings reject doubles", func(t *testing.T) {
		a := newAppending(t, schema.TypeString)
		assert.True(t, errors.IsInvalidArgument(a.AppendDouble(1)))
	})
}

func TestAppendBool(t *testing.T) {
	a := newAppending(t, schema.TypeBool)
	for _, v := range []int64{1, 0, 1, 1, 0, 0, 0, 0, 1} {
		require.NoError(t, a.AppendInt(v))
	}
	require.NoError(t, a.AppendEmpty(1))
	require.NoError(t, a.FinishBuildingDefault())
	assert.Equal(t, []byte{0b00001101, 0b00000001}, a.Buffers[1])
	assert.Nil(t, a.Buffers[0], "no validity bitmap without nulls")

	v := viewOf(t, a)
	assert.Equal(t, int64(1), v.IntUnsafe(8))
	assert.Equal(t, int64(0), v.IntUnsafe(9))
}

func TestAppendStrings(t *testing.T) {
	for _, typ := range []schema.Type{schema.TypeString, schema.TypeLargeString, schema.TypeStringView} {
		t.Run(typ.String(), func(t *testing.T) {
			a := newAppending(t, typ)
			long := "a value long enough to leave the inline view"
			require.NoError(t, a.AppendString("abc"))
			require.NoError(t, a.AppendNull(1))
			require.NoError(t, a.AppendString(""))
			require.NoError(t, a.AppendString(long))
			require.NoError(t, a.FinishBuilding(ValidationFull))

			v := viewOf(t, a)
			assert.Equal(t, int64(4), v.Length)
			assert.Equal(t, "abc", v.StringUnsafe(0))
			assert.True(t, v.IsNull(1))
			assert.Equal(t, "", v.StringUnsafe(2))
			assert.Equal(t, long, v.StringUnsafe(3))
		})
	}
}

func TestEmptyStringArrayHasDataBuffer(t *testing.T) {
	a := newAppending(t, schema.TypeString)
	require.NoError(t, a.FinishBuildingDefault())
	require.Len(t, a.Buffers, 3)
	assert.NotNil(t, a.Buffers[2])
	assert.Len(t, a.Buffers[2], 0)
}

func TestAppendStringBeforeStartAppending(t *testing.T) {
	a, err := New(schema.TypeString)
	require.NoError(t, err)
	defer a.Release()
	assert.True(t, errors.IsInvalidArgument(a.AppendString("x")))
	assert.True(t, errors.IsInvalidArgument(a.AppendEmpty(1)))
}

func TestBinaryViewVariadicBuffers(t *testing.T) {
	a := newAppending(t, schema.TypeBinaryView)
	big := make([]byte, binaryViewBlockSize-100)
	require.NoError(t, a.AppendBytes(big))
	require.NoError(t, a.AppendBytes([]byte("short")))
	require.NoError(t, a.AppendBytes(make([]byte, 200)))
	require.NoError(t, a.FinishBuilding(ValidationFull))

	// views, validity, two variadic buffers and the sizes
	require.Len(t, a.Buffers, 5)
	v := viewOf(t, a)
	assert.Equal(t, 5, v.NumBuffers())
	assert.Equal(t, schema.BufferTypeVariadicData, v.BufferType(2))
	assert.Equal(t, schema.BufferTypeVariadicSize, v.BufferType(4))
	assert.Equal(t, schema.TypeInt64, v.BufferDataType(4))
	assert.Equal(t, schema.TypeBinary, v.BufferDataType(3))
	assert.Equal(t, int64(64), v.BufferElementSizeBits(4))
	assert.Len(t, v.BytesUnsafe(0), len(big))
	assert.Equal(t, []byte("short"), v.BytesUnsafe(1))
	assert.Len(t, v.BytesUnsafe(2), 200)
}

func TestAppendFixedSizeBinary(t *testing.T) {
	a := newAppendingFromFormat(t, "w:3")
	require.NoError(t, a.AppendBytes([]byte("abc")))
	assert.True(t, errors.IsInvalidArgument(a.AppendBytes([]byte("ab"))))
	require.NoError(t, a.AppendNull(1))
	require.NoError(t, a.FinishBuilding(ValidationFull))
	assert.Equal(t, []byte("abc\x00\x00\x00"), a.Buffers[1])
	assert.Equal(t, "abc", viewOf(t, a).StringUnsafe(0))
}

func TestAppendInterval(t *testing.T) {
	tests := []Interval{
		{Type: schema.TypeIntervalMonths, Months: 5},
		{Type: schema.TypeIntervalDayTime, Days: 2, Millis: -30},
		{Type: schema.TypeIntervalMonthDayNano, Months: 1, Days: 2, Nanos: 3},
	}
	for _, iv := range tests {
		t.Run(iv.Type.String(), func(t *testing.T) {
			a := newAppending(t, iv.Type)
			require.NoError(t, a.AppendInterval(iv))
			require.NoError(t, a.FinishBuildingDefault())
			assert.Equal(t, iv, viewOf(t, a).IntervalUnsafe(0))
		})
	}

	a := newAppending(t, schema.TypeIntervalMonths)
	assert.True(t, errors.IsInvalidArgument(a.AppendInterval(Interval{Type: schema.TypeIntervalDayTime})))
}

func TestAppendDecimal(t *testing.T) {
	a := newAppendingFromFormat(t, "d:10,2")
	d, err := NewDecimal(128, 10, 2)
	require.NoError(t, err)
	require.NoError(t, d.SetString("-12.34"))
	require.NoError(t, a.AppendDecimal(d))
	require.NoError(t, a.AppendNull(1))

	narrow, err := NewDecimal(64, 10, 2)
	require.NoError(t, err)
	assert.True(t, errors.IsInvalidArgument(a.AppendDecimal(narrow)))
	require.NoError(t, a.FinishBuildingDefault())

	v := viewOf(t, a)
	out := Decimal{Precision: 10, Scale: 2}
	v.DecimalUnsafe(0, &out)
	assert.Equal(t, int32(128), out.BitWidth)
	assert.Equal(t, "-12.34", out.String())
}

func TestAppendList(t *testing.T) {
	a := newAppendingFromFormat(t, "+l", "i")
	child := a.Children[0]
	require.NoError(t, child.AppendInt(1))
	require.NoError(t, child.AppendInt(2))
	require.NoError(t, a.FinishElement())
	require.NoError(t, a.AppendNull(1))
	require.NoError(t, a.AppendEmpty(1))
	require.NoError(t, child.AppendInt(3))
	require.NoError(t, a.FinishElement())
	require.NoError(t, a.FinishBuilding(ValidationFull))

	v := viewOf(t, a)
	assert.Equal(t, int64(4), v.Length)
	assert.Equal(t, int64(1), v.ComputeNullCount())
	assert.Equal(t, int64(0), v.ListChildOffset(0))
	assert.Equal(t, int64(2), v.ListChildOffset(1))
	assert.Equal(t, int64(2), v.ListChildOffset(3))
	assert.Equal(t, int64(3), v.ListChildOffset(4))
}

func TestAppendListView(t *testing.T) {
	a := newAppendingFromFormat(t, "+vl", "i")
	child := a.Children[0]
	require.NoError(t, child.AppendInt(1))
	require.NoError(t, a.FinishElement())
	require.NoError(t, child.AppendInt(2))
	require.NoError(t, child.AppendInt(3))
	require.NoError(t, a.FinishElement())
	require.NoError(t, a.FinishBuilding(ValidationFull))

	v := viewOf(t, a)
	offset, size := v.listViewAt(1)
	assert.Equal(t, int64(1), offset)
	assert.Equal(t, int64(2), size)
}

func TestAppendFixedSizeList(t *testing.T) {
	a := newAppendingFromFormat(t, "+w:2", "i")
	child := a.Children[0]
	require.NoError(t, child.AppendInt(1))
	assert.True(t, errors.IsInvalidArgument(a.FinishElement()))
	require.NoError(t, child.AppendInt(2))
	require.NoError(t, a.FinishElement())
	require.NoError(t, a.AppendNull(1))
	require.NoError(t, a.FinishBuilding(ValidationFull))

	assert.Equal(t, int64(2), a.Length)
	assert.Equal(t, int64(4), child.Length)
}

func TestAppendStruct(t *testing.T) {
	a := newAppendingFromFormat(t, "+s", "i", "u")
	require.NoError(t, a.Children[0].AppendInt(1))
	assert.True(t, errors.IsInvalidArgument(a.FinishElement()), "second child is short")
	require.NoError(t, a.Children[1].AppendString("x"))
	require.NoError(t, a.FinishElement())
	require.NoError(t, a.AppendNull(1))
	require.NoError(t, a.FinishBuilding(ValidationFull))

	assert.Equal(t, int64(2), a.Length)
	for _, child := range a.Children {
		assert.Equal(t, int64(2), child.Length)
	}
}

func TestSparseUnionKeepsChildrenAligned(t *testing.T) {
	a := newAppendingFromFormat(t, "+us:0,1,2", "i", "i", "u")
	require.NoError(t, a.Children[1].AppendInt(42))
	require.NoError(t, a.FinishUnionElement(1))
	for _, child := range a.Children {
		assert.Equal(t, a.Length, child.Length)
	}

	require.NoError(t, a.Children[0].AppendInt(7))
	require.NoError(t, a.FinishUnionElement(0))
	for _, child := range a.Children {
		assert.Equal(t, a.Length, child.Length)
	}

	require.NoError(t, a.AppendNull(1))
	require.NoError(t, a.FinishBuilding(ValidationFull))

	v := viewOf(t, a)
	assert.Equal(t, int64(3), v.Length)
	assert.Equal(t, 1, v.UnionChildIndex(0))
	assert.Equal(t, int64(42), v.Children[1].IntUnsafe(v.UnionChildOffset(0)))
	assert.False(t, v.IsNull(2), "union elements are never null")
	assert.True(t, v.Children[0].IsNull(2))
	assert.Equal(t, int64(0), v.ComputeNullCount())
}

func TestDenseUnionWithTypeIDs(t *testing.T) {
	a := newAppendingFromFormat(t, "+ud:5,9", "i", "u")
	require.NoError(t, a.Children[1].AppendString("x"))
	require.NoError(t, a.FinishUnionElement(9))
	require.NoError(t, a.Children[0].AppendInt(3))
	require.NoError(t, a.FinishUnionElement(5))
	require.NoError(t, a.AppendNull(2))
	assert.True(t, errors.IsInvalidArgument(a.FinishUnionElement(1)))
	require.NoError(t, a.FinishBuilding(ValidationFull))

	v := viewOf(t, a)
	assert.Equal(t, int8(9), v.UnionTypeID(0))
	assert.Equal(t, 1, v.UnionChildIndex(0))
	assert.Equal(t, "x", v.Children[1].StringUnsafe(v.UnionChildOffset(0)))
	assert.Equal(t, int8(5), v.UnionTypeID(2))
	assert.Equal(t, int64(1), v.UnionChildOffset(2))
	assert.Equal(t, int64(1), v.UnionChildOffset(3))
	assert.Equal(t, int64(2), a.Children[0].Length)
}

func TestAppendNullType(t *testing.T) {
	a := newAppending(t, schema.TypeNA)
	require.NoError(t, a.AppendNull(2))
	require.NoError(t, a.AppendEmpty(1))
	require.NoError(t, a.FinishBuilding(ValidationFull))
	assert.Equal(t, int64(3), a.NullCount)
	assert.Empty(t, a.Buffers)
	assert.True(t, viewOf(t, a).IsNull(0))
}

func TestListOffsetOverflow(t *testing.T) {
	a := newAppendingFromFormat(t, "+l", "n")
	a.Children[0].Length = math.MaxInt32 + 1
	assert.True(t, errors.IsOverflow(a.FinishElement()))
}

func TestReserve(t *testing.T) {
	a := newAppending(t, schema.TypeInt64)
	require.NoError(t, a.Reserve(100))
	assert.GreaterOrEqual(t, a.Buffer(1).Cap(), int64(800))
	assert.Zero(t, a.Buffer(0).Cap(), "validity is not allocated until a null appears")
	assert.Error(t, a.Reserve(-1))

	s := newAppendingFromFormat(t, "+w:3", "s")
	require.NoError(t, s.Reserve(10))
	assert.GreaterOrEqual(t, s.Children[0].Buffer(1).Cap(), int64(60))
}

func TestSetBufferAndShrink(t *testing.T) {
	a, err := New(schema.TypeInt32)
	require.NoError(t, err)
	defer a.Release()

	var data memory.Buffer
	require.NoError(t, data.Reserve(64))
	for _, v := range []int32{1, 2, 3} {
		require.NoError(t, data.AppendInt32(v))
	}
	require.NoError(t, a.SetBuffer(1, &data))
	assert.Zero(t, data.Len())
	assert.Error(t, a.SetBuffer(5, &data))

	a.Length = 3
	require.NoError(t, a.ShrinkToFit())
	assert.Equal(t, int64(12), a.Buffer(1).Cap())
	require.NoError(t, a.FinishBuilding(ValidationFull))
	assert.Equal(t, int64(3), viewOf(t, a).IntUnsafe(2))
}

func TestFinishBuildingCatchesBadBuffers(t *testing.T) {
	a, err := New(schema.TypeInt32)
	require.NoError(t, err)
	defer a.Release()
	a.Length = 4
	err = a.FinishBuildingDefault()
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "Expected int32 array buffer 1 to have size >= 16 bytes but found buffer with 0 bytes")

	assert.NoError(t, a.FinishBuilding(ValidationNone))
}

func TestDictionaryArray(t *testing.T) {
	s := &schema.Schema{}
	s.Init()
	defer s.Release()
	s.SetFormat("c")
	require.NoError(t, s.AllocateDictionary())
	s.Dictionary.Init()
	s.Dictionary.SetFormat("u")

	a, err := NewFromSchema(s)
	require.NoError(t, err)
	defer a.Release()
	require.NoError(t, a.StartAppending())
	require.NoError(t, a.Dictionary.AppendString("zero"))
	require.NoError(t, a.Dictionary.AppendString("one"))
	require.NoError(t, a.AppendInt(1))
	require.NoError(t, a.AppendInt(0))
	require.NoError(t, a.FinishBuilding(ValidationFull))

	require.NoError(t, a.AppendInt(2))
	err = a.FinishBuilding(ValidationFull)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dictionary index")
}
