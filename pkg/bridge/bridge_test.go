package bridge

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	arrowarray "github.com/apache/arrow-go/v18/arrow/array"
	arrowmem "github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/array"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/metadata"
	"github.com/ajitpratap0/strata/pkg/schema"
)

func parse(t *testing.T, format string, children ...string) *schema.Schema {
	t.Helper()
	s := &schema.Schema{}
	s.Init()
	s.SetFormat(format)
	if len(children) > 0 {
		require.NoError(t, s.AllocateChildren(len(children)))
		for i, f := range children {
			s.Children[i].Init()
			s.Children[i].SetFormat(f)
			s.Children[i].SetName(string(rune('a' + i)))
		}
	}
	t.Cleanup(s.Release)
	return s
}

func TestDataTypeRoundTrip(t *testing.T) {
	tests := []struct {
		format   string
		children []string
		arrow    arrow.Type
	}{
		{"n", nil, arrow.NULL},
		{"b", nil, arrow.BOOL},
		{"C", nil, arrow.UINT8},
		{"l", nil, arrow.INT64},
		{"e", nil, arrow.FLOAT16},
		{"g", nil, arrow.FLOAT64},
		{"u", nil, arrow.STRING},
		{"Z", nil, arrow.LARGE_BINARY},
		{"vu", nil, arrow.STRING_VIEW},
		{"w:16", nil, arrow.FIXED_SIZE_BINARY},
		{"d:10,2", nil, arrow.DECIMAL128},
		{"d:40,5,256", nil, arrow.DECIMAL256},
		{"tdD", nil, arrow.DATE32},
		{"tts", nil, arrow.TIME32},
		{"ttn", nil, arrow.TIME64},
		{"tsu:UTC", nil, arrow.TIMESTAMP},
		{"tDm", nil, arrow.DURATION},
		{"tin", nil, arrow.INTERVAL_MONTH_DAY_NANO},
		{"+l", []string{"i"}, arrow.LIST},
		{"+L", []string{"u"}, arrow.LARGE_LIST},
		{"+vl", []string{"i"}, arrow.LIST_VIEW},
		{"+w:3", []string{"f"}, arrow.FIXED_SIZE_LIST},
		{"+s", []string{"i", "u"}, arrow.STRUCT},
		{"+us:1,5", []string{"i", "u"}, arrow.SPARSE_UNION},
		{"+ud:0,1", []string{"i", "u"}, arrow.DENSE_UNION},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			s := parse(t, tt.format, tt.children...)
			dt, err := DataType(s)
			require.NoError(t, err)
			assert.Equal(t, tt.arrow, dt.ID())

			var back schema.Schema
			require.NoError(t, ImportDataType(dt, &back))
			defer back.Release()
			assert.Equal(t, tt.format, back.Format)
			require.Len(t, back.Children, len(tt.children))
			for i, child := range back.Children {
				assert.Equal(t, tt.children[i], child.Format)
			}
		})
	}
}

func TestDecimal32IsRejected(t *testing.T) {
	_, err := DataType(parse(t, "d:5,2,32"))
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestMapAndDictionaryTypes(t *testing.T) {
	m := &schema.Schema{}
	m.Init()
	defer m.Release()
	require.NoError(t, m.SetType(schema.TypeMap))
	require.NoError(t, m.Children[0].Children[0].SetType(schema.TypeString))
	require.NoError(t, m.Children[0].Children[1].SetType(schema.TypeInt32))
	m.Flags |= schema.FlagMapKeysSorted

	dt, err := DataType(m)
	require.NoError(t, err)
	mt := dt.(*arrow.MapType)
	assert.True(t, mt.KeysSorted)
	assert.Equal(t, arrow.STRING, mt.KeyType().ID())

	var back schema.Schema
	require.NoError(t, ImportDataType(dt, &back))
	defer back.Release()
	assert.Equal(t, "+m", back.Format)
	assert.NotZero(t, back.Flags&schema.FlagMapKeysSorted)
	_, err = schema.NewView(&back)
	require.NoError(t, err)

	d := parse(t, "s")
	require.NoError(t, d.AllocateDictionary())
	d.Dictionary.Init()
	d.Dictionary.SetFormat("u")
	d.Flags |= schema.FlagDictionaryOrdered
	dt, err = DataType(d)
	require.NoError(t, err)
	assert.Equal(t, &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int16, ValueType: arrow.BinaryTypes.String, Ordered: true}, dt)
}

func TestFieldAndSchema(t *testing.T) {
	s := parse(t, "+s", "i", "u")
	s.Children[1].Flags &^= schema.FlagNullable
	md, err := metadata.FromPairs(metadata.Pair{Key: "origin", Value: "test"})
	require.NoError(t, err)
	require.NoError(t, s.Children[0].SetMetadata(md))

	as, err := Schema(s)
	require.NoError(t, err)
	require.Equal(t, 2, as.NumFields())
	assert.Equal(t, "a", as.Field(0).Name)
	assert.True(t, as.Field(0).Nullable)
	assert.False(t, as.Field(1).Nullable)
	v, ok := as.Field(0).Metadata.GetValue("origin")
	assert.True(t, ok)
	assert.Equal(t, "test", v)

	var back schema.Schema
	require.NoError(t, ImportSchema(as, &back))
	defer back.Release()
	assert.Equal(t, "+s", back.Format)
	assert.Equal(t, "b", back.Children[1].Name)
	assert.Zero(t, back.Children[1].Flags&schema.FlagNullable)
	value, found, err := metadata.Lookup(back.Children[0].Metadata, "origin")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "test", string(value))

	_, err = Schema(parse(t, "i"))
	assert.Error(t, err)
}

func build(t *testing.T, s *schema.Schema, fill func(a *array.Array)) (*array.Array, *array.View) {
	t.Helper()
	a, err := array.NewFromSchema(s)
	require.NoError(t, err)
	t.Cleanup(a.Release)
	require.NoError(t, a.StartAppending())
	fill(a)
	require.NoError(t, a.FinishBuilding(array.ValidationFull))

	v, err := array.NewViewFromSchema(s)
	require.NoError(t, err)
	require.NoError(t, v.SetArray(a))
	return a, v
}

func TestExportInt32(t *testing.T) {
	s := parse(t, "i")
	_, v := build(t, s, func(a *array.Array) {
		require.NoError(t, a.AppendInt(10))
		require.NoError(t, a.AppendNull(1))
		require.NoError(t, a.AppendInt(-3))
	})

	arr, err := ExportArray(s, v)
	require.NoError(t, err)
	defer arr.Release()
	ints := arr.(*arrowarray.Int32)
	assert.Equal(t, 3, ints.Len())
	assert.Equal(t, 1, ints.NullN())
	assert.Equal(t, int32(10), ints.Value(0))
	assert.True(t, ints.IsNull(1))
	assert.Equal(t, int32(-3), ints.Value(2))
}

func TestExportStructOfStrings(t *testing.T) {
	s := parse(t, "+s", "u", "vu")
	long := "long enough to need a variadic buffer"
	_, v := build(t, s, func(a *array.Array) {
		require.NoError(t, a.Children[0].AppendString("x"))
		require.NoError(t, a.Children[1].AppendString(long))
		require.NoError(t, a.FinishElement())
		require.NoError(t, a.AppendNull(1))
	})

	arr, err := ExportArray(s, v)
	require.NoError(t, err)
	defer arr.Release()
	st := arr.(*arrowarray.Struct)
	assert.Equal(t, 2, st.Len())
	assert.True(t, st.IsNull(1))
	assert.Equal(t, "x", st.Field(0).(*arrowarray.String).Value(0))
	assert.Equal(t, long, st.Field(1).(*arrowarray.StringView).Value(0))
}

func TestExportDictionary(t *testing.T) {
	s := parse(t, "c")
	require.NoError(t, s.AllocateDictionary())
	s.Dictionary.Init()
	s.Dictionary.SetFormat("u")
	_, v := build(t, s, func(a *array.Array) {
		require.NoError(t, a.Dictionary.AppendString("red"))
		require.NoError(t, a.Dictionary.AppendString("blue"))
		require.NoError(t, a.AppendInt(1))
		require.NoError(t, a.AppendInt(1))
		require.NoError(t, a.AppendInt(0))
	})

	arr, err := ExportArray(s, v)
	require.NoError(t, err)
	defer arr.Release()
	dict := arr.(*arrowarray.Dictionary)
	values := dict.Dictionary().(*arrowarray.String)
	assert.Equal(t, "blue", values.Value(dict.GetValueIndex(0)))
	assert.Equal(t, "red", values.Value(dict.GetValueIndex(2)))
}

func TestImportSharesArrowMemory(t *testing.T) {
	mem := arrowmem.NewCheckedAllocator(arrowmem.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	b := arrowarray.NewStringBuilder(mem)
	b.Append("a")
	b.AppendNull()
	b.Append("bc")
	arr := b.NewArray()
	b.Release()

	var out array.Array
	require.NoError(t, ImportArray(arr, &out))
	arr.Release()
	assert.NotZero(t, mem.CurrentAlloc(), "the imported array keeps the buffers alive")

	var s schema.Schema
	require.NoError(t, ImportDataType(arrow.BinaryTypes.String, &s))
	defer s.Release()
	v, err := array.NewViewFromSchema(&s)
	require.NoError(t, err)
	require.NoError(t, v.SetArray(&out))
	require.NoError(t, v.Validate(array.ValidationFull))
	assert.Equal(t, "a", v.StringUnsafe(0))
	assert.True(t, v.IsNull(1))
	assert.Equal(t, "bc", v.StringUnsafe(2))

	out.Release()
}

func TestImportList(t *testing.T) {
	mem := arrowmem.NewCheckedAllocator(arrowmem.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	lb := arrowarray.NewListBuilder(mem, arrow.PrimitiveTypes.Int64)
	vb := lb.ValueBuilder().(*arrowarray.Int64Builder)
	lb.Append(true)
	vb.AppendValues([]int64{1, 2, 3}, nil)
	lb.Append(true)
	vb.Append(4)
	arr := lb.NewArray()
	lb.Release()
	defer arr.Release()

	var out array.Array
	require.NoError(t, ImportArray(arr, &out))
	defer out.Release()
	assert.Equal(t, int64(2), out.Length)
	require.Len(t, out.Children, 1)
	assert.Equal(t, int64(4), out.Children[0].Length)

	var s schema.Schema
	require.NoError(t, ImportDataType(arr.DataType(), &s))
	defer s.Release()
	v, err := array.NewViewFromSchema(&s)
	require.NoError(t, err)
	require.NoError(t, v.SetArray(&out))
	assert.Equal(t, int64(3), v.ListChildOffset(1))
	assert.Equal(t, int64(4), v.Children[0].IntUnsafe(3))
}

func TestExportImportRoundTrip(t *testing.T) {
	s := parse(t, "+l", "d:10,2")
	_, v := build(t, s, func(a *array.Array) {
		d, err := array.NewDecimal(128, 10, 2)
		require.NoError(t, err)
		for _, in := range []string{"1.25", "-3.50"} {
			require.NoError(t, d.SetString(in))
			require.NoError(t, a.Children[0].AppendDecimal(d))
		}
		require.NoError(t, a.FinishElement())
		require.NoError(t, a.AppendEmpty(1))
	})

	data, err := Export(s, v)
	require.NoError(t, err)
	defer data.Release()

	var back array.Array
	require.NoError(t, Import(data, &back))
	defer back.Release()

	bv, err := array.NewViewFromSchema(s)
	require.NoError(t, err)
	require.NoError(t, bv.SetArray(&back))
	ok, msg, err := array.Compare(bv, v, array.CompareEquivalent)
	require.NoError(t, err)
	assert.True(t, ok, msg)
}

func TestMetadataConversion(t *testing.T) {
	md, err := metadata.FromPairs(
		metadata.Pair{Key: "k1", Value: "v1"},
		metadata.Pair{Key: "k2", Value: ""},
	)
	require.NoError(t, err)

	am, err := MetadataToArrow(md)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2"}, am.Keys())

	back, err := MetadataFromArrow(am)
	require.NoError(t, err)
	assert.Equal(t, md, back)

	empty, err := MetadataToArrow(nil)
	require.NoError(t, err)
	assert.Zero(t, empty.Len())
}
