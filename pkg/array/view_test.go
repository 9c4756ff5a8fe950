package array

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/schema"
)

func int32Bytes(values ...int32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.NativeEndian.PutUint32(out[i*4:], uint32(v))
	}
	return out
}

func TestViewInitFromType(t *testing.T) {
	var v View
	require.NoError(t, v.InitFromType(schema.TypeTimestamp))
	assert.Equal(t, schema.TypeInt64, v.StorageType)
	assert.Equal(t, int64(-1), v.NullCount)
	assert.Error(t, v.InitFromType(schema.TypeDictionary))
}

func TestViewInitFromSchemaRejectsBadSchema(t *testing.T) {
	s := &schema.Schema{}
	s.Init()
	defer s.Release()
	s.SetFormat("+l")

	var v View
	err := v.InitFromSchema(s)
	require.Error(t, err)
	assert.Nil(t, v.Children)
}

func TestViewOverExternalBuffers(t *testing.T) {
	var v View
	require.NoError(t, v.InitFromType(schema.TypeString))
	require.NoError(t, v.SetBufferView(1, int32Bytes(0, 2, 5, 5)))
	require.NoError(t, v.SetBufferView(2, []byte("hiyou")))
	assert.Error(t, v.SetBufferView(3, nil))
	v.SetLength(3)

	require.NoError(t, v.Validate(ValidationFull))
	assert.Equal(t, "hi", v.StringUnsafe(0))
	assert.Equal(t, "you", v.StringUnsafe(1))
	assert.Equal(t, "", v.StringUnsafe(2))
	assert.Equal(t, int64(0), v.ComputeNullCount())
}

func TestViewSetLengthTruncatesFixedBuffers(t *testing.T) {
	var v View
	require.NoError(t, v.InitFromType(schema.TypeInt32))
	require.NoError(t, v.SetBufferView(1, int32Bytes(1, 2, 3, 4)))
	v.SetLength(2)
	assert.Len(t, v.BufferView(1), 8)
	assert.Nil(t, v.BufferView(7))
}

func TestValidateOffsets(t *testing.T) {
	tests := []struct {
		name    string
		offsets []byte
		data    string
		level   ValidationLevel
		msg     string
	}{
		{"negative first offset", int32Bytes(-1, 2), "ab", ValidationDefault, "Expected first offset >= 0"},
		{"last before first", int32Bytes(2, 1), "ab", ValidationDefault, "Expected last offset >= first offset"},
		{"data too short", int32Bytes(0, 4), "ab", ValidationDefault, "buffer 2 to have size >= 4"},
		{"decreasing", int32Bytes(0, 2, 1, 3), "abc", ValidationFull, "[1] Expected element size >= 0 but found element size -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v View
			require.NoError(t, v.InitFromType(schema.TypeBinary))
			require.NoError(t, v.SetBufferView(1, tt.offsets))
			require.NoError(t, v.SetBufferView(2, []byte(tt.data)))
			v.SetLength(int64(len(tt.offsets)/4 - 1))

			if tt.level == ValidationFull {
				require.NoError(t, v.Validate(ValidationDefault))
			}
			err := v.Validate(tt.level)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestValidateLevels(t *testing.T) {
	var v View
	require.NoError(t, v.InitFromType(schema.TypeInt32))
	v.Length = 2
	assert.NoError(t, v.Validate(ValidationNone))
	assert.Error(t, v.Validate(ValidationMinimal))
	assert.Error(t, v.Validate(ValidationLevel(42)))

	v.Length = -1
	assert.Contains(t, v.Validate(ValidationMinimal).Error(), "Expected length >= 0")
}

func TestValidateNullCountWithoutValidity(t *testing.T) {
	var v View
	require.NoError(t, v.InitFromType(schema.TypeInt32))
	require.NoError(t, v.SetBufferView(1, int32Bytes(1, 2)))
	v.SetLength(2)
	require.NoError(t, v.Validate(ValidationMinimal))

	v.NullCount = 1
	assert.Error(t, v.Validate(ValidationMinimal))
}

func TestValidateShortChildNamesParentType(t *testing.T) {
	tests := []struct {
		name   string
		build  func(t *testing.T) *Array
		prefix string
	}{
		{
			name: "struct",
			build: func(t *testing.T) *Array {
				a := newAppendingFromFormat(t, "+s", "i", "i")
				for i := int64(0); i < 3; i++ {
					require.NoError(t, a.Children[0].AppendInt(i))
					require.NoError(t, a.Children[1].AppendInt(i))
					require.NoError(t, a.FinishElement())
				}
				return a
			},
			prefix: "Expected struct child 2 to have length >= 3",
		},
		{
			name: "sparse union",
			build: func(t *testing.T) *Array {
				a := newAppendingFromFormat(t, "+us:0,1", "i", "i")
				for i := int64(0); i < 3; i++ {
					require.NoError(t, a.Children[0].AppendInt(i))
					require.NoError(t, a.FinishUnionElement(0))
				}
				return a
			},
			prefix: "Expected sparse_union child 2 to have length >= 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.build(t)
			require.NoError(t, a.FinishBuildingDefault())
			v := viewOf(t, a)
			require.NoError(t, v.Validate(ValidationMinimal))

			v.Children[1].SetLength(1)
			err := v.Validate(ValidationMinimal)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.prefix)
		})
	}
}

func runEndEncodedView(t *testing.T, runEnds []int32, length int64) *View {
	t.Helper()
	s := &schema.Schema{}
	s.Init()
	defer s.Release()
	require.NoError(t, s.SetTypeRunEndEncoded(schema.TypeInt32))
	s.Children[1].SetFormat("u")

	v, err := NewViewFromSchema(s)
	require.NoError(t, err)
	require.NoError(t, v.Children[0].SetBufferView(1, int32Bytes(runEnds...)))
	v.Children[0].SetLength(int64(len(runEnds)))
	require.NoError(t, v.Children[1].SetBufferView(1, int32Bytes(0, 1, 2, 3)))
	require.NoError(t, v.Children[1].SetBufferView(2, []byte("abc")))
	v.Children[1].SetLength(3)
	v.SetLength(length)
	return v
}

func TestValidateRunEndEncoded(t *testing.T) {
	v := runEndEncodedView(t, []int32{2, 3, 6}, 6)
	require.NoError(t, v.Validate(ValidationFull))
	assert.Equal(t, int64(0), v.runIndex(1))
	assert.Equal(t, int64(1), v.runIndex(2))
	assert.Equal(t, int64(2), v.runIndex(5))

	short := runEndEncodedView(t, []int32{2, 3, 5}, 6)
	assert.Contains(t, short.Validate(ValidationDefault).Error(), "Last run end is 5")

	unsorted := runEndEncodedView(t, []int32{2, 2, 6}, 6)
	require.NoError(t, unsorted.Validate(ValidationDefault))
	assert.Contains(t, unsorted.Validate(ValidationFull).Error(), "strictly increasing")
}

func TestSetArrayChecksStructure(t *testing.T) {
	a := newAppending(t, schema.TypeInt32)
	require.NoError(t, a.AppendInt(1))
	require.NoError(t, a.FinishBuildingDefault())

	var v View
	require.NoError(t, v.InitFromType(schema.TypeString))
	err := v.SetArray(a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected array with 3 buffer(s) but found 2 buffer(s)")

	require.NoError(t, v.InitFromType(schema.TypeInt32))
	v.AllocateChildren(1)
	assert.Contains(t, v.SetArrayMinimal(a).Error(), "Expected 1 children but found 0 children")

	var released Array
	require.NoError(t, v.InitFromType(schema.TypeInt32))
	assert.True(t, errors.IsInvalidArgument(v.SetArray(&released)))
}

func TestCompare(t *testing.T) {
	build := func(values ...int64) *Array {
		a := newAppending(t, schema.TypeInt64)
		for _, v := range values {
			if v < 0 {
				require.NoError(t, a.AppendNull(1))
				continue
			}
			require.NoError(t, a.AppendInt(v))
		}
		require.NoError(t, a.FinishBuildingDefault())
		return a
	}

	a := viewOf(t, build(1, -1, 3))
	b := viewOf(t, build(1, -1, 3))
	c := viewOf(t, build(1, 2, 3))

	ok, _, err := Compare(a, b, CompareIdentical)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, msg, err := Compare(a, c, CompareEquivalent)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "root[1]: Expected null=false but found null=true", msg)

	ok, msg, _ = Compare(a, c, CompareIdentical)
	assert.False(t, ok)
	assert.Contains(t, msg, "null count")

	_, _, err = Compare(a, b, CompareLevel(9))
	assert.Error(t, err)
}

func TestCompareEquivalentIgnoresOffsets(t *testing.T) {
	whole := newAppending(t, schema.TypeString)
	for _, s := range []string{"skip", "a", "b"} {
		require.NoError(t, whole.AppendString(s))
	}
	require.NoError(t, whole.FinishBuildingDefault())
	sliced := viewOf(t, whole)
	sliced.Offset = 1
	sliced.Length = 2

	tail := newAppending(t, schema.TypeString)
	require.NoError(t, tail.AppendString("a"))
	require.NoError(t, tail.AppendString("b"))
	require.NoError(t, tail.FinishBuildingDefault())
	expected := viewOf(t, tail)

	ok, msg, err := Compare(sliced, expected, CompareEquivalent)
	require.NoError(t, err)
	assert.True(t, ok, msg)

	ok, msg, _ = Compare(sliced, expected, CompareIdentical)
	assert.False(t, ok)
	assert.Equal(t, "root: Expected offset 0 but found offset 1", msg)
}

func TestCompareNestedPath(t *testing.T) {
	build := func(second int64) *View {
		a := newAppendingFromFormat(t, "+s", "i", "l")
		require.NoError(t, a.Children[0].AppendInt(1))
		require.NoError(t, a.Children[1].AppendInt(second))
		require.NoError(t, a.FinishElement())
		require.NoError(t, a.FinishBuildingDefault())
		return viewOf(t, a)
	}

	ok, msg, err := Compare(build(2), build(3), CompareEquivalent)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "root.children[1][0]: Expected 3 but found 2", msg)

	ok, msg, _ = Compare(build(2), build(3), CompareIdentical)
	assert.False(t, ok)
	assert.Equal(t, "root.children[1].buffers[1]: Buffers are not identical", msg)
}

func nestedSchema(t *testing.T, format string, children ...*schema.Schema) *schema.Schema {
	t.Helper()
	s := &schema.Schema{}
	s.Init()
	s.SetFormat(format)
	if len(children) > 0 {
		require.NoError(t, s.AllocateChildren(len(children)))
		for i, child := range children {
			child.Move(s.Children[i])
		}
	}
	return s
}

func newAppendingFromSchema(t *testing.T, s *schema.Schema) *Array {
	t.Helper()
	defer s.Release()
	a, err := NewFromSchema(s)
	require.NoError(t, err)
	require.NoError(t, a.StartAppending())
	t.Cleanup(a.Release)
	return a
}

func TestCompareShapeMismatch(t *testing.T) {
	listOfStruct := func(fields int) *View {
		fieldSchemas := make([]*schema.Schema, fields)
		for i := range fieldSchemas {
			fieldSchemas[i] = nestedSchema(t, "i")
		}
		a := newAppendingFromSchema(t, nestedSchema(t, "+l", nestedSchema(t, "+s", fieldSchemas...)))
		item := a.Children[0]
		for k := 0; k < fields; k++ {
			require.NoError(t, item.Children[k].AppendInt(int64(k)))
		}
		require.NoError(t, item.FinishElement())
		require.NoError(t, a.FinishElement())
		require.NoError(t, a.FinishBuildingDefault())
		return viewOf(t, a)
	}

	dictionaryField := func() *View {
		field := nestedSchema(t, "i")
		require.NoError(t, field.AllocateDictionary())
		field.Dictionary.Init()
		field.Dictionary.SetFormat("u")
		a := newAppendingFromSchema(t, nestedSchema(t, "+s", field))
		require.NoError(t, a.Children[0].Dictionary.AppendString("x"))
		require.NoError(t, a.Children[0].AppendInt(0))
		require.NoError(t, a.FinishElement())
		require.NoError(t, a.FinishBuildingDefault())
		return viewOf(t, a)
	}
	plainField := func(format string) *View {
		a := newAppendingFromSchema(t, nestedSchema(t, "+s", nestedSchema(t, format)))
		require.NoError(t, a.Children[0].AppendInt(0))
		require.NoError(t, a.FinishElement())
		require.NoError(t, a.FinishBuildingDefault())
		return viewOf(t, a)
	}

	tests := []struct {
		name     string
		actual   *View
		expected *View
		want     string
	}{
		{"nested child count", listOfStruct(2), listOfStruct(1), "root.children[0]: Expected 1 children but found 2 children"},
		{"nested child count reversed", listOfStruct(1), listOfStruct(2), "root.children[0]: Expected 2 children but found 1 children"},
		{"dictionary only in actual", dictionaryField(), plainField("i"), "root.children[0]: Expected no dictionary but found one"},
		{"dictionary only in expected", plainField("i"), dictionaryField(), "root.children[0]: Expected dictionary but found none"},
		{"nested storage type", plainField("i"), plainField("l"), "root.children[0]: Expected storage type int64 but found int32"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg, err := Compare(tt.actual, tt.expected, CompareEquivalent)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestResolveChunk(t *testing.T) {
	offsets := []int64{0, 3, 3, 7}
	tests := []struct {
		index int64
		want  int64
	}{
		{0, 0}, {2, 0}, {3, 2}, {5, 2}, {6, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveChunk64(tt.index, offsets, 0, 3), "index %d", tt.index)
	}

	assert.Equal(t, int32(1), ResolveChunk32(4, []int32{0, 2, 5, 9}, 0, 3))
}
