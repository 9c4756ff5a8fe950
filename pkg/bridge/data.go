package bridge

import (
	"encoding/binary"

	"github.com/apache/arrow-go/v18/arrow"
	arrowarray "github.com/apache/arrow-go/v18/arrow/array"
	arrowmem "github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/strata/pkg/array"
	"github.com/ajitpratap0/strata/pkg/memory"
	"github.com/ajitpratap0/strata/pkg/schema"
)

// Export wraps the buffers behind v as arrow-go array data of the type
// described by s, without copying. v should have been validated; the memory
// behind it must outlive the returned data, which the caller releases.
func Export(s *schema.Schema, v *array.View) (arrow.ArrayData, error) {
	dt, err := DataType(s)
	if err != nil {
		return nil, err
	}
	return exportData(dt, s, v)
}

// ExportArray is Export returning an arrow-go array.
func ExportArray(s *schema.Schema, v *array.View) (arrow.Array, error) {
	data, err := Export(s, v)
	if err != nil {
		return nil, err
	}
	defer data.Release()
	return arrowarray.MakeFromData(data), nil
}

func exportData(dt arrow.DataType, s *schema.Schema, v *array.View) (arrow.ArrayData, error) {
	if dt.ID() == arrow.DICTIONARY {
		return exportDictionary(dt.(*arrow.DictionaryType), s, v)
	}

	var buffers []*arrowmem.Buffer
	switch v.StorageType {
	case schema.TypeNA, schema.TypeRunEndEncoded:
		buffers = []*arrowmem.Buffer{nil}
	case schema.TypeSparseUnion, schema.TypeDenseUnion:
		// arrow-go keeps a placeholder for the validity bitmap unions lack
		buffers = append(buffers, nil)
		fallthrough
	default:
		n := v.NumBuffers()
		if v.StorageType == schema.TypeBinaryView || v.StorageType == schema.TypeStringView {
			// the variadic sizes are implied by the buffer lengths
			n--
		}
		for i := 0; i < n; i++ {
			buffers = append(buffers, wrap(v.BufferView(i)))
		}
	}

	childTypes := childDataTypes(dt)
	children := make([]arrow.ArrayData, 0, len(v.Children))
	release := func() {
		for _, c := range children {
			c.Release()
		}
	}
	for i, child := range v.Children {
		if i >= len(childTypes) {
			release()
			return nil, unsupported("arrow type %s has %d children but found %d", dt, len(childTypes), len(v.Children))
		}
		cd, err := exportData(childTypes[i], s.Children[i], child)
		if err != nil {
			release()
			return nil, err
		}
		children = append(children, cd)
	}

	data := arrowarray.NewData(dt, int(v.Length), buffers, children, int(v.ComputeNullCount()), int(v.Offset))
	release()
	return data, nil
}

func exportDictionary(dt *arrow.DictionaryType, s *schema.Schema, v *array.View) (arrow.ArrayData, error) {
	if v.Dictionary == nil || s.Dictionary == nil {
		return nil, unsupported("dictionary array has no dictionary values")
	}
	dict, err := exportData(dt.ValueType, s.Dictionary, v.Dictionary)
	if err != nil {
		return nil, err
	}
	defer dict.Release()

	buffers := []*arrowmem.Buffer{wrap(v.BufferView(0)), wrap(v.BufferView(1))}
	data := arrowarray.NewData(dt, int(v.Length), buffers, nil, int(v.ComputeNullCount()), int(v.Offset))
	data.SetDictionary(dict)
	return data, nil
}

func wrap(b []byte) *arrowmem.Buffer {
	if b == nil {
		return nil
	}
	return arrowmem.NewBufferBytes(b)
}

// childDataTypes lists the types of the children arrow-go expects for dt,
// in the order of the schema children.
func childDataTypes(dt arrow.DataType) []arrow.DataType {
	switch dt := dt.(type) {
	case arrow.ListLikeType:
		// maps report their entries struct
		return []arrow.DataType{dt.Elem()}
	case arrow.NestedType:
		fields := dt.Fields()
		types := make([]arrow.DataType, len(fields))
		for i, f := range fields {
			types[i] = f.Type
		}
		return types
	}
	return nil
}

// Import fills out, which must be released, with the structure of data and
// buffers that share memory with it. data is retained until out is released.
func Import(data arrow.ArrayData, out *array.Array) error {
	var s schema.Schema
	if err := ImportDataType(data.DataType(), &s); err != nil {
		return err
	}
	defer s.Release()

	if err := out.InitFromSchema(&s); err != nil {
		return err
	}
	if err := importBuffers(data, out); err != nil {
		out.Release()
		return err
	}
	// adopted buffers cannot grow; validation is left to the view that binds out
	if err := out.FinishBuilding(array.ValidationNone); err != nil {
		out.Release()
		return err
	}
	return nil
}

// ImportArray is Import for an arrow-go array.
func ImportArray(arr arrow.Array, out *array.Array) error {
	return Import(arr.Data(), out)
}

func importBuffers(data arrow.ArrayData, out *array.Array) error {
	out.Length = int64(data.Len())
	out.Offset = int64(data.Offset())
	out.NullCount = int64(data.NullN())

	buffers := data.Buffers()
	storage := out.StorageType()
	switch storage {
	case schema.TypeNA, schema.TypeRunEndEncoded:
		buffers = nil
	case schema.TypeSparseUnion, schema.TypeDenseUnion:
		if len(buffers) > 0 {
			buffers = buffers[1:]
		}
	}

	if storage == schema.TypeBinaryView || storage == schema.TypeStringView {
		if err := importBinaryViewBuffers(buffers, out); err != nil {
			return err
		}
	} else {
		for i, b := range buffers {
			if err := adopt(out, i, b); err != nil {
				return err
			}
		}
	}

	children := data.Children()
	if len(children) != len(out.Children) {
		return unsupported("expected %d children but arrow data has %d", len(out.Children), len(children))
	}
	for i, child := range children {
		if err := importBuffers(child, out.Children[i]); err != nil {
			return err
		}
	}
	if dict := data.Dictionary(); dict != nil && out.Dictionary != nil {
		return importBuffers(dict, out.Dictionary)
	}
	return nil
}

func importBinaryViewBuffers(buffers []*arrowmem.Buffer, out *array.Array) error {
	const fixed = 2
	for i := 0; i < fixed && i < len(buffers); i++ {
		if err := adopt(out, i, buffers[i]); err != nil {
			return err
		}
	}
	if len(buffers) <= fixed {
		return nil
	}
	variadic := buffers[fixed:]
	if err := out.AddVariadicBuffers(len(variadic)); err != nil {
		return err
	}
	for i, b := range variadic {
		if err := adopt(out, fixed+i, b); err != nil {
			return err
		}
	}
	sizes := out.Buffer(fixed + len(variadic)).Bytes()
	for i, b := range variadic {
		if b != nil {
			binary.NativeEndian.PutUint64(sizes[i*8:], uint64(b.Len()))
		}
	}
	return nil
}

// adopt points buffer i of out at the memory of b, retaining b until the
// buffer is released.
func adopt(out *array.Array, i int, b *arrowmem.Buffer) error {
	if b == nil || b.Len() == 0 {
		return nil
	}
	b.Retain()
	var buf memory.Buffer
	buf.Adopt(b.Bytes(), releaseArrowBuffer, b)
	if err := out.SetBuffer(i, &buf); err != nil {
		buf.Reset()
		return err
	}
	return nil
}

func releaseArrowBuffer(_ []byte, _ int64, priv interface{}) {
	priv.(*arrowmem.Buffer).Release()
}
