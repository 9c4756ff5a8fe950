package array

import (
	"slices"

	"github.com/ajitpratap0/strata/pkg/schema"
)

// View is a read-only window over the buffers of an array. It does not own
// the memory it points to; the array or external buffers it was set from
// must outlive it.
type View struct {
	// Array is the array the view was bound to, or nil for views over
	// external buffers.
	Array       *Array
	StorageType schema.Type
	Layout      schema.Layout
	Offset      int64
	Length      int64
	// NullCount is -1 when unknown; see ComputeNullCount.
	NullCount  int64
	Children   []*View
	Dictionary *View
	// UnionTypeIDMap maps union type ids to child indices in its first 128
	// entries and child indices to type ids in the rest. It is nil when
	// type ids equal child indices.
	UnionTypeIDMap []int8

	buffers       [schema.MaxFixedBuffers][]byte
	variadic      [][]byte
	variadicSizes []byte
}

// NewViewFromSchema returns an unbound view shaped like s.
func NewViewFromSchema(s *schema.Schema) (*View, error) {
	v := &View{}
	if err := v.InitFromSchema(s); err != nil {
		return nil, err
	}
	return v, nil
}

// InitFromType resets v to an empty view of type t with no children.
func (v *View) InitFromType(t schema.Type) error {
	storage, ok := storageTypeOf(t)
	if !ok {
		return invalidArg("cannot initialize an array view of type %s from its type alone", t)
	}
	*v = View{
		StorageType: storage,
		Layout:      schema.NewLayout(storage, 0),
		NullCount:   -1,
	}
	return nil
}

// InitFromSchema resets v to an empty view with the storage type, layout,
// children and dictionary described by s.
func (v *View) InitFromSchema(s *schema.Schema) error {
	sv, err := schema.NewView(s)
	if err != nil {
		return err
	}
	*v = View{
		StorageType: sv.StorageType,
		Layout:      sv.Layout,
		NullCount:   -1,
	}

	if len(s.Children) > 0 {
		v.AllocateChildren(len(s.Children))
		for i, child := range s.Children {
			if err := v.Children[i].InitFromSchema(child); err != nil {
				v.Reset()
				return err
			}
		}
	}

	if s.Dictionary != nil {
		v.AllocateDictionary()
		if err := v.Dictionary.InitFromSchema(s.Dictionary); err != nil {
			v.Reset()
			return err
		}
	}

	if ids := sv.UnionTypeIDs(); ids != nil {
		v.UnionTypeIDMap = unionTypeIDMap(ids)
	}
	return nil
}

// unionTypeIDMap builds the two-way id/index map, or returns nil when every
// type id equals its child index.
func unionTypeIDMap(ids []int8) []int8 {
	identity := true
	for i, id := range ids {
		if int(id) != i {
			identity = false
			break
		}
	}
	if identity {
		return nil
	}

	m := make([]int8, 256)
	for i := range m {
		m[i] = -1
	}
	for i, id := range ids {
		m[id] = int8(i)
		m[128+i] = id
	}
	return m
}

// initFromArray shapes v like a: storage type, layout, union map, children
// and dictionary. Buffers are bound separately.
func (v *View) initFromArray(a *Array) error {
	if a.IsReleased() {
		return invalidArg("Expected non-released array")
	}
	p := a.priv
	*v = View{
		StorageType:    p.storageType,
		Layout:         p.layout,
		NullCount:      -1,
		UnionTypeIDMap: p.unionTypeIDMap,
	}
	if a.Children != nil {
		v.AllocateChildren(len(a.Children))
		for i, child := range a.Children {
			if child.IsReleased() {
				v.Reset()
				return invalidArg("Expected valid array at children[%d] but found a released array", i)
			}
			if err := v.Children[i].initFromArray(child); err != nil {
				v.Reset()
				return err
			}
		}
	}
	if a.Dictionary != nil {
		if a.Dictionary.IsReleased() {
			v.Reset()
			return invalidArg("Expected valid dictionary array but found a released array")
		}
		v.AllocateDictionary()
		if err := v.Dictionary.initFromArray(a.Dictionary); err != nil {
			v.Reset()
			return err
		}
	}
	return nil
}

// AllocateChildren replaces the children of v with n empty views.
func (v *View) AllocateChildren(n int) {
	v.Children = make([]*View, n)
	for i := range v.Children {
		v.Children[i] = &View{NullCount: -1}
	}
}

// AllocateDictionary replaces the dictionary of v with an empty view.
func (v *View) AllocateDictionary() {
	v.Dictionary = &View{NullCount: -1}
}

// Reset returns v to its zero state.
func (v *View) Reset() {
	*v = View{}
}

// SetLength sets the offset to 0 and the length to n, and points the fixed
// buffers at the prefix implied by n of whatever they currently reference.
// Children of struct, sparse union and fixed-size list views are set
// accordingly.
func (v *View) SetLength(n int64) {
	v.Offset = 0
	v.Length = n
	sizes := fixedBufferSizes(v.Layout, n)
	for i := range v.buffers {
		if sizes[i] >= 0 && int64(len(v.buffers[i])) > sizes[i] {
			v.buffers[i] = v.buffers[i][:sizes[i]]
		}
	}

	switch v.StorageType {
	case schema.TypeStruct, schema.TypeSparseUnion:
		for _, child := range v.Children {
			child.SetLength(n)
		}
	case schema.TypeFixedSizeList:
		if len(v.Children) == 1 {
			v.Children[0].SetLength(n * v.Layout.ChildSizeElements)
		}
	}
}

// SetBufferView points buffer i at data. For binary and string views,
// indices after the fixed buffers address the variadic buffers and the
// final variadic sizes buffer, which grow as needed.
func (v *View) SetBufferView(i int, data []byte) error {
	if i < 0 {
		return invalidArg("buffer index %d is negative", i)
	}
	if isBinaryView(v.StorageType) && i >= binaryViewFixedBuffers {
		j := i - binaryViewFixedBuffers
		for len(v.variadic) < j {
			v.variadic = append(v.variadic, nil)
		}
		if j == len(v.variadic) {
			v.variadic = append(v.variadic, data)
		} else {
			v.variadic[j] = data
		}
		return nil
	}
	if i >= v.Layout.NumBuffers() {
		return invalidArg("buffer index %d is out of range for a %s view with %d buffers", i, v.StorageType, v.Layout.NumBuffers())
	}
	v.buffers[i] = data
	return nil
}

// SetVariadicSizes points the variadic sizes buffer of a binary or string
// view at data.
func (v *View) SetVariadicSizes(data []byte) {
	v.variadicSizes = data
}

// SetArray binds v to a and validates it at the default level.
func (v *View) SetArray(a *Array) error {
	if err := v.bind(a); err != nil {
		return err
	}
	return v.validateDefault()
}

// SetArrayMinimal binds v to a and validates only what can be checked
// without reading buffer contents.
func (v *View) SetArrayMinimal(a *Array) error {
	if err := v.bind(a); err != nil {
		return err
	}
	return v.validateMinimal()
}

func (v *View) bind(a *Array) error {
	if a.IsReleased() {
		return invalidArg("Expected non-released array")
	}
	v.Array = a
	v.Offset = a.Offset
	v.Length = a.Length
	v.NullCount = a.NullCount

	nFixed := v.Layout.NumBuffers()
	if isBinaryView(v.StorageType) {
		nFixed = binaryViewFixedBuffers
		if len(a.Buffers) < nFixed+1 {
			return validationf("Expected %s array with at least %d buffer(s) but found %d buffer(s)",
				v.StorageType, nFixed+1, len(a.Buffers))
		}
		nVariadic := len(a.Buffers) - nFixed - 1
		v.variadic = slices.Clone(a.Buffers[nFixed : nFixed+nVariadic])
		v.variadicSizes = a.Buffers[len(a.Buffers)-1]
	} else if len(a.Buffers) != nFixed {
		return validationf("Expected array with %d buffer(s) but found %d buffer(s)", nFixed, len(a.Buffers))
	}
	for i := 0; i < nFixed; i++ {
		v.buffers[i] = a.Buffers[i]
	}

	if len(a.Children) != len(v.Children) {
		return validationf("Expected %d children but found %d children", len(v.Children), len(a.Children))
	}
	for i, child := range a.Children {
		if err := v.Children[i].bind(child); err != nil {
			return err
		}
	}

	switch {
	case a.Dictionary == nil && v.Dictionary != nil:
		return validationf("Expected dictionary but found nil")
	case a.Dictionary != nil && v.Dictionary == nil:
		return validationf("Expected no dictionary but found non-nil dictionary")
	case a.Dictionary != nil:
		return v.Dictionary.bind(a.Dictionary)
	}
	return nil
}

// NumBuffers returns the number of buffers, counting the variadic buffers and
// the variadic sizes buffer of binary and string views.
func (v *View) NumBuffers() int {
	if isBinaryView(v.StorageType) {
		return binaryViewFixedBuffers + len(v.variadic) + 1
	}
	return v.Layout.NumBuffers()
}

// BufferView returns the contents of buffer i, or nil when it is out of range.
func (v *View) BufferView(i int) []byte {
	if isBinaryView(v.StorageType) && i >= binaryViewFixedBuffers {
		j := i - binaryViewFixedBuffers
		switch {
		case j < len(v.variadic):
			return v.variadic[j]
		case j == len(v.variadic):
			return v.variadicSizes
		}
		return nil
	}
	if i < 0 || i >= schema.MaxFixedBuffers {
		return nil
	}
	return v.buffers[i]
}

// BufferType returns the role of buffer i.
func (v *View) BufferType(i int) schema.BufferType {
	if isBinaryView(v.StorageType) && i >= binaryViewFixedBuffers {
		if i == v.NumBuffers()-1 {
			return schema.BufferTypeVariadicSize
		}
		return schema.BufferTypeVariadicData
	}
	if i < 0 || i >= schema.MaxFixedBuffers {
		return schema.BufferTypeNone
	}
	return v.Layout.BufferType[i]
}

// BufferDataType returns the type of the elements of buffer i.
func (v *View) BufferDataType(i int) schema.Type {
	if isBinaryView(v.StorageType) && i >= binaryViewFixedBuffers {
		switch {
		case i == v.NumBuffers()-1:
			return schema.TypeInt64
		case v.StorageType == schema.TypeStringView:
			return schema.TypeString
		}
		return schema.TypeBinary
	}
	if i < 0 || i >= schema.MaxFixedBuffers {
		return schema.TypeUninitialized
	}
	return v.Layout.BufferDataType[i]
}

// BufferElementSizeBits returns the element width of buffer i, or 0 for
// buffers of variable-width values.
func (v *View) BufferElementSizeBits(i int) int64 {
	if isBinaryView(v.StorageType) && i >= binaryViewFixedBuffers {
		if i == v.NumBuffers()-1 {
			return 64
		}
		return 0
	}
	if i < 0 || i >= schema.MaxFixedBuffers {
		return 0
	}
	return v.Layout.ElementSizeBits[i]
}
