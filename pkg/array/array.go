package array

import (
	"slices"

	"github.com/ajitpratap0/strata/pkg/bitmap"
	"github.com/ajitpratap0/strata/pkg/memory"
	"github.com/ajitpratap0/strata/pkg/schema"
)

// Array is an owned block of columnar data: buffers, children and an
// optional dictionary, together with the builder state used to append to it.
//
// The zero value is released. An Array is initialized by InitFromType,
// InitFromSchema or InitFromView, filled through the Append methods or by
// setting buffers, and published by FinishBuilding. Release frees everything
// it owns; Move hands it to another location.
//
// An Array is not safe for concurrent use.
type Array struct {
	Length int64
	// NullCount is -1 when unknown.
	NullCount int64
	Offset    int64
	// Buffers holds the buffer contents as of the last FinishBuilding. For
	// binary and string views it is followed by the variadic data buffers
	// and a final buffer of int64 variadic buffer sizes.
	Buffers    [][]byte
	Children   []*Array
	Dictionary *Array

	release func(*Array)
	priv    *builder
}

type builder struct {
	storageType schema.Type
	layout      schema.Layout
	validity    bitmap.Bitmap
	// buffers[0] is only used when the first buffer is not a validity bitmap.
	buffers       [schema.MaxFixedBuffers]memory.Buffer
	variadic      []memory.Buffer
	variadicSizes memory.Buffer
	// unionTypeIDMap maps a type id to its child index in its first 128
	// entries and a child index to its type id in the rest. It is nil when
	// type ids equal child indices.
	unionTypeIDMap []int8
	listViewOffset int64
}

func releaseArray(a *Array) {
	for _, child := range a.Children {
		if child != nil {
			child.Release()
		}
	}
	if a.Dictionary != nil {
		a.Dictionary.Release()
	}
	if p := a.priv; p != nil {
		p.validity.Reset()
		for i := range p.buffers {
			p.buffers[i].Reset()
		}
		for i := range p.variadic {
			p.variadic[i].Reset()
		}
		p.variadicSizes.Reset()
	}
}

// New returns an empty array of type t.
func New(t schema.Type) (*Array, error) {
	a := &Array{}
	if err := a.InitFromType(t); err != nil {
		return nil, err
	}
	return a, nil
}

// NewFromSchema returns an empty array shaped like s.
func NewFromSchema(s *schema.Schema) (*Array, error) {
	a := &Array{}
	if err := a.InitFromSchema(s); err != nil {
		return nil, err
	}
	return a, nil
}

// InitFromType initializes a as an empty array of type t with no children.
// Date and time types are stored as their integer storage type. Types that
// need parameters, such as fixed-size binary or decimals, should be
// initialized from a schema instead.
func (a *Array) InitFromType(t schema.Type) error {
	storage, ok := storageTypeOf(t)
	if !ok {
		return invalidArg("cannot initialize an array of type %s from its type alone", t)
	}
	*a = Array{
		release: releaseArray,
		priv: &builder{
			storageType: storage,
			layout:      schema.NewLayout(storage, 0),
		},
	}
	a.Buffers = make([][]byte, a.numBuffers())
	return nil
}

// InitFromSchema initializes a with the storage type, layout, children and
// dictionary described by s.
func (a *Array) InitFromSchema(s *schema.Schema) error {
	var v View
	if err := v.InitFromSchema(s); err != nil {
		return err
	}
	return a.InitFromView(&v)
}

// InitFromView initializes a with the structure of v: storage type, layout,
// union type ids, children and dictionary. No content is copied.
func (a *Array) InitFromView(v *View) error {
	if err := a.InitFromType(v.StorageType); err != nil {
		return err
	}
	a.priv.layout = v.Layout
	if v.UnionTypeIDMap != nil {
		a.priv.unionTypeIDMap = slices.Clone(v.UnionTypeIDMap)
	}

	if v.Children != nil {
		_ = a.AllocateChildren(len(v.Children))
		for i, child := range v.Children {
			if err := a.Children[i].InitFromView(child); err != nil {
				a.Release()
				return err
			}
		}
	}

	if v.Dictionary != nil {
		_ = a.AllocateDictionary()
		if err := a.Dictionary.InitFromView(v.Dictionary); err != nil {
			a.Release()
			return err
		}
	}
	return nil
}

// IsReleased reports whether a has no release binding.
func (a *Array) IsReleased() bool {
	return a == nil || a.release == nil
}

// Release frees the buffers, children and dictionary of a and clears the
// binding. Releasing a released array is a no-op.
func (a *Array) Release() {
	if a.IsReleased() {
		return
	}
	release := a.release
	release(a)
	*a = Array{}
}

// Move transfers a and everything it owns to dst and leaves a released. dst
// must be released.
func (a *Array) Move(dst *Array) {
	*dst = *a
	*a = Array{}
}

func (a *Array) state() (*builder, error) {
	if a.IsReleased() || a.priv == nil {
		return nil, invalidArg("array is released")
	}
	return a.priv, nil
}

// StorageType returns the type the buffers of a are laid out for.
func (a *Array) StorageType() schema.Type {
	if a.priv == nil {
		return schema.TypeUninitialized
	}
	return a.priv.storageType
}

func (a *Array) numBuffers() int {
	p := a.priv
	if isBinaryView(p.storageType) {
		return binaryViewFixedBuffers + len(p.variadic) + 1
	}
	return p.layout.NumBuffers()
}

// AllocateChildren allocates n released children. It fails if children were
// already allocated.
func (a *Array) AllocateChildren(n int) error {
	if _, err := a.state(); err != nil {
		return err
	}
	if a.Children != nil {
		return invalidArg("array children are already allocated")
	}
	if n < 0 {
		return invalidArg("cannot allocate %d children", n)
	}
	a.Children = make([]*Array, n)
	for i := range a.Children {
		a.Children[i] = &Array{}
	}
	return nil
}

// AllocateDictionary allocates a released dictionary array. It fails if one
// is already allocated.
func (a *Array) AllocateDictionary() error {
	if _, err := a.state(); err != nil {
		return err
	}
	if a.Dictionary != nil {
		return invalidArg("array dictionary is already allocated")
	}
	a.Dictionary = &Array{}
	return nil
}

// ValidityBitmap returns the validity bitmap under construction.
func (a *Array) ValidityBitmap() *bitmap.Bitmap {
	return &a.priv.validity
}

// SetValidityBitmap replaces the validity bitmap, taking ownership of bm and
// leaving it empty.
func (a *Array) SetValidityBitmap(bm *bitmap.Bitmap) {
	a.priv.validity.Reset()
	bm.Move(&a.priv.validity)
}

// Buffer returns buffer i under construction, or nil when i is out of range.
// Buffer 0 is the validity bitmap's buffer for types that have one.
func (a *Array) Buffer(i int) *memory.Buffer {
	p := a.priv
	n := a.numBuffers()
	if i < 0 || i >= n {
		return nil
	}
	if isBinaryView(p.storageType) && i >= binaryViewFixedBuffers {
		if i == n-1 {
			return &p.variadicSizes
		}
		return &p.variadic[i-binaryViewFixedBuffers]
	}
	if p.layout.BufferType[i] == schema.BufferTypeValidity {
		return &p.validity.Buffer
	}
	return &p.buffers[i]
}

// SetBuffer replaces buffer i, taking ownership of buf and leaving it empty.
func (a *Array) SetBuffer(i int, buf *memory.Buffer) error {
	p, err := a.state()
	if err != nil {
		return err
	}
	dst := a.Buffer(i)
	if dst == nil {
		return invalidArg("buffer index %d is out of range for a %s array with %d buffers", i, p.storageType, a.numBuffers())
	}
	if dst == &p.validity.Buffer {
		p.validity.Reset()
		n := buf.Len()
		buf.Move(&p.validity.Buffer)
		return p.validity.Resize(n*8, false)
	}
	dst.Reset()
	buf.Move(dst)
	return nil
}

// AddVariadicBuffers appends n empty variadic data buffers to a binary or
// string view array.
func (a *Array) AddVariadicBuffers(n int) error {
	p, err := a.state()
	if err != nil {
		return err
	}
	if !isBinaryView(p.storageType) {
		return invalidArg("cannot add variadic buffers to a %s array", p.storageType)
	}
	if n < 0 {
		return invalidArg("cannot add %d variadic buffers", n)
	}
	for i := 0; i < n; i++ {
		if err := p.variadicSizes.AppendInt64(0); err != nil {
			return err
		}
		p.variadic = append(p.variadic, memory.Buffer{})
	}
	return nil
}

// ShrinkToFit reallocates every buffer of a and its descendants to its
// exact size.
func (a *Array) ShrinkToFit() error {
	if _, err := a.state(); err != nil {
		return err
	}
	for i := 0; i < a.numBuffers(); i++ {
		buf := a.Buffer(i)
		if err := buf.Resize(buf.Len(), true); err != nil {
			return err
		}
	}
	for _, child := range a.Children {
		if err := child.ShrinkToFit(); err != nil {
			return err
		}
	}
	if a.Dictionary != nil {
		return a.Dictionary.ShrinkToFit()
	}
	return nil
}

// flushBuffers publishes the builder buffers in a.Buffers.
func (a *Array) flushBuffers() {
	n := a.numBuffers()
	a.Buffers = make([][]byte, n)
	for i := 0; i < n; i++ {
		a.Buffers[i] = a.Buffer(i).Bytes()
	}
	for _, child := range a.Children {
		if !child.IsReleased() {
			child.flushBuffers()
		}
	}
	if !a.Dictionary.IsReleased() {
		a.Dictionary.flushBuffers()
	}
}

// finalizeBuffers gives empty string and binary data buffers memory so that
// consumers never see a nil data buffer.
func (a *Array) finalizeBuffers() error {
	switch a.priv.storageType {
	case schema.TypeString, schema.TypeBinary, schema.TypeLargeString, schema.TypeLargeBinary:
		if data := &a.priv.buffers[2]; data.Data() == nil {
			if err := data.Reserve(1); err != nil {
				return err
			}
		}
	}
	for _, child := range a.Children {
		if child.IsReleased() {
			continue
		}
		if err := child.finalizeBuffers(); err != nil {
			return err
		}
	}
	if !a.Dictionary.IsReleased() {
		return a.Dictionary.finalizeBuffers()
	}
	return nil
}

func (a *Array) unionChildIndex(typeID int8) int {
	m := a.priv.unionTypeIDMap
	if m == nil || typeID < 0 {
		return int(typeID)
	}
	return int(m[typeID])
}

func (a *Array) unionTypeID(childIndex int) int8 {
	m := a.priv.unionTypeIDMap
	if m == nil {
		return int8(childIndex)
	}
	return m[128+childIndex]
}
