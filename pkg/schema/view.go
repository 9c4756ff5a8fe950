package schema

import (
	"strconv"

	"github.com/ajitpratap0/strata/pkg/metadata"
	stringpool "github.com/ajitpratap0/strata/pkg/strings"
)

// Params carries the parameters of a parameterized type. It is one of
// FixedSizeParams, DecimalParams, DateTimeParams or UnionParams.
type Params interface {
	isParams()
}

// FixedSizeParams parameterizes fixed-size binary (bytes per element) and
// fixed-size list (child elements per element).
type FixedSizeParams struct {
	Size int32
}

// DecimalParams parameterizes the decimal types.
type DecimalParams struct {
	Precision int32
	Scale     int32
	BitWidth  int32
}

// DateTimeParams parameterizes time32, time64, timestamp and duration.
// Timezone is only ever set for timestamps.
type DateTimeParams struct {
	Unit     TimeUnit
	Timezone string
}

// UnionParams lists the type ids of a union, one per child.
type UnionParams struct {
	TypeIDs []int8
}

func (FixedSizeParams) isParams() {}
func (DecimalParams) isParams()   {}
func (DateTimeParams) isParams()  {}
func (UnionParams) isParams()     {}

// View is the parsed, read-only form of a Schema. It must be rebuilt after
// the schema's format, metadata, children or dictionary change.
type View struct {
	// Schema is the parsed schema; the view does not own it.
	Schema *Schema
	// Type is the logical type. It is TypeDictionary when the schema has a
	// dictionary, and is never TypeExtension.
	Type Type
	// StorageType is the physical interpretation of the buffers: the index
	// type for dictionaries and the integer type for dates and times.
	StorageType Type
	Layout      Layout
	// Params is nil for types without parameters.
	Params Params
	// ExtensionName is taken from the ARROW:extension:name metadata key.
	ExtensionName string
	// ExtensionMetadata is taken from the ARROW:extension:metadata key.
	ExtensionMetadata []byte

	explicitWidth bool
}

// NewView parses and validates s.
func NewView(s *Schema) (*View, error) {
	v := &View{}
	if err := v.Init(s); err != nil {
		return nil, err
	}
	return v, nil
}

// Init parses and validates s into v.
func (v *View) Init(s *Schema) error {
	*v = View{}
	if s == nil {
		return invalidArg("Expected non-nil schema")
	}
	if s.IsReleased() {
		return invalidArg("Expected non-released schema")
	}

	p, err := parseFormat(s.Format)
	if err != nil {
		return err
	}

	v.Schema = s
	v.Type = p.typ
	v.StorageType = p.storage
	v.Params = p.params
	v.explicitWidth = p.explicitWidth

	var fixedSize int64
	if fp, ok := p.params.(FixedSizeParams); ok {
		fixedSize = int64(fp.Size)
	}
	v.Layout = NewLayout(v.StorageType, fixedSize)

	if s.Dictionary != nil {
		if !v.StorageType.IsInteger() {
			return invalidArg("Expected dictionary schema index type to be an integral type but found '%s'", s.Format)
		}
		if s.Dictionary.IsReleased() {
			return invalidArg("Expected non-released schema.dictionary")
		}
		v.Type = TypeDictionary
	}

	if err := v.validateChildren(); err != nil {
		return err
	}

	if len(s.Metadata) > 0 {
		name, found, err := metadata.Lookup(s.Metadata, metadata.ExtensionNameKey)
		if err != nil {
			return err
		}
		if found {
			v.ExtensionName = string(name)
			extMeta, _, err := metadata.Lookup(s.Metadata, metadata.ExtensionMetadataKey)
			if err != nil {
				return err
			}
			v.ExtensionMetadata = extMeta
		}
	}
	return nil
}

func (v *View) expectChildren(n int) error {
	got := len(v.Schema.Children)
	if got != n {
		return invalidArg("Expected schema with %d children but found %d children", n, got)
	}
	return nil
}

func (v *View) validateChildren() error {
	s := v.Schema
	for i, child := range s.Children {
		if child.IsReleased() {
			return invalidArg("Expected valid schema at schema->children[%d] but found a released schema", i)
		}
	}

	switch v.StorageType {
	case TypeList, TypeLargeList, TypeListView, TypeLargeListView, TypeFixedSizeList:
		return v.expectChildren(1)

	case TypeMap:
		if err := v.expectChildren(1); err != nil {
			return err
		}
		entries := s.Children[0]
		if entries.Format != "+s" {
			return invalidArg("Expected format of child of map type to be '+s' but found '%s'", entries.Format)
		}
		if len(entries.Children) != 2 {
			return invalidArg("Expected child of map type to have 2 children but found %d", len(entries.Children))
		}
		if entries.Flags&FlagNullable != 0 {
			return invalidArg("Expected child of map type to be non-nullable but was nullable")
		}
		if entries.Children[0].IsReleased() || entries.Children[0].Flags&FlagNullable != 0 {
			return invalidArg("Expected key of map type to be non-nullable but was nullable")
		}
		return nil

	case TypeRunEndEncoded:
		if err := v.expectChildren(2); err != nil {
			return err
		}
		runEnds, err := parseFormat(s.Children[0].Format)
		if err != nil {
			return err
		}
		switch runEnds.storage {
		case TypeInt16, TypeInt32, TypeInt64:
			return nil
		}
		return invalidArg("Expected run-end encoded run_ends child to be int16, int32 or int64 but found %s", runEnds.typ)

	case TypeSparseUnion, TypeDenseUnion:
		ids := v.Params.(UnionParams).TypeIDs
		if len(ids) != len(s.Children) {
			return invalidArg("Expected union type_ids parameter to be a comma-separated list of %d values between 0 and 127 but found '%s'",
				len(s.Children), s.Format)
		}
		return nil

	case TypeStruct:
		return nil
	}

	return v.expectChildren(0)
}

// Format re-serializes the parsed type. For a dictionary it is the format of
// the index type.
func (v *View) Format() string {
	if v.Type == TypeDictionary {
		return simpleFormats[v.StorageType]
	}
	return formatOf(v.Type, v.Params, v.explicitWidth)
}

// FixedSize returns the fixed size parameter, or 0.
func (v *View) FixedSize() int32 {
	if p, ok := v.Params.(FixedSizeParams); ok {
		return p.Size
	}
	return 0
}

// Decimal returns the decimal parameters and whether the type is a decimal.
func (v *View) Decimal() (DecimalParams, bool) {
	p, ok := v.Params.(DecimalParams)
	return p, ok
}

// DateTime returns the unit and timezone and whether the type has them.
func (v *View) DateTime() (DateTimeParams, bool) {
	p, ok := v.Params.(DateTimeParams)
	return p, ok
}

// UnionTypeIDs returns the type ids of a union, or nil.
func (v *View) UnionTypeIDs() []int8 {
	if p, ok := v.Params.(UnionParams); ok {
		return p.TypeIDs
	}
	return nil
}

// IsExtension reports whether the schema carries an extension name.
func (v *View) IsExtension() bool {
	return v.ExtensionName != ""
}

func (v *View) writeTypeSummary(sb *stringpool.Builder) {
	sb.WriteString(v.Type.String())
	switch p := v.Params.(type) {
	case DecimalParams:
		sb.WriteString("(")
		sb.WriteString(strconv.Itoa(int(p.Precision)))
		sb.WriteString(", ")
		sb.WriteString(strconv.Itoa(int(p.Scale)))
		sb.WriteString(")")
	case DateTimeParams:
		sb.WriteString("('")
		sb.WriteString(p.Unit.String())
		sb.WriteString("'")
		if v.Type == TypeTimestamp {
			sb.WriteString(", '")
			sb.WriteString(p.Timezone)
			sb.WriteString("'")
		}
		sb.WriteString(")")
	case FixedSizeParams:
		sb.WriteString("(")
		sb.WriteString(strconv.Itoa(int(p.Size)))
		sb.WriteString(")")
	case UnionParams:
		sb.WriteString("([")
		for i, id := range p.TypeIDs {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(strconv.Itoa(int(id)))
		}
		sb.WriteString("])")
	}
}
