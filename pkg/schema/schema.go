package schema

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/metadata"
	stringpool "github.com/ajitpratap0/strata/pkg/strings"
)

// Schema describes one possibly nested logical type.
//
// The zero value is released: it has no release binding and must be
// initialized before use. A Schema owns its children and dictionary; Release
// frees the whole tree and Move hands it to another location.
//
// A Schema is not safe for concurrent use.
type Schema struct {
	// Format is the type format string, empty while unset.
	Format string
	Name   string
	// Metadata is the encoded key/value metadata, nil when absent.
	Metadata   []byte
	Flags      int64
	Children   []*Schema
	Dictionary *Schema

	release func(*Schema)
}

func releaseSchema(s *Schema) {
	for _, child := range s.Children {
		if child != nil {
			child.Release()
		}
	}
	if s.Dictionary != nil {
		s.Dictionary.Release()
	}
}

// Init binds a release operation and resets s to a nullable schema with no
// format, name, metadata, children or dictionary.
func (s *Schema) Init() {
	*s = Schema{
		Flags:   FlagNullable,
		release: releaseSchema,
	}
}

// New returns an initialized schema of type t.
func New(t Type) (*Schema, error) {
	s := &Schema{}
	if err := s.InitFromType(t); err != nil {
		return nil, err
	}
	return s, nil
}

// InitFromType initializes s and sets its type. On failure s is left released.
func (s *Schema) InitFromType(t Type) error {
	s.Init()
	if err := s.SetType(t); err != nil {
		s.Release()
		return err
	}
	return nil
}

// IsReleased reports whether s has no release binding.
func (s *Schema) IsReleased() bool {
	return s == nil || s.release == nil
}

// Release frees children and dictionary and clears the binding. Releasing a
// released schema is a no-op.
func (s *Schema) Release() {
	if s.IsReleased() {
		return
	}
	release := s.release
	release(s)
	*s = Schema{}
}

// Move transfers s and everything it owns to dst and leaves s released. dst
// must be released.
func (s *Schema) Move(dst *Schema) {
	*dst = *s
	*s = Schema{}
}

func invalidArg(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrorTypeInvalidArgument, format, args...)
}

// SetFormat sets the format string without validating it.
func (s *Schema) SetFormat(format string) {
	s.Format = format
}

// SetName sets the field name.
func (s *Schema) SetName(name string) {
	s.Name = name
}

// SetMetadata replaces the metadata with a copy of md. The copy stops at the
// encoded size of md.
func (s *Schema) SetMetadata(md []byte) error {
	if len(md) == 0 {
		s.Metadata = nil
		return nil
	}
	size, err := metadata.SizeOf(md)
	if err != nil {
		return err
	}
	s.Metadata = bytes.Clone(md[:size])
	return nil
}

// AllocateChildren allocates n released children. It fails if children were
// already allocated.
func (s *Schema) AllocateChildren(n int) error {
	if s.Children != nil {
		return invalidArg("schema children are already allocated")
	}
	if n < 0 {
		return invalidArg("cannot allocate %d children", n)
	}
	s.Children = make([]*Schema, n)
	for i := range s.Children {
		s.Children[i] = &Schema{}
	}
	return nil
}

// AllocateDictionary allocates a released dictionary schema. It fails if one
// is already allocated.
func (s *Schema) AllocateDictionary() error {
	if s.Dictionary != nil {
		return invalidArg("schema dictionary is already allocated")
	}
	s.Dictionary = &Schema{}
	return nil
}

// allocateInitChildren allocates and initializes n children.
func (s *Schema) allocateInitChildren(n int) error {
	if err := s.AllocateChildren(n); err != nil {
		return err
	}
	for _, child := range s.Children {
		child.Init()
	}
	return nil
}

var simpleFormats = map[Type]string{
	TypeNA:                   "n",
	TypeBool:                 "b",
	TypeUint8:                "C",
	TypeInt8:                 "c",
	TypeUint16:               "S",
	TypeInt16:                "s",
	TypeUint32:               "I",
	TypeInt32:                "i",
	TypeUint64:               "L",
	TypeInt64:                "l",
	TypeHalfFloat:            "e",
	TypeFloat:                "f",
	TypeDouble:               "g",
	TypeString:               "u",
	TypeLargeString:          "U",
	TypeBinary:               "z",
	TypeLargeBinary:          "Z",
	TypeBinaryView:           "vz",
	TypeStringView:           "vu",
	TypeDate32:               "tdD",
	TypeDate64:               "tdm",
	TypeIntervalMonths:       "tiM",
	TypeIntervalDayTime:      "tiD",
	TypeIntervalMonthDayNano: "tin",
	TypeList:                 "+l",
	TypeLargeList:            "+L",
	TypeListView:             "+vl",
	TypeLargeListView:        "+vL",
	TypeStruct:               "+s",
	TypeMap:                  "+m",
}

// SetType sets the format of a type that needs no parameters. List types
// get one child named "item"; map gets a non-nullable "entries" struct with
// a non-nullable "key" and a "value". Child types are left for the caller.
// TypeUninitialized clears the format.
func (s *Schema) SetType(t Type) error {
	if t == TypeUninitialized {
		s.Format = ""
		return nil
	}
	format, ok := simpleFormats[t]
	if !ok {
		return invalidArg("type %s cannot be set without parameters", t)
	}
	s.Format = format

	switch t {
	case TypeList, TypeLargeList, TypeListView, TypeLargeListView:
		if err := s.allocateInitChildren(1); err != nil {
			return err
		}
		s.Children[0].Name = "item"
	case TypeMap:
		if err := s.allocateInitChildren(1); err != nil {
			return err
		}
		entries := s.Children[0]
		entries.Name = "entries"
		entries.Flags &^= FlagNullable
		if err := entries.SetTypeStruct(2); err != nil {
			return err
		}
		entries.Children[0].Name = "key"
		entries.Children[0].Flags &^= FlagNullable
		entries.Children[1].Name = "value"
	}
	return nil
}

// SetTypeStruct makes s a struct with n initialized children.
func (s *Schema) SetTypeStruct(n int) error {
	if err := s.SetType(TypeStruct); err != nil {
		return err
	}
	return s.allocateInitChildren(n)
}

// SetTypeFixedSize makes s a fixed-size binary of size bytes or a
// fixed-size list of size elements with one child named "item".
func (s *Schema) SetTypeFixedSize(t Type, size int32) error {
	if size <= 0 {
		return invalidArg("expected fixed size > 0 but found %d", size)
	}
	switch t {
	case TypeFixedSizeBinary:
		s.Format = "w:" + strconv.Itoa(int(size))
	case TypeFixedSizeList:
		s.Format = "+w:" + strconv.Itoa(int(size))
		if err := s.allocateInitChildren(1); err != nil {
			return err
		}
		s.Children[0].Name = "item"
	default:
		return invalidArg("type %s is not fixed-size", t)
	}
	return nil
}

// SetTypeDecimal makes s a decimal of the given kind. Precision must be in
// [1, max precision of the kind]; scale is written as given and may be
// negative or exceed the precision.
func (s *Schema) SetTypeDecimal(t Type, precision, scale int32) error {
	if !t.IsDecimal() {
		return invalidArg("type %s is not a decimal type", t)
	}
	if precision <= 0 || precision > t.DecimalMaxPrecision() {
		return invalidArg("expected %s precision in [1, %d] but found %d", t, t.DecimalMaxPrecision(), precision)
	}
	s.Format = formatDecimal(precision, scale, t.DecimalBitWidth(), false)
	return nil
}

// SetTypeRunEndEncoded makes s run-end encoded with a non-nullable
// "run_ends" child of runEndType and a "values" child whose type is left to
// the caller.
func (s *Schema) SetTypeRunEndEncoded(runEndType Type) error {
	switch runEndType {
	case TypeInt16, TypeInt32, TypeInt64:
	default:
		return invalidArg("run ends must be int16, int32 or int64 but found %s", runEndType)
	}

	s.Format = "+r"
	if err := s.allocateInitChildren(2); err != nil {
		return err
	}
	if err := s.Children[0].SetType(runEndType); err != nil {
		return err
	}
	s.Children[0].Name = "run_ends"
	s.Children[0].Flags &^= FlagNullable
	s.Children[1].Name = "values"
	return nil
}

// SetTypeDateTime makes s a time32, time64, timestamp or duration. A
// timezone is only accepted for timestamps; time32 takes seconds or
// milliseconds and time64 microseconds or nanoseconds.
func (s *Schema) SetTypeDateTime(t Type, unit TimeUnit, timezone string) error {
	if unit < Second || unit > Nano {
		return invalidArg("invalid time unit %d", unit)
	}
	if timezone != "" && t != TypeTimestamp {
		return invalidArg("timezone is only valid for timestamp, not %s", t)
	}

	switch t {
	case TypeTime32:
		if unit != Second && unit != Milli {
			return invalidArg("time32 requires a unit of s or ms but found %s", unit)
		}
	case TypeTime64:
		if unit != Micro && unit != Nano {
			return invalidArg("time64 requires a unit of us or ns but found %s", unit)
		}
	case TypeTimestamp, TypeDuration:
	default:
		return invalidArg("type %s is not a date/time type with a unit", t)
	}

	s.Format = formatDateTime(t, unit, timezone)
	return nil
}

// SetTypeUnion makes s a sparse or dense union of n initialized children
// with type ids 0..n-1.
func (s *Schema) SetTypeUnion(t Type, n int) error {
	if !t.IsUnion() {
		return invalidArg("type %s is not a union type", t)
	}
	if n < 0 || n > 127 {
		return invalidArg("union must have between 0 and 127 children but found %d", n)
	}
	ids := make([]int8, n)
	for i := range ids {
		ids[i] = int8(i)
	}
	s.Format = formatUnion(t, ids)
	return s.allocateInitChildren(n)
}

// DeepCopy copies s and everything it owns into dst, which must be released.
// On failure dst is left released.
func (s *Schema) DeepCopy(dst *Schema) error {
	if s.IsReleased() {
		return invalidArg("cannot copy a released schema")
	}
	dst.Init()
	dst.Format = s.Format
	dst.Name = s.Name
	dst.Flags = s.Flags
	if err := dst.SetMetadata(s.Metadata); err != nil {
		dst.Release()
		return err
	}

	if s.Children != nil {
		_ = dst.AllocateChildren(len(s.Children))
		for i, child := range s.Children {
			if child.IsReleased() {
				continue
			}
			if err := child.DeepCopy(dst.Children[i]); err != nil {
				dst.Release()
				return err
			}
		}
	}

	if s.Dictionary != nil {
		_ = dst.AllocateDictionary()
		if !s.Dictionary.IsReleased() {
			if err := s.Dictionary.DeepCopy(dst.Dictionary); err != nil {
				dst.Release()
				return err
			}
		}
	}
	return nil
}

// String renders the full recursive summary of s.
func (s *Schema) String() string {
	out, _ := s.Summary(-1, true)
	return out
}

// Summary renders a human-readable description such as
// "struct<a: int32, b: dictionary(int8)<string>>". With maxLen >= 0 the
// result is cut to maxLen bytes; the returned length is that of the full
// rendering.
func (s *Schema) Summary(maxLen int, recursive bool) (string, int) {
	sb := stringpool.GetBuilder(stringpool.Small)
	defer stringpool.PutBuilder(sb, stringpool.Small)

	s.writeSummary(sb, recursive)
	n := sb.Len()
	if maxLen >= 0 && n > maxLen {
		sb.Truncate(maxLen)
	}
	return stringpool.Clone(sb.String()), n
}

func (s *Schema) writeSummary(sb *stringpool.Builder, recursive bool) {
	if s.IsReleased() {
		sb.WriteString("[invalid: schema is released]")
		return
	}
	v, err := NewView(s)
	if err != nil {
		sb.WriteString("[invalid: ")
		sb.WriteString(err.Error())
		sb.WriteString("]")
		return
	}

	isExtension := v.ExtensionName != ""
	isDictionary := s.Dictionary != nil

	if isExtension {
		sb.WriteString(v.ExtensionName)
		sb.WriteString("{")
	}
	if isDictionary {
		sb.WriteString("dictionary(")
		sb.WriteString(v.StorageType.String())
		sb.WriteString(")<")
		s.Dictionary.writeSummary(sb, recursive)
	} else {
		v.writeTypeSummary(sb)
		if recursive && strings.HasPrefix(s.Format, "+") {
			sb.WriteString("<")
			for i, child := range s.Children {
				if i > 0 {
					sb.WriteString(", ")
				}
				if child != nil {
					sb.WriteString(child.Name)
				}
				sb.WriteString(": ")
				child.writeSummary(sb, recursive)
			}
			sb.WriteString(">")
		}
	}
	if isDictionary {
		sb.WriteString(">")
	}
	if isExtension {
		sb.WriteString("}")
	}
}
