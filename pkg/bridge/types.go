package bridge

import (
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/metadata"
	"github.com/ajitpratap0/strata/pkg/schema"
)

var primitiveToArrow = map[schema.Type]arrow.DataType{
	schema.TypeNA:                   arrow.Null,
	schema.TypeBool:                 arrow.FixedWidthTypes.Boolean,
	schema.TypeUint8:                arrow.PrimitiveTypes.Uint8,
	schema.TypeInt8:                 arrow.PrimitiveTypes.Int8,
	schema.TypeUint16:               arrow.PrimitiveTypes.Uint16,
	schema.TypeInt16:                arrow.PrimitiveTypes.Int16,
	schema.TypeUint32:               arrow.PrimitiveTypes.Uint32,
	schema.TypeInt32:                arrow.PrimitiveTypes.Int32,
	schema.TypeUint64:               arrow.PrimitiveTypes.Uint64,
	schema.TypeInt64:                arrow.PrimitiveTypes.Int64,
	schema.TypeHalfFloat:            arrow.FixedWidthTypes.Float16,
	schema.TypeFloat:                arrow.PrimitiveTypes.Float32,
	schema.TypeDouble:               arrow.PrimitiveTypes.Float64,
	schema.TypeString:               arrow.BinaryTypes.String,
	schema.TypeBinary:               arrow.BinaryTypes.Binary,
	schema.TypeLargeString:          arrow.BinaryTypes.LargeString,
	schema.TypeLargeBinary:          arrow.BinaryTypes.LargeBinary,
	schema.TypeBinaryView:           arrow.BinaryTypes.BinaryView,
	schema.TypeStringView:           arrow.BinaryTypes.StringView,
	schema.TypeDate32:               arrow.FixedWidthTypes.Date32,
	schema.TypeDate64:               arrow.FixedWidthTypes.Date64,
	schema.TypeIntervalMonths:       arrow.FixedWidthTypes.MonthInterval,
	schema.TypeIntervalDayTime:      arrow.FixedWidthTypes.DayTimeInterval,
	schema.TypeIntervalMonthDayNano: arrow.FixedWidthTypes.MonthDayNanoInterval,
}

var primitiveFromArrow = func() map[arrow.Type]schema.Type {
	m := make(map[arrow.Type]schema.Type, len(primitiveToArrow))
	for t, dt := range primitiveToArrow {
		m[dt.ID()] = t
	}
	return m
}()

var timeUnits = [...]arrow.TimeUnit{
	schema.Second: arrow.Second,
	schema.Milli:  arrow.Millisecond,
	schema.Micro:  arrow.Microsecond,
	schema.Nano:   arrow.Nanosecond,
}

func timeUnitFromArrow(u arrow.TimeUnit) schema.TimeUnit {
	for su, au := range timeUnits {
		if au == u {
			return schema.TimeUnit(su)
		}
	}
	return schema.Second
}

func unsupported(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrorTypeInvalidArgument, format, args...)
}

// DataType returns the arrow-go type of s. Extension schemas map to their
// storage type; the extension name travels in the field metadata.
func DataType(s *schema.Schema) (arrow.DataType, error) {
	v, err := schema.NewView(s)
	if err != nil {
		return nil, err
	}

	if v.Type == schema.TypeDictionary {
		index, ok := primitiveToArrow[v.StorageType]
		if !ok {
			return nil, unsupported("unsupported dictionary index type %s", v.StorageType)
		}
		value, err := DataType(s.Dictionary)
		if err != nil {
			return nil, err
		}
		return &arrow.DictionaryType{
			IndexType: index,
			ValueType: value,
			Ordered:   s.Flags&schema.FlagDictionaryOrdered != 0,
		}, nil
	}

	if dt, ok := primitiveToArrow[v.Type]; ok {
		return dt, nil
	}

	switch v.Type {
	case schema.TypeFixedSizeBinary:
		return &arrow.FixedSizeBinaryType{ByteWidth: int(v.FixedSize())}, nil

	case schema.TypeDecimal128, schema.TypeDecimal256:
		p, _ := v.Decimal()
		if v.Type == schema.TypeDecimal128 {
			return &arrow.Decimal128Type{Precision: p.Precision, Scale: p.Scale}, nil
		}
		return &arrow.Decimal256Type{Precision: p.Precision, Scale: p.Scale}, nil

	case schema.TypeTimestamp, schema.TypeTime32, schema.TypeTime64, schema.TypeDuration:
		p, _ := v.DateTime()
		unit := timeUnits[p.Unit]
		switch v.Type {
		case schema.TypeTimestamp:
			return &arrow.TimestampType{Unit: unit, TimeZone: p.Timezone}, nil
		case schema.TypeTime32:
			return &arrow.Time32Type{Unit: unit}, nil
		case schema.TypeTime64:
			return &arrow.Time64Type{Unit: unit}, nil
		}
		return &arrow.DurationType{Unit: unit}, nil

	case schema.TypeList, schema.TypeLargeList, schema.TypeListView, schema.TypeLargeListView, schema.TypeFixedSizeList:
		item, err := Field(s.Children[0])
		if err != nil {
			return nil, err
		}
		switch v.Type {
		case schema.TypeList:
			return arrow.ListOfField(item), nil
		case schema.TypeLargeList:
			return arrow.LargeListOfField(item), nil
		case schema.TypeListView:
			return arrow.ListViewOfField(item), nil
		case schema.TypeLargeListView:
			return arrow.LargeListViewOfField(item), nil
		}
		return arrow.FixedSizeListOfField(v.FixedSize(), item), nil

	case schema.TypeStruct:
		fields, err := fieldsOf(s.Children)
		if err != nil {
			return nil, err
		}
		return arrow.StructOf(fields...), nil

	case schema.TypeMap:
		entries := s.Children[0]
		key, err := DataType(entries.Children[0])
		if err != nil {
			return nil, err
		}
		item, err := Field(entries.Children[1])
		if err != nil {
			return nil, err
		}
		mt := arrow.MapOf(key, item.Type)
		mt.KeysSorted = s.Flags&schema.FlagMapKeysSorted != 0
		mt.SetItemNullable(item.Nullable)
		return mt, nil

	case schema.TypeSparseUnion, schema.TypeDenseUnion:
		fields, err := fieldsOf(s.Children)
		if err != nil {
			return nil, err
		}
		ids := v.UnionTypeIDs()
		codes := make([]arrow.UnionTypeCode, len(ids))
		for i, id := range ids {
			codes[i] = arrow.UnionTypeCode(id)
		}
		if v.Type == schema.TypeSparseUnion {
			return arrow.SparseUnionOf(fields, codes), nil
		}
		return arrow.DenseUnionOf(fields, codes), nil

	case schema.TypeRunEndEncoded:
		runEnds, err := DataType(s.Children[0])
		if err != nil {
			return nil, err
		}
		values, err := DataType(s.Children[1])
		if err != nil {
			return nil, err
		}
		return arrow.RunEndEncodedOf(runEnds, values), nil
	}

	return nil, unsupported("type %s has no arrow-go equivalent", v.Type)
}

func fieldsOf(children []*schema.Schema) ([]arrow.Field, error) {
	fields := make([]arrow.Field, len(children))
	for i, child := range children {
		f, err := Field(child)
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	return fields, nil
}

// Field returns the arrow-go field for s: its name, type, nullability and
// metadata.
func Field(s *schema.Schema) (arrow.Field, error) {
	dt, err := DataType(s)
	if err != nil {
		return arrow.Field{}, err
	}
	md, err := MetadataToArrow(s.Metadata)
	if err != nil {
		return arrow.Field{}, err
	}
	return arrow.Field{
		Name:     s.Name,
		Type:     dt,
		Nullable: s.Flags&schema.FlagNullable != 0,
		Metadata: md,
	}, nil
}

// Schema returns the arrow-go schema of a struct schema s. The struct's
// children become the top-level fields.
func Schema(s *schema.Schema) (*arrow.Schema, error) {
	if s.IsReleased() || s.Format != "+s" {
		return nil, unsupported("expected a struct schema to convert to an arrow schema")
	}
	fields, err := fieldsOf(s.Children)
	if err != nil {
		return nil, err
	}
	md, err := MetadataToArrow(s.Metadata)
	if err != nil {
		return nil, err
	}
	return arrow.NewSchema(fields, &md), nil
}

// MetadataToArrow decodes encoded metadata into arrow-go metadata.
func MetadataToArrow(md []byte) (arrow.Metadata, error) {
	pairs, err := metadata.Pairs(md)
	if err != nil {
		return arrow.Metadata{}, err
	}
	if len(pairs) == 0 {
		return arrow.Metadata{}, nil
	}
	keys := make([]string, len(pairs))
	values := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i], values[i] = p.Key, p.Value
	}
	return arrow.NewMetadata(keys, values), nil
}

// MetadataFromArrow encodes arrow-go metadata, keeping its order.
func MetadataFromArrow(md arrow.Metadata) ([]byte, error) {
	keys, values := md.Keys(), md.Values()
	pairs := make([]metadata.Pair, len(keys))
	for i := range keys {
		pairs[i] = metadata.Pair{Key: keys[i], Value: values[i]}
	}
	return metadata.FromPairs(pairs...)
}

// ImportSchema fills out, which must be released, with a struct schema
// whose children are the fields of as.
func ImportSchema(as *arrow.Schema, out *schema.Schema) error {
	out.Init()
	if err := out.SetTypeStruct(as.NumFields()); err != nil {
		out.Release()
		return err
	}
	for i, f := range as.Fields() {
		out.Children[i].Release()
		if err := ImportField(f, out.Children[i]); err != nil {
			out.Release()
			return err
		}
	}
	md := as.Metadata()
	if err := setArrowMetadata(out, md); err != nil {
		out.Release()
		return err
	}
	return nil
}

// ImportField fills out, which must be released, from f.
func ImportField(f arrow.Field, out *schema.Schema) error {
	if err := ImportDataType(f.Type, out); err != nil {
		return err
	}
	out.SetName(f.Name)
	if !f.Nullable {
		out.Flags &^= schema.FlagNullable
	}
	if err := setArrowMetadata(out, f.Metadata); err != nil {
		out.Release()
		return err
	}
	return nil
}

func setArrowMetadata(s *schema.Schema, md arrow.Metadata) error {
	if md.Len() == 0 {
		return nil
	}
	encoded, err := MetadataFromArrow(md)
	if err != nil {
		return err
	}
	return s.SetMetadata(encoded)
}

// ImportDataType fills out, which must be released, with a nullable schema
// of type dt.
func ImportDataType(dt arrow.DataType, out *schema.Schema) error {
	out.Init()
	if err := importDataType(dt, out); err != nil {
		out.Release()
		return err
	}
	return nil
}

func importDataType(dt arrow.DataType, s *schema.Schema) error {
	if t, ok := primitiveFromArrow[dt.ID()]; ok {
		return s.SetType(t)
	}

	switch dt := dt.(type) {
	case *arrow.FixedSizeBinaryType:
		return s.SetTypeFixedSize(schema.TypeFixedSizeBinary, int32(dt.ByteWidth))
	case *arrow.Decimal128Type:
		return s.SetTypeDecimal(schema.TypeDecimal128, dt.Precision, dt.Scale)
	case *arrow.Decimal256Type:
		return s.SetTypeDecimal(schema.TypeDecimal256, dt.Precision, dt.Scale)
	case *arrow.TimestampType:
		return s.SetTypeDateTime(schema.TypeTimestamp, timeUnitFromArrow(dt.Unit), dt.TimeZone)
	case *arrow.Time32Type:
		return s.SetTypeDateTime(schema.TypeTime32, timeUnitFromArrow(dt.Unit), "")
	case *arrow.Time64Type:
		return s.SetTypeDateTime(schema.TypeTime64, timeUnitFromArrow(dt.Unit), "")
	case *arrow.DurationType:
		return s.SetTypeDateTime(schema.TypeDuration, timeUnitFromArrow(dt.Unit), "")

	case *arrow.ListType:
		return importList(s, schema.TypeList, dt.ElemField())
	case *arrow.LargeListType:
		return importList(s, schema.TypeLargeList, dt.ElemField())
	case *arrow.ListViewType:
		return importList(s, schema.TypeListView, dt.ElemField())
	case *arrow.LargeListViewType:
		return importList(s, schema.TypeLargeListView, dt.ElemField())
	case *arrow.FixedSizeListType:
		if err := s.SetTypeFixedSize(schema.TypeFixedSizeList, dt.Len()); err != nil {
			return err
		}
		return importChild(s, 0, dt.ElemField())

	case *arrow.MapType:
		if err := s.SetType(schema.TypeMap); err != nil {
			return err
		}
		if dt.KeysSorted {
			s.Flags |= schema.FlagMapKeysSorted
		}
		entries := s.Children[0]
		if err := importChild(entries, 0, dt.KeyField()); err != nil {
			return err
		}
		entries.Children[0].Flags &^= schema.FlagNullable
		return importChild(entries, 1, dt.ItemField())

	case *arrow.StructType:
		if err := s.SetTypeStruct(dt.NumFields()); err != nil {
			return err
		}
		for i, f := range dt.Fields() {
			if err := importChild(s, i, f); err != nil {
				return err
			}
		}
		return nil

	case arrow.UnionType:
		t := schema.TypeSparseUnion
		if dt.Mode() == arrow.DenseMode {
			t = schema.TypeDenseUnion
		}
		fields := dt.Fields()
		if err := s.SetTypeUnion(t, len(fields)); err != nil {
			return err
		}
		codes := make([]string, len(dt.TypeCodes()))
		for i, c := range dt.TypeCodes() {
			codes[i] = strconv.Itoa(int(c))
		}
		s.SetFormat(s.Format[:4] + strings.Join(codes, ","))
		for i, f := range fields {
			if err := importChild(s, i, f); err != nil {
				return err
			}
		}
		return nil

	case *arrow.DictionaryType:
		index, ok := primitiveFromArrow[dt.IndexType.ID()]
		if !ok {
			return unsupported("unsupported dictionary index type %s", dt.IndexType)
		}
		if err := s.SetType(index); err != nil {
			return err
		}
		if dt.Ordered {
			s.Flags |= schema.FlagDictionaryOrdered
		}
		if err := s.AllocateDictionary(); err != nil {
			return err
		}
		return ImportDataType(dt.ValueType, s.Dictionary)

	case *arrow.RunEndEncodedType:
		runEnds, ok := primitiveFromArrow[dt.RunEnds().ID()]
		if !ok {
			return unsupported("unsupported run end type %s", dt.RunEnds())
		}
		if err := s.SetTypeRunEndEncoded(runEnds); err != nil {
			return err
		}
		values := s.Children[1]
		values.Release()
		if err := ImportDataType(dt.Encoded(), values); err != nil {
			return err
		}
		values.SetName("values")
		return nil

	case arrow.ExtensionType:
		if err := importDataType(dt.StorageType(), s); err != nil {
			return err
		}
		md, err := metadata.FromPairs(
			metadata.Pair{Key: metadata.ExtensionNameKey, Value: dt.ExtensionName()},
			metadata.Pair{Key: metadata.ExtensionMetadataKey, Value: dt.Serialize()},
		)
		if err != nil {
			return err
		}
		return s.SetMetadata(md)
	}

	return unsupported("arrow type %s has no equivalent", dt)
}

func importList(s *schema.Schema, t schema.Type, item arrow.Field) error {
	if err := s.SetType(t); err != nil {
		return err
	}
	return importChild(s, 0, item)
}

// importChild replaces the initialized child i of s with one imported from f.
func importChild(s *schema.Schema, i int, f arrow.Field) error {
	child := s.Children[i]
	child.Release()
	return ImportField(f, child)
}
