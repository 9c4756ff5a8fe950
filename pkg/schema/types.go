package schema

// Type identifies a logical or storage type.
type Type int

const (
	TypeUninitialized Type = iota
	TypeNA
	TypeBool
	TypeUint8
	TypeInt8
	TypeUint16
	TypeInt16
	TypeUint32
	TypeInt32
	TypeUint64
	TypeInt64
	TypeHalfFloat
	TypeFloat
	TypeDouble
	TypeString
	TypeBinary
	TypeFixedSizeBinary
	TypeDate32
	TypeDate64
	TypeTimestamp
	TypeTime32
	TypeTime64
	TypeIntervalMonths
	TypeIntervalDayTime
	TypeDecimal128
	TypeDecimal256
	TypeList
	TypeStruct
	TypeSparseUnion
	TypeDenseUnion
	TypeDictionary
	TypeMap
	TypeExtension
	TypeFixedSizeList
	TypeDuration
	TypeLargeString
	TypeLargeBinary
	TypeLargeList
	TypeIntervalMonthDayNano
	TypeRunEndEncoded
	TypeBinaryView
	TypeStringView
	TypeDecimal32
	TypeDecimal64
	TypeListView
	TypeLargeListView
)

var typeNames = [...]string{
	TypeUninitialized:        "uninitialized",
	TypeNA:                   "na",
	TypeBool:                 "bool",
	TypeUint8:                "uint8",
	TypeInt8:                 "int8",
	TypeUint16:               "uint16",
	TypeInt16:                "int16",
	TypeUint32:               "uint32",
	TypeInt32:                "int32",
	TypeUint64:               "uint64",
	TypeInt64:                "int64",
	TypeHalfFloat:            "half_float",
	TypeFloat:                "float",
	TypeDouble:               "double",
	TypeString:               "string",
	TypeBinary:               "binary",
	TypeFixedSizeBinary:      "fixed_size_binary",
	TypeDate32:               "date32",
	TypeDate64:               "date64",
	TypeTimestamp:            "timestamp",
	TypeTime32:               "time32",
	TypeTime64:               "time64",
	TypeIntervalMonths:       "interval_months",
	TypeIntervalDayTime:      "interval_day_time",
	TypeDecimal128:           "decimal128",
	TypeDecimal256:           "decimal256",
	TypeList:                 "list",
	TypeStruct:               "struct",
	TypeSparseUnion:          "sparse_union",
	TypeDenseUnion:           "dense_union",
	TypeDictionary:           "dictionary",
	TypeMap:                  "map",
	TypeExtension:            "extension",
	TypeFixedSizeList:        "fixed_size_list",
	TypeDuration:             "duration",
	TypeLargeString:          "large_string",
	TypeLargeBinary:          "large_binary",
	TypeLargeList:            "large_list",
	TypeIntervalMonthDayNano: "interval_month_day_nano",
	TypeRunEndEncoded:        "run_end_encoded",
	TypeBinaryView:           "binary_view",
	TypeStringView:           "string_view",
	TypeDecimal32:            "decimal32",
	TypeDecimal64:            "decimal64",
	TypeListView:             "list_view",
	TypeLargeListView:        "large_list_view",
}

// String returns the lower-case name of the type.
func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// IsSignedInteger reports whether t is int8, int16, int32 or int64.
func (t Type) IsSignedInteger() bool {
	switch t {
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return true
	}
	return false
}

// IsUnsignedInteger reports whether t is uint8, uint16, uint32 or uint64.
func (t Type) IsUnsignedInteger() bool {
	switch t {
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64:
		return true
	}
	return false
}

// IsInteger reports whether t is a signed or unsigned integer.
func (t Type) IsInteger() bool {
	return t.IsSignedInteger() || t.IsUnsignedInteger()
}

// IsDecimal reports whether t is one of the decimal widths.
func (t Type) IsDecimal() bool {
	switch t {
	case TypeDecimal32, TypeDecimal64, TypeDecimal128, TypeDecimal256:
		return true
	}
	return false
}

// IsUnion reports whether t is a sparse or dense union.
func (t Type) IsUnion() bool {
	return t == TypeSparseUnion || t == TypeDenseUnion
}

// DecimalBitWidth returns the storage width of a decimal type, or 0.
func (t Type) DecimalBitWidth() int32 {
	switch t {
	case TypeDecimal32:
		return 32
	case TypeDecimal64:
		return 64
	case TypeDecimal128:
		return 128
	case TypeDecimal256:
		return 256
	}
	return 0
}

// DecimalMaxPrecision returns the largest precision a decimal type can hold.
func (t Type) DecimalMaxPrecision() int32 {
	switch t {
	case TypeDecimal32:
		return 9
	case TypeDecimal64:
		return 18
	case TypeDecimal128:
		return 38
	case TypeDecimal256:
		return 76
	}
	return 0
}

// TimeUnit is the resolution of temporal types.
type TimeUnit int

const (
	Second TimeUnit = iota
	Milli
	Micro
	Nano
)

var timeUnitNames = [...]string{Second: "s", Milli: "ms", Micro: "us", Nano: "ns"}

// String returns "s", "ms", "us" or "ns".
func (u TimeUnit) String() string {
	if u < Second || u > Nano {
		return "unknown"
	}
	return timeUnitNames[u]
}

// formatChar is the single character used for u in format strings.
func (u TimeUnit) formatChar() byte {
	return "smun"[u]
}

func timeUnitFromChar(c byte) (TimeUnit, bool) {
	switch c {
	case 's':
		return Second, true
	case 'm':
		return Milli, true
	case 'u':
		return Micro, true
	case 'n':
		return Nano, true
	}
	return 0, false
}

// Schema flags.
const (
	FlagDictionaryOrdered int64 = 1
	FlagNullable          int64 = 2
	FlagMapKeysSorted     int64 = 4
)
