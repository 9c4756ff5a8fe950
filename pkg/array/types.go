package array

import (
	"math"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/schema"
)

// ValidationLevel selects how much of an array is checked.
type ValidationLevel int

const (
	// ValidationNone trusts the caller.
	ValidationNone ValidationLevel = iota
	// ValidationMinimal checks buffer counts and the buffer sizes implied by
	// the length, without reading buffer contents.
	ValidationMinimal
	// ValidationDefault also reads the first and last offsets of variable
	// length types and the first and last run ends.
	ValidationDefault
	// ValidationFull walks every offset, type id, run end, view and
	// dictionary index.
	ValidationFull
)

var validationLevelNames = [...]string{"none", "minimal", "default", "full"}

func (l ValidationLevel) String() string {
	if l < ValidationNone || l > ValidationFull {
		return "unknown"
	}
	return validationLevelNames[l]
}

// ParseValidationLevel parses "none", "minimal", "default" or "full".
func ParseValidationLevel(s string) (ValidationLevel, error) {
	for i, name := range validationLevelNames {
		if s == name {
			return ValidationLevel(i), nil
		}
	}
	return ValidationNone, invalidArg("unknown validation level '%s'", s)
}

// CompareLevel selects how strictly Compare matches two views.
type CompareLevel int

const (
	// CompareIdentical requires equal types, lengths, offsets, null counts
	// and byte-identical buffers.
	CompareIdentical CompareLevel = iota
	// CompareEquivalent requires the same logical values: nulls in the same
	// slots and equal non-null values, regardless of offsets or the bytes
	// behind nulls.
	CompareEquivalent
)

func (l CompareLevel) String() string {
	switch l {
	case CompareIdentical:
		return "identical"
	case CompareEquivalent:
		return "equivalent"
	}
	return "unknown"
}

// Interval is one value of an interval array. Type selects which fields are
// meaningful: Months for TypeIntervalMonths, Days and Millis for
// TypeIntervalDayTime, Months, Days and Nanos for TypeIntervalMonthDayNano.
type Interval struct {
	Type   schema.Type
	Months int32
	Days   int32
	Millis int32
	Nanos  int64
}

const (
	binaryViewFixedBuffers = 2
	binaryViewSize         = 16
	binaryViewInlineSize   = 12
	binaryViewPrefixSize   = 4
	binaryViewBlockSize    = 32 << 10
)

func isBinaryView(t schema.Type) bool {
	return t == schema.TypeBinaryView || t == schema.TypeStringView
}

// storageTypeOf maps a type to the storage type arrays of it are built
// with. Dictionary and extension types need a schema.
func storageTypeOf(t schema.Type) (schema.Type, bool) {
	switch t {
	case schema.TypeDate32, schema.TypeTime32:
		return schema.TypeInt32, true
	case schema.TypeDate64, schema.TypeTime64, schema.TypeTimestamp, schema.TypeDuration:
		return schema.TypeInt64, true
	case schema.TypeDictionary, schema.TypeExtension:
		return t, false
	}
	if t < schema.TypeUninitialized || t > schema.TypeLargeListView {
		return t, false
	}
	return t, true
}

// fixedBufferSizes returns the byte size of each fixed buffer that follows
// from length alone, or -1 where the size depends on buffer contents.
func fixedBufferSizes(l schema.Layout, length int64) [schema.MaxFixedBuffers]int64 {
	var sizes [schema.MaxFixedBuffers]int64
	for i := range sizes {
		bits := l.ElementSizeBits[i]
		switch l.BufferType[i] {
		case schema.BufferTypeValidity:
			sizes[i] = (length + 7) / 8
		case schema.BufferTypeDataOffset:
			if length != 0 {
				sizes[i] = (length + 1) * (bits / 8)
			}
		case schema.BufferTypeData:
			if bits == 0 {
				sizes[i] = -1
			} else {
				sizes[i] = (bits*length + 7) / 8
			}
		case schema.BufferTypeTypeID, schema.BufferTypeUnionOffset,
			schema.BufferTypeViewOffset, schema.BufferTypeSize:
			sizes[i] = bits / 8 * length
		}
	}
	return sizes
}

func invalidArg(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrorTypeInvalidArgument, format, args...)
}

func validationf(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrorTypeValidation, format, args...)
}

func notRepresentable(value interface{}, t schema.Type) error {
	return errors.Newf(errors.ErrorTypeNotRepresentable, "value %v is not representable as %s", value, t)
}

func overflowf(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrorTypeOverflow, format, args...)
}

// float bounds used by the exactness checks of the appenders
const (
	maxFloat32  = math.MaxFloat32
	maxHalf     = 65504
	twoTo63     = 9.223372036854775808e18
	twoTo64     = 1.8446744073709551616e19
	maxInt32I64 = int64(math.MaxInt32)
)
