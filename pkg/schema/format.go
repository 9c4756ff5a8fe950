package schema

import (
	"strconv"
	"strings"
)

// parsed is the result of parsing one format string.
type parsed struct {
	typ     Type
	storage Type
	params  Params
	// explicitWidth records a decimal128 format that spelled out ",128".
	explicitWidth bool
}

type formatParser struct {
	format string
	pos    int
}

func (p *formatParser) errorf(msg string, args ...interface{}) error {
	return invalidArg("Error parsing schema->format '%s': "+msg, append([]interface{}{p.format}, args...)...)
}

func (p *formatParser) rest() string {
	return p.format[p.pos:]
}

func (p *formatParser) consume(prefix string) bool {
	if strings.HasPrefix(p.rest(), prefix) {
		p.pos += len(prefix)
		return true
	}
	return false
}

// parseInt reads an optionally signed base-10 integer in canonical form: no
// leading zeros and no negative zero, so that every accepted format
// re-serializes to the same text.
func (p *formatParser) parseInt(what string) (int64, error) {
	start := p.pos
	if p.pos < len(p.format) && p.format[p.pos] == '-' {
		p.pos++
	}
	digits := p.pos
	for p.pos < len(p.format) && p.format[p.pos] >= '0' && p.format[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == digits {
		p.pos = start
		return 0, p.errorf("expected an integer %s at position %d", what, start)
	}
	if p.format[digits] == '0' && (p.pos-digits > 1 || digits > start) {
		return 0, p.errorf("%s '%s' is not in canonical form", what, p.format[start:p.pos])
	}
	v, err := strconv.ParseInt(p.format[start:p.pos], 10, 32)
	if err != nil {
		return 0, p.errorf("%s '%s' is out of range", what, p.format[start:p.pos])
	}
	return v, nil
}

func parseFormat(format string) (parsed, error) {
	p := &formatParser{format: format}
	if format == "" {
		return parsed{}, invalidArg("Error parsing schema->format: expected a non-empty format string")
	}

	out, err := p.parse()
	if err != nil {
		return parsed{}, err
	}
	if p.pos != len(format) {
		return parsed{}, p.errorf("parsed %d/%d characters", p.pos, len(format))
	}
	return out, nil
}

var primitiveChars = map[byte]Type{
	'n': TypeNA,
	'b': TypeBool,
	'c': TypeInt8,
	'C': TypeUint8,
	's': TypeInt16,
	'S': TypeUint16,
	'i': TypeInt32,
	'I': TypeUint32,
	'l': TypeInt64,
	'L': TypeUint64,
	'e': TypeHalfFloat,
	'f': TypeFloat,
	'g': TypeDouble,
	'z': TypeBinary,
	'Z': TypeLargeBinary,
	'u': TypeString,
	'U': TypeLargeString,
}

func same(t Type) parsed { return parsed{typ: t, storage: t} }

func (p *formatParser) parse() (parsed, error) {
	c := p.format[0]
	if t, ok := primitiveChars[c]; ok {
		p.pos = 1
		return same(t), nil
	}

	switch c {
	case 'v':
		switch {
		case p.consume("vz"):
			return same(TypeBinaryView), nil
		case p.consume("vu"):
			return same(TypeStringView), nil
		}
	case 'd':
		return p.parseDecimal()
	case 'w':
		p.pos = 1
		if !p.consume(":") {
			return parsed{}, p.errorf("expected ':' after 'w'")
		}
		size, err := p.parseFixedSize()
		if err != nil {
			return parsed{}, err
		}
		return parsed{typ: TypeFixedSizeBinary, storage: TypeFixedSizeBinary, params: FixedSizeParams{Size: size}}, nil
	case '+':
		return p.parseNested()
	case 't':
		return p.parseTemporal()
	}

	return parsed{}, p.errorf("unknown format")
}

func (p *formatParser) parseFixedSize() (int32, error) {
	size, err := p.parseInt("fixed size")
	if err != nil {
		return 0, err
	}
	if size <= 0 {
		return 0, p.errorf("expected fixed size > 0 but found %d", size)
	}
	return int32(size), nil
}

func (p *formatParser) parseDecimal() (parsed, error) {
	if !p.consume("d:") {
		return parsed{}, p.errorf("expected ':' after 'd'")
	}
	precision, err := p.parseInt("decimal precision")
	if err != nil {
		return parsed{}, err
	}
	if !p.consume(",") {
		return parsed{}, p.errorf("expected 'precision,scale[,bitwidth]' following 'd:'")
	}
	scale, err := p.parseInt("decimal scale")
	if err != nil {
		return parsed{}, err
	}

	bitWidth := int64(128)
	explicit := p.consume(",")
	if explicit {
		if bitWidth, err = p.parseInt("decimal bit width"); err != nil {
			return parsed{}, err
		}
	}

	var t Type
	switch bitWidth {
	case 32:
		t = TypeDecimal32
	case 64:
		t = TypeDecimal64
	case 128:
		t = TypeDecimal128
	case 256:
		t = TypeDecimal256
	default:
		return parsed{}, p.errorf("expected decimal bit width of 32, 64, 128 or 256 but found %d", bitWidth)
	}

	if precision <= 0 || precision > int64(t.DecimalMaxPrecision()) {
		return parsed{}, p.errorf("expected %s precision in [1, %d] but found %d", t, t.DecimalMaxPrecision(), precision)
	}

	return parsed{
		typ:     t,
		storage: t,
		params:  DecimalParams{Precision: int32(precision), Scale: int32(scale), BitWidth: int32(bitWidth)},
		// only decimal128 may omit its width
		explicitWidth: explicit && bitWidth == 128,
	}, nil
}

func (p *formatParser) parseNested() (parsed, error) {
	switch {
	case p.consume("+l"):
		return same(TypeList), nil
	case p.consume("+L"):
		return same(TypeLargeList), nil
	case p.consume("+vl"):
		return same(TypeListView), nil
	case p.consume("+vL"):
		return same(TypeLargeListView), nil
	case p.consume("+s"):
		return same(TypeStruct), nil
	case p.consume("+m"):
		return same(TypeMap), nil
	case p.consume("+r"):
		return same(TypeRunEndEncoded), nil
	case p.consume("+w:"):
		size, err := p.parseFixedSize()
		if err != nil {
			return parsed{}, err
		}
		return parsed{typ: TypeFixedSizeList, storage: TypeFixedSizeList, params: FixedSizeParams{Size: size}}, nil
	case p.consume("+ud:"):
		return p.parseUnion(TypeDenseUnion)
	case p.consume("+us:"):
		return p.parseUnion(TypeSparseUnion)
	}
	return parsed{}, p.errorf("unknown nested format")
}

func (p *formatParser) parseUnion(t Type) (parsed, error) {
	var ids []int8
	seen := [128]bool{}
	for p.pos < len(p.format) {
		if len(ids) > 0 && !p.consume(",") {
			return parsed{}, p.errorf("expected ',' between union type ids")
		}
		id, err := p.parseInt("union type id")
		if err != nil {
			return parsed{}, err
		}
		if id < 0 || id > 127 {
			return parsed{}, p.errorf("expected union type ids between 0 and 127 but found %d", id)
		}
		if seen[id] {
			return parsed{}, p.errorf("duplicate union type id %d", id)
		}
		seen[id] = true
		ids = append(ids, int8(id))
	}
	if ids == nil {
		ids = []int8{}
	}
	return parsed{typ: t, storage: t, params: UnionParams{TypeIDs: ids}}, nil
}

func (p *formatParser) parseTemporal() (parsed, error) {
	if len(p.format) < 3 {
		return parsed{}, p.errorf("expected a temporal type code and unit")
	}
	kind, unitChar := p.format[1], p.format[2]
	p.pos = 3

	switch kind {
	case 'd':
		switch unitChar {
		case 'D':
			return parsed{typ: TypeDate32, storage: TypeInt32}, nil
		case 'm':
			return parsed{typ: TypeDate64, storage: TypeInt64}, nil
		}
	case 'i':
		switch unitChar {
		case 'M':
			return same(TypeIntervalMonths), nil
		case 'D':
			return same(TypeIntervalDayTime), nil
		case 'n':
			return same(TypeIntervalMonthDayNano), nil
		}
	case 't':
		unit, ok := timeUnitFromChar(unitChar)
		if !ok {
			break
		}
		if unit == Second || unit == Milli {
			return parsed{typ: TypeTime32, storage: TypeInt32, params: DateTimeParams{Unit: unit}}, nil
		}
		return parsed{typ: TypeTime64, storage: TypeInt64, params: DateTimeParams{Unit: unit}}, nil
	case 's':
		unit, ok := timeUnitFromChar(unitChar)
		if !ok {
			break
		}
		if !p.consume(":") {
			return parsed{}, p.errorf("expected ':' after timestamp unit")
		}
		tz := p.rest()
		p.pos = len(p.format)
		return parsed{typ: TypeTimestamp, storage: TypeInt64, params: DateTimeParams{Unit: unit, Timezone: tz}}, nil
	case 'D':
		unit, ok := timeUnitFromChar(unitChar)
		if !ok {
			break
		}
		return parsed{typ: TypeDuration, storage: TypeInt64, params: DateTimeParams{Unit: unit}}, nil
	}

	p.pos = 0
	return parsed{}, p.errorf("unknown temporal format")
}

func formatDecimal(precision, scale, bitWidth int32, explicitWidth bool) string {
	out := "d:" + strconv.Itoa(int(precision)) + "," + strconv.Itoa(int(scale))
	if bitWidth != 128 || explicitWidth {
		out += "," + strconv.Itoa(int(bitWidth))
	}
	return out
}

func formatDateTime(t Type, unit TimeUnit, timezone string) string {
	u := string(unit.formatChar())
	switch t {
	case TypeTime32, TypeTime64:
		return "tt" + u
	case TypeTimestamp:
		return "ts" + u + ":" + timezone
	case TypeDuration:
		return "tD" + u
	}
	return ""
}

func formatUnion(t Type, ids []int8) string {
	var sb strings.Builder
	if t == TypeDenseUnion {
		sb.WriteString("+ud:")
	} else {
		sb.WriteString("+us:")
	}
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(id)))
	}
	return sb.String()
}

// formatOf serializes a parsed type back into its format string.
// explicitWidth keeps a ",128" decimal width that the input spelled out.
func formatOf(t Type, params Params, explicitWidth bool) string {
	switch p := params.(type) {
	case FixedSizeParams:
		if t == TypeFixedSizeList {
			return "+w:" + strconv.Itoa(int(p.Size))
		}
		return "w:" + strconv.Itoa(int(p.Size))
	case DecimalParams:
		return formatDecimal(p.Precision, p.Scale, p.BitWidth, explicitWidth)
	case DateTimeParams:
		return formatDateTime(t, p.Unit, p.Timezone)
	case UnionParams:
		return formatUnion(t, p.TypeIDs)
	}
	if t == TypeRunEndEncoded {
		return "+r"
	}
	return simpleFormats[t]
}
