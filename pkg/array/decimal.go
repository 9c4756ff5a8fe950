package array

import (
	"encoding/binary"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/strata/pkg/errors"
)

const maxDecimalBytes = 32

// Decimal is a fixed-width decimal: an unscaled two's complement integer of
// BitWidth bits, read as value * 10^-Scale. The integer is stored
// little-endian, which is also its layout in decimal array buffers.
//
// The zero value has no width; use NewDecimal or Init.
type Decimal struct {
	data      [maxDecimalBytes]byte
	BitWidth  int32
	Precision int32
	Scale     int32
}

// NewDecimal returns a zero decimal of the given width, precision and scale.
func NewDecimal(bitWidth, precision, scale int32) (*Decimal, error) {
	d := &Decimal{}
	if err := d.Init(bitWidth, precision, scale); err != nil {
		return nil, err
	}
	return d, nil
}

// Init resets d to zero with the given width, precision and scale. The width
// must be 32, 64, 128 or 256.
func (d *Decimal) Init(bitWidth, precision, scale int32) error {
	switch bitWidth {
	case 32, 64, 128, 256:
	default:
		return invalidArg("decimal bit width must be 32, 64, 128 or 256 but found %d", bitWidth)
	}
	*d = Decimal{BitWidth: bitWidth, Precision: precision, Scale: scale}
	return nil
}

func (d *Decimal) width() int {
	return int(d.BitWidth / 8)
}

// Bytes returns the BitWidth/8 bytes of the unscaled value. The slice
// aliases d.
func (d *Decimal) Bytes() []byte {
	return d.data[:d.width()]
}

// SetBytes copies the unscaled value from the first BitWidth/8 bytes of b.
func (d *Decimal) SetBytes(b []byte) {
	copy(d.data[:d.width()], b)
}

// SetInt sets the unscaled value to v.
func (d *Decimal) SetInt(v int64) error {
	w := d.width()
	switch {
	case w == 0:
		return invalidArg("decimal has no bit width")
	case w == 4 && (v < math.MinInt32 || v > math.MaxInt32):
		return errors.Newf(errors.ErrorTypeNotRepresentable, "value %d is not representable as decimal32", v)
	}

	var fill byte
	if v < 0 {
		fill = 0xff
	}
	for i := range d.data[:w] {
		d.data[i] = fill
	}
	if w == 4 {
		binary.LittleEndian.PutUint32(d.data[:4], uint32(v))
	} else {
		binary.LittleEndian.PutUint64(d.data[:8], uint64(v))
	}
	return nil
}

// Int64 returns the low 64 bits of the unscaled value.
func (d *Decimal) Int64() int64 {
	switch d.width() {
	case 0:
		return 0
	case 4:
		return int64(int32(binary.LittleEndian.Uint32(d.data[:4])))
	}
	return int64(binary.LittleEndian.Uint64(d.data[:8]))
}

// Sign returns -1, 0 or 1.
func (d *Decimal) Sign() int {
	w := d.width()
	if w == 0 {
		return 0
	}
	if d.data[w-1]&0x80 != 0 {
		return -1
	}
	for _, b := range d.data[:w] {
		if b != 0 {
			return 1
		}
	}
	return 0
}

// Negate flips the sign of the unscaled value in place. The most negative
// value of a width stays unchanged.
func (d *Decimal) Negate() {
	carry := uint16(1)
	for i := range d.data[:d.width()] {
		v := uint16(^d.data[i]) + carry
		d.data[i] = byte(v)
		carry = v >> 8
	}
}

// BigInt returns the unscaled value.
func (d *Decimal) BigInt() *big.Int {
	w := d.width()
	be := make([]byte, w)
	for i := 0; i < w; i++ {
		be[i] = d.data[w-1-i]
	}
	v := new(big.Int).SetBytes(be)
	if d.Sign() < 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(d.BitWidth)))
	}
	return v
}

// SetBigInt sets the unscaled value, failing with not-representable when v
// does not fit in BitWidth bits.
func (d *Decimal) SetBigInt(v *big.Int) error {
	w := d.width()
	if w == 0 {
		return invalidArg("decimal has no bit width")
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(d.BitWidth-1))
	if v.Cmp(limit) >= 0 || v.Cmp(new(big.Int).Neg(limit)) < 0 {
		return errors.Newf(errors.ErrorTypeNotRepresentable, "value %s is not representable as decimal%d", v, d.BitWidth)
	}

	u := new(big.Int).Set(v)
	if u.Sign() < 0 {
		u.Add(u, new(big.Int).Lsh(limit, 1))
	}
	be := u.FillBytes(make([]byte, w))
	for i := 0; i < w; i++ {
		d.data[i] = be[w-1-i]
	}
	return nil
}

// SetDigits sets the unscaled value from base-10 digits with an optional
// leading sign, such as "-12345".
func (d *Decimal) SetDigits(digits string) error {
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return invalidArg("invalid decimal digits '%s'", digits)
	}
	return d.SetBigInt(v)
}

// Digits returns the unscaled value in base 10.
func (d *Decimal) Digits() string {
	return d.BigInt().String()
}

// Value returns d as an arbitrary-precision decimal with the scale applied.
func (d *Decimal) Value() decimal.Decimal {
	return decimal.NewFromBigInt(d.BigInt(), -d.Scale)
}

// SetValue sets d from v at the current scale. Digits below the scale make
// v not representable.
func (d *Decimal) SetValue(v decimal.Decimal) error {
	shifted := v.Shift(d.Scale)
	if !shifted.IsInteger() {
		return errors.Newf(errors.ErrorTypeNotRepresentable, "value %s has more than %d fractional digits", v, d.Scale)
	}
	return d.SetBigInt(shifted.BigInt())
}

// SetString parses a number such as "-12.50" at the current scale.
func (d *Decimal) SetString(s string) error {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return errors.Wrapf(err, errors.ErrorTypeInvalidArgument, "invalid decimal '%s'", s)
	}
	return d.SetValue(v)
}

// String renders the value with Scale fractional digits. A negative scale
// renders trailing zeros instead.
func (d *Decimal) String() string {
	if d.Scale <= 0 {
		return d.Value().StringFixed(0)
	}
	return d.Value().StringFixed(d.Scale)
}
