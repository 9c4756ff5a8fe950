package memory

import "github.com/apache/arrow-go/v18/arrow/float16"

// FloatToHalf converts v to IEEE 754 binary16 bits. Values too large for a
// half float become infinity; values too small become zero. Subnormal half
// floats are not produced.
func FloatToHalf(v float32) uint16 {
	return float16.New(v).Uint16()
}

// HalfToFloat converts IEEE 754 binary16 bits to a float32.
func HalfToFloat(h uint16) float32 {
	return float16.FromBits(h).Float32()
}
