// Package strings provides zero-copy conversions and pooled builders used when
// rendering type summaries, validation messages and metadata dumps.
package strings

import (
	"fmt"
	"sync"
	"unsafe"
)

// BytesToString converts a byte slice to a string without allocation.
// WARNING: The returned string shares memory with the byte slice.
// Do not modify the byte slice while the string is in use.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// StringToBytes converts a string to a byte slice without allocation.
// WARNING: The returned slice shares memory with the string and must not be modified.
func StringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// Clone returns a copy of s that does not share memory with it.
func Clone(s string) string {
	if len(s) == 0 {
		return ""
	}
	b := make([]byte, len(s))
	copy(b, s)
	return BytesToString(b)
}

// Builder accumulates bytes and hands them out as a string.
type Builder struct {
	buf []byte
}

// NewBuilder creates a builder with the given initial capacity.
func NewBuilder(capacity int) *Builder {
	return &Builder{buf: make([]byte, 0, capacity)}
}

// WriteString appends a string.
func (b *Builder) WriteString(s string) (int, error) {
	b.buf = append(b.buf, s...)
	return len(s), nil
}

// WriteByte appends a single byte.
func (b *Builder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// Write implements io.Writer.
func (b *Builder) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// String returns the built string. The result shares memory with the builder
// and is only valid until the next write or Reset.
func (b *Builder) String() string {
	return BytesToString(b.buf)
}

// Len returns the number of accumulated bytes.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Cap returns the capacity of the underlying buffer.
func (b *Builder) Cap() int {
	return cap(b.buf)
}

// Truncate discards all but the first n bytes.
func (b *Builder) Truncate(n int) {
	if n < len(b.buf) {
		b.buf = b.buf[:n]
	}
}

// Reset empties the builder for reuse.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// BuilderSize selects one of the builder pools.
type BuilderSize int

const (
	Small  BuilderSize = iota // < 1KB
	Medium                    // 1KB - 16KB
	Large                     // 16KB+
)

var builderPools = [...]*sync.Pool{
	Small:  {New: func() interface{} { return NewBuilder(1024) }},
	Medium: {New: func() interface{} { return NewBuilder(16 * 1024) }},
	Large:  {New: func() interface{} { return NewBuilder(64 * 1024) }},
}

func poolFor(size BuilderSize) *sync.Pool {
	if size < Small || size > Large {
		return builderPools[Small]
	}
	return builderPools[size]
}

// GetBuilder retrieves an empty pooled builder of the given size class.
func GetBuilder(size BuilderSize) *Builder {
	b := poolFor(size).Get().(*Builder)
	b.Reset()
	return b
}

// PutBuilder returns a builder to its pool.
func PutBuilder(b *Builder, size BuilderSize) {
	if b == nil {
		return
	}
	b.Reset()
	poolFor(size).Put(b)
}

// Sprintf is fmt.Sprintf backed by a pooled builder.
func Sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}

	size := Small
	if estimated := len(format) + len(args)*16; estimated > 16*1024 {
		size = Large
	} else if estimated > 1024 {
		size = Medium
	}

	b := GetBuilder(size)
	defer PutBuilder(b, size)
	fmt.Fprintf(b, format, args...)
	return Clone(b.String())
}
