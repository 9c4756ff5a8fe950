// Package metadata encodes and decodes schema metadata: an ordered list of
// key/value byte strings.
//
// The encoding is a 4-byte pair count followed, for each pair, by a 4-byte key
// length, the key bytes, a 4-byte value length and the value bytes. All
// integers are signed 32-bit in native byte order. Empty or nil metadata has
// no pairs.
package metadata

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/memory"
)

// Reserved keys identifying extension types.
const (
	ExtensionNameKey     = "ARROW:extension:name"
	ExtensionMetadataKey = "ARROW:extension:metadata"
)

// Pair is one decoded key/value entry.
type Pair struct {
	Key   string
	Value string
}

func readInt32(b []byte, pos int) (int32, error) {
	if pos+4 > len(b) {
		return 0, errors.Newf(errors.ErrorTypeInvalidArgument,
			"metadata truncated: expected 4 bytes at offset %d but only %d remain", pos, len(b)-pos)
	}
	return int32(binary.NativeEndian.Uint32(b[pos:])), nil
}

// Reader iterates over the pairs of encoded metadata. Returned keys and
// values alias the metadata bytes.
type Reader struct {
	md        []byte
	pos       int
	remaining int32
}

// NewReader reads the pair count and positions the reader on the first pair.
func NewReader(md []byte) (*Reader, error) {
	r := &Reader{md: md}
	if len(md) == 0 {
		return r, nil
	}

	n, err := readInt32(md, 0)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errors.Newf(errors.ErrorTypeInvalidArgument, "metadata has negative pair count %d", n)
	}
	r.pos = 4
	r.remaining = n
	return r, nil
}

// Remaining returns the number of pairs not yet read.
func (r *Reader) Remaining() int {
	return int(r.remaining)
}

func (r *Reader) readField() ([]byte, error) {
	n, err := readInt32(r.md, r.pos)
	if err != nil {
		return nil, err
	}
	start := r.pos + 4
	if n < 0 || int64(start)+int64(n) > int64(len(r.md)) {
		return nil, errors.Newf(errors.ErrorTypeInvalidArgument,
			"metadata field of length %d at offset %d exceeds %d bytes", n, r.pos, len(r.md))
	}
	r.pos = start + int(n)
	return r.md[start:r.pos:r.pos], nil
}

// Read returns the next pair, or io.EOF once every pair has been read.
func (r *Reader) Read() (key, value []byte, err error) {
	if r.remaining <= 0 {
		return nil, nil, io.EOF
	}
	if key, err = r.readField(); err != nil {
		return nil, nil, err
	}
	if value, err = r.readField(); err != nil {
		return nil, nil, err
	}
	r.remaining--
	return key, value, nil
}

// SizeOf returns the number of bytes occupied by the encoded metadata,
// following the length prefixes without copying keys or values.
func SizeOf(md []byte) (int64, error) {
	if len(md) == 0 {
		return 0, nil
	}
	r, err := NewReader(md)
	if err != nil {
		return 0, err
	}
	for {
		if _, _, err := r.Read(); err == io.EOF {
			return int64(r.pos), nil
		} else if err != nil {
			return 0, err
		}
	}
}

// Lookup returns the value of the first pair whose key equals key.
func Lookup(md []byte, key string) ([]byte, bool, error) {
	r, err := NewReader(md)
	if err != nil {
		return nil, false, err
	}
	for {
		k, v, err := r.Read()
		if err == io.EOF {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		if string(k) == key {
			return v, true, nil
		}
	}
}

// HasKey reports whether key is present. A missing key is not an error.
func HasKey(md []byte, key string) (bool, error) {
	_, found, err := Lookup(md, key)
	return found, err
}

// GetValue returns the value for key, or def unchanged when the key is absent.
func GetValue(md []byte, key string, def []byte) ([]byte, error) {
	v, found, err := Lookup(md, key)
	if err != nil || !found {
		return def, err
	}
	return v, nil
}

// Pairs decodes every pair in order.
func Pairs(md []byte) ([]Pair, error) {
	r, err := NewReader(md)
	if err != nil {
		return nil, err
	}
	pairs := make([]Pair, 0, r.Remaining())
	for {
		k, v, err := r.Read()
		if err == io.EOF {
			return pairs, nil
		}
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, Pair{Key: string(k), Value: string(v)})
	}
}

// FromPairs encodes pairs in order. No pairs encode to nil.
func FromPairs(pairs ...Pair) ([]byte, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	var buf memory.Buffer
	for _, p := range pairs {
		if err := BuilderAppend(&buf, p.Key, p.Value); err != nil {
			buf.Reset()
			return nil, err
		}
	}
	out := bytes.Clone(buf.Bytes())
	buf.Reset()
	return out, nil
}

func checkFieldLength(n int) error {
	if n > math.MaxInt32 {
		return errors.Newf(errors.ErrorTypeOverflow, "metadata field of %d bytes exceeds the int32 length prefix", n)
	}
	return nil
}

// BuilderInit resets buf and seeds it with a copy of existing metadata.
func BuilderInit(buf *memory.Buffer, existing []byte) error {
	buf.Reset()
	if len(existing) == 0 {
		return nil
	}
	size, err := SizeOf(existing)
	if err != nil {
		return err
	}
	return buf.Append(existing[:size])
}

func setCount(buf *memory.Buffer, n int32) {
	binary.NativeEndian.PutUint32(buf.Bytes(), uint32(n))
}

func count(buf *memory.Buffer) (int32, error) {
	return readInt32(buf.Bytes(), 0)
}

// BuilderAppend adds a pair at the end, even if key is already present.
func BuilderAppend(buf *memory.Buffer, key, value string) error {
	if err := checkFieldLength(len(key)); err != nil {
		return err
	}
	if err := checkFieldLength(len(value)); err != nil {
		return err
	}

	if buf.Len() == 0 {
		if err := buf.AppendInt32(0); err != nil {
			return err
		}
	}
	n, err := count(buf)
	if err != nil {
		return err
	}
	if n == math.MaxInt32 {
		return errors.New(errors.ErrorTypeOverflow, "metadata pair count exceeds int32")
	}

	// reserve the whole pair up front so a failure leaves buf untouched
	if err := buf.Reserve(int64(8 + len(key) + len(value))); err != nil {
		return err
	}
	if err := appendField(buf, key); err != nil {
		return err
	}
	if err := appendField(buf, value); err != nil {
		return err
	}
	setCount(buf, n+1)
	return nil
}

func appendField(buf *memory.Buffer, field string) error {
	if err := buf.AppendInt32(int32(len(field))); err != nil {
		return err
	}
	return buf.AppendString(field)
}

// find locates the first pair with key and returns the offsets of its key
// length prefix and of the byte just past its value.
func find(md []byte, key string) (start, end int, found bool, err error) {
	r, err := NewReader(md)
	if err != nil {
		return 0, 0, false, err
	}
	for {
		start = r.pos
		k, _, err := r.Read()
		if err == io.EOF {
			return 0, 0, false, nil
		}
		if err != nil {
			return 0, 0, false, err
		}
		if string(k) == key {
			return start, r.pos, true, nil
		}
	}
}

// splice replaces md[start:end] with repl inside buf.
func splice(buf *memory.Buffer, start, end int, repl []byte) error {
	oldLen := int(buf.Len())
	newLen := oldLen - (end - start) + len(repl)
	tail := bytes.Clone(buf.Bytes()[end:])
	if err := buf.Resize(int64(newLen), false); err != nil {
		return err
	}
	data := buf.Bytes()
	copy(data[start:], repl)
	copy(data[start+len(repl):], tail)
	return nil
}

// BuilderSet replaces the value of the first pair with key, keeping its
// position, or appends the pair when key is absent.
func BuilderSet(buf *memory.Buffer, key, value string) error {
	start, end, found, err := find(buf.Bytes(), key)
	if err != nil {
		return err
	}
	if !found {
		return BuilderAppend(buf, key, value)
	}
	if err := checkFieldLength(len(value)); err != nil {
		return err
	}

	pair := make([]byte, 0, 8+len(key)+len(value))
	pair = binary.NativeEndian.AppendUint32(pair, uint32(len(key)))
	pair = append(pair, key...)
	pair = binary.NativeEndian.AppendUint32(pair, uint32(len(value)))
	pair = append(pair, value...)
	return splice(buf, start, end, pair)
}

// BuilderRemove deletes the first pair with key. Removing an absent key is a
// no-op.
func BuilderRemove(buf *memory.Buffer, key string) error {
	start, end, found, err := find(buf.Bytes(), key)
	if err != nil || !found {
		return err
	}
	n, err := count(buf)
	if err != nil {
		return err
	}
	if err := splice(buf, start, end, nil); err != nil {
		return err
	}
	setCount(buf, n-1)
	return nil
}
