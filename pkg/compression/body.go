package compression

import (
	"encoding/binary"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/memory"
)

const (
	// PrefixSize is the size of the uncompressed-length prefix of a body.
	PrefixSize = 8

	// Uncompressed is the length prefix of a body stored as is.
	Uncompressed int64 = -1

	// DefaultMaxBodySize bounds the uncompressed length DecodeBody accepts.
	DefaultMaxBodySize int64 = 1 << 30
)

// EncodeBody compresses data with c and prepends its uncompressed length.
// Data that does not shrink is stored uncompressed behind a -1 prefix.
func EncodeBody(c Compressor, data []byte) ([]byte, error) {
	if c.Algorithm() != None && len(data) > 0 {
		compressed, err := c.Compress(data)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeInternal, "%s compression failed", c.Algorithm())
		}
		if len(compressed) < len(data) {
			return withPrefix(int64(len(data)), compressed), nil
		}
	}
	return withPrefix(Uncompressed, data), nil
}

func withPrefix(n int64, body []byte) []byte {
	out := make([]byte, PrefixSize+len(body))
	binary.LittleEndian.PutUint64(out, uint64(n))
	copy(out[PrefixSize:], body)
	return out
}

// DecodedLen returns the uncompressed length announced by body, or the
// length of its payload when it is stored uncompressed.
func DecodedLen(body []byte) (int64, error) {
	if len(body) < PrefixSize {
		return 0, errors.Newf(errors.ErrorTypeInvalidArgument,
			"expected compressed body of at least %d bytes but found %d bytes", PrefixSize, len(body))
	}
	n := int64(binary.LittleEndian.Uint64(body))
	switch {
	case n == Uncompressed:
		return int64(len(body) - PrefixSize), nil
	case n < 0:
		return 0, errors.Newf(errors.ErrorTypeInvalidArgument, "invalid uncompressed length %d", n)
	}
	return n, nil
}

// DecodeBody appends the decoded contents of body to out. Compressed
// payloads are decompressed directly into out's reserved tail. On failure
// out keeps its previous length.
func DecodeBody(c Compressor, body []byte, out *memory.Buffer) error {
	return DecodeBodyLimit(c, body, out, DefaultMaxBodySize)
}

// DecodeBodyLimit is DecodeBody refusing compressed bodies that announce
// more than limit uncompressed bytes. A limit of zero or less means
// DefaultMaxBodySize.
func DecodeBodyLimit(c Compressor, body []byte, out *memory.Buffer, limit int64) error {
	n, err := DecodedLen(body)
	if err != nil {
		return err
	}
	payload := body[PrefixSize:]
	if int64(binary.LittleEndian.Uint64(body)) == Uncompressed {
		return out.Append(payload)
	}
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	if n > limit {
		return errors.Newf(errors.ErrorTypeInvalidArgument,
			"body announces %d uncompressed bytes, more than the limit of %d", n, limit)
	}

	if err := out.Reserve(n); err != nil {
		return err
	}
	start := out.Len()
	if err := c.DecompressTo(out.Data()[start:start+n], payload); err != nil {
		return errors.Prefix(err, string(c.Algorithm())+" body: ")
	}
	out.SetLenUnsafe(start + n)
	return nil
}
