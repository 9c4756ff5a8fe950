// Package compression encodes and decodes individual buffer bodies.
//
// A body is an 8-byte little-endian uncompressed length followed by the
// compressed bytes. A length of -1 marks a body stored uncompressed, which
// EncodeBody chooses whenever compression would not make it smaller. The
// codec is agreed out of band: LZ4 uses the LZ4 frame format and Zstd a
// single zstd frame, matching Arrow IPC body compression.
//
// # Basic Usage
//
//	comp, err := compression.NewCompressor(&compression.Config{
//	    Algorithm: compression.Zstd,
//	    Level:     compression.Default,
//	})
//
//	body, err := compression.EncodeBody(comp, buf.Bytes())
//
//	var out memory.Buffer
//	out.Init()
//	err = compression.DecodeBody(comp, body, &out)
//
// # Pooled Usage
//
//	pool := compression.NewCompressorPool(config)
//	compressed, err := pool.Compress(data)
//
// ParallelCompressor encodes or decodes the many bodies of one array
// concurrently.
package compression

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/strata/pkg/errors"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None stores bodies as they are
	None Algorithm = "none"
	// LZ4 represents the lz4 frame format
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 block compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Snappy represents snappy block compression
	Snappy Algorithm = "snappy"
)

// ParseAlgorithm returns the algorithm with the given name.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(name); a {
	case None, LZ4, Zstd, S2, Snappy:
		return a, nil
	case "":
		return None, nil
	default:
		return "", errors.Newf(errors.ErrorTypeInvalidArgument, "unsupported compression algorithm: %s", name)
	}
}

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

// Compressor provides compression and decompression functionality.
// All implementations are safe for concurrent use.
type Compressor interface {
	// Compress compresses data and returns the compressed bytes.
	// The input data is not modified.
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data and returns the original bytes.
	Decompress(data []byte) ([]byte, error)

	// DecompressTo decompresses data into dst, which must have exactly the
	// decompressed length.
	DecompressTo(dst, data []byte) error

	// CompressStream compresses from reader to writer.
	CompressStream(dst io.Writer, src io.Reader) error

	// DecompressStream decompresses from reader to writer.
	DecompressStream(dst io.Writer, src io.Reader) error

	// Algorithm returns the compression algorithm used.
	Algorithm() Algorithm

	// Level returns the compression level configured.
	Level() Level
}

// Config represents compressor configuration.
type Config struct {
	Algorithm   Algorithm `yaml:"algorithm"`
	Level       Level     `yaml:"level"`
	Concurrency int       `yaml:"concurrency"`
	// MaxBodySize bounds the uncompressed length of a decoded body; zero
	// means DefaultMaxBodySize.
	MaxBodySize int64 `yaml:"max_body_size"`
}

// DefaultConfig returns zstd at the default level with four workers.
func DefaultConfig() *Config {
	return &Config{
		Algorithm:   Zstd,
		Level:       Default,
		Concurrency: 4,
		MaxBodySize: DefaultMaxBodySize,
	}
}

// NewCompressor creates a new compressor based on the provided configuration.
// If config is nil, default configuration is used.
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	base := baseCompressor{algorithm: config.Algorithm, level: config.Level}

	switch config.Algorithm {
	case None, "":
		base.algorithm = None
		return &noneCompressor{baseCompressor: base}, nil
	case LZ4:
		return &lz4Compressor{baseCompressor: base, compressionLevel: mapLZ4Level(config.Level)}, nil
	case Zstd:
		return newZstdCompressor(base), nil
	case S2:
		return &s2Compressor{baseCompressor: base}, nil
	case Snappy:
		return &snappyCompressor{baseCompressor: base}, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeInvalidArgument, "unsupported compression algorithm: %s", config.Algorithm)
	}
}

// CompressorPool provides pooled compressors, reusing encoder state between
// calls. CompressorPool is safe for concurrent use.
type CompressorPool struct {
	pool   sync.Pool
	config Config
}

// NewCompressorPool creates a new compressor pool with the specified
// configuration. The configuration is checked once, up front.
func NewCompressorPool(config *Config) (*CompressorPool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	first, err := NewCompressor(config)
	if err != nil {
		return nil, err
	}

	cp := &CompressorPool{config: *config}
	cp.pool.New = func() interface{} {
		comp, _ := NewCompressor(&cp.config)
		return comp
	}
	cp.pool.Put(first)
	return cp, nil
}

// Algorithm returns the algorithm of the pooled compressors.
func (cp *CompressorPool) Algorithm() Algorithm {
	if cp.config.Algorithm == "" {
		return None
	}
	return cp.config.Algorithm
}

// Get gets a compressor from pool
func (cp *CompressorPool) Get() Compressor {
	return cp.pool.Get().(Compressor)
}

// Put returns compressor to pool
func (cp *CompressorPool) Put(c Compressor) {
	cp.pool.Put(c)
}

// Compress compresses data using a pooled compressor
func (cp *CompressorPool) Compress(data []byte) ([]byte, error) {
	c := cp.Get()
	defer cp.Put(c)
	return c.Compress(data)
}

// Decompress decompresses data using a pooled compressor
func (cp *CompressorPool) Decompress(data []byte) ([]byte, error) {
	c := cp.Get()
	defer cp.Put(c)
	return c.Decompress(data)
}

type baseCompressor struct {
	algorithm Algorithm
	level     Level
}

// Algorithm returns the compression algorithm
func (bc *baseCompressor) Algorithm() Algorithm {
	return bc.algorithm
}

// Level returns the compression level
func (bc *baseCompressor) Level() Level {
	return bc.level
}

func sizeMismatch(expected, found int) error {
	return errors.Newf(errors.ErrorTypeInvalidArgument,
		"expected %d decompressed bytes but found %d", expected, found)
}

type noneCompressor struct {
	baseCompressor
}

func (nc *noneCompressor) Compress(data []byte) ([]byte, error) {
	return bytes.Clone(data), nil
}

func (nc *noneCompressor) Decompress(data []byte) ([]byte, error) {
	return bytes.Clone(data), nil
}

func (nc *noneCompressor) DecompressTo(dst, data []byte) error {
	if len(dst) != len(data) {
		return sizeMismatch(len(dst), len(data))
	}
	copy(dst, data)
	return nil
}

func (nc *noneCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	return err
}

func (nc *noneCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	return err
}

// LZ4 frame compressor
type lz4Compressor struct {
	baseCompressor
	compressionLevel lz4.CompressionLevel
}

func (lc *lz4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(lz4.CompressBlockBound(len(data)))
	if err := lc.CompressStream(&buf, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (lc *lz4Compressor) Decompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := lc.DecompressStream(&buf, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (lc *lz4Compressor) DecompressTo(dst, data []byte) error {
	r := lz4.NewReader(bytes.NewReader(data))
	n, err := io.ReadFull(r, dst)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return sizeMismatch(len(dst), n)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInvalidArgument, "lz4 decompression failed")
	}
	var extra [1]byte
	if m, _ := r.Read(extra[:]); m != 0 {
		return sizeMismatch(len(dst), len(dst)+m)
	}
	return nil
}

func (lc *lz4Compressor) CompressStream(dst io.Writer, src io.Reader) error {
	w := lz4.NewWriter(dst)
	if err := w.Apply(lz4.CompressionLevelOption(lc.compressionLevel)); err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

func (lc *lz4Compressor) DecompressStream(dst io.Writer, src io.Reader) error {
	r := lz4.NewReader(src)
	_, err := io.Copy(dst, r)
	return err
}

// Zstd compressor
type zstdCompressor struct {
	baseCompressor
	encoderPool sync.Pool
	decoderPool sync.Pool
}

func newZstdCompressor(base baseCompressor) *zstdCompressor {
	level := mapZstdLevel(base.level)
	zc := &zstdCompressor{baseCompressor: base}

	zc.encoderPool.New = func() interface{} {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
		return enc
	}
	zc.decoderPool.New = func() interface{} {
		dec, _ := zstd.NewReader(nil)
		return dec
	}
	return zc
}

func (zc *zstdCompressor) Compress(data []byte) ([]byte, error) {
	enc := zc.encoderPool.Get().(*zstd.Encoder)
	defer zc.encoderPool.Put(enc)

	return enc.EncodeAll(data, nil), nil
}

func (zc *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	dec := zc.decoderPool.Get().(*zstd.Decoder)
	defer zc.decoderPool.Put(dec)

	return dec.DecodeAll(data, nil)
}

func (zc *zstdCompressor) DecompressTo(dst, data []byte) error {
	dec := zc.decoderPool.Get().(*zstd.Decoder)
	defer zc.decoderPool.Put(dec)

	out, err := dec.DecodeAll(data, dst[:0])
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInvalidArgument, "zstd decompression failed")
	}
	if len(out) != len(dst) {
		return sizeMismatch(len(dst), len(out))
	}
	return nil
}

func (zc *zstdCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	enc := zc.encoderPool.Get().(*zstd.Encoder)
	defer zc.encoderPool.Put(enc)

	enc.Reset(dst)
	if _, err := io.Copy(enc, src); err != nil {
		return err
	}
	return enc.Close()
}

func (zc *zstdCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	dec := zc.decoderPool.Get().(*zstd.Decoder)
	defer zc.decoderPool.Put(dec)

	if err := dec.Reset(src); err != nil {
		return err
	}
	_, err := io.Copy(dst, dec)
	return err
}

// S2 compressor (Snappy-compatible but better compression)
type s2Compressor struct {
	baseCompressor
}

func (sc *s2Compressor) Compress(data []byte) ([]byte, error) {
	if sc.level >= Better {
		return s2.EncodeBetter(nil, data), nil
	}
	return s2.Encode(nil, data), nil
}

func (sc *s2Compressor) Decompress(data []byte) ([]byte, error) {
	return s2.Decode(nil, data)
}

func (sc *s2Compressor) DecompressTo(dst, data []byte) error {
	n, err := s2.DecodedLen(data)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInvalidArgument, "s2 decompression failed")
	}
	if n != len(dst) {
		return sizeMismatch(len(dst), n)
	}
	if _, err := s2.Decode(dst, data); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInvalidArgument, "s2 decompression failed")
	}
	return nil
}

func (sc *s2Compressor) CompressStream(dst io.Writer, src io.Reader) error {
	w := s2.NewWriter(dst)
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

func (sc *s2Compressor) DecompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, s2.NewReader(src))
	return err
}

// Snappy compressor
type snappyCompressor struct {
	baseCompressor
}

func (sc *snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (sc *snappyCompressor) Decompress(data []byte) ([]byte, error) {
	return snappy.Decode(nil, data)
}

func (sc *snappyCompressor) DecompressTo(dst, data []byte) error {
	n, err := snappy.DecodedLen(data)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInvalidArgument, "snappy decompression failed")
	}
	if n != len(dst) {
		return sizeMismatch(len(dst), n)
	}
	if _, err := snappy.Decode(dst, data); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInvalidArgument, "snappy decompression failed")
	}
	return nil
}

func (sc *snappyCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	w := snappy.NewBufferedWriter(dst)
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

func (sc *snappyCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, snappy.NewReader(src))
	return err
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
