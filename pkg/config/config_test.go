package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/array"
	"github.com/ajitpratap0/strata/pkg/compression"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/memory"
	"github.com/ajitpratap0/strata/pkg/metrics"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	level, err := cfg.ValidationLevel()
	require.NoError(t, err)
	assert.Equal(t, array.ValidationDefault, level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"validation level", func(c *Config) { c.Validation.Level = "paranoid" }},
		{"allocator", func(c *Config) { c.Memory.Allocator = "mmap" }},
		{"max allocation", func(c *Config) { c.Memory.MaxAllocation = -1 }},
		{"compression", func(c *Config) { c.Compression.Algorithm = "gzip" }},
		{"concurrency", func(c *Config) { c.Compression.Concurrency = -2 }},
		{"max body size", func(c *Config) { c.Compression.MaxBodySize = -1 }},
		{"metrics namespace", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Namespace = ""
		}},
		{"summary", func(c *Config) { c.Summary.MaxLength = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}
}

func TestParseSubstitutesEnvironment(t *testing.T) {
	t.Setenv("STRATA_TEST_ALLOCATOR", "arrow")
	t.Setenv("STRATA_TEST_LEVEL", "minimal")

	cfg, err := Parse([]byte(`
validation:
  level: ${STRATA_TEST_LEVEL}
memory:
  allocator: ${STRATA_TEST_ALLOCATOR}
compression:
  algorithm: lz4
  level: 9
logging:
  level: debug
  encoding: console
metrics:
  enabled: true
  namespace: custom
`))
	require.NoError(t, err)
	assert.Equal(t, "minimal", cfg.Validation.Level)
	assert.Equal(t, AllocatorArrow, cfg.Memory.Allocator)
	assert.Equal(t, compression.LZ4, cfg.Compression.Algorithm)
	assert.Equal(t, compression.Best, cfg.Compression.Level)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Encoding)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "custom", cfg.Metrics.Namespace)
	assert.Equal(t, memory.DefaultMaxAllocation, cfg.Memory.MaxAllocation)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("validation: [unclosed"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = Parse([]byte("memory:\n  allocator: mmap\n"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("STRATA_A", "x")
	assert.Equal(t, "x-x-", substituteEnvVars("${STRATA_A}-${STRATA_A}-${STRATA_UNSET_VARIABLE}"))
	assert.Equal(t, "keep ${open", substituteEnvVars("keep ${open"))
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strata.yaml")
	cfg := Default()
	cfg.Validation.Level = "full"
	cfg.Compression.Algorithm = compression.S2
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestNewAllocator(t *testing.T) {
	tests := []struct {
		allocator string
		check     func(t *testing.T, a memory.Allocator)
	}{
		{AllocatorGo, func(t *testing.T, a memory.Allocator) {
			assert.IsType(t, &memory.GoAllocator{}, a)
		}},
		{AllocatorPooled, func(t *testing.T, a memory.Allocator) {
			assert.IsType(t, &memory.PooledAllocator{}, a)
		}},
		{AllocatorArrow, func(t *testing.T, a memory.Allocator) {
			assert.IsType(t, &memory.ArrowAllocator{}, a)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.allocator, func(t *testing.T) {
			cfg := Default()
			cfg.Memory.Allocator = tt.allocator
			alloc, collector, err := cfg.NewAllocator()
			require.NoError(t, err)
			assert.Nil(t, collector)
			tt.check(t, alloc)
		})
	}

	cfg := Default()
	cfg.Memory.Allocator = "mmap"
	_, _, err := cfg.NewAllocator()
	assert.Error(t, err)
}

func TestNewAllocatorWithMetrics(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Enabled = true
	alloc, collector, err := cfg.NewAllocator()
	require.NoError(t, err)
	require.NotNil(t, collector)
	tracking, ok := alloc.(*metrics.TrackingAllocator)
	require.True(t, ok)

	var buf memory.Buffer
	buf.Init()
	require.NoError(t, buf.SetAllocator(alloc))
	require.NoError(t, buf.AppendInt64(7))
	assert.Equal(t, buf.Cap(), tracking.LiveBytes())
	buf.Reset()
	assert.Zero(t, tracking.LiveBytes())
}

func TestNewCompressor(t *testing.T) {
	cfg := Default()
	cfg.Compression.Algorithm = compression.LZ4
	pc, err := cfg.NewCompressor()
	require.NoError(t, err)
	require.NotNil(t, pc)
}
