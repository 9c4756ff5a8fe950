package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/strata/pkg/array"
	"github.com/ajitpratap0/strata/pkg/compression"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/memory"
	"github.com/ajitpratap0/strata/pkg/metrics"
	"github.com/ajitpratap0/strata/pkg/pool"
)

// Allocator names accepted by MemoryConfig.Allocator.
const (
	AllocatorGo     = "go"
	AllocatorPooled = "pooled"
	AllocatorArrow  = "arrow"
)

// Config is the configuration of a process embedding strata.
type Config struct {
	// Validation selects how FinishBuilding and stream validation check arrays
	Validation ValidationConfig `yaml:"validation" json:"validation"`

	// Memory selects where buffers get their memory
	Memory MemoryConfig `yaml:"memory" json:"memory"`

	// Compression configures buffer body encoding
	Compression compression.Config `yaml:"compression" json:"compression"`

	Logging logger.Config `yaml:"logging" json:"logging"`

	// Metrics enables allocation metrics
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Summary bounds rendered schema summaries
	Summary SummaryConfig `yaml:"summary" json:"summary"`
}

// ValidationConfig holds the default validation level.
type ValidationConfig struct {
	// Level is one of none, minimal, default or full
	Level string `yaml:"level" json:"level"`
}

// MemoryConfig contains memory management settings.
type MemoryConfig struct {
	// Allocator is go, pooled or arrow
	Allocator string `yaml:"allocator" json:"allocator"`
	// MaxAllocation bounds a single allocation of the go allocator in bytes
	MaxAllocation int64 `yaml:"max_allocation" json:"max_allocation"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// SummaryConfig bounds schema summaries.
type SummaryConfig struct {
	MaxLength int `yaml:"max_length" json:"max_length"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Validation: ValidationConfig{Level: array.ValidationDefault.String()},
		Memory: MemoryConfig{
			Allocator:     AllocatorGo,
			MaxAllocation: memory.DefaultMaxAllocation,
		},
		Compression: *compression.DefaultConfig(),
		Logging:     logger.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "strata",
		},
		Summary: SummaryConfig{MaxLength: 256},
	}
}

func invalid(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrorTypeConfig, format, args...)
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if _, err := c.ValidationLevel(); err != nil {
		return err
	}
	switch c.Memory.Allocator {
	case AllocatorGo, AllocatorPooled, AllocatorArrow:
	default:
		return invalid("memory.allocator must be go, pooled or arrow but found '%s'", c.Memory.Allocator)
	}
	if c.Memory.MaxAllocation < 0 {
		return invalid("memory.max_allocation cannot be negative")
	}
	if _, err := compression.ParseAlgorithm(string(c.Compression.Algorithm)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "compression.algorithm")
	}
	if c.Compression.Concurrency < 0 {
		return invalid("compression.concurrency cannot be negative")
	}
	if c.Compression.MaxBodySize < 0 {
		return invalid("compression.max_body_size cannot be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return invalid("metrics.namespace is required when metrics are enabled")
	}
	if c.Summary.MaxLength < 0 {
		return invalid("summary.max_length cannot be negative")
	}
	return nil
}

// ValidationLevel parses Validation.Level.
func (c *Config) ValidationLevel() (array.ValidationLevel, error) {
	level, err := array.ParseValidationLevel(c.Validation.Level)
	if err != nil {
		return array.ValidationNone, errors.Wrap(err, errors.ErrorTypeConfig, "validation.level")
	}
	return level, nil
}

// NewAllocator builds the allocator named by Memory.Allocator. With metrics
// enabled it is wrapped in a TrackingAllocator reporting to the returned
// collector, which the caller registers; otherwise the collector is nil.
func (c *Config) NewAllocator() (memory.Allocator, *metrics.Collector, error) {
	var alloc memory.Allocator
	switch c.Memory.Allocator {
	case AllocatorGo, "":
		alloc = &memory.GoAllocator{MaxBytes: c.Memory.MaxAllocation}
	case AllocatorPooled:
		alloc = memory.NewPooledAllocator(pool.NewBufferPool())
	case AllocatorArrow:
		alloc = memory.NewArrowAllocator(nil)
	default:
		return nil, nil, invalid("unknown allocator '%s'", c.Memory.Allocator)
	}

	if !c.Metrics.Enabled {
		return alloc, nil, nil
	}
	collector := metrics.NewCollector(c.Metrics.Namespace)
	return metrics.NewTrackingAllocator(alloc, collector), collector, nil
}

// NewCompressor builds a parallel compressor from the compression section.
func (c *Config) NewCompressor() (*compression.ParallelCompressor, error) {
	return compression.NewParallelCompressor(&c.Compression)
}

// Load reads a YAML file over the defaults, substituting ${VAR} references
// from the environment, and validates the result.
func Load(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: path comes from the caller
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file")
	}
	return Parse(data)
}

// Parse is Load for YAML already in memory.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	content := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes c to a YAML file.
func (c *Config) Save(filePath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal YAML")
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to write config file")
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	var sb strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		sb.WriteString(content[:start])
		sb.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	sb.WriteString(content)
	return sb.String()
}
