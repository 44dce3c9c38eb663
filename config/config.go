// Package config provides configuration loading and management for the codebook tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/codebook/decode"
	"github.com/c360studio/codebook/trace"
)

// Config represents the complete codebook tool configuration
type Config struct {
	Validation ValidationConfig `yaml:"validation"`
	Decode     DecodeConfig     `yaml:"decode"`
	Watch      WatchConfig      `yaml:"watch"`
	Storage    StorageConfig    `yaml:"storage"`
	NATS       NATSConfig       `yaml:"nats"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ValidationConfig configures codebook validation
type ValidationConfig struct {
	// Strict makes lint warnings fail validation
	Strict *bool `yaml:"strict,omitempty"`
	// SkipLint disables the semantic checks that run after schema validation
	SkipLint *bool `yaml:"skip_lint,omitempty"`
}

// DecodeConfig configures trace building and decoding
type DecodeConfig struct {
	// Strategy is the trace building strategy (exact_match, nearest_neighbor)
	Strategy string `yaml:"strategy"`
	// Method is the decoding method (per_round_max, metric)
	Method string `yaml:"method"`
	// AnchorRound seeds nearest-neighbour trace building (default: 1)
	AnchorRound *int `yaml:"anchor_round,omitempty"`
	// SearchRadius is the nearest-neighbour match radius in pixels (default: 3)
	SearchRadius *float64 `yaml:"search_radius,omitempty"`
	// MaxDistance is the metric decoder distance threshold (default: 0.5)
	MaxDistance *float64 `yaml:"max_distance,omitempty"`
	// MinIntensity is the metric decoder intensity threshold (default: 0)
	MinIntensity *float64 `yaml:"min_intensity,omitempty"`
}

// WatchConfig configures codebook file watching
type WatchConfig struct {
	// DebounceDelay is how long to wait for more changes before revalidating
	DebounceDelay time.Duration `yaml:"debounce_delay"`
	// Extensions lists watched file extensions
	Extensions []string `yaml:"extensions"`
	// ExcludeDirs lists directory names to skip
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

// StorageConfig configures the codebook registry
type StorageConfig struct {
	// Path is the SQLite database path (empty = user data directory)
	Path string `yaml:"path"`
}

// NATSConfig configures the validation service transport
type NATSConfig struct {
	// URL is the NATS server URL
	URL string `yaml:"url"`
	// Subject is the request subject the service answers on
	Subject string `yaml:"subject"`
	// Queue is the queue group shared by service replicas
	Queue string `yaml:"queue"`
	// Timeout bounds connection attempts
	Timeout time.Duration `yaml:"timeout"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address for /metrics (empty = disabled)
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	metric := decode.DefaultMetricOptions()
	return &Config{
		Validation: ValidationConfig{
			Strict:   ptr(false),
			SkipLint: ptr(false),
		},
		Decode: DecodeConfig{
			Strategy:     string(trace.StrategyNearestNeighbor),
			Method:       string(decode.MethodPerRoundMax),
			AnchorRound:  ptr(trace.DefaultAnchorRound),
			SearchRadius: ptr(trace.DefaultSearchRadius),
			MaxDistance:  ptr(metric.MaxDistance),
			MinIntensity: ptr(metric.MinIntensity),
		},
		Watch: WatchConfig{
			DebounceDelay: 500 * time.Millisecond,
			Extensions:    []string{".json", ".yaml", ".yml"},
			ExcludeDirs:   []string{".git", "node_modules", "vendor"},
		},
		Storage: StorageConfig{
			Path: "", // Resolved by the loader
		},
		NATS: NATSConfig{
			URL:     "nats://localhost:4222",
			Subject: "codebook.validate",
			Queue:   "codebook-validators",
			Timeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Addr: ":9464",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch trace.Strategy(c.Decode.Strategy) {
	case trace.StrategyExactMatch, trace.StrategyNearestNeighbor:
	default:
		return fmt.Errorf("decode.strategy must be %s or %s", trace.StrategyExactMatch, trace.StrategyNearestNeighbor)
	}
	switch decode.Method(c.Decode.Method) {
	case decode.MethodPerRoundMax, decode.MethodMetric:
	default:
		return fmt.Errorf("decode.method must be %s or %s", decode.MethodPerRoundMax, decode.MethodMetric)
	}
	if c.Decode.GetSearchRadius() < 0 {
		return fmt.Errorf("decode.search_radius must not be negative")
	}
	if c.Decode.GetMaxDistance() < 0 {
		return fmt.Errorf("decode.max_distance must not be negative")
	}
	if c.Watch.DebounceDelay < 0 {
		return fmt.Errorf("watch.debounce_delay must not be negative")
	}
	if c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject is required")
	}
	return nil
}

// IsStrict reports whether lint warnings fail validation
func (c *ValidationConfig) IsStrict() bool {
	return c.Strict != nil && *c.Strict
}

// IsSkipLint reports whether semantic checks are disabled
func (c *ValidationConfig) IsSkipLint() bool {
	return c.SkipLint != nil && *c.SkipLint
}

// GetAnchorRound returns the configured anchor round or the default
func (c *DecodeConfig) GetAnchorRound() int {
	if c.AnchorRound == nil {
		return trace.DefaultAnchorRound
	}
	return *c.AnchorRound
}

// GetSearchRadius returns the configured search radius or the default
func (c *DecodeConfig) GetSearchRadius() float64 {
	if c.SearchRadius == nil {
		return trace.DefaultSearchRadius
	}
	return *c.SearchRadius
}

// GetMaxDistance returns the configured metric distance threshold or the default
func (c *DecodeConfig) GetMaxDistance() float64 {
	if c.MaxDistance == nil {
		return decode.DefaultMetricOptions().MaxDistance
	}
	return *c.MaxDistance
}

// GetMinIntensity returns the configured metric intensity threshold or the default
func (c *DecodeConfig) GetMinIntensity() float64 {
	if c.MinIntensity == nil {
		return decode.DefaultMetricOptions().MinIntensity
	}
	return *c.MinIntensity
}

// TraceOptions returns the trace building options
func (c *DecodeConfig) TraceOptions() trace.Options {
	return trace.Options{
		AnchorRound:  c.GetAnchorRound(),
		SearchRadius: c.GetSearchRadius(),
	}
}

// DecodeOptions returns the decoder options
func (c *DecodeConfig) DecodeOptions() decode.Options {
	return decode.Options{
		Metric: decode.MetricOptions{
			MaxDistance:  c.GetMaxDistance(),
			MinIntensity: c.GetMinIntensity(),
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for set values).
// Pointer fields count as set when non-nil, so an explicit false or 0 overrides.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Validation
	if other.Validation.Strict != nil {
		c.Validation.Strict = ptr(*other.Validation.Strict)
	}
	if other.Validation.SkipLint != nil {
		c.Validation.SkipLint = ptr(*other.Validation.SkipLint)
	}

	// Decode
	if other.Decode.Strategy != "" {
		c.Decode.Strategy = other.Decode.Strategy
	}
	if other.Decode.Method != "" {
		c.Decode.Method = other.Decode.Method
	}
	if other.Decode.AnchorRound != nil {
		c.Decode.AnchorRound = ptr(*other.Decode.AnchorRound)
	}
	if other.Decode.SearchRadius != nil {
		c.Decode.SearchRadius = ptr(*other.Decode.SearchRadius)
	}
	if other.Decode.MaxDistance != nil {
		c.Decode.MaxDistance = ptr(*other.Decode.MaxDistance)
	}
	if other.Decode.MinIntensity != nil {
		c.Decode.MinIntensity = ptr(*other.Decode.MinIntensity)
	}

	// Watch
	if other.Watch.DebounceDelay != 0 {
		c.Watch.DebounceDelay = other.Watch.DebounceDelay
	}
	if len(other.Watch.Extensions) > 0 {
		c.Watch.Extensions = other.Watch.Extensions
	}
	if len(other.Watch.ExcludeDirs) > 0 {
		c.Watch.ExcludeDirs = other.Watch.ExcludeDirs
	}

	// Storage
	if other.Storage.Path != "" {
		c.Storage.Path = other.Storage.Path
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Subject != "" {
		c.NATS.Subject = other.NATS.Subject
	}
	if other.NATS.Queue != "" {
		c.NATS.Queue = other.NATS.Queue
	}
	if other.NATS.Timeout != 0 {
		c.NATS.Timeout = other.NATS.Timeout
	}

	// Metrics
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
}

func ptr[T any](v T) *T {
	return &v
}
