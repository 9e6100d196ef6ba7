package model

import (
	"fmt"
	"runtime"
	"time"
)

// Config holds the complete trustmap configuration.
// Hierarchy (highest first): CLI flags, TRUSTMAP_* env, config file, defaults.
type Config struct {
	Fusion      FusionConfig      `mapstructure:"fusion" yaml:"fusion"`
	Registry    RegistryConfig    `mapstructure:"registry" yaml:"registry"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
	Decision    DecisionConfig    `mapstructure:"decision" yaml:"decision"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

// FusionConfig controls the fusion operators
type FusionConfig struct {
	Operator    string  `mapstructure:"operator" yaml:"operator"`       // cawa, optimistic, pessimistic
	Sensitivity float64 `mapstructure:"sensitivity" yaml:"sensitivity"` // Share of conflict moved to I, [0,1]
}

// RegistryConfig locates persisted mapper documents
type RegistryConfig struct {
	Dir       string        `mapstructure:"dir" yaml:"dir"`               // Disk store for mapper documents
	MemoryTTL time.Duration `mapstructure:"memory_ttl" yaml:"memory_ttl"` // <= 0 keeps entries until removed
}

// ConcurrencyConfig sizes the batch worker pool
type ConcurrencyConfig struct {
	Workers       int     `mapstructure:"workers" yaml:"workers"`
	RatePerMapper float64 `mapstructure:"rate_per_mapper" yaml:"rate_per_mapper"` // Applications per second per mapper, <= 0 unlimited
	Burst         int     `mapstructure:"burst" yaml:"burst"`
}

// DecisionConfig holds the thresholds used to classify a fused judgment
type DecisionConfig struct {
	ApproveThreshold float64 `mapstructure:"approve_threshold" yaml:"approve_threshold"` // T at or above: approve
	ReviewThreshold  float64 `mapstructure:"review_threshold" yaml:"review_threshold"`   // I at or above: review
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `mapstructure:"verbose" yaml:"verbose"`
	IncludeFooter bool `mapstructure:"include_footer" yaml:"include_footer"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // json, console
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Fusion: FusionConfig{
			Operator:    "cawa",
			Sensitivity: 1.0,
		},
		Registry: RegistryConfig{
			Dir:       "",
			MemoryTTL: 0,
		},
		Concurrency: ConcurrencyConfig{
			Workers:       runtime.NumCPU(),
			RatePerMapper: 0,
			Burst:         5,
		},
		Decision: DecisionConfig{
			ApproveThreshold: 0.7,
			ReviewThreshold:  0.5,
		},
		Output: OutputConfig{
			Verbose:       false,
			IncludeFooter: true,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Validate checks ranges that would otherwise fail deep inside an operation
func (c *Config) Validate() error {
	if c.Fusion.Sensitivity < 0 || c.Fusion.Sensitivity > 1 {
		return fmt.Errorf("fusion.sensitivity must be within [0,1], got %g", c.Fusion.Sensitivity)
	}
	if c.Decision.ApproveThreshold < 0 || c.Decision.ApproveThreshold > 1 {
		return fmt.Errorf("decision.approve_threshold must be within [0,1], got %g", c.Decision.ApproveThreshold)
	}
	if c.Decision.ReviewThreshold < 0 || c.Decision.ReviewThreshold > 1 {
		return fmt.Errorf("decision.review_threshold must be within [0,1], got %g", c.Decision.ReviewThreshold)
	}
	if c.Concurrency.Workers < 1 {
		return fmt.Errorf("concurrency.workers must be positive, got %d", c.Concurrency.Workers)
	}
	return nil
}
