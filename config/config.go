// Package config loads the service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/filmjoin/cache"
	"github.com/jonwraymond/filmjoin/ident"
	"github.com/jonwraymond/filmjoin/observe"
	"github.com/jonwraymond/filmjoin/resilience"
	"github.com/jonwraymond/filmjoin/upstream"
)

// Configuration validation errors.
var (
	ErrMissingEnv          = errors.New("config: missing required environment variables")
	ErrMissingAddr         = errors.New("server.addr is required")
	ErrInvalidReadTimeout  = errors.New("server.read_timeout must be positive")
	ErrInvalidShutdown     = errors.New("server.shutdown_timeout must be positive")
	ErrMissingBaseURL      = errors.New("upstream.base_url is required")
	ErrInvalidBaseURL      = errors.New("upstream.base_url must start with http:// or https://")
	ErrInvalidTimeout      = errors.New("upstream.timeout must be positive")
	ErrInvalidTTL          = errors.New("cache.ttl must be positive")
	ErrMissingMarker       = errors.New("extract.marker is required")
	ErrInvalidMaxAttempts  = errors.New("resilience.retry.max_attempts must be at least 1")
	ErrInvalidMultiplier   = errors.New("resilience.retry.multiplier must be >= 1.0")
	ErrInvalidMaxFailures  = errors.New("resilience.circuit.max_failures must be at least 1")
	ErrInvalidRate         = errors.New("resilience.rate_limit.rate must be positive")
	ErrInvalidBurst        = errors.New("resilience.rate_limit.burst must be at least 1")
	ErrInvalidObserveBlock = errors.New("observe configuration is invalid")
)

// Config is the complete service configuration.
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Upstream   upstream.Config   `yaml:"upstream"`
	Cache      cache.Policy      `yaml:"cache"`
	Extract    ExtractConfig     `yaml:"extract"`
	Resilience resilience.Policy `yaml:"resilience"`
	Observe    observe.Config    `yaml:"observe"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ExtractConfig configures film reference resolution.
type ExtractConfig struct {
	Marker string `yaml:"marker"`

	// Normalize strips query strings, fragments and a trailing slash from
	// references before they are used as join keys.
	Normalize bool `yaml:"normalize"`
}

// Extractor builds the extractor described by c.
func (c ExtractConfig) Extractor() *ident.Extractor {
	if c.Normalize {
		return ident.New(c.Marker, ident.WithNormalize())
	}
	return ident.New(c.Marker)
}

// Default returns a configuration that works against the public Ghibli API.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Upstream: upstream.Config{
			BaseURL:   "https://ghibliapi.vercel.app",
			Timeout:   upstream.DefaultTimeout,
			UserAgent: "filmjoin",
		},
		Cache:      cache.DefaultPolicy(),
		Extract:    ExtractConfig{Marker: ident.DefaultMarker},
		Resilience: resilience.Policy{Retry: resilience.RetryConfig{MaxAttempts: 1}},
		Observe: observe.Config{
			ServiceName: "filmjoin",
			Tracing:     observe.TracingConfig{Exporter: "none", SamplePct: 1.0},
			Metrics:     observe.MetricsConfig{Exporter: "none"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

// Load reads path, expands ${VAR} references and decodes it over Default().
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML data over Default() and validates the result.
func Parse(data []byte) (Config, error) {
	expanded, err := ExpandEnvStrict(string(data))
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return ErrMissingAddr
	}
	if c.Server.ReadTimeout <= 0 {
		return ErrInvalidReadTimeout
	}
	if c.Server.ShutdownTimeout <= 0 {
		return ErrInvalidShutdown
	}

	if c.Upstream.BaseURL == "" {
		return ErrMissingBaseURL
	}
	if !strings.HasPrefix(c.Upstream.BaseURL, "http://") && !strings.HasPrefix(c.Upstream.BaseURL, "https://") {
		return ErrInvalidBaseURL
	}
	if c.Upstream.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Cache.TTL <= 0 {
		return ErrInvalidTTL
	}
	if strings.TrimSpace(c.Extract.Marker) == "" {
		return ErrMissingMarker
	}

	if err := validateResilience(c.Resilience); err != nil {
		return err
	}

	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidObserveBlock, err)
	}
	return nil
}

func validateResilience(p resilience.Policy) error {
	if p.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if p.Retry.Multiplier != 0 && p.Retry.Multiplier < 1.0 {
		return ErrInvalidMultiplier
	}
	if p.Circuit != nil && p.Circuit.MaxFailures < 1 {
		return ErrInvalidMaxFailures
	}
	if p.RateLimit != nil {
		if p.RateLimit.Rate <= 0 {
			return ErrInvalidRate
		}
		if p.RateLimit.Burst < 1 {
			return ErrInvalidBurst
		}
	}
	return nil
}
