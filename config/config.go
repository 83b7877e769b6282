// Package config holds the YAML-backed configuration for the import service.
package config

import (
	"fmt"
	"maps"
	"os"
	"time"

	"go.yaml.in/yaml/v2"
)

const (
	// DefaultUserAgent is a realistic desktop-browser user agent. Share pages
	// frequently serve a degraded shell to obvious bots.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultAccept mirrors what a desktop browser sends for a page navigation.
	DefaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"

	// DefaultAcceptLanguage is sent alongside Accept on every fetch.
	DefaultAcceptLanguage = "en-US,en;q=0.5"
)

// Config is the top-level configuration for the import service.
type Config struct {
	Fetch     FetchConfig     `yaml:"fetch"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Capture   CaptureConfig   `yaml:"capture"`
}

// New returns a Config with sensible defaults.
func New() *Config {
	return &Config{
		Fetch: FetchConfig{
			EnableSSRFProtection: true,
		},
	}
}

// FetchConfig defines how provider share pages are fetched.
type FetchConfig struct {
	Timeout              time.Duration     `yaml:"timeout,omitempty"`
	UserAgent            string            `yaml:"user_agent,omitempty"`
	Headers              map[string]string `yaml:"headers,omitempty"`
	MaxBodySize          int64             `yaml:"max_body_size,omitempty"`
	MaxRedirects         int               `yaml:"max_redirects,omitempty"`
	RequireHTML          bool              `yaml:"require_html,omitempty"`
	EnableSSRFProtection bool              `yaml:"enable_ssrf_protection,omitempty"`
}

// GetTimeout returns the fetch timeout with a default of 15 seconds.
func (f *FetchConfig) GetTimeout() time.Duration {
	if f.Timeout > 0 {
		return f.Timeout
	}
	return 15 * time.Second
}

// GetMaxBodySize returns the maximum response body size with a default of 10MB.
func (f *FetchConfig) GetMaxBodySize() int64 {
	if f.MaxBodySize > 0 {
		return f.MaxBodySize
	}
	return 10 << 20
}

// GetMaxRedirects returns the max number of redirects with a default of 5.
func (f *FetchConfig) GetMaxRedirects() int {
	if f.MaxRedirects > 0 {
		return f.MaxRedirects
	}
	return 5
}

// GetHeaders returns the headers to send on every fetch, with browser-like
// defaults that configured headers may override.
func (f *FetchConfig) GetHeaders() map[string]string {
	headers := map[string]string{
		"Accept":          DefaultAccept,
		"Accept-Language": DefaultAcceptLanguage,
	}
	if f.UserAgent != "" {
		headers["User-Agent"] = f.UserAgent
	} else {
		headers["User-Agent"] = DefaultUserAgent
	}
	maps.Copy(headers, f.Headers)
	return headers
}

// CacheConfig defines transcript caching between preview and commit.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl,omitempty"`
}

// IsEnabled returns true if caching is enabled.
func (c *CacheConfig) IsEnabled() bool {
	return c.TTL > 0
}

// RateLimitConfig defines outbound per-host politeness limits.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
	Burst             int     `yaml:"burst,omitempty"`
}

// IsEnabled returns true if outbound rate limiting is configured.
func (r *RateLimitConfig) IsEnabled() bool {
	return r.RequestsPerSecond > 0
}

// GetBurst returns the burst size with a default of 1.
func (r *RateLimitConfig) GetBurst() int {
	if r.Burst > 0 {
		return r.Burst
	}
	return 1
}

// CaptureConfig bounds the capture/OCR bridge.
type CaptureConfig struct {
	MaxFrames int    `yaml:"max_frames,omitempty"`
	Model     string `yaml:"model,omitempty"`
}

// GetMaxFrames returns the frame count ceiling with a default of 24.
func (c *CaptureConfig) GetMaxFrames() int {
	if c.MaxFrames > 0 {
		return c.MaxFrames
	}
	return 24
}

// GetModel returns the extraction model id with a default.
func (c *CaptureConfig) GetModel() string {
	if c.Model != "" {
		return c.Model
	}
	return "openai/gpt-4o"
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch timeout must be non-negative")
	}
	if c.Fetch.MaxBodySize < 0 {
		return fmt.Errorf("fetch max_body_size must be non-negative")
	}
	if c.Fetch.MaxRedirects < 0 {
		return fmt.Errorf("fetch max_redirects must be non-negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must be non-negative")
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit requests_per_second must be non-negative")
	}
	if c.Capture.MaxFrames < 0 || c.Capture.MaxFrames > 64 {
		return fmt.Errorf("capture max_frames must be between 0 and 64")
	}
	return nil
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
