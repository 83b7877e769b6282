// Package client orchestrates the three import paths behind one API: share
// URL fetch-and-parse, manual paste, and capture extraction. All three
// produce the same normalized transcript.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/joeychilson/chatimport/cache"
	"github.com/joeychilson/chatimport/capture"
	"github.com/joeychilson/chatimport/config"
	"github.com/joeychilson/chatimport/fetcher"
	"github.com/joeychilson/chatimport/logger"
	"github.com/joeychilson/chatimport/manual"
	"github.com/joeychilson/chatimport/parser"
	"github.com/joeychilson/chatimport/provider"
	"github.com/joeychilson/chatimport/ratelimit"
	"github.com/joeychilson/chatimport/transcript"
	urlutil "github.com/joeychilson/chatimport/url"
)

// ErrNoExtractor is returned by ImportCapture when no extraction service has
// been configured.
var ErrNoExtractor = errors.New("no capture extractor configured")

// validateShareURL is swapped in tests so imports can target loopback servers.
var validateShareURL = urlutil.ValidateShareURL

// Client imports conversations from share URLs, pasted text, and capture
// frames.
type Client struct {
	config    *config.Config
	registry  *parser.Registry
	limiter   *ratelimit.Limiter
	cache     cache.Cache
	extractor capture.Extractor
	logger    logger.Logger
}

// New creates a Client with the given configuration. Transcripts are cached
// in memory by default; use WithCache to share a Redis-backed cache across
// instances.
func New(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		cfg = config.New()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		config:   cfg,
		registry: parser.NewRegistry(fetcher.New(cfg.Fetch)),
		limiter:  ratelimit.New(cfg.RateLimit),
		cache:    cache.NewMemory(cache.Config{TTL: cfg.Cache.TTL}),
		logger:   logger.Noop(),
	}, nil
}

// NewFromFile creates a Client by loading configuration from a YAML file.
func NewFromFile(path string) (*Client, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return New(cfg)
}

// WithCache replaces the transcript cache. The previous cache is closed so
// the default in-memory cache does not keep its cleanup goroutine alive.
func (c *Client) WithCache(sharedCache cache.Cache) *Client {
	if c.cache != nil && c.cache != sharedCache {
		_ = c.cache.Close()
	}
	c.cache = sharedCache
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(log logger.Logger) *Client {
	c.logger = log
	return c
}

// WithExtractor sets the capture extraction service.
func (c *Client) WithExtractor(extractor capture.Extractor) *Client {
	c.extractor = extractor
	return c
}

// ImportURL validates a share URL, then fetches and parses it with the
// provider's parser. Parsed transcripts are cached by source URL so a
// previewed import can be committed without a second fetch.
func (c *Client) ImportURL(ctx context.Context, rawURL string) (*transcript.Transcript, error) {
	log := c.logger.With("import_id", uuid.NewString(), "url", rawURL)

	if _, err := validateShareURL(rawURL); err != nil {
		log.Warn("share url rejected", "error", err)
		return nil, err
	}

	if c.cache != nil {
		cached, err := c.cache.Get(ctx, rawURL)
		if err != nil {
			log.Warn("cache get failed", "error", err)
		} else if cached != nil {
			log.Debug("cache hit")
			return cached, nil
		}
	}

	if err := c.limiter.Wait(ctx, rawURL); err != nil {
		return nil, err
	}

	t, err := c.registry.ImportFromURL(ctx, rawURL)
	if err != nil {
		log.Warn("import failed", "error", err)
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, rawURL, t); err != nil {
			log.Warn("cache set failed", "error", err)
		}
	}

	log.Info("import completed",
		"provider", t.Provider,
		"messages", len(t.Messages),
	)
	return t, nil
}

// ImportManual parses pasted transcript text. The provider is caller-declared;
// tags outside the known set normalize to Unknown. No network access happens
// on this path.
func (c *Client) ImportManual(text, title, providerTag string) (*transcript.Transcript, error) {
	log := c.logger.With("import_id", uuid.NewString())

	t, err := manual.Parse(text, title, provider.FromTag(providerTag))
	if err != nil {
		log.Warn("manual parse failed", "error", err)
		return nil, err
	}

	log.Info("manual import completed", "messages", len(t.Messages))
	return t, nil
}

// ImportCapture runs capture frames through the configured extraction
// service and validates the result.
func (c *Client) ImportCapture(ctx context.Context, req capture.Request) (*transcript.Transcript, error) {
	if c.extractor == nil {
		return nil, ErrNoExtractor
	}

	log := c.logger.With("import_id", uuid.NewString(), "url", req.URL)

	importer := capture.New(c.extractor, c.config.Capture, log)
	t, err := importer.Import(ctx, req)
	if err != nil {
		log.Warn("capture import failed", "error", err)
		return nil, err
	}

	log.Info("capture import completed", "messages", len(t.Messages))
	return t, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.limiter.Close()
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}
