// Package cache stores parsed transcripts keyed by source URL, so a
// previewed import can be committed without refetching the share page.
package cache

import (
	"context"
	"time"

	"github.com/joeychilson/chatimport/transcript"
)

// Entry is a cached transcript with storage metadata.
type Entry struct {
	Transcript *transcript.Transcript `json:"transcript"`
	StoredAt   time.Time              `json:"stored_at"`
	TTL        time.Duration          `json:"ttl"`
}

// IsExpired returns true if the entry is past its TTL.
func (e *Entry) IsExpired() bool {
	return time.Since(e.StoredAt) >= e.TTL
}

// Cache is the interface for transcript caches.
type Cache interface {
	// Get retrieves the transcript for a source URL. A miss or an expired
	// entry returns (nil, nil).
	Get(ctx context.Context, sourceURL string) (*transcript.Transcript, error)

	// Set stores a transcript for a source URL.
	Set(ctx context.Context, sourceURL string, t *transcript.Transcript) error

	// Delete removes the entry for a source URL.
	Delete(ctx context.Context, sourceURL string) error

	// Close releases cache resources.
	Close() error
}

// Config holds cache configuration.
type Config struct {
	Prefix string
	TTL    time.Duration
}

// DefaultConfig returns a cache config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Prefix: "chatimport:",
		TTL:    10 * time.Minute,
	}
}

func applyDefaults(config Config) Config {
	defaults := DefaultConfig()
	if config.Prefix == "" {
		config.Prefix = defaults.Prefix
	}
	if config.TTL == 0 {
		config.TTL = defaults.TTL
	}
	return config
}
