package cache

import (
	"context"
	"sync"
	"time"

	"github.com/joeychilson/chatimport/transcript"
)

// MemoryCache is an in-memory transcript cache with periodic cleanup.
type MemoryCache struct {
	entries map[string]*Entry
	mu      sync.RWMutex
	config  Config
	stopCh  chan struct{}
	once    sync.Once
}

// NewMemory creates an in-memory cache.
func NewMemory(config Config) *MemoryCache {
	mc := &MemoryCache{
		entries: make(map[string]*Entry),
		config:  applyDefaults(config),
		stopCh:  make(chan struct{}),
	}
	go mc.cleanup()
	return mc
}

// Get retrieves a transcript. Expired entries are dropped on read.
func (mc *MemoryCache) Get(ctx context.Context, sourceURL string) (*transcript.Transcript, error) {
	mc.mu.RLock()
	entry, exists := mc.entries[sourceURL]
	mc.mu.RUnlock()

	if !exists {
		return nil, nil
	}

	if entry.IsExpired() {
		mc.mu.Lock()
		delete(mc.entries, sourceURL)
		mc.mu.Unlock()
		return nil, nil
	}

	return entry.Transcript, nil
}

// Set stores a transcript.
func (mc *MemoryCache) Set(ctx context.Context, sourceURL string, t *transcript.Transcript) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.entries[sourceURL] = &Entry{
		Transcript: t,
		StoredAt:   time.Now(),
		TTL:        mc.config.TTL,
	}
	return nil
}

// Delete removes the entry for a source URL.
func (mc *MemoryCache) Delete(ctx context.Context, sourceURL string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	delete(mc.entries, sourceURL)
	return nil
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() { close(mc.stopCh) })
	return nil
}

func (mc *MemoryCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-mc.stopCh:
			return
		case <-ticker.C:
			mc.mu.Lock()
			for url, entry := range mc.entries {
				if entry.IsExpired() {
					delete(mc.entries, url)
				}
			}
			mc.mu.Unlock()
		}
	}
}
