// Package ratelimit applies per-host politeness limits to outbound fetches.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/joeychilson/chatimport/config"
	urlutil "github.com/joeychilson/chatimport/url"
)

const (
	// inactiveTimeout is how long an idle host keeps its limiter state.
	inactiveTimeout = 10 * time.Minute

	// cleanupInterval is how often idle host limiters are swept.
	cleanupInterval = time.Minute
)

// Limiter rate limits outbound requests per destination host.
type Limiter struct {
	config   config.RateLimitConfig
	mu       sync.Mutex
	limiters map[string]*hostLimiter
	stopCh   chan struct{}
	stopOnce sync.Once
}

type hostLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// New creates a limiter with the given configuration.
func New(cfg config.RateLimitConfig) *Limiter {
	l := &Limiter{
		config:   cfg,
		limiters: make(map[string]*hostLimiter),
		stopCh:   make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Wait blocks until the rate limit allows a request to the given URL's host,
// or the context is done. Disabled limiters return immediately.
func (l *Limiter) Wait(ctx context.Context, urlStr string) error {
	if !l.config.IsEnabled() {
		return nil
	}

	host, err := urlutil.ExtractHost(urlStr)
	if err != nil {
		return fmt.Errorf("failed to extract host: %w", err)
	}

	return l.forHost(host).Wait(ctx)
}

// Close stops the background sweeper.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	hl, ok := l.limiters[host]
	if !ok {
		hl = &hostLimiter{
			limiter: rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.GetBurst()),
		}
		l.limiters[host] = hl
	}
	hl.lastAccess = time.Now()
	return hl.limiter
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.mu.Lock()
			for host, hl := range l.limiters {
				if time.Since(hl.lastAccess) > inactiveTimeout {
					delete(l.limiters, host)
				}
			}
			l.mu.Unlock()
		}
	}
}
