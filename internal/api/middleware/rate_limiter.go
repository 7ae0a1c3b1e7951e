// internal/api/middleware/rate_limiter.go
package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// rateEntry tracks request counts for one client within a sliding window.
type rateEntry struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

// RateLimiter enforces a per-client sliding-window limit. The per-minute
// budget comes from the authenticated client's tier, so APIKeyAuth must run
// first; unauthenticated requests fall back to the client IP with the
// default limit.
type RateLimiter struct {
	entries      map[string]*rateEntry
	mu           sync.Mutex
	window       time.Duration
	defaultLimit int
}

const purgeInterval = 5 * time.Minute

// NewRateLimiter builds a limiter and starts its purge loop, which evicts
// expired entries so clients that never return do not accumulate.
func NewRateLimiter(window time.Duration, defaultLimit int) *RateLimiter {
	l := &RateLimiter{
		entries:      make(map[string]*rateEntry),
		window:       window,
		defaultLimit: defaultLimit,
	}
	go l.purgeExpired()
	return l
}

// Middleware returns the gin handler enforcing the limit.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		limit := l.defaultLimit
		if client, ok := ClientFromContext(c); ok {
			key = client.ClientID
			if client.RateLimit > 0 {
				limit = client.RateLimit
			}
		}

		l.mu.Lock()
		entry, exists := l.entries[key]
		if !exists {
			entry = &rateEntry{}
			l.entries[key] = entry
		}
		l.mu.Unlock()

		entry.mu.Lock()
		defer entry.mu.Unlock()

		now := time.Now()
		if now.After(entry.windowEnd) {
			entry.count = 0
			entry.windowEnd = now.Add(l.window)
		}

		entry.count++
		if entry.count > limit {
			c.Header("Retry-After", entry.windowEnd.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("Rate limit exceeded. Maximum %d requests per minute.", limit),
			})
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) purgeExpired() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()

		l.mu.Lock()
		purged := 0
		for key, entry := range l.entries {
			entry.mu.Lock()
			if now.After(entry.windowEnd) {
				delete(l.entries, key)
				purged++
			}
			entry.mu.Unlock()
		}
		remaining := len(l.entries)
		l.mu.Unlock()

		if purged > 0 {
			log.Debug().
				Int("entries_purged", purged).
				Int("entries_remaining", remaining).
				Msg("rate limiter entries purged")
		}
	}
}
