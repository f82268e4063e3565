package server

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter implements a token bucket rate limiter
type RateLimiter struct {
	mu sync.Mutex

	// tokens is the current number of available tokens
	tokens float64

	// maxTokens is the maximum number of tokens (bucket size)
	maxTokens float64

	// refillRate is the number of tokens added per second
	refillRate float64

	// lastRefill is the last time tokens were refilled
	lastRefill time.Time

	blocked int64
	allowed int64
}

// NewRateLimiter creates a new rate limiter with the specified rate per minute
func NewRateLimiter(ratePerMinute int) *RateLimiter {
	if ratePerMinute <= 0 {
		ratePerMinute = 60
	}

	maxTokens := float64(ratePerMinute)

	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: maxTokens / 60.0,
		lastRefill: time.Now(),
	}
}

// Allow checks if a request should be allowed and consumes a token if so
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill(time.Now())

	if r.tokens >= 1 {
		r.tokens--
		r.allowed++
		return true
	}

	r.blocked++
	return false
}

// refill adds tokens based on elapsed time
func (r *RateLimiter) refill(now time.Time) {
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.lastRefill = now

	r.tokens += elapsed * r.refillRate
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
}

// full reports whether the bucket has refilled completely by now. A full
// bucket behaves exactly like a new one and can be dropped.
func (r *RateLimiter) full(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill(now)
	return r.tokens >= r.maxTokens
}

// Stats returns rate limiter statistics
func (r *RateLimiter) Stats() RateLimiterStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return RateLimiterStats{
		TokensAvailable: r.tokens,
		MaxTokens:       r.maxTokens,
		Allowed:         r.allowed,
		Blocked:         r.blocked,
	}
}

// RateLimiterStats holds statistics about the rate limiter
type RateLimiterStats struct {
	TokensAvailable float64
	MaxTokens       float64
	Allowed         int64
	Blocked         int64
}

// ClientLimiter keeps one token bucket per client address
type ClientLimiter struct {
	mu            sync.Mutex
	ratePerMinute int
	limiters      map[string]*RateLimiter
}

// NewClientLimiter creates a limiter allowing ratePerMinute requests per client
func NewClientLimiter(ratePerMinute int) *ClientLimiter {
	return &ClientLimiter{
		ratePerMinute: ratePerMinute,
		limiters:      make(map[string]*RateLimiter),
	}
}

// Allow consumes a token from the bucket of client
func (c *ClientLimiter) Allow(client string) bool {
	return c.getOrCreate(client).Allow()
}

func (c *ClientLimiter) getOrCreate(client string) *RateLimiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limiter, exists := c.limiters[client]; exists {
		return limiter
	}

	limiter := NewRateLimiter(c.ratePerMinute)
	c.limiters[client] = limiter
	return limiter
}

// Prune drops the buckets that have refilled completely
func (c *ClientLimiter) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for client, limiter := range c.limiters {
		if limiter.full(now) {
			delete(c.limiters, client)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients
func (c *ClientLimiter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.limiters)
}

// AllStats returns statistics for every tracked client
func (c *ClientLimiter) AllStats() map[string]RateLimiterStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := make(map[string]RateLimiterStats, len(c.limiters))
	for client, limiter := range c.limiters {
		stats[client] = limiter.Stats()
	}
	return stats
}

// clientAddress returns the host part of the request's remote address.
// When forwarded headers are trusted chi's RealIP middleware has already
// replaced it.
func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
