// File: internal/ratelimit/ratelimit.go
package ratelimit

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiting configuration
type Config struct {
	RequestsPerMinute int           // Sustained rate per identifier
	Burst             int           // Requests allowed back to back
	IdleTTL           time.Duration // Forget identifiers idle this long
	CleanupPeriod     time.Duration // How often to clean up idle entries
}

func (c *Config) Validate() error {
	if c.RequestsPerMinute <= 0 {
		return errors.New("requests_per_minute must be positive")
	}
	if c.Burst <= 0 {
		return errors.New("burst must be positive")
	}
	if c.IdleTTL <= 0 || c.CleanupPeriod <= 0 {
		return errors.New("idle_ttl and cleanup_period must be positive")
	}
	return nil
}

// DefaultStreamConfig returns defaults for the chat stream endpoint
func DefaultStreamConfig() *Config {
	return &Config{
		RequestsPerMinute: 20,
		Burst:             5,
		IdleTTL:           30 * time.Minute,
		CleanupPeriod:     10 * time.Minute,
	}
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryRateLimiter keeps one token bucket per identifier in memory.
type MemoryRateLimiter struct {
	config  *Config
	entries map[string]*entry
	mu      sync.Mutex
	now     func() time.Time
	stopCh  chan struct{}
	stopped sync.Once
}

// NewMemoryRateLimiter creates a new in-memory rate limiter
func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
	limiter := &MemoryRateLimiter{
		config:  config,
		entries: make(map[string]*entry),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go limiter.cleanupLoop()
	return limiter
}

// RateLimitInfo contains information about rate limit status
type RateLimitInfo struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Allow takes one token for identifier if one is available.
func (rl *MemoryRateLimiter) Allow(identifier string) (bool, *RateLimitInfo) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	e, ok := rl.entries[identifier]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(float64(rl.config.RequestsPerMinute)/60), rl.config.Burst)}
		rl.entries[identifier] = e
	}
	e.lastSeen = now

	info := &RateLimitInfo{Limit: rl.config.RequestsPerMinute}
	reservation := e.limiter.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		info.RetryAfter = delay
		return false, info
	}

	info.Allowed = true
	if tokens := int(e.limiter.TokensAt(now)); tokens > 0 {
		info.Remaining = tokens
	}
	return true, info
}

// Len returns the number of tracked identifiers.
func (rl *MemoryRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

func (rl *MemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *MemoryRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for identifier, e := range rl.entries {
		if now.Sub(e.lastSeen) > rl.config.IdleTTL {
			delete(rl.entries, identifier)
		}
	}
}

// Close stops the cleanup goroutine
func (rl *MemoryRateLimiter) Close() {
	rl.stopped.Do(func() { close(rl.stopCh) })
}

// GetClientIP extracts the real client IP from request
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if ip := parseFirstIP(forwarded); ip != "" {
			return ip
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func parseFirstIP(forwarded string) string {
	first, _, _ := strings.Cut(forwarded, ",")
	return strings.TrimSpace(first)
}
