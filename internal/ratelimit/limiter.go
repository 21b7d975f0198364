// Package ratelimit provides per-client rate limiting for the search endpoints.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRetryAfterSeconds is the Retry-After value sent with a 429.
const DefaultRetryAfterSeconds = 1

// Config defines the rate limiting configuration.
type Config struct {
	RPS             float64       // Sustained requests per second per client
	Burst           int           // Burst size per client
	CleanupInterval time.Duration // How often idle limiters are dropped
}

// DefaultConfig allows a fast typist plus the debounce window with room to spare.
var DefaultConfig = Config{
	RPS:             20,
	Burst:           40,
	CleanupInterval: 10 * time.Minute,
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// Limiter keeps one token bucket per client key.
type Limiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	config   Config

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a limiter and starts its cleanup goroutine.
func New(config Config) *Limiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig.CleanupInterval
	}
	l := &Limiter{
		limiters: make(map[string]*limiterEntry),
		config:   config,
		stopCh:   make(chan struct{}),
	}
	l.wg.Add(1)
	go l.cleanupLoop()
	return l
}

// Allow reports whether a request from key fits within its bucket.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Remaining returns the approximate number of tokens left for key.
func (l *Limiter) Remaining(key string) int {
	remaining := int(l.get(key).Tokens())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(l.config.RPS), l.config.Burst)}
		l.limiters[key] = entry
	}
	entry.lastUsed = time.Now()
	return entry.limiter
}

// Cleanup removes limiters idle for longer than the cleanup interval.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.config.CleanupInterval)
	for key, entry := range l.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
}

func (l *Limiter) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine and waits for it to finish. Safe to call twice.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	l.wg.Wait()
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Middleware rejects requests over the limit with 429. keyOf extracts the
// client key; an empty key bypasses limiting.
func Middleware(l *Limiter, keyOf func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyOf(r)
			if key == "" || l == nil {
				next.ServeHTTP(w, r)
				return
			}
			if !l.Allow(key) {
				w.Header().Set("Retry-After", strconv.Itoa(DefaultRetryAfterSeconds))
				w.Header().Set("X-RateLimit-Remaining", "0")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(l.Remaining(key)))
			next.ServeHTTP(w, r)
		})
	}
}
