// Package ratelimit throttles clients with one token bucket per address.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// idleAfter is how long a client may stay quiet before its bucket is dropped.
const idleAfter = 10 * time.Minute

// Config holds rate limiter configuration.
type Config struct {
	// RequestsPerMinute is both the refill rate and the burst size.
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60, CleanupInterval: 5 * time.Minute}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter allows RequestsPerMinute requests per client, refilled evenly
// over the minute.
type Limiter struct {
	perMinute int
	every     rate.Limit

	mu      sync.Mutex
	buckets map[string]*bucket

	rejected atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewLimiter starts a limiter and its idle-client sweeper. Call Stop to
// release it.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	l := &Limiter{
		perMinute: cfg.RequestsPerMinute,
		every:     rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute)),
		buckets:   make(map[string]*bucket),
		stop:      make(chan struct{}),
		now:       time.Now,
	}
	go l.sweep(cfg.CleanupInterval)
	return l
}

// Allow takes one token from clientIP's bucket.
func (l *Limiter) Allow(clientIP string) bool {
	now := l.now()

	l.mu.Lock()
	b, ok := l.buckets[clientIP]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.every, l.perMinute)}
		l.buckets[clientIP] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	if b.limiter.AllowN(now, 1) {
		return true
	}
	l.rejected.Add(1)
	return false
}

// retryAfter is the wait, in whole seconds, until one token refills.
func (l *Limiter) retryAfter() string {
	secs := (60 + l.perMinute - 1) / l.perMinute
	return strconv.Itoa(max(secs, 1))
}

func (l *Limiter) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.dropIdle()
		case <-l.stop:
			return
		}
	}
}

// dropIdle forgets clients not seen for idleAfter.
func (l *Limiter) dropIdle() int {
	cutoff := l.now().Add(-idleAfter)

	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for ip, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, ip)
			n++
		}
	}
	return n
}

// ActiveClients returns the number of clients with a live bucket.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Rejected returns how many requests were refused so far.
func (l *Limiter) Rejected() int64 {
	return l.rejected.Load()
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Middleware limits requests for which limited returns true, or every
// request when limited is nil. onLimit writes the rejection; a plain 429
// is sent when it is nil.
func (l *Limiter) Middleware(clientIP func(*http.Request) string, limited func(*http.Request) bool, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if (limited == nil || limited(r)) && !l.Allow(clientIP(r)) {
				w.Header().Set("Retry-After", l.retryAfter())
				if onLimit != nil {
					onLimit(w, r)
					return
				}
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
