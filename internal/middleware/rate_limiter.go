package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"minimalgym/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// fixedWindow counts requests per client inside a window that resets once it
// has elapsed.
type fixedWindow struct {
	count     int
	windowEnd time.Time
}

// windowLimiter allows limit requests per key and window.
type windowLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string]*fixedWindow
}

func newWindowLimiter(limit int, window time.Duration) *windowLimiter {
	return &windowLimiter{limit: limit, window: window, entries: make(map[string]*fixedWindow)}
}

// allow records one request for key and reports whether it is within the
// limit, plus the end of the current window.
func (l *windowLimiter) allow(key string, now time.Time) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.After(e.windowEnd) {
		e = &fixedWindow{windowEnd: now.Add(l.window)}
		l.entries[key] = e
	}
	e.count++
	return e.count <= l.limit, e.windowEnd
}

// purge drops windows that ended before now and returns how many were removed.
func (l *windowLimiter) purge(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for key, e := range l.entries {
		if now.After(e.windowEnd) {
			delete(l.entries, key)
			n++
		}
	}
	return n
}

const purgeInterval = 5 * time.Minute

// RateLimiter limits each client IP to limit requests per window. Stale
// entries are purged in the background until ctx is cancelled.
func RateLimiter(ctx context.Context, limit int, window time.Duration) gin.HandlerFunc {
	l := newWindowLimiter(limit, window)
	startPurge(ctx, l, purgeInterval)
	return rateLimit(l)
}

// startPurge runs l.purge every interval. The returned channel is closed once
// the loop has exited.
func startPurge(ctx context.Context, l *windowLimiter, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := l.purge(now); n > 0 {
					log.Debug().Int("entries_purged", n).Msg("rate limiter purged")
				}
			}
		}
	}()
	return done
}

func rateLimit(l *windowLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, windowEnd := l.allow(c.ClientIP(), time.Now())
		if !ok {
			c.Header("Retry-After", windowEnd.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("too many requests, try again shortly"))
			return
		}
		c.Next()
	}
}
