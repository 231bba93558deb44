package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"salescrm/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ipEntry tracks requests per IP within a fixed window.
type ipEntry struct {
	count     int
	windowEnd time.Time
}

// limiter counts requests per client IP. One instance backs each middleware.
type limiter struct {
	name   string
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*ipEntry
}

func newLimiter(name string, limit int, window time.Duration) *limiter {
	l := &limiter{name: name, limit: limit, window: window, now: time.Now, entries: make(map[string]*ipEntry)}
	registerLimiter(l)
	return l
}

// allow records a hit for ip and reports whether it is within the limit,
// plus the time its window resets.
func (l *limiter) allow(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[ip]
	if !ok || now.After(entry.windowEnd) {
		entry = &ipEntry{windowEnd: now.Add(l.window)}
		l.entries[ip] = entry
	}
	entry.count++
	return entry.count <= l.limit, entry.windowEnd
}

// purge drops entries whose window has passed and returns how many went.
func (l *limiter) purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for ip, entry := range l.entries {
		if now.After(entry.windowEnd) {
			delete(l.entries, ip)
			n++
		}
	}
	return n
}

func (l *limiter) handler(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, reset := l.allow(c.ClientIP())
		if !ok {
			secs := int(time.Until(reset).Seconds()) + 1
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			log.Warn().Str("limiter", l.name).Str("ip", c.ClientIP()).Msg("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter limits login attempts per IP (20 per minute in production).
func LoginRateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return newLimiter("login", limit, window).handler("Too many login attempts. Try again in a minute.")
}

// RateLimiter returns a general-purpose per-IP rate limiter.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return newLimiter("api", limit, window).handler("Too many requests. Try again shortly.")
}

// ── Purge goroutine ───────────────────────────────────────────────────────────
// Periodically removes expired entries from every limiter so IPs that never
// return do not accumulate.

const purgeInterval = 5 * time.Minute

var (
	limiters   []*limiter
	limitersMu sync.Mutex
	purgeOnce  sync.Once
)

func registerLimiter(l *limiter) {
	limitersMu.Lock()
	limiters = append(limiters, l)
	limitersMu.Unlock()
	purgeOnce.Do(func() { go purgeExpiredEntries() })
}

func purgeExpiredEntries() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		limitersMu.Lock()
		current := append([]*limiter(nil), limiters...)
		limitersMu.Unlock()

		for _, l := range current {
			if n := l.purge(); n > 0 {
				log.Debug().Str("limiter", l.name).Int("entries_purged", n).Msg("rate limiter map purged")
			}
		}
	}
}
