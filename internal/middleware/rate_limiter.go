package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"akppos/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const purgeInterval = 5 * time.Minute

type window struct {
	count int
	ends  time.Time
}

// fixedWindowLimiter counts requests per client IP in fixed windows.
type fixedWindowLimiter struct {
	mu        sync.Mutex
	limit     int
	span      time.Duration
	msg       string
	windows   map[string]*window
	lastPurge time.Time
	now       func() time.Time
}

func newLimiter(limit int, span time.Duration, msg string) *fixedWindowLimiter {
	return &fixedWindowLimiter{
		limit:   limit,
		span:    span,
		msg:     msg,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// allow records one hit for key and reports whether it is within the limit,
// along with the end of the current window.
func (l *fixedWindowLimiter) allow(key string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPurge) >= purgeInterval {
		l.purge(now)
	}

	w, ok := l.windows[key]
	if !ok || now.After(w.ends) {
		w = &window{ends: now.Add(l.span)}
		l.windows[key] = w
	}
	w.count++
	return w.count <= l.limit, w.ends
}

// purge drops expired windows so idle IPs do not accumulate.
func (l *fixedWindowLimiter) purge(now time.Time) {
	purged := 0
	for k, w := range l.windows {
		if now.After(w.ends) {
			delete(l.windows, k)
			purged++
		}
	}
	l.lastPurge = now
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(l.windows)).Msg("rate limiter purged")
	}
}

func (l *fixedWindowLimiter) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, ends := l.allow(c.ClientIP())
		if !ok {
			secs := int(time.Until(ends).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(l.msg))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter allows 20 login attempts per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return newLimiter(20, time.Minute, "Too many login attempts. Try again in a minute.").handler()
}

// RateLimiter is the general API limiter.
func RateLimiter(limit int, span time.Duration) gin.HandlerFunc {
	return newLimiter(limit, span, "Too many requests. Try again shortly.").handler()
}
