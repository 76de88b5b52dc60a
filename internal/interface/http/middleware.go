package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"github.com/asase/envreport/internal/infra/config"
)

const visitorTTL = 5 * time.Minute

// rateLimitMiddleware applies a per-IP token bucket. Rejected requests get a
// Retry-After hint in whole seconds.
func rateLimitMiddleware(cfg config.RateLimitConfig, clock clockwork.Clock, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newIPRateLimiter(cfg, clock)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		wait, ok := limiter.allow(ip)
		if ok {
			c.Next()
			return
		}
		logger.Warn("rate limit exceeded", "ip", ip, "path", c.Request.URL.Path, "retryAfter", wait)
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		abortWithError(c, NewHTTPError(http.StatusTooManyRequests, "rate_limit_exceeded", "too many report requests, slow down", nil))
	}
}

type ipRateLimiter struct {
	mu          sync.Mutex
	clock       clockwork.Clock
	visitors    map[string]*visitor
	perSecond   float64
	burst       float64
	lastCleanup time.Time
}

type visitor struct {
	tokens   float64
	lastSeen time.Time
}

func newIPRateLimiter(cfg config.RateLimitConfig, clock clockwork.Clock) *ipRateLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &ipRateLimiter{
		clock:       clock,
		visitors:    make(map[string]*visitor),
		perSecond:   float64(cfg.RequestsPerMinute) / 60,
		burst:       float64(burst),
		lastCleanup: clock.Now(),
	}
}

// allow takes a token for ip, or reports how long until one is available.
func (l *ipRateLimiter) allow(ip string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	if now.Sub(l.lastCleanup) > visitorTTL {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(l.visitors, key)
			}
		}
		l.lastCleanup = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{tokens: l.burst, lastSeen: now}
		l.visitors[ip] = v
	} else if elapsed := now.Sub(v.lastSeen).Seconds(); elapsed > 0 {
		v.tokens = math.Min(l.burst, v.tokens+elapsed*l.perSecond)
		v.lastSeen = now
	}

	if v.tokens < 1 {
		return time.Duration((1 - v.tokens) / l.perSecond * float64(time.Second)), false
	}
	v.tokens--
	return 0, true
}
