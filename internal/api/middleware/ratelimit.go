package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/helpdesk-mailsync/internal/logger"
	"golang.org/x/time/rate"
)

// Fallbacks used when the configured rate is not positive
const (
	DefaultRequestsPerSecond = 10.0
	DefaultBurst             = 20

	// Clients silent for this long lose their bucket.
	DefaultIdleTTL = 10 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps one token bucket per client IP. Idle buckets are
// evicted lazily while serving requests.
type ClientLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewClientLimiter creates a limiter allowing limit requests per second with
// the given burst.
func NewClientLimiter(limit rate.Limit, burst int, idleTTL time.Duration) *ClientLimiter {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &ClientLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Allow spends one token from ip's bucket.
func (l *ClientLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) >= l.idleTTL {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// RetryAfter is the wait before one token is available again, rounded up to
// whole seconds.
func (l *ClientLimiter) RetryAfter() int {
	if l.limit <= 0 {
		return 60
	}
	secs := int(1/float64(l.limit) + 0.999)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Tracked reports how many client buckets are held.
func (l *ClientLimiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// RateLimiter rejects clients that exhausted their bucket with 429.
func RateLimiter(limiter *ClientLimiter, audit *logger.AuditLogger) echo.MiddlewareFunc {
	if audit == nil {
		audit = logger.NewAuditLogger(nil)
	}
	retryAfter := strconv.Itoa(limiter.RetryAfter())

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if limiter.Allow(ip) {
				return next(c)
			}
			audit.RateLimitExceeded(ip, c.Path())
			c.Response().Header().Set("Retry-After", retryAfter)
			return echo.NewHTTPError(http.StatusTooManyRequests, map[string]string{
				"error":       "rate limit exceeded",
				"code":        "RATE_LIMITED",
				"retry_after": retryAfter,
			})
		}
	}
}

// RateLimiterWithConfig builds a limiter from RATE_LIMIT_RPS and
// RATE_LIMIT_BURST. Non-positive values fall back to the defaults.
func RateLimiterWithConfig(requestsPerSecond float64, burst int, audit *logger.AuditLogger) echo.MiddlewareFunc {
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return RateLimiter(NewClientLimiter(rate.Limit(requestsPerSecond), burst, DefaultIdleTTL), audit)
}
