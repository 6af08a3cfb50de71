package api

import (
	"alcyxob/fitness-dashboard/internal/dashboard"
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/observability"
	"alcyxob/fitness-dashboard/internal/session"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Constants for context keys
const (
	ContextUserIDKey  = "userID"
	ContextSessionKey = "session"

	requestIDHeader = "X-Request-ID"
)

// RequestContext assigns a request id (reusing the caller's X-Request-ID),
// stores it in the request context for the logger, then logs the request and
// records HTTP metrics once it completes.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(requestIDHeader, rid)
		c.Request = c.Request.WithContext(observability.WithRequestID(c.Request.Context(), rid))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)
		observability.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		observability.HTTPLatency.WithLabelValues(c.Request.Method, route).Observe(latency.Seconds())

		fields := []any{
			slog.Int("status", status),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("ip", c.ClientIP()),
			slog.Duration("latency", latency),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, slog.String("error", c.Errors.String()))
			slog.ErrorContext(c.Request.Context(), "request failed", fields...)
			return
		}
		slog.InfoContext(c.Request.Context(), "request processed", fields...)
	}
}

// GuardMiddleware lets a request through only when the gateway is
// configured and a session is present. Unconfigured: 503 with the
// configuration notice. Signed out: redirect to the guard's target.
func GuardMiddleware(guard *session.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !guard.State().HasConfig {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, dashboard.NewConfigNotice())
			return
		}

		// The first request after startup waits for the session to resolve.
		if err := guard.Wait(c.Request.Context()); err != nil {
			abortWithError(c, http.StatusServiceUnavailable, "Session is still loading")
			return
		}

		state := guard.State()
		if !state.SignedIn() {
			c.Redirect(http.StatusSeeOther, guard.RedirectTarget())
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, state.Session.User.ID)
		c.Set(ContextSessionKey, state.Session)
		c.Next()
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// Helper function to get the session set by GuardMiddleware
func getSessionFromContext(c *gin.Context) (*domain.Session, error) {
	raw, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil, errors.New("session not found in context")
	}
	sess, ok := raw.(*domain.Session)
	if !ok || sess == nil {
		return nil, errors.New("invalid session type in context")
	}
	return sess, nil
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rps       rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

const visitorTTL = 10 * time.Minute

func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		visitors:  make(map[string]*visitor),
		rps:       rate.Limit(rps),
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (rl *ipRateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > visitorTTL {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// RateLimit limits requests per client IP. A non-positive rps disables it.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := newIPRateLimiter(rps, burst)
	return func(c *gin.Context) {
		if !limiter.getLimiter(c.ClientIP()).Allow() {
			abortWithError(c, http.StatusTooManyRequests, "too many requests")
			return
		}
		c.Next()
	}
}
