package handlers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"delivery_api/internal/auth"
	"delivery_api/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const callerKey = "caller"

// TokenVerifier turns a bearer token into the calling principal.
type TokenVerifier interface {
	Verify(token string) (auth.Caller, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller in the gin context.
func Authenticate(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			respondError(c, apperrors.NewUnauthenticatedError("missing bearer token"))
			return
		}

		caller, err := verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// CallerFrom returns the caller stored by Authenticate.
func CallerFrom(c *gin.Context) auth.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(auth.Caller); ok {
			return caller
		}
	}
	return auth.Caller{}
}

func RequireAccessLevel(level int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CallerFrom(c).AccessLevel < level {
			respondError(c, apperrors.NewForbiddenError(""))
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request. Server errors are logged with the
// errors attached by respondError.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if caller := CallerFrom(c); caller.UserID != 0 {
			entry = entry.WithField("user_id", caller.UserID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			for _, e := range c.Errors {
				entry = entry.WithError(causeOf(e.Err))
			}
			entry.Error("Request failed")
		case status >= http.StatusBadRequest:
			entry.Info("Request rejected")
		default:
			entry.Debug("Request served")
		}
	}
}

func causeOf(err error) error {
	if appErr := apperrors.From(err); appErr.Cause != nil {
		return appErr.Cause
	}
	return err
}

// Recovery turns panics into the internal error envelope.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(logger.WriterLevel(logrus.ErrorLevel), func(c *gin.Context, recovered interface{}) {
		respondError(c, apperrors.NewInternalError(fmt.Errorf("panic: %v", recovered)))
	})
}

// CORS allows a single configured origin, or any origin for "*".
func CORS(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		h.Set("Access-Control-Max-Age", "600")
		if origin != "*" {
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter allows max requests per window for each client IP, refilling
// continuously.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
	window   time.Duration
	now      func() time.Time
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     rate.Limit(float64(max) / window.Seconds()),
		burst:    max,
		window:   window,
		now:      time.Now,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, exists := rl.limiters[key]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = rl.now()
	return cl.limiter
}

func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		limiter := rl.getLimiter(key)
		if !limiter.AllowN(rl.now(), 1) {
			retryAfter := int(math.Ceil(1 / float64(rl.rate)))
			c.Header("Retry-After", fmt.Sprint(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, Envelope{
				Success: false,
				Error: &ErrorBody{
					Code:      "RATE_LIMITED",
					Message:   "too many requests, please try again later",
					Retryable: true,
				},
			})
			return
		}
		c.Next()
	}
}

// Cleanup drops limiters idle for longer than a window; they would be full
// again anyway.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for key, cl := range rl.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}
