package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"product-analytics/internal/common/database"
	apperrors "product-analytics/internal/common/errors"
	"product-analytics/internal/common/logger"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID reuses the caller's X-Request-ID or assigns a new UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFrom returns the request ID stored by RequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestLogger logs one line per request once the handler returns.
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request", map[string]interface{}{
				"method":    r.Method,
				"path":      r.URL.Path,
				"status":    ww.Status(),
				"bytes":     ww.BytesWritten(),
				"duration":  time.Since(start).String(),
				"requestId": RequestIDFrom(r.Context()),
				"remote":    r.RemoteAddr,
			})
		})
	}
}

// Counter is the fixed-window counter the rate limiter relies on.
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

var _ Counter = (*database.RedisClient)(nil)

// RateLimiter allows Requests per Window for each client address. Counter
// failures let the request through.
type RateLimiter struct {
	counter  Counter
	requests int64
	window   time.Duration
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
}

func NewRateLimiter(counter Counter, requests int, window time.Duration, errs *apperrors.ErrorHandler, log logger.Logger) *RateLimiter {
	return &RateLimiter{
		counter:  counter,
		requests: int64(requests),
		window:   window,
		errors:   errs,
		logger:   log,
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("ratelimit:analytics:%s", clientAddr(r))
		count, ttl, err := rl.counter.IncrWindow(r.Context(), key, rl.window)
		if err != nil {
			rl.logger.Warn("rate limit check failed, allowing request", map[string]interface{}{
				"error": err,
			})
			next.ServeHTTP(w, r)
			return
		}
		if count > rl.requests {
			retryAfter := ttl.Round(time.Second)
			if retryAfter < time.Second {
				retryAfter = time.Second
			}
			rl.errors.WriteError(w, r, apperrors.NewRateLimitedError(retryAfter))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
