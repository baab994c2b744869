package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/revlabs/weather-gateway/internal/core/ports"
)

// RateLimitMiddleware throttles requests per client IP using a sliding
// window limiter. The limiter backend is pluggable so single instances can
// run in memory while multi-instance deployments share state through Redis.
type RateLimitMiddleware struct {
	limiter ports.RateLimitService
	limit   int
	window  time.Duration
	logger  *zap.Logger
}

// NewRateLimitMiddleware creates a rate limiting middleware.
//
// Parameters:
//   - limiter: Sliding-window limiter backend
//   - limit: Maximum requests allowed per window
//   - window: Window duration
//   - logger: Zap logger for limiter events
//
// Returns:
//   - *RateLimitMiddleware: Configured middleware instance
func NewRateLimitMiddleware(limiter ports.RateLimitService, limit int, window time.Duration, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		window:  window,
		logger:  logger,
	}
}

// Middleware enforces the rate limit for each incoming request.
// A failing limiter backend fails open so it cannot take the API down.
func (m *RateLimitMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := GetClientIP(r)

		allowed, err := m.limiter.Allow(r.Context(), clientIP, m.limit, m.window)

		if err != nil {
			m.logger.Warn("rate limiter unavailable",
				zap.String("client_ip", clientIP),
				zap.Error(err))

			next.ServeHTTP(w, r)

			return
		}

		if !allowed {
			m.logger.Debug("rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.Int("limit", m.limit))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"RATE_LIMITED","message":"Too many requests"}`))

			return
		}

		next.ServeHTTP(w, r)
	})
}
