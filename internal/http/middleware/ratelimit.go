package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/parlabot/parlabot/internal/config"
	"github.com/parlabot/parlabot/internal/httputil"
)

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(requests int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if logger != nil {
				logger.Warn("rate limit exceeded",
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded. please try again later")
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// CreateRateLimiters creates rate limiting middleware per endpoint group.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger) map[string]func(http.Handler) http.Handler {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return map[string]func(http.Handler) http.Handler{
			"auth":     noOp,
			"redeem":   noOp,
			"refresh":  noOp,
			"generate": noOp,
		}
	}

	return map[string]func(http.Handler) http.Handler{
		"auth":     RateLimit(cfg.AuthRequestsPerMinute, time.Minute, logger),
		"redeem":   RateLimit(cfg.RedeemRequestsPerMinute, time.Minute, logger),
		"refresh":  RateLimit(cfg.RefreshRequestsPerMinute, time.Minute, logger),
		"generate": RateLimit(cfg.GenerateRequestsPerMinute, time.Minute, logger),
	}
}
