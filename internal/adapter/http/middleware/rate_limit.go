package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fixora/servicebay/internal/adapter/http/response"
	"github.com/fixora/servicebay/internal/infra/logger"
	"github.com/fixora/servicebay/internal/infra/ratelimit"
)

type RateLimitMiddleware struct {
	service ratelimit.Service
	limit   int
	window  time.Duration
	logger  logger.Logger
}

func NewRateLimitMiddleware(service ratelimit.Service, limit int, window time.Duration, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		service: service,
		limit:   limit,
		window:  window,
		logger:  log,
	}
}

// RateLimit limits mutating requests per client IP. Reads pass through.
func (m *RateLimitMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.service == nil || !isMutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		clientIP := getClientIP(r)
		key := fmt.Sprintf("servicebay:ratelimit:%s", clientIP)

		allowed, err := m.service.Allow(ctx, key, m.limit, m.window)
		if err != nil {
			m.logger.Error(ctx, "Failed to check rate limit", err, map[string]interface{}{
				"ip":  clientIP,
				"key": key,
			})
			// fail open
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			m.logger.Warn(ctx, "Rate limit exceeded", map[string]interface{}{
				"ip":        clientIP,
				"path":      r.URL.Path,
				"userAgent": r.UserAgent(),
			})
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(m.window.Seconds())))
			response.TooManyRequests(w, "Too many requests. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// getClientIP extracts client IP from request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
