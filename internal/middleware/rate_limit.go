package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/sentinel/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds the flood limit applied to the HTTP API itself
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	IPConfig *pkghttp.IPConfig
}

// DefaultAPIRateLimit returns the default API flood limit (300 requests per minute)
func DefaultAPIRateLimit(ipConfig *pkghttp.IPConfig) RateLimitConfig {
	return RateLimitConfig{
		Requests: 300,
		Window:   1 * time.Minute,
		IPConfig: ipConfig,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP.
// The client IP is resolved with the same trusted proxy rules the attempt
// endpoints use.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	retryAfter := int(config.Window / time.Second)
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteThrottled(w, retryAfter, "API rate limit exceeded")
		}),
	)
}
