package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
}

// DefaultLoginRateLimit returns the default config for the login endpoint (10 requests per minute)
func DefaultLoginRateLimit(ipConfig *pkghttp.IPConfig) RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 10,
		IPConfig:          ipConfig,
	}
}

// RateLimitByIP limits requests per client IP. The key is the same address
// sessions are bound to, so forwarding headers only count from trusted proxies.
//
// This sits in front of the per-account lockout and bounds raw request volume,
// including requests for usernames that do not exist.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many requests")
		}),
	)
}
