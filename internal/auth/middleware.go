package auth

import (
	"context"
	"net/http"

	"github.com/BradenHooton/gatehouse/internal/models"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// IdentityContextKey holds the *models.SessionIdentity of an accepted request
	IdentityContextKey contextKey = "identity"
)

// SessionValidator checks a presented token against the session store
type SessionValidator interface {
	Validate(ctx context.Context, token, clientIP string) (*models.SessionIdentity, error)
}

// TokenFromRequest returns the session token from the auth cookie, falling
// back to an Authorization: Bearer header
func TokenFromRequest(r *http.Request) string {
	if token := GetSessionCookie(r); token != "" {
		return token
	}
	return pkghttp.BearerToken(r)
}

// RequireSession rejects requests without a live session bound to the caller's IP.
// Every rejection looks the same to the caller and clears the session cookie.
func RequireSession(validator SessionValidator, ipConfig *pkghttp.IPConfig, cookies CookieConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			identity, err := validator.Validate(r.Context(), token, pkghttp.ExtractClientIP(r, ipConfig))
			if err != nil {
				ClearSessionCookie(w, cookies)
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentityFromContext returns the identity set by RequireSession, or nil
func GetIdentityFromContext(r *http.Request) *models.SessionIdentity {
	identity, ok := r.Context().Value(IdentityContextKey).(*models.SessionIdentity)
	if !ok {
		return nil
	}
	return identity
}
