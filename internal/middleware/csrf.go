package middleware

import (
	"log/slog"
	"net/http"

	"github.com/BradenHooton/gatehouse/internal/auth"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
	pkglogger "github.com/BradenHooton/gatehouse/pkg/logger"
)

// CSRFHeaderName carries the CSRF token on state-changing requests
const CSRFHeaderName = "X-CSRF-Token"

// CSRFValidator checks a CSRF token against the session it was issued for
type CSRFValidator interface {
	ValidateToken(token, sessionID string) bool
}

// CSRFProtection validates CSRF tokens on state-changing requests.
// It must run after auth.RequireSession: the token is checked against the
// session in the request context. The token is read from the X-CSRF-Token
// header only; a cookie alone proves nothing since the browser sends it anyway.
func CSRFProtection(csrfManager CSRFValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only protect state-changing methods
			if !isStateChangingMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			identity := auth.GetIdentityFromContext(r)
			if identity == nil {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			csrfToken := r.Header.Get(CSRFHeaderName)
			if csrfToken == "" {
				logger.Warn("CSRF token missing in request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("session_id", pkglogger.ShortID(identity.SessionID)))
				pkghttp.WriteForbidden(w, "CSRF token missing")
				return
			}

			if !csrfManager.ValidateToken(csrfToken, identity.SessionID) {
				logger.Warn("CSRF token validation failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("session_id", pkglogger.ShortID(identity.SessionID)))
				pkghttp.WriteForbidden(w, "CSRF token invalid")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isStateChangingMethod checks if the HTTP method modifies state
func isStateChangingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}
