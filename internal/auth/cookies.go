package auth

import (
	"net/http"
	"time"
)

const (
	// SessionCookieName carries the session token
	SessionCookieName = "auth_token"
	// CSRFCookieName carries the CSRF token readable by the admin UI
	CSRFCookieName = "csrf_token"
)

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain string // Empty string = current host only
	Secure bool   // HTTPS only
}

func (c CookieConfig) cookie(name, value string, expires time.Time, httpOnly bool) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: httpOnly,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}

	if expires.IsZero() {
		cookie.MaxAge = -1
	} else {
		cookie.Expires = expires
		cookie.MaxAge = int(time.Until(expires).Seconds())
		if cookie.MaxAge <= 0 {
			cookie.MaxAge = -1
		}
	}

	return cookie
}

// SetSessionCookie stores the session token in an HttpOnly cookie that lives as long as the session
func SetSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time, config CookieConfig) {
	http.SetCookie(w, config.cookie(SessionCookieName, token, expiresAt, true))
}

// ClearSessionCookie expires the session cookie
func ClearSessionCookie(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, config.cookie(SessionCookieName, "", time.Time{}, true))
}

// SetCSRFCookie stores the CSRF token where JavaScript can read it for the X-CSRF-Token header
func SetCSRFCookie(w http.ResponseWriter, token string, expiresAt time.Time, config CookieConfig) {
	http.SetCookie(w, config.cookie(CSRFCookieName, token, expiresAt, false))
}

// ClearCSRFCookie expires the CSRF cookie
func ClearCSRFCookie(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, config.cookie(CSRFCookieName, "", time.Time{}, false))
}

// GetSessionCookie returns the session token cookie value, or "" if absent
func GetSessionCookie(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
