package routes

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/handlers"
	"github.com/BradenHooton/gatehouse/internal/middleware"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/repositories"
	"github.com/BradenHooton/gatehouse/internal/services"
	pkgauth "github.com/BradenHooton/gatehouse/pkg/auth"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminUser     = "admin"
	adminPassword = "Correct-Horse-42!"
	clientAddr    = "192.0.2.10:5000"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	hash, err := pkgauth.NewHasher(pkgauth.MinIterations).Hash(adminPassword)
	require.NoError(t, err)

	logger := slog.Default()
	sessions := repositories.NewSessionRepository()
	throttle := services.NewRateLimitService(repositories.NewLoginAttemptRepository(), services.RateLimitConfig{
		MaxLoginAttempts: 3,
		LockoutDuration:  time.Minute,
	}, nil, logger)
	audit := services.NewAuditService(nil, 0, logger)
	csrf := auth.NewCSRFTokenManager()

	authService, err := services.NewAuthService(
		repositories.NewCredentialRepository(models.Credential{Username: adminUser, PasswordHash: hash}),
		sessions,
		auth.NewTokenManager("0123456789abcdef0123456789abcdef"),
		throttle,
		audit,
		nil,
		services.AuthConfig{SessionTimeout: time.Hour, PasswordHashIterations: pkgauth.MinIterations},
		logger,
	)
	require.NoError(t, err)

	status := services.NewStatusService(sessions, throttle, services.StatusConfig{
		SessionTimeout:   time.Hour,
		MaxLoginAttempts: 3,
		LockoutDuration:  time.Minute,
	})

	router := chi.NewRouter()
	RegisterRoutes(router, Dependencies{
		AuthHandler:   handlers.NewAuthHandler(authService, csrf, nil, auth.CookieConfig{}, logger),
		AdminHandler:  handlers.NewAdminHandler(status, audit),
		HealthHandler: handlers.NewHealthHandler(nil),
		Validator:     authService,
		CSRF:          csrf,
		Logger:        logger,
	})

	// Pin every request to one peer address so the IP binding holds
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.RemoteAddr = clientAddr
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

type session struct {
	token string
	csrf  string
}

func login(t *testing.T, server *httptest.Server, password string) (*http.Response, session) {
	t.Helper()

	body := `{"username":"` + adminUser + `","password":"` + password + `"}`
	resp, err := http.Post(server.URL+"/auth/login", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var s session
	if resp.StatusCode == http.StatusOK {
		var payload handlers.LoginResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		s.csrf = payload.CSRFToken
		for _, c := range resp.Cookies() {
			if c.Name == auth.SessionCookieName {
				s.token = c.Value
			}
		}
	}
	return resp, s
}

func do(t *testing.T, server *httptest.Server, method, path string, s session) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, server.URL+path, nil)
	require.NoError(t, err)
	if s.token != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: s.token})
	}
	if s.csrf != "" {
		req.Header.Set(middleware.CSRFHeaderName, s.csrf)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRoutes_LoginSessionLogout(t *testing.T) {
	server := newTestServer(t)

	resp, s := login(t, server, adminPassword)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, s.token)
	require.NotEmpty(t, s.csrf)

	assert.Equal(t, http.StatusOK, do(t, server, "GET", "/auth/session", s).StatusCode)
	assert.Equal(t, http.StatusOK, do(t, server, "GET", "/admin/security-status", s).StatusCode)

	// Logout needs the CSRF header
	noCSRF := session{token: s.token}
	assert.Equal(t, http.StatusForbidden, do(t, server, "POST", "/auth/logout", noCSRF).StatusCode)

	assert.Equal(t, http.StatusOK, do(t, server, "POST", "/auth/logout", s).StatusCode)

	// The token is still correctly signed and unexpired, but its session is gone
	assert.Equal(t, http.StatusUnauthorized, do(t, server, "GET", "/auth/session", s).StatusCode)
}

func TestRoutes_BearerToken(t *testing.T) {
	server := newTestServer(t)

	_, s := login(t, server, adminPassword)

	req, err := http.NewRequest("GET", server.URL+"/auth/session", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoutes_ProtectedWithoutSession(t *testing.T) {
	server := newTestServer(t)

	for _, path := range []string{"/auth/session", "/admin/security-status", "/admin/audit"} {
		assert.Equal(t, http.StatusUnauthorized, do(t, server, "GET", path, session{}).StatusCode, path)
	}
	assert.Equal(t, http.StatusUnauthorized, do(t, server, "POST", "/auth/logout", session{}).StatusCode)
}

func TestRoutes_LockoutLooksLikeBadPassword(t *testing.T) {
	server := newTestServer(t)

	resp, _ := login(t, server, "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	login(t, server, "wrong")
	login(t, server, "wrong")

	resp, _ = login(t, server, adminPassword)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	status := do(t, server, "GET", "/health", session{})
	assert.Equal(t, http.StatusOK, status.StatusCode)
}

func TestRoutes_AuditDisabledWithoutDatabase(t *testing.T) {
	server := newTestServer(t)

	_, s := login(t, server, adminPassword)

	assert.Equal(t, http.StatusNotFound, do(t, server, "GET", "/admin/audit", s).StatusCode)
}
