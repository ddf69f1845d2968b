package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/services"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
)

// maxLoginBodyBytes caps the login request body
const maxLoginBodyBytes = 4 << 10

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, username, password, clientIP string) (*services.LoginResponse, error)
	Logout(ctx context.Context, identity *models.SessionIdentity, clientIP string)
}

// CSRFTokenIssuer issues and revokes session-bound CSRF tokens
type CSRFTokenIssuer interface {
	GenerateToken(sessionID string, expiresAt time.Time) (string, error)
	RevokeSession(sessionID string)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	csrf     CSRFTokenIssuer
	ipConfig *pkghttp.IPConfig
	cookies  auth.CookieConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, csrf CSRFTokenIssuer, ipConfig *pkghttp.IPConfig, cookies auth.CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		csrf:     csrf,
		ipConfig: ipConfig,
		cookies:  cookies,
		logger:   logger,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=128"`
}

// LoginResponse is the body of a successful login. The session token itself
// only travels in the auth_token cookie.
type LoginResponse struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
	CSRFToken string    `json:"csrf_token"`
}

// Login handles admin login
// @Summary Admin login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} LoginResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	// Validate request
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	// Usernames are case-sensitive and compared exactly
	clientIP := pkghttp.ExtractClientIP(r, h.ipConfig)

	resp, err := h.service.Login(r.Context(), req.Username, req.Password, clientIP)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAuthenticationFailed):
			// Lockout and bad credentials are reported identically
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		case errors.Is(err, context.Canceled):
			// Client went away
			return
		case errors.Is(err, context.DeadlineExceeded):
			h.logger.WarnContext(r.Context(), "login timed out", slog.String("ip_address", clientIP))
			pkghttp.WriteError(w, http.StatusServiceUnavailable, "timeout", "Request timed out")
		default:
			h.logger.ErrorContext(r.Context(), "login failed", slog.Any("error", err))
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	csrfToken, err := h.csrf.GenerateToken(resp.SessionID, resp.ExpiresAt)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to issue csrf token", slog.Any("error", err))
		h.service.Logout(r.Context(), &models.SessionIdentity{
			Username:  resp.Username,
			SessionID: resp.SessionID,
			ExpiresAt: resp.ExpiresAt,
		}, clientIP)
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	auth.SetSessionCookie(w, resp.Token, resp.ExpiresAt, h.cookies)
	auth.SetCSRFCookie(w, csrfToken, resp.ExpiresAt, h.cookies)

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		Username:  resp.Username,
		ExpiresAt: resp.ExpiresAt,
		CSRFToken: csrfToken,
	})
}

// Session returns the identity of the current session
// @Summary Current session
// @Produce json
// @Success 200 {object} models.SessionIdentity
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /auth/session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromContext(r)
	if identity == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, identity)
}

// Logout ends the current session
// @Summary Logout
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 403 {object} pkghttp.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromContext(r)
	if identity == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	h.service.Logout(r.Context(), identity, pkghttp.ExtractClientIP(r, h.ipConfig))
	h.csrf.RevokeSession(identity.SessionID)

	auth.ClearSessionCookie(w, h.cookies)
	auth.ClearCSRFCookie(w, h.cookies)

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}
