package routes

import (
	"log/slog"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/handlers"
	"github.com/BradenHooton/gatehouse/internal/middleware"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
	"github.com/go-chi/chi/v5"
)

// Dependencies groups what RegisterRoutes needs to build the route tree
type Dependencies struct {
	AuthHandler    *handlers.AuthHandler
	AdminHandler   *handlers.AdminHandler
	HealthHandler  *handlers.HealthHandler
	Validator      auth.SessionValidator
	CSRF           middleware.CSRFValidator
	IPConfig       *pkghttp.IPConfig
	Cookies        auth.CookieConfig
	LoginRateLimit int
	Logger         *slog.Logger
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, deps Dependencies) {
	rateLimitConfig := middleware.DefaultLoginRateLimit(deps.IPConfig)
	if deps.LoginRateLimit > 0 {
		rateLimitConfig.RequestsPerMinute = deps.LoginRateLimit
	}

	// Public routes - no authentication required
	router.Get("/health", deps.HealthHandler.Health)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", deps.AuthHandler.Login)

	// Protected routes - live session bound to the caller's IP required
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(deps.Validator, deps.IPConfig, deps.Cookies))
		r.Use(middleware.CSRFProtection(deps.CSRF, deps.Logger))

		r.Get("/auth/session", deps.AuthHandler.Session)
		r.Post("/auth/logout", deps.AuthHandler.Logout)

		r.Get("/admin/security-status", deps.AdminHandler.SecurityStatus)
		r.Get("/admin/audit", deps.AdminHandler.AuditTrail)
	})
}
