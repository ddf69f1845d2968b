package handlers

import (
	"context"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves GET /health
type HealthHandler struct {
	db HealthChecker
}

// NewHealthHandler creates a HealthHandler. db may be nil when the audit
// database is not configured.
func NewHealthHandler(db HealthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health reports process and database health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.HealthCheck(ctx); err != nil {
		pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
}
