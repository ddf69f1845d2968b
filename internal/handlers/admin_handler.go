package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/BradenHooton/gatehouse/internal/models"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
)

// StatusServiceInterface defines the security status contract.
type StatusServiceInterface interface {
	SecurityStatus() *models.SecurityStatus
}

// AuditServiceInterface defines read access to the audit trail.
type AuditServiceInterface interface {
	ListRecent(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error)
}

// AdminHandler handles admin HTTP requests.
type AdminHandler struct {
	status StatusServiceInterface
	audit  AuditServiceInterface
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(status StatusServiceInterface, audit AuditServiceInterface) *AdminHandler {
	return &AdminHandler{status: status, audit: audit}
}

// AuditQuery holds the filters accepted by GET /admin/audit
type AuditQuery struct {
	EventType string `query:"event_type" validate:"omitempty,oneof=login_success login_failed account_locked logout session_rejected"`
	Limit     int    `query:"limit" validate:"gte=0,lte=100"`
	Offset    int    `query:"offset" validate:"gte=0"`
}

// SecurityStatus handles GET /admin/security-status
func (h *AdminHandler) SecurityStatus(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, h.status.SecurityStatus())
}

// AuditTrail handles GET /admin/audit
// Accepts optional query params ?event_type=, ?limit=N (1–100, default 50) and ?offset=N.
func (h *AdminHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	query := AuditQuery{EventType: r.URL.Query().Get("event_type")}

	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			pkghttp.WriteBadRequest(w, "limit must be a number")
			return
		}
		query.Limit = n
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		n, err := strconv.Atoi(o)
		if err != nil {
			pkghttp.WriteBadRequest(w, "offset must be a number")
			return
		}
		query.Offset = n
	}

	if err := ValidateRequest(query); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	logs, err := h.audit.ListRecent(r.Context(), query.EventType, query.Limit, query.Offset)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Audit trail is not enabled")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to retrieve audit logs")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"logs":   logs,
		"limit":  query.Limit,
		"offset": query.Offset,
	})
}
