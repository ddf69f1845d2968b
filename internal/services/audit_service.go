package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/pkg/logger"
)

// AuditRepository persists audit events
type AuditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	ListRecent(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error)
	Cleanup(ctx context.Context, olderThanDays int) (int64, error)
}

// AuditService writes every authentication event to slog and, when a
// repository is configured, to the database
type AuditService struct {
	repo          AuditRepository
	audit         *logger.AuditLogger
	logger        *slog.Logger
	retentionDays int
}

// NewAuditService creates a new AuditService. repo may be nil, in which case
// events are only logged.
func NewAuditService(repo AuditRepository, retentionDays int, log *slog.Logger) *AuditService {
	return &AuditService{
		repo:          repo,
		audit:         logger.NewAuditLogger(log),
		logger:        log,
		retentionDays: retentionDays,
	}
}

// Persistent reports whether events are stored in the database
func (s *AuditService) Persistent() bool {
	return s.repo != nil
}

// Record logs event and persists it. Persistence failures are logged and
// never fail the operation being audited.
func (s *AuditService) Record(ctx context.Context, event logger.AuditEvent) {
	s.audit.Log(ctx, event)

	if s.repo == nil {
		return
	}

	_, err := s.repo.Create(ctx, toAuditLog(event))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("event_type", event.EventType),
			slog.Any("error", err),
		)
	}
}

// ListRecent returns stored events, newest first
func (s *AuditService) ListRecent(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error) {
	if s.repo == nil {
		return nil, models.ErrNotFound
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	logs, err := s.repo.ListRecent(ctx, eventType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

// Cleanup deletes events past the retention window
func (s *AuditService) Cleanup(ctx context.Context) (int64, error) {
	if s.repo == nil || s.retentionDays <= 0 {
		return 0, nil
	}
	return s.repo.Cleanup(ctx, s.retentionDays)
}

func toAuditLog(event logger.AuditEvent) *models.AuditLog {
	log := &models.AuditLog{
		EventType: event.EventType,
		Success:   event.Success,
		Metadata:  models.AuditMetadata(event.Metadata),
	}
	if event.Username != "" {
		log.Username = &event.Username
	}
	if event.SessionID != "" {
		log.SessionID = &event.SessionID
	}
	if event.IPAddress != "" {
		log.IPAddress = &event.IPAddress
	}
	if event.FailureReason != "" {
		log.FailureReason = &event.FailureReason
	}
	return log
}
