package services

import (
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
)

// SessionCounter reports live and total session counts
type SessionCounter interface {
	Counts(now time.Time) (active, total int)
}

// AttemptTotaler reports failed-login totals
type AttemptTotaler interface {
	Totals() (failures uint, locked int)
}

// StatusConfig holds the constants echoed in the security status
type StatusConfig struct {
	SessionTimeout   time.Duration
	MaxLoginAttempts uint
	LockoutDuration  time.Duration
}

// StatusService aggregates read-only security counters
type StatusService struct {
	sessions SessionCounter
	attempts AttemptTotaler
	config   StatusConfig
	now      func() time.Time
}

// NewStatusService creates a new StatusService
func NewStatusService(sessions SessionCounter, attempts AttemptTotaler, config StatusConfig) *StatusService {
	return &StatusService{
		sessions: sessions,
		attempts: attempts,
		config:   config,
		now:      time.Now,
	}
}

// SetClock overrides the time source
func (s *StatusService) SetClock(now func() time.Time) {
	s.now = now
}

// SecurityStatus returns a point-in-time snapshot. It never mutates state.
func (s *StatusService) SecurityStatus() *models.SecurityStatus {
	now := s.now()
	active, total := s.sessions.Counts(now)
	failures, locked := s.attempts.Totals()

	return &models.SecurityStatus{
		ActiveSessions:         active,
		TotalSessions:          total,
		FailedLoginAttempts:    failures,
		LockedAccounts:         locked,
		SessionTimeoutMinutes:  int(s.config.SessionTimeout / time.Minute),
		MaxLoginAttempts:       s.config.MaxLoginAttempts,
		LockoutDurationMinutes: int(s.config.LockoutDuration / time.Minute),
	}
}
