package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/repositories"
)

// notifyTimeout bounds a single lockout alert delivery
const notifyTimeout = 10 * time.Second

// AttemptRepository is the failed-login table used by RateLimitService
type AttemptRepository interface {
	IsAllowed(username, clientIP string, now time.Time, policy repositories.AttemptPolicy) bool
	Reserve(ctx context.Context, username, clientIP string, now time.Time, policy repositories.AttemptPolicy) error
	Release(username, clientIP string)
	Record(username, clientIP string, success bool, now time.Time) *models.LoginAttemptRecord
	PruneStale(now time.Time, policy repositories.AttemptPolicy) int
	Totals(maxAttempts uint) (uint, int)
}

// RateLimitConfig holds the lockout threshold
type RateLimitConfig struct {
	MaxLoginAttempts uint
	LockoutDuration  time.Duration
}

// RateLimitService locks a (username, client IP) key after too many
// consecutive failed logins.
//
// Acquire takes the key before the password is verified and RecordSuccess,
// RecordFailure or Release settle it afterwards. Logins for one key are
// serialized between the two; logins for different keys are not.
type RateLimitService struct {
	repo     AttemptRepository
	policy   repositories.AttemptPolicy
	notifier LockoutNotifier
	logger   *slog.Logger
}

// NewRateLimitService creates a new RateLimitService. notifier may be nil.
func NewRateLimitService(repo AttemptRepository, config RateLimitConfig, notifier LockoutNotifier, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		repo: repo,
		policy: repositories.AttemptPolicy{
			MaxAttempts:     config.MaxLoginAttempts,
			LockoutDuration: config.LockoutDuration,
		},
		notifier: notifier,
		logger:   logger,
	}
}

// IsAllowed reports whether the key is outside an active lockout
func (s *RateLimitService) IsAllowed(username, clientIP string, now time.Time) bool {
	return s.repo.IsAllowed(username, clientIP, now, s.policy)
}

// Acquire waits for the key and reserves an attempt. It returns
// models.ErrLockedOut if the key is locked, or ctx's error if ctx ends first.
func (s *RateLimitService) Acquire(ctx context.Context, username, clientIP string, now time.Time) error {
	return s.repo.Reserve(ctx, username, clientIP, now, s.policy)
}

// Release gives back a reservation that ended without a verdict
func (s *RateLimitService) Release(username, clientIP string) {
	s.repo.Release(username, clientIP)
}

// RecordSuccess settles a reservation and clears the key's failures
func (s *RateLimitService) RecordSuccess(username, clientIP string, now time.Time) {
	s.repo.Record(username, clientIP, true, now)
}

// RecordFailure settles a reservation as a failure. It returns the updated
// record and whether this failure locked the key.
func (s *RateLimitService) RecordFailure(ctx context.Context, username, clientIP string, now time.Time) (*models.LoginAttemptRecord, bool) {
	record := s.repo.Record(username, clientIP, false, now)

	// Attempts against a locked key never reach here, so any failure that
	// leaves the key locked is the one that locked it
	locked := record.IsLocked(now, s.policy.MaxAttempts, s.policy.LockoutDuration)
	if !locked {
		return record, false
	}

	lockedUntil := record.LockedUntil(s.policy.LockoutDuration)
	s.logger.WarnContext(ctx, "login locked out",
		slog.String("username", username),
		slog.String("ip_address", clientIP),
		slog.Uint64("failure_count", uint64(record.FailureCount)),
		slog.Time("locked_until", lockedUntil),
	)

	if s.notifier != nil {
		go s.notify(context.WithoutCancel(ctx), record, lockedUntil)
	}

	return record, true
}

func (s *RateLimitService) notify(ctx context.Context, record *models.LoginAttemptRecord, lockedUntil time.Time) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	if err := s.notifier.NotifyLockout(ctx, record, lockedUntil); err != nil {
		s.logger.Error("lockout notification failed", slog.Any("error", err))
	}
}

// Prune drops locked records whose lockout window has passed
func (s *RateLimitService) Prune(now time.Time) int {
	return s.repo.PruneStale(now, s.policy)
}

// Totals returns the summed failure count and the number of keys at or past the threshold
func (s *RateLimitService) Totals() (uint, int) {
	return s.repo.Totals(s.policy.MaxAttempts)
}
