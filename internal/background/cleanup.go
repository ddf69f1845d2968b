package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper removes entries that expired before now and returns how many it dropped
type Sweeper interface {
	Sweep(now time.Time) int
}

// AttemptPruner drops throttle records whose lockout window has passed
type AttemptPruner interface {
	Prune(now time.Time) int
}

// AuditCleaner deletes audit rows past retention
type AuditCleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

// CleanupManager periodically reaps expired sessions, stale throttle records,
// expired CSRF tokens and old audit rows.
//
// Skipping a run never affects correctness: validation re-checks expiry on
// every call. The reaper only bounds memory growth.
type CleanupManager struct {
	sessions Sweeper
	attempts AttemptPruner
	csrf     Sweeper
	audit    AuditCleaner
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager. csrf and audit may be nil.
func NewCleanupManager(
	sessions Sweeper,
	attempts AttemptPruner,
	csrf Sweeper,
	audit AuditCleaner,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		sessions: sessions,
		attempts: attempts,
		csrf:     csrf,
		audit:    audit,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the cleanup loop until Stop is called or ctx is done
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce performs a single cleanup pass
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	now := cm.now()

	sessions := cm.sessions.Sweep(now)
	attempts := cm.attempts.Prune(now)

	csrf := 0
	if cm.csrf != nil {
		csrf = cm.csrf.Sweep(now)
	}

	if sessions > 0 || attempts > 0 || csrf > 0 {
		cm.logger.Info("expired state cleanup completed",
			slog.Int("sessions_removed", sessions),
			slog.Int("attempt_records_removed", attempts),
			slog.Int("csrf_tokens_removed", csrf),
		)
	}

	if cm.audit == nil {
		return
	}

	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := cm.audit.Cleanup(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to cleanup audit logs", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("audit log cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the cleanup manager to stop. It is safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() {
		close(cm.stopCh)
	})
}
