package background

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BradenHooton/gatehouse/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	n     int
}

func (s *countingSweeper) Sweep(now time.Time) int {
	s.calls.Add(1)
	return s.n
}

type pruneFunc func(now time.Time) int

func (f pruneFunc) Prune(now time.Time) int { return f(now) }

type cleanupFunc func(ctx context.Context) (int64, error)

func (f cleanupFunc) Cleanup(ctx context.Context) (int64, error) { return f(ctx) }

func TestCleanupManager_RunOnceSweepsSessions(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sessions := repositories.NewSessionRepository()

	live, err := sessions.Create("alice", "1.2.3.4", now, time.Hour)
	require.NoError(t, err)
	expired, err := sessions.Create("alice", "1.2.3.4", now.Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)

	var pruned time.Time
	cm := NewCleanupManager(sessions, pruneFunc(func(at time.Time) int {
		pruned = at
		return 0
	}), nil, nil, slog.Default(), time.Hour)
	cm.now = func() time.Time { return now }

	cm.RunOnce(context.Background())

	_, err = sessions.Get(live.ID)
	assert.NoError(t, err)
	_, err = sessions.Get(expired.ID)
	assert.Error(t, err)
	assert.Equal(t, now, pruned)
}

func TestCleanupManager_AuditErrorDoesNotStopPass(t *testing.T) {
	csrf := &countingSweeper{n: 2}
	audit := cleanupFunc(func(ctx context.Context) (int64, error) {
		return 0, errors.New("database unavailable")
	})

	cm := NewCleanupManager(&countingSweeper{}, pruneFunc(func(time.Time) int { return 0 }), csrf, audit, slog.Default(), time.Hour)

	assert.NotPanics(t, func() { cm.RunOnce(context.Background()) })
	assert.Equal(t, int32(1), csrf.calls.Load())
}

func TestCleanupManager_StartAndStop(t *testing.T) {
	sessions := &countingSweeper{}
	cm := NewCleanupManager(sessions, pruneFunc(func(time.Time) int { return 0 }), nil, nil, slog.Default(), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return sessions.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cm.Stop()
	cm.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop")
	}
}

func TestCleanupManager_StopsOnContextCancel(t *testing.T) {
	cm := NewCleanupManager(&countingSweeper{}, pruneFunc(func(time.Time) int { return 0 }), nil, nil, slog.Default(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cm.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop")
	}
}
