package repositories

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestNewSessionID_UniqueAndURLSafe(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := NewSessionID()
		require.NoError(t, err)
		assert.Len(t, id, 43) // 32 bytes, unpadded base64
		assert.NotContains(t, id, "+")
		assert.NotContains(t, id, "/")
		assert.False(t, seen[id], "duplicate session id")
		seen[id] = true
	}
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	repo := NewSessionRepository()

	session, err := repo.Create("admin", "203.0.113.7", baseTime, 8*time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, baseTime.Add(8*time.Hour), session.ExpiresAt)
	assert.Equal(t, baseTime, session.LastActivityAt)

	got, err := repo.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, session, got)
}

func TestSessionRepository_GetReturnsCopy(t *testing.T) {
	repo := NewSessionRepository()
	session, err := repo.Create("admin", "203.0.113.7", baseTime, time.Hour)
	require.NoError(t, err)

	got, err := repo.Get(session.ID)
	require.NoError(t, err)
	got.Username = "mallory"

	again, err := repo.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", again.Username)
}

func TestSessionRepository_GetMissing(t *testing.T) {
	repo := NewSessionRepository()

	_, err := repo.Get("missing")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestSessionRepository_CreateIDFailure(t *testing.T) {
	repo := NewSessionRepository()
	repo.newID = func() (string, error) { return "", errors.New("entropy exhausted") }

	_, err := repo.Create("admin", "203.0.113.7", baseTime, time.Hour)
	assert.Error(t, err)

	_, total := repo.Counts(baseTime)
	assert.Equal(t, 0, total)
}

func TestSessionRepository_CollisionOverwrites(t *testing.T) {
	repo := NewSessionRepository()
	repo.newID = func() (string, error) { return "fixed", nil }

	_, err := repo.Create("first", "203.0.113.7", baseTime, time.Hour)
	require.NoError(t, err)
	_, err = repo.Create("second", "203.0.113.8", baseTime, time.Hour)
	require.NoError(t, err)

	got, err := repo.Get("fixed")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Username)
}

func TestSessionRepository_Touch(t *testing.T) {
	repo := NewSessionRepository()
	session, err := repo.Create("admin", "203.0.113.7", baseTime, time.Hour)
	require.NoError(t, err)

	later := baseTime.Add(10 * time.Minute)
	repo.Touch(session.ID, later)

	got, err := repo.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, later, got.LastActivityAt)
	assert.Equal(t, session.ExpiresAt, got.ExpiresAt, "touch must not extend expiry")
}

func TestSessionRepository_TouchMissingIsNoop(t *testing.T) {
	repo := NewSessionRepository()

	repo.Touch("missing", baseTime)

	_, err := repo.Get("missing")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestSessionRepository_DeleteIdempotent(t *testing.T) {
	repo := NewSessionRepository()
	session, err := repo.Create("admin", "203.0.113.7", baseTime, time.Hour)
	require.NoError(t, err)

	repo.Delete(session.ID)
	repo.Delete(session.ID)
	repo.Delete("never-existed")

	_, err = repo.Get(session.ID)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestSessionRepository_DeleteIfExpired(t *testing.T) {
	repo := NewSessionRepository()
	session, err := repo.Create("admin", "203.0.113.7", baseTime, time.Hour)
	require.NoError(t, err)

	assert.False(t, repo.DeleteIfExpired(session.ID, baseTime.Add(time.Hour)), "expiry instant is still live")
	assert.True(t, repo.DeleteIfExpired(session.ID, baseTime.Add(time.Hour+time.Nanosecond)))
	assert.False(t, repo.DeleteIfExpired(session.ID, baseTime.Add(2*time.Hour)))
}

func TestSessionRepository_SweepRemovesExactlyExpired(t *testing.T) {
	repo := NewSessionRepository()

	short, err := repo.Create("a", "203.0.113.1", baseTime, time.Minute)
	require.NoError(t, err)
	boundary, err := repo.Create("b", "203.0.113.2", baseTime, 5*time.Minute)
	require.NoError(t, err)
	long, err := repo.Create("c", "203.0.113.3", baseTime, time.Hour)
	require.NoError(t, err)

	now := baseTime.Add(5 * time.Minute)
	removed := repo.Sweep(now)
	assert.Equal(t, 1, removed)

	_, err = repo.Get(short.ID)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	_, err = repo.Get(boundary.ID)
	assert.NoError(t, err, "session expiring exactly at now is kept")
	_, err = repo.Get(long.ID)
	assert.NoError(t, err)

	assert.Equal(t, 0, repo.Sweep(now), "sweep is idempotent")
}

func TestSessionRepository_Counts(t *testing.T) {
	repo := NewSessionRepository()
	_, err := repo.Create("a", "203.0.113.1", baseTime, time.Minute)
	require.NoError(t, err)
	_, err = repo.Create("b", "203.0.113.2", baseTime, time.Hour)
	require.NoError(t, err)

	active, total := repo.Counts(baseTime.Add(30 * time.Minute))
	assert.Equal(t, 1, active)
	assert.Equal(t, 2, total)
}

func TestSessionRepository_ConcurrentSweepKeepsLiveSessions(t *testing.T) {
	repo := NewSessionRepository()

	live := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		s, err := repo.Create(fmt.Sprintf("live-%d", i), "203.0.113.1", baseTime, time.Hour)
		require.NoError(t, err)
		live = append(live, s.ID)

		_, err = repo.Create(fmt.Sprintf("dead-%d", i), "203.0.113.1", baseTime, time.Second)
		require.NoError(t, err)
	}

	now := baseTime.Add(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			repo.Sweep(now)
		}()
		go func() {
			defer wg.Done()
			for _, id := range live {
				if _, err := repo.Get(id); err == nil {
					repo.Touch(id, now)
				}
			}
		}()
	}
	wg.Wait()

	for _, id := range live {
		_, err := repo.Get(id)
		assert.NoError(t, err)
	}

	active, total := repo.Counts(now)
	assert.Equal(t, 50, active)
	assert.Equal(t, 50, total)
}
