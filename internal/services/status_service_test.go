package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/BradenHooton/gatehouse/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusService_SecurityStatus(t *testing.T) {
	sessions := repositories.NewSessionRepository()
	attempts := repositories.NewLoginAttemptRepository()
	throttle := NewRateLimitService(attempts, RateLimitConfig{MaxLoginAttempts: 2, LockoutDuration: 30 * time.Minute}, nil, slog.Default())

	_, err := sessions.Create("alice", testIP, testNow, time.Hour)
	require.NoError(t, err)
	_, err = sessions.Create("alice", "5.6.7.8", testNow.Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, throttle.Acquire(context.Background(), "alice", testIP, testNow))
		throttle.RecordFailure(context.Background(), "alice", testIP, testNow)
	}
	require.NoError(t, throttle.Acquire(context.Background(), "bob", testIP, testNow))
	throttle.RecordFailure(context.Background(), "bob", testIP, testNow)

	// carol reached the threshold long ago; her window has elapsed but she still counts
	for i := 0; i < 2; i++ {
		carolAt := testNow.Add(-2 * time.Hour)
		require.NoError(t, throttle.Acquire(context.Background(), "carol", testIP, carolAt))
		throttle.RecordFailure(context.Background(), "carol", testIP, carolAt)
	}

	status := NewStatusService(sessions, throttle, StatusConfig{
		SessionTimeout:   8 * time.Hour,
		MaxLoginAttempts: 2,
		LockoutDuration:  30 * time.Minute,
	})
	status.SetClock(func() time.Time { return testNow.Add(time.Minute) })

	got := status.SecurityStatus()

	assert.Equal(t, 1, got.ActiveSessions)
	assert.Equal(t, 2, got.TotalSessions)
	assert.Equal(t, uint(5), got.FailedLoginAttempts)
	assert.Equal(t, 2, got.LockedAccounts)
	assert.Equal(t, 480, got.SessionTimeoutMinutes)
	assert.Equal(t, uint(2), got.MaxLoginAttempts)
	assert.Equal(t, 30, got.LockoutDurationMinutes)
}

func TestStatusService_DoesNotMutate(t *testing.T) {
	sessions := repositories.NewSessionRepository()
	_, err := sessions.Create("alice", testIP, testNow.Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)

	status := NewStatusService(sessions, NewRateLimitService(repositories.NewLoginAttemptRepository(),
		RateLimitConfig{MaxLoginAttempts: 5, LockoutDuration: time.Minute}, nil, slog.Default()),
		StatusConfig{SessionTimeout: time.Hour})
	status.SetClock(func() time.Time { return testNow })

	first := status.SecurityStatus()
	second := status.SecurityStatus()

	assert.Equal(t, 0, first.ActiveSessions)
	assert.Equal(t, 1, first.TotalSessions)
	assert.Equal(t, first, second)
}
