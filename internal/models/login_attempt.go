package models

import "time"

// LoginAttemptRecord tracks consecutive failed logins for one (username, client IP) pair.
// It is created on the first failure and deleted on the next success.
type LoginAttemptRecord struct {
	Username      string
	ClientIP      string
	FailureCount  uint
	LastAttemptAt time.Time
}

// IsLocked reports whether the record blocks further attempts at now
func (r *LoginAttemptRecord) IsLocked(now time.Time, maxAttempts uint, lockout time.Duration) bool {
	return now.Sub(r.LastAttemptAt) < lockout && r.FailureCount >= maxAttempts
}

// LockedUntil returns when the lockout window opened by the last failure closes
func (r *LoginAttemptRecord) LockedUntil(lockout time.Duration) time.Time {
	return r.LastAttemptAt.Add(lockout)
}
