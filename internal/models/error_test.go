package models

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAuthError_MessageHidesReason(t *testing.T) {
	tests := []struct {
		name    string
		err     *AuthError
		message string
	}{
		{"locked out", NewLoginFailure(ErrLockedOut), "authentication failed"},
		{"invalid credentials", NewLoginFailure(ErrInvalidCredentials), "authentication failed"},
		{"bad signature", NewRejection(ErrTokenBadSignature), "session rejected"},
		{"ip mismatch", NewRejection(ErrIPMismatch), "session rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.message {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.message)
			}
		})
	}
}

func TestAuthError_IsMatchesOutcomeAndReason(t *testing.T) {
	err := fmt.Errorf("login: %w", NewLoginFailure(ErrLockedOut))

	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Error("expected errors.Is to match the outcome")
	}
	if !errors.Is(err, ErrLockedOut) {
		t.Error("expected errors.Is to match the reason")
	}
	if errors.Is(err, ErrSessionRejected) {
		t.Error("login failure must not match the rejection outcome")
	}
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"locked out", NewLoginFailure(ErrLockedOut), "locked_out"},
		{"invalid credentials", NewLoginFailure(ErrInvalidCredentials), "invalid_credentials"},
		{"malformed", NewRejection(ErrTokenMalformed), "token_malformed"},
		{"expired", NewRejection(fmt.Errorf("decode: %w", ErrTokenExpired)), "token_expired"},
		{"bad signature", NewRejection(ErrTokenBadSignature), "token_bad_signature"},
		{"not found", NewRejection(ErrSessionNotFound), "session_not_found"},
		{"ip mismatch", NewRejection(ErrIPMismatch), "ip_mismatch"},
		{"bare reason", ErrTokenExpired, "token_expired"},
		{"other", errors.New("boom"), "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FailureReason(tt.err); got != tt.want {
				t.Errorf("FailureReason() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoginAttemptRecord_IsLocked(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	lockout := 30 * time.Minute

	tests := []struct {
		name   string
		record LoginAttemptRecord
		want   bool
	}{
		{"below threshold", LoginAttemptRecord{FailureCount: 4, LastAttemptAt: now}, false},
		{"at threshold inside window", LoginAttemptRecord{FailureCount: 5, LastAttemptAt: now.Add(-time.Minute)}, true},
		{"at threshold window elapsed", LoginAttemptRecord{FailureCount: 5, LastAttemptAt: now.Add(-lockout)}, false},
		{"above threshold inside window", LoginAttemptRecord{FailureCount: 9, LastAttemptAt: now}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.IsLocked(now, 5, lockout); got != tt.want {
				t.Errorf("IsLocked() = %v, want %v", got, tt.want)
			}
		})
	}
}
