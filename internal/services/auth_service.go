package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/models"
	pkgauth "github.com/BradenHooton/gatehouse/pkg/auth"
	"github.com/BradenHooton/gatehouse/pkg/logger"
)

// CredentialStore resolves provisioned credentials
type CredentialStore interface {
	GetByUsername(username string) (*models.Credential, error)
}

// SessionStore is the authoritative table of live sessions
type SessionStore interface {
	Create(username, clientIP string, now time.Time, ttl time.Duration) (*models.Session, error)
	Get(id string) (*models.Session, error)
	Touch(id string, now time.Time)
	Delete(id string)
	DeleteIfExpired(id string, now time.Time) bool
}

// TokenCodec signs and verifies session tokens
type TokenCodec interface {
	Encode(session *models.Session) (string, error)
	Decode(token string) (*models.TokenClaims, error)
}

// AttemptThrottle gates logins per (username, client IP)
type AttemptThrottle interface {
	Acquire(ctx context.Context, username, clientIP string, now time.Time) error
	Release(username, clientIP string)
	RecordSuccess(username, clientIP string, now time.Time)
	RecordFailure(ctx context.Context, username, clientIP string, now time.Time) (*models.LoginAttemptRecord, bool)
}

// AuditRecorder receives authentication events
type AuditRecorder interface {
	Record(ctx context.Context, event logger.AuditEvent)
}

// AuthConfig holds session settings for AuthService
type AuthConfig struct {
	SessionTimeout         time.Duration
	PasswordHashIterations int
	// ReferenceHash is a provisioned hash record. Unknown usernames are
	// verified against a dummy record of the same scheme and cost.
	ReferenceHash string
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	Token     string    `json:"-"`
	SessionID string    `json:"-"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthService runs the login, validate and logout flows
type AuthService struct {
	credentials CredentialStore
	sessions    SessionStore
	tokens      TokenCodec
	throttle    AttemptThrottle
	audit       AuditRecorder
	timing      *auth.TimingDelay
	config      AuthConfig
	dummyHash   string
	logger      *slog.Logger
	now         func() time.Time
}

// NewAuthService creates a new AuthService. timing may be nil.
func NewAuthService(
	credentials CredentialStore,
	sessions SessionStore,
	tokens TokenCodec,
	throttle AttemptThrottle,
	audit AuditRecorder,
	timing *auth.TimingDelay,
	config AuthConfig,
	logger *slog.Logger,
) (*AuthService, error) {
	dummyHash, err := newDummyHash(config.ReferenceHash, config.PasswordHashIterations)
	if err != nil {
		return nil, err
	}

	return &AuthService{
		credentials: credentials,
		sessions:    sessions,
		tokens:      tokens,
		throttle:    throttle,
		audit:       audit,
		timing:      timing,
		config:      config,
		dummyHash:   dummyHash,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// newDummyHash hashes a random throwaway password so unknown usernames cost
// the same KDF work as known ones
func newDummyHash(reference string, iterations int) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate dummy password: %w", err)
	}
	record, err := pkgauth.HashLike(hex.EncodeToString(b), reference, iterations)
	if err != nil {
		return "", fmt.Errorf("failed to hash dummy password: %w", err)
	}
	return record, nil
}

// SetClock overrides the time source
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// Login checks the throttle, verifies the password and issues a session token.
//
// Every failure is a *models.AuthError wrapping models.ErrAuthenticationFailed;
// the reason (locked out or bad credentials) is only visible to errors.Is and logs.
func (s *AuthService) Login(ctx context.Context, username, password, clientIP string) (*LoginResponse, error) {
	start := time.Now()
	now := s.now()

	if err := s.throttle.Acquire(ctx, username, clientIP, now); err != nil {
		if !errors.Is(err, models.ErrLockedOut) {
			return nil, err
		}
		s.audit.Record(ctx, logger.AuditEvent{
			EventType:     models.AuditEventLoginFailed,
			Username:      username,
			IPAddress:     clientIP,
			FailureReason: models.FailureReason(models.ErrLockedOut),
		})
		s.timing.WaitFrom(start, false)
		return nil, models.NewLoginFailure(models.ErrLockedOut)
	}

	if err := ctx.Err(); err != nil {
		s.throttle.Release(username, clientIP)
		return nil, err
	}

	// Acquire may have waited behind another login for this key
	now = s.now()

	known := true
	record := s.dummyHash
	credential, err := s.credentials.GetByUsername(username)
	if err != nil {
		known = false
	} else {
		record = credential.PasswordHash
	}

	// Verify even for unknown usernames so both paths cost the same
	verified := pkgauth.VerifyPassword(password, record) && known

	if !verified {
		attempt, locked := s.throttle.RecordFailure(ctx, username, clientIP, now)
		s.audit.Record(ctx, logger.AuditEvent{
			EventType:     models.AuditEventLoginFailed,
			Username:      username,
			IPAddress:     clientIP,
			FailureReason: models.FailureReason(models.ErrInvalidCredentials),
			Metadata:      map[string]interface{}{"failure_count": attempt.FailureCount},
		})
		if locked {
			s.audit.Record(ctx, logger.AuditEvent{
				EventType: models.AuditEventAccountLocked,
				Username:  username,
				IPAddress: clientIP,
				Metadata:  map[string]interface{}{"failure_count": attempt.FailureCount},
			})
		}
		s.timing.WaitFrom(start, false)
		return nil, models.NewLoginFailure(models.ErrInvalidCredentials)
	}

	s.throttle.RecordSuccess(username, clientIP, now)

	session, err := s.sessions.Create(username, clientIP, now, s.config.SessionTimeout)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create session", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, err := s.tokens.Encode(session)
	if err != nil {
		s.sessions.Delete(session.ID)
		s.logger.ErrorContext(ctx, "failed to encode session token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.Record(ctx, logger.AuditEvent{
		EventType: models.AuditEventLoginSuccess,
		Username:  username,
		SessionID: session.ID,
		IPAddress: clientIP,
		Success:   true,
	})
	s.timing.WaitFrom(start, true)

	return &LoginResponse{
		Token:     token,
		SessionID: session.ID,
		Username:  session.Username,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Validate accepts a token only if its session is live, bound to clientIP and
// unexpired. An expired session is deleted as part of the check.
//
// Every failure is a *models.AuthError wrapping models.ErrSessionRejected.
func (s *AuthService) Validate(ctx context.Context, token, clientIP string) (*models.SessionIdentity, error) {
	now := s.now()

	claims, err := s.tokens.Decode(token)
	if err != nil {
		if errors.Is(err, models.ErrTokenExpired) && claims != nil {
			s.sessions.DeleteIfExpired(claims.SessionID, now)
		}
		return nil, s.reject(ctx, err, claims, clientIP)
	}

	session, err := s.sessions.Get(claims.SessionID)
	if err != nil || session.Username != claims.Username {
		return nil, s.reject(ctx, models.ErrSessionNotFound, claims, clientIP)
	}

	if session.ClientIP != clientIP {
		return nil, s.reject(ctx, models.ErrIPMismatch, claims, clientIP)
	}

	if session.IsExpired(now) {
		s.sessions.Delete(session.ID)
		return nil, s.reject(ctx, models.ErrTokenExpired, claims, clientIP)
	}

	s.sessions.Touch(session.ID, now)

	return &models.SessionIdentity{
		Username:  session.Username,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *AuthService) reject(ctx context.Context, reason error, claims *models.TokenClaims, clientIP string) error {
	event := logger.AuditEvent{
		EventType:     models.AuditEventSessionRejected,
		IPAddress:     clientIP,
		FailureReason: models.FailureReason(reason),
	}
	if claims != nil {
		event.Username = claims.Username
		event.SessionID = claims.SessionID
	}
	s.audit.Record(ctx, event)

	return models.NewRejection(reason)
}

// Logout deletes the session. Logging out an absent session is not an error.
func (s *AuthService) Logout(ctx context.Context, identity *models.SessionIdentity, clientIP string) {
	s.sessions.Delete(identity.SessionID)

	s.audit.Record(ctx, logger.AuditEvent{
		EventType: models.AuditEventLogout,
		Username:  identity.Username,
		SessionID: identity.SessionID,
		IPAddress: clientIP,
		Success:   true,
	})
}
