package services

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

// MockCredentialStore implements CredentialStore for testing
type MockCredentialStore struct {
	GetByUsernameFunc func(username string) (*models.Credential, error)
}

func (m *MockCredentialStore) GetByUsername(username string) (*models.Credential, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(username)
	}
	return nil, models.ErrNotFound
}

// MockSessionStore implements SessionStore for testing
type MockSessionStore struct {
	CreateFunc          func(username, clientIP string, now time.Time, ttl time.Duration) (*models.Session, error)
	GetFunc             func(id string) (*models.Session, error)
	TouchFunc           func(id string, now time.Time)
	DeleteFunc          func(id string)
	DeleteIfExpiredFunc func(id string, now time.Time) bool
}

func (m *MockSessionStore) Create(username, clientIP string, now time.Time, ttl time.Duration) (*models.Session, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(username, clientIP, now, ttl)
	}
	return nil, models.ErrInternalServer
}

func (m *MockSessionStore) Get(id string) (*models.Session, error) {
	if m.GetFunc != nil {
		return m.GetFunc(id)
	}
	return nil, models.ErrSessionNotFound
}

func (m *MockSessionStore) Touch(id string, now time.Time) {
	if m.TouchFunc != nil {
		m.TouchFunc(id, now)
	}
}

func (m *MockSessionStore) Delete(id string) {
	if m.DeleteFunc != nil {
		m.DeleteFunc(id)
	}
}

func (m *MockSessionStore) DeleteIfExpired(id string, now time.Time) bool {
	if m.DeleteIfExpiredFunc != nil {
		return m.DeleteIfExpiredFunc(id, now)
	}
	return false
}

// MockTokenCodec implements TokenCodec for testing
type MockTokenCodec struct {
	EncodeFunc func(session *models.Session) (string, error)
	DecodeFunc func(token string) (*models.TokenClaims, error)
}

func (m *MockTokenCodec) Encode(session *models.Session) (string, error) {
	if m.EncodeFunc != nil {
		return m.EncodeFunc(session)
	}
	return "token-" + session.ID, nil
}

func (m *MockTokenCodec) Decode(token string) (*models.TokenClaims, error) {
	if m.DecodeFunc != nil {
		return m.DecodeFunc(token)
	}
	return nil, models.ErrTokenMalformed
}

// MockAuditRecorder collects recorded events
type MockAuditRecorder struct {
	mu     sync.Mutex
	Events []logger.AuditEvent
}

func (m *MockAuditRecorder) Record(ctx context.Context, event logger.AuditEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

// EventTypes returns the recorded event types in order
func (m *MockAuditRecorder) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		types = append(types, e.EventType)
	}
	return types
}

// Last returns the most recent event
func (m *MockAuditRecorder) Last() logger.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Events) == 0 {
		return logger.AuditEvent{}
	}
	return m.Events[len(m.Events)-1]
}

// MockAuditRepository implements AuditRepository for testing
type MockAuditRepository struct {
	CreateFunc     func(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	ListRecentFunc func(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error)
	CleanupFunc    func(ctx context.Context, olderThanDays int) (int64, error)
}

func (m *MockAuditRepository) Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	return log, nil
}

func (m *MockAuditRepository) ListRecent(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, eventType, limit, offset)
	}
	return []*models.AuditLog{}, nil
}

func (m *MockAuditRepository) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	if m.CleanupFunc != nil {
		return m.CleanupFunc(ctx, olderThanDays)
	}
	return 0, nil
}

// MockLockoutNotifier sends every notification to Calls
type MockLockoutNotifier struct {
	Calls chan *models.LoginAttemptRecord
	Err   error
}

func NewMockLockoutNotifier() *MockLockoutNotifier {
	return &MockLockoutNotifier{Calls: make(chan *models.LoginAttemptRecord, 16)}
}

func (m *MockLockoutNotifier) NotifyLockout(ctx context.Context, record *models.LoginAttemptRecord, lockedUntil time.Time) error {
	m.Calls <- record
	return m.Err
}

// MockSESClient implements SESClient for testing
type MockSESClient struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESClient) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, params, optFns...)
	}
	return &ses.SendEmailOutput{MessageId: aws.String("test-message-id")}, nil
}

// fixedClock returns a settable time source
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFixedClock(t time.Time) *fixedClock {
	return &fixedClock{t: t}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
