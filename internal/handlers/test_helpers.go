package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/services"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithIdentity adds a validated session identity to the request context
func WithIdentity(req *http.Request, username, sessionID string) *http.Request {
	identity := &models.SessionIdentity{
		Username:  username,
		SessionID: sessionID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	ctx := context.WithValue(req.Context(), auth.IdentityContextKey, identity)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// FindCookie returns the named cookie set on the response, or nil
func FindCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc  func(ctx context.Context, username, password, clientIP string) (*services.LoginResponse, error)
	LogoutFunc func(ctx context.Context, identity *models.SessionIdentity, clientIP string)
}

func (m *MockAuthService) Login(ctx context.Context, username, password, clientIP string) (*services.LoginResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password, clientIP)
	}
	return nil, models.NewLoginFailure(models.ErrInvalidCredentials)
}

func (m *MockAuthService) Logout(ctx context.Context, identity *models.SessionIdentity, clientIP string) {
	if m.LogoutFunc != nil {
		m.LogoutFunc(ctx, identity, clientIP)
	}
}

// MockCSRFIssuer implements CSRFTokenIssuer for testing
type MockCSRFIssuer struct {
	GenerateTokenFunc func(sessionID string, expiresAt time.Time) (string, error)
	RevokeSessionFunc func(sessionID string)
}

func (m *MockCSRFIssuer) GenerateToken(sessionID string, expiresAt time.Time) (string, error) {
	if m.GenerateTokenFunc != nil {
		return m.GenerateTokenFunc(sessionID, expiresAt)
	}
	return "csrf-" + sessionID, nil
}

func (m *MockCSRFIssuer) RevokeSession(sessionID string) {
	if m.RevokeSessionFunc != nil {
		m.RevokeSessionFunc(sessionID)
	}
}

// MockStatusService implements StatusServiceInterface for testing
type MockStatusService struct {
	SecurityStatusFunc func() *models.SecurityStatus
}

func (m *MockStatusService) SecurityStatus() *models.SecurityStatus {
	if m.SecurityStatusFunc != nil {
		return m.SecurityStatusFunc()
	}
	return &models.SecurityStatus{}
}

// MockAuditService implements AuditServiceInterface for testing
type MockAuditService struct {
	ListRecentFunc func(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error)
}

func (m *MockAuditService) ListRecent(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, eventType, limit, offset)
	}
	return []*models.AuditLog{}, nil
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.Err
}
