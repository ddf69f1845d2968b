package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"sync"
	"time"
)

// csrfTokenEntry stores token metadata
type csrfTokenEntry struct {
	sessionID string
	expiry    time.Time
}

// CSRFTokenManager issues CSRF tokens bound to a session id.
// Expired tokens are removed by Sweep, which the cleanup scheduler calls.
type CSRFTokenManager struct {
	validTokens map[string]*csrfTokenEntry // token -> entry
	mu          sync.Mutex
	now         func() time.Time
}

// NewCSRFTokenManager creates a new CSRF token manager
func NewCSRFTokenManager() *CSRFTokenManager {
	return &CSRFTokenManager{
		validTokens: make(map[string]*csrfTokenEntry),
		now:         time.Now,
	}
}

// SetClock overrides the time source
func (m *CSRFTokenManager) SetClock(now func() time.Time) {
	m.now = now
}

// GenerateToken creates a token for sessionID valid until expiresAt
func (m *CSRFTokenManager) GenerateToken(sessionID string, expiresAt time.Time) (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(randomBytes)

	m.mu.Lock()
	m.validTokens[token] = &csrfTokenEntry{sessionID: sessionID, expiry: expiresAt}
	m.mu.Unlock()

	return token, nil
}

// ValidateToken checks that token exists, is unexpired and belongs to sessionID
func (m *CSRFTokenManager) ValidateToken(token, sessionID string) bool {
	if token == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.validTokens[token]
	if !exists {
		return false
	}

	if m.now().After(entry.expiry) {
		delete(m.validTokens, token)
		return false
	}

	return subtle.ConstantTimeCompare([]byte(entry.sessionID), []byte(sessionID)) == 1
}

// RevokeSession drops every token issued for sessionID
func (m *CSRFTokenManager) RevokeSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for token, entry := range m.validTokens {
		if entry.sessionID == sessionID {
			delete(m.validTokens, token)
		}
	}
}

// Sweep removes tokens expired at now and returns how many were removed
func (m *CSRFTokenManager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, entry := range m.validTokens {
		if now.After(entry.expiry) {
			delete(m.validTokens, token)
			removed++
		}
	}
	return removed
}
