package repositories

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
)

// sessionIDBytes is the number of random bytes behind every session id (256 bits)
const sessionIDBytes = 32

// NewSessionID returns a URL-safe session identifier drawn from crypto/rand
func NewSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SessionRepository is the authoritative in-memory table of live sessions.
// Sessions are volatile and do not survive a restart.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	newID    func() (string, error)
}

// NewSessionRepository creates an empty SessionRepository
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*models.Session),
		newID:    NewSessionID,
	}
}

// Create inserts a new session expiring ttl after now. An id collision overwrites
// the existing entry.
func (r *SessionRepository) Create(username, clientIP string, now time.Time, ttl time.Duration) (*models.Session, error) {
	id, err := r.newID()
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:             id,
		Username:       username,
		ClientIP:       clientIP,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		LastActivityAt: now,
	}

	r.mu.Lock()
	r.sessions[id] = session
	r.mu.Unlock()

	copied := *session
	return &copied, nil
}

// Get returns a copy of the session, or models.ErrSessionNotFound
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}

	copied := *session
	return &copied, nil
}

// Touch refreshes last activity. Absent ids are ignored so a concurrent
// delete is never undone.
func (r *SessionRepository) Touch(id string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.sessions[id]; ok {
		session.LastActivityAt = now
	}
}

// Delete removes the session. Deleting an absent id is not an error.
func (r *SessionRepository) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// DeleteIfExpired removes the session only if it has expired at now
func (r *SessionRepository) DeleteIfExpired(id string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok || !session.IsExpired(now) {
		return false
	}

	delete(r.sessions, id)
	return true
}

// Sweep removes every session whose expiry is before now and returns how many were removed
func (r *SessionRepository) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, session := range r.sessions {
		if session.IsExpired(now) {
			delete(r.sessions, id)
			removed++
		}
	}

	return removed
}

// Counts returns the number of sessions still live at now and the total stored
func (r *SessionRepository) Counts(now time.Time) (active, total int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, session := range r.sessions {
		if session.ExpiresAt.After(now) {
			active++
		}
	}

	return active, len(r.sessions)
}
