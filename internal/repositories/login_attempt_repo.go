package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
)

// AttemptPolicy is the lockout threshold applied to each (username, client IP) key
type AttemptPolicy struct {
	MaxAttempts     uint
	LockoutDuration time.Duration
}

type attemptKey struct {
	username string
	clientIP string
}

// keyGate admits one login at a time for a key. refs counts the holder and
// every waiter so the gate can be dropped once nobody uses it.
type keyGate struct {
	sem  chan struct{}
	refs int
}

// LoginAttemptRepository holds failed-login counters in memory.
//
// A login takes the key's gate with Reserve before the password is checked and
// gives it back with Record or Release. Logins for one key run one at a time,
// so concurrent failures can never overshoot the threshold; other keys are not
// affected and r.mu is never held while a password is hashed.
type LoginAttemptRepository struct {
	mu      sync.Mutex
	records map[attemptKey]*models.LoginAttemptRecord
	gates   map[attemptKey]*keyGate
}

// NewLoginAttemptRepository creates an empty LoginAttemptRepository
func NewLoginAttemptRepository() *LoginAttemptRepository {
	return &LoginAttemptRepository{
		records: make(map[attemptKey]*models.LoginAttemptRecord),
		gates:   make(map[attemptKey]*keyGate),
	}
}

// isLockedLocked reports whether the key's record blocks attempts at now.
// r.mu must be held.
func (r *LoginAttemptRepository) isLockedLocked(k attemptKey, now time.Time, policy AttemptPolicy) bool {
	record, ok := r.records[k]
	return ok && record.IsLocked(now, policy.MaxAttempts, policy.LockoutDuration)
}

// IsAllowed reports whether the key is outside an active lockout at now. It
// ignores gates and never mutates state.
func (r *LoginAttemptRepository) IsAllowed(username, clientIP string, now time.Time, policy AttemptPolicy) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return !r.isLockedLocked(attemptKey{username, clientIP}, now, policy)
}

// Reserve waits for the key's gate and then checks the lockout. It returns
// models.ErrLockedOut if the key's record is locked at now, or the context's
// error if ctx ends first. On nil the caller must settle with Record or Release.
func (r *LoginAttemptRepository) Reserve(ctx context.Context, username, clientIP string, now time.Time, policy AttemptPolicy) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	k := attemptKey{username, clientIP}

	r.mu.Lock()
	if r.isLockedLocked(k, now, policy) {
		r.mu.Unlock()
		return models.ErrLockedOut
	}
	g, ok := r.gates[k]
	if !ok {
		g = &keyGate{sem: make(chan struct{}, 1)}
		r.gates[k] = g
	}
	g.refs++
	r.mu.Unlock()

	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		r.mu.Lock()
		r.dropGateLocked(k, g)
		r.mu.Unlock()
		return ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// The previous holder may have locked the key while we waited
	if r.isLockedLocked(k, now, policy) {
		<-g.sem
		r.dropGateLocked(k, g)
		return models.ErrLockedOut
	}

	return nil
}

// dropGateLocked forgets one user of g. r.mu must be held.
func (r *LoginAttemptRepository) dropGateLocked(k attemptKey, g *keyGate) {
	g.refs--
	if g.refs <= 0 && r.gates[k] == g {
		delete(r.gates, k)
	}
}

// releaseLocked gives back the key's gate if it is held. r.mu must be held.
func (r *LoginAttemptRepository) releaseLocked(k attemptKey) {
	g, ok := r.gates[k]
	if !ok {
		return
	}

	select {
	case <-g.sem:
		r.dropGateLocked(k, g)
	default:
	}
}

// Release gives back a reservation without recording an outcome
func (r *LoginAttemptRepository) Release(username, clientIP string) {
	r.mu.Lock()
	r.releaseLocked(attemptKey{username, clientIP})
	r.mu.Unlock()
}

// Record settles a reservation. Success deletes the key's record and returns nil.
// Failure creates the record if absent, increments it and returns a copy.
func (r *LoginAttemptRepository) Record(username, clientIP string, success bool, now time.Time) *models.LoginAttemptRecord {
	k := attemptKey{username, clientIP}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.releaseLocked(k)

	if success {
		delete(r.records, k)
		return nil
	}

	record, ok := r.records[k]
	if !ok {
		record = &models.LoginAttemptRecord{Username: username, ClientIP: clientIP}
		r.records[k] = record
	}
	record.FailureCount++
	record.LastAttemptAt = now

	copied := *record
	return &copied
}

// Get returns a copy of the key's record
func (r *LoginAttemptRepository) Get(username, clientIP string) (*models.LoginAttemptRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[attemptKey{username, clientIP}]
	if !ok {
		return nil, false
	}

	copied := *record
	return &copied, true
}

// PruneStale deletes records that reached the threshold and whose lockout
// window has elapsed at now. Records below the threshold keep counting until a
// successful login clears them.
func (r *LoginAttemptRepository) PruneStale(now time.Time, policy AttemptPolicy) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for k, record := range r.records {
		if record.FailureCount >= policy.MaxAttempts && now.Sub(record.LastAttemptAt) >= policy.LockoutDuration {
			delete(r.records, k)
			removed++
		}
	}

	return removed
}

// Totals returns the sum of failure counts across all records and the number
// of records at or past the threshold, whether or not their window has elapsed
func (r *LoginAttemptRepository) Totals(maxAttempts uint) (failures uint, locked int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, record := range r.records {
		failures += record.FailureCount
		if record.FailureCount >= maxAttempts {
			locked++
		}
	}

	return failures, locked
}
