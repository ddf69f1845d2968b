package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types for audit logging
const (
	AuditEventLoginSuccess    = "login_success"
	AuditEventLoginFailed     = "login_failed"
	AuditEventAccountLocked   = "account_locked"
	AuditEventLogout          = "logout"
	AuditEventSessionRejected = "session_rejected"
)

// AuditLog is one persisted authentication event
type AuditLog struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	EventType     string        `db:"event_type" json:"event_type"`
	Username      *string       `db:"username" json:"username,omitempty"`
	SessionID     *string       `db:"session_id" json:"session_id,omitempty"`
	IPAddress     *string       `db:"ip_address" json:"ip_address,omitempty"`
	Success       bool          `db:"success" json:"success"`
	FailureReason *string       `db:"failure_reason" json:"failure_reason,omitempty"`
	Metadata      AuditMetadata `db:"metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// AuditMetadata holds additional context for audit events
type AuditMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (am *AuditMetadata) Scan(value interface{}) error {
	if value == nil {
		*am = make(AuditMetadata)
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	*am = AuditMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (am AuditMetadata) Value() (driver.Value, error) {
	if am == nil {
		return nil, nil
	}
	return json.Marshal(map[string]interface{}(am))
}
