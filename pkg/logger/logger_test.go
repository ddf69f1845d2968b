package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeQueryString(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"", false},
		{"limit=10&event_type=logout", false},
		{"password=hunter2", true},
		{"auth_token=abc", true},
		{"Session=abc", true},
		{"%zz", true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeQueryString(tt.query))
		})
	}
}

func TestSanitizedEmail(t *testing.T) {
	assert.Equal(t, "o**@*******.com", SanitizedEmail("ops@example.com"))
	assert.Equal(t, "[invalid-email]", SanitizedEmail("not-an-email"))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abcdefgh", ShortID("abcdefghijklmnop"))
	assert.Equal(t, "abc", ShortID("abc"))
}

func TestAuditLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.Log(context.Background(), AuditEvent{
		EventType:     "login_failed",
		Username:      "admin",
		SessionID:     "",
		IPAddress:     "203.0.113.7",
		FailureReason: "locked_out",
	})

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "audit", record["msg"])
	assert.Equal(t, "login_failed", record["event_type"])
	assert.Equal(t, "locked_out", record["failure_reason"])
	assert.NotContains(t, record, "session_id")
}
