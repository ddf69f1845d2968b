package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteJSON(w, http.StatusOK, map[string]int{"active_sessions": 2})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"active_sessions":2}`, w.Body.String())
}

func TestWriteErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteErrorWithDetails(w, 400, "test_error", "Test message", "Additional details")

	assert.Equal(t, 400, w.Code)

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "test_error", resp.Error)
	assert.Equal(t, "Test message", resp.Message)
	assert.Equal(t, "Additional details", resp.Details)
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name       string
		write      func(http.ResponseWriter, string)
		wantStatus int
		wantCode   string
	}{
		{"bad request", pkghttp.WriteBadRequest, 400, "bad_request"},
		{"unauthorized", pkghttp.WriteUnauthorized, 401, "unauthorized"},
		{"forbidden", pkghttp.WriteForbidden, 403, "forbidden"},
		{"not found", pkghttp.WriteNotFound, 404, "not_found"},
		{"too many requests", pkghttp.WriteTooManyRequests, 429, "rate_limit_exceeded"},
		{"internal", pkghttp.WriteInternalError, 500, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w, "message text")

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp["error"])
			assert.Equal(t, "message text", resp["message"])
			assert.NotContains(t, resp, "details", "empty details are omitted")
		})
	}
}
