package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  NewValidationError("missing tracking file"),
			want: "[VALIDATION] missing tracking file",
		},
		{
			name: "with cause",
			err:  NewTransportError("sink delivery failed", fmt.Errorf("connection refused")),
			want: "[TRANSPORT] sink delivery failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsType(t *testing.T) {
	base := NewConfigError("column letter out of range: Z", nil)
	wrapped := fmt.Errorf("aggregate tracking: %w", base)

	assert.True(t, IsType(wrapped, ErrTypeConfig))
	assert.False(t, IsType(wrapped, ErrTypeTransport))
	assert.False(t, IsType(nil, ErrTypeConfig))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrTypeConfig))
	assert.Equal(t, ErrTypeConfig, TypeOf(wrapped))
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("zip: not a valid zip file")
	err := NewParsingError("cannot read workbook", cause)
	assert.ErrorIs(t, err, cause)
}

func TestWithContext(t *testing.T) {
	err := NewConfigError("column letter out of range", nil).
		WithContext("letter", "AB").
		WithContext("headers", 4)
	assert.Equal(t, "AB", err.Context["letter"])
	assert.Equal(t, 4, err.Context["headers"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(ErrTypeConfig))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(ErrTypeEmptyResult))
	assert.Equal(t, http.StatusBadGateway, StatusFor(ErrTypeTransport))
	assert.Equal(t, http.StatusConflict, StatusFor(ErrTypeConflict))
	assert.Equal(t, http.StatusInternalServerError, StatusFor("unknown"))
}

func TestHandleErrorWritesProblemDetails(t *testing.T) {
	h := NewErrorHandler(nil, false)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"empty result", NewEmptyResultError("no day columns"), http.StatusUnprocessableEntity, TypeEmptyResult},
		{"conflict", NewConflictError("a run is already in progress"), http.StatusConflict, TypeConflict},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil)
			rec := httptest.NewRecorder()

			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/v1/runs", body["instance"])
			assert.Contains(t, body, "trace_id")
		})
	}
}

func TestProblemDetailsMarshalFlattensExtensions(t *testing.T) {
	p := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Bad Request", "bad column", "/x").
		WithExtension("error_code", "VALIDATION")

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "VALIDATION", body["error_code"])
	assert.Equal(t, float64(http.StatusBadRequest), body["status"])
	assert.Equal(t, "bad column", body["detail"])
}
