package http_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/apicore"
	apihttp "github.com/sagarc03/apicore/http"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "unauthorized", err: apicore.ErrUnauthorized, wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "invalid input", err: apicore.ErrInvalidInput, wantStatus: http.StatusBadRequest, wantCode: "invalid_input"},
		{name: "not found", err: apicore.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "rate limited", err: apihttp.ErrRateLimited, wantStatus: http.StatusTooManyRequests, wantCode: "rate_limited"},
		{name: "wrapped not found", err: fmt.Errorf("lookup: %w", apicore.ErrNotFound), wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
		{name: "internal", err: apicore.ErrInternal, wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			apihttp.HandleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body apihttp.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestHandleError_DoesNotLeakDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	apihttp.HandleError(rec, errors.New("password=hunter2"))

	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, apihttp.WriteJSON(rec, http.StatusAccepted, map[string]int{"n": 1}))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}

func TestHealthAction(t *testing.T) {
	resp, err := apihttp.HealthAction(apicore.Exchange{
		Request:  httptest.NewRequest(http.MethodGet, "/health", nil),
		Response: apicore.NewResponse(),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"status":"ok"}`, string(resp.Body))
}
