package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	err := New(http.StatusBadRequest, "INVALID_REQUEST", "bad input")
	assert.Equal(t, "bad input", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", err.ErrorCode)

	t.Run("details are optional", func(t *testing.T) {
		data, jsonErr := json.Marshal(err)
		require.NoError(t, jsonErr)
		assert.NotContains(t, string(data), "details")
	})

	t.Run("with details", func(t *testing.T) {
		withDetails := QueryExecutionError(errors.New("load failed"))
		assert.Equal(t, http.StatusInternalServerError, withDetails.StatusCode)
		assert.Equal(t, "load failed", withDetails.Details)
	})
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrValidation("symbol", "symbol is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			ErrorCode string `json:"error_code"`
			Details   struct {
				Field   string `json:"field"`
				Message string `json:"message"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.ErrorCode)
	assert.Equal(t, "symbol", resp.Error.Details.Field)
}

func TestErrPanic(t *testing.T) {
	err := ErrPanic("boom")
	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	assert.Equal(t, "boom", err.Details)
}
