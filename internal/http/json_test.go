package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		UserID string `json:"user_id"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_id":"u-1"}`))
	rec := httptest.NewRecorder()

	require.True(t, DecodeJSON(rec, req, &dst))
	assert.Equal(t, "u-1", dst.UserID)
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		UserID string `json:"user_id"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_id":"u-1","extra":1}`))
	rec := httptest.NewRecorder()

	assert.False(t, DecodeJSON(rec, req, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_json")
}

func TestDecodeJSONMalformedBody(t *testing.T) {
	var dst map[string]any
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	rec := httptest.NewRecorder()

	assert.False(t, DecodeJSON(rec, req, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"id": "s-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"s-1"}`, rec.Body.String())
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, func() {})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
