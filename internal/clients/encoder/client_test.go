package encoder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajapam/broker/internal/core"
)

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestEncodeKeystrokes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/encode", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req encodeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "log", req.Task)
		assert.Equal(t, "s-1", req.SessionID)
		assert.Equal(t, "http://broker/webhook", req.Webhook)

		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(Config{EncodeURL: srv.URL, WebhookURL: "http://broker/webhook"})
	require.NoError(t, err)

	err = client.Encode(context.Background(), core.EncodeTask{SessionID: "s-1", Kind: core.EncodeKeystrokes})
	assert.NoError(t, err)
}

func TestEncodeOCR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ocr", r.URL.Path)

		var req ocrRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "s-1", req.SessionID)

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(Config{EncodeURL: "http://unused", OCRURL: srv.URL})
	require.NoError(t, err)

	err = client.Encode(context.Background(), core.EncodeTask{SessionID: "s-1", Kind: core.EncodeOCR})
	assert.NoError(t, err)
}

func TestEncodeOCRWithoutServiceURL(t *testing.T) {
	client, err := NewClient(Config{EncodeURL: "http://unused"})
	require.NoError(t, err)

	err = client.Encode(context.Background(), core.EncodeTask{SessionID: "s-1", Kind: core.EncodeOCR})
	assert.Error(t, err)
}

func TestEncodeUnknownKind(t *testing.T) {
	client, err := NewClient(Config{EncodeURL: "http://unused"})
	require.NoError(t, err)

	err = client.Encode(context.Background(), core.EncodeTask{SessionID: "s-1", Kind: "video"})
	assert.Error(t, err)
}

func TestEncodeRequiresSessionID(t *testing.T) {
	client, err := NewClient(Config{EncodeURL: "http://unused"})
	require.NoError(t, err)

	err = client.Encode(context.Background(), core.EncodeTask{Kind: core.EncodeKeystrokes})
	assert.Error(t, err)
}

func TestEncodeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(Config{EncodeURL: srv.URL})
	require.NoError(t, err)

	err = client.Encode(context.Background(), core.EncodeTask{SessionID: "s-1", Kind: core.EncodeKeystrokes})
	assert.Error(t, err)
}
