package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCoordinator struct {
	called bool
	event  Event
	result map[string]any
	err    error
}

func (f *fakeCoordinator) ProcessCompletedRecording(_ context.Context, event Event) (map[string]any, error) {
	f.called = true
	f.event = event

	return f.result, f.err
}

func newTestServer(h *Handler) *httptest.Server {
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	return httptest.NewServer(r)
}

func sign(secret, timestamp, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + timestamp + ":" + body))

	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func TestHandleWebhook_URLValidationHandshake(t *testing.T) {
	h := NewHandler("sekret", false, &fakeCoordinator{}, testLogger())
	srv := newTestServer(h)
	defer srv.Close()

	body := `{"event":"endpoint.url_validation","payload":{"plainToken":"abc123"}}`

	resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out urlValidationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "abc123", out.PlainToken)

	mac := hmac.New(sha256.New, []byte("sekret"))
	mac.Write([]byte("abc123"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), out.EncryptedToken)
}

func TestHandleWebhook_ValidSignatureDispatchesRecordingCompleted(t *testing.T) {
	coord := &fakeCoordinator{result: map[string]any{"status": "done"}}
	h := NewHandler("sekret", false, coord, testLogger())
	srv := newTestServer(h)
	defer srv.Close()

	body := `{"event":"recording.completed","payload":{"object":{"id":"m1","topic":"Math"}}}`
	ts := "1700000000"
	sig := sign("sekret", ts, body)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhook", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(headerTimestamp, ts)
	req.Header.Set(headerSignature, sig)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, coord.called)
	assert.Equal(t, "m1", coord.event.Payload.Object.ID)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "done", out["status"])
}

func TestHandleWebhook_InvalidSignatureRejected(t *testing.T) {
	coord := &fakeCoordinator{}
	h := NewHandler("sekret", false, coord, testLogger())
	srv := newTestServer(h)
	defer srv.Close()

	body := `{"event":"recording.completed","payload":{"object":{"id":"m1"}}}`

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhook", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(headerTimestamp, "1700000000")
	req.Header.Set(headerSignature, "v0=deadbeef")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, coord.called)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "invalid-signature", out["status"])
}

func TestHandleWebhook_MissingSecretIgnoresEverything(t *testing.T) {
	coord := &fakeCoordinator{}
	h := NewHandler("", false, coord, testLogger())
	srv := newTestServer(h)
	defer srv.Close()

	body := `{"event":"recording.completed","payload":{"object":{"id":"m1"}}}`

	resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.False(t, coord.called)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ignored", out["status"])
}

func TestHandleWebhook_BypassFlagSkipsSignatureCheck(t *testing.T) {
	coord := &fakeCoordinator{result: map[string]any{"status": "done"}}
	h := NewHandler("sekret", true, coord, testLogger())
	srv := newTestServer(h)
	defer srv.Close()

	body := `{"event":"recording.completed","payload":{"object":{"id":"m1"}}}`

	resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.True(t, coord.called)
}

func TestHandleWebhook_UnknownEventIgnored(t *testing.T) {
	coord := &fakeCoordinator{}
	h := NewHandler("sekret", true, coord, testLogger())
	srv := newTestServer(h)
	defer srv.Close()

	body := `{"event":"meeting.started","payload":{"object":{"id":"m1"}}}`

	resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.False(t, coord.called)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ignored", out["status"])
}
