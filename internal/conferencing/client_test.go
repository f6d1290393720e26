package conferencing

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acme-edu/recording-pipeline/internal/config"
	"github.com/acme-edu/recording-pipeline/internal/retry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, apiServer *httptest.Server) *Client {
	t.Helper()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "account_credentials", r.FormValue("grant_type"))
		require.Equal(t, "acct-1", r.FormValue("account_id"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-abc",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(tokenServer.Close)

	c := NewClient(config.ConferencingConfig{
		BaseURL:      apiServer.URL,
		TokenURL:     tokenServer.URL,
		AccountID:    "acct-1",
		ClientID:     "id",
		ClientSecret: "secret",
	}, apiServer.Client(), testLogger())

	c.policy = retry.New("conferencing", time.Millisecond, time.Millisecond, 3)

	return c
}

func TestGetMeeting_Success(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(MeetingObject{
			ID:    "94881330838",
			Topic: "Matemáticas Básicas",
			RecordingFiles: []RecordingFile{
				{ID: "abc123", FileType: "MP4", Status: "completed", DownloadURL: "https://x/y", FileSize: 100},
			},
		})
	}))
	defer api.Close()

	c := newTestClient(t, api)

	m, err := c.GetMeeting(t.Context(), "94881330838")
	require.NoError(t, err)
	assert.Equal(t, "Matemáticas Básicas", m.Topic)
	require.Len(t, m.RecordingFiles, 1)
	assert.Equal(t, "abc123", m.RecordingFiles[0].ID)
}

func TestGetMeeting_RetriesOn503(t *testing.T) {
	attempts := 0

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(MeetingObject{ID: "m1", Topic: "t"})
	}))
	defer api.Close()

	c := newTestClient(t, api)

	m, err := c.GetMeeting(t.Context(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "t", m.Topic)
}

func TestGetMeeting_RetriesNotReady404(t *testing.T) {
	attempts := 0

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer api.Close()

	c := newTestClient(t, api)

	_, err := c.GetMeeting(t.Context(), "missing")
	require.Error(t, err)
	// 404 classifies as ErrNotReady (retriable) per this client's classification,
	// so it retries up to the bound rather than failing on the first attempt.
	assert.Equal(t, 3, attempts)
}

func TestListRecordings_Pagination(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Query().Get("next_page_token") == "" {
			_ = json.NewEncoder(w).Encode(RecordingsPage{
				Meetings:      []MeetingObject{{ID: "m1"}},
				NextPageToken: "page2",
			})
			return
		}

		_ = json.NewEncoder(w).Encode(RecordingsPage{Meetings: []MeetingObject{{ID: "m2"}}})
	}))
	defer api.Close()

	c := newTestClient(t, api)

	from, to := time.Now().Add(-24*time.Hour), time.Now()

	page1, err := c.ListRecordings(t.Context(), from, to, "")
	require.NoError(t, err)
	assert.Equal(t, "page2", page1.NextPageToken)
	require.Len(t, page1.Meetings, 1)
	assert.Equal(t, "m1", page1.Meetings[0].ID)

	page2, err := c.ListRecordings(t.Context(), from, to, page1.NextPageToken)
	require.NoError(t, err)
	assert.Empty(t, page2.NextPageToken)
	assert.Equal(t, "m2", page2.Meetings[0].ID)
}

func TestCachingTokenSource_ReusesValidToken(t *testing.T) {
	calls := 0

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	defer tokenServer.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(MeetingObject{ID: "m1"})
	}))
	defer api.Close()

	c := NewClient(config.ConferencingConfig{
		BaseURL: api.URL, TokenURL: tokenServer.URL, AccountID: "a", ClientID: "i", ClientSecret: "s",
	}, api.Client(), testLogger())
	c.policy = retry.New("conferencing", time.Millisecond, time.Millisecond, 3)

	_, err := c.GetMeeting(t.Context(), "m1")
	require.NoError(t, err)
	_, err = c.GetMeeting(t.Context(), "m1")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}
