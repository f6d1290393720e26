package objectstore

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

	"github.com/acme-edu/recording-pipeline/internal/artifact"
	"github.com/acme-edu/recording-pipeline/internal/clock"
	"github.com/acme-edu/recording-pipeline/internal/config"
	"github.com/acme-edu/recording-pipeline/internal/retry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	transfer := artifact.NewClient(srv.Client(), testLogger(), clock.NewFake(time.Unix(0, 0)), 0, 3, 3, time.Millisecond, time.Millisecond, nil)

	c := NewClient(config.ObjectStoreConfig{BaseURL: srv.URL, BearerToken: "tok", RootFolder: "root1"}, srv.Client(), transfer, testLogger())
	c.policy = retry.New("objectstore", time.Millisecond, time.Millisecond, 3)
	c.permissionsPolicy = retry.New("objectstore-permissions", time.Millisecond, time.Millisecond, 3)

	return c
}

func TestInitiateUpload_UsesResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/uploads", r.URL.Path)

		var body initiateUploadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "rec.mp4", body.Name)
		assert.Equal(t, "folder-1", body.FolderID)
		assert.Equal(t, "m1", body.Tags["meetingId"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(initiateUploadResponse{UploadURL: "https://store/upload/session1"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	session, err := c.InitiateUpload(t.Context(), "rec.mp4", "folder-1", map[string]string{"meetingId": "m1"}, 1024)
	require.NoError(t, err)
	assert.Equal(t, "https://store/upload/session1", session.URL)
}

func TestInitiateUpload_FallsBackToLocationHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://store/upload/session2")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	session, err := c.InitiateUpload(t.Context(), "rec.mp4", "folder-1", nil, 1024)
	require.NoError(t, err)
	assert.Equal(t, "https://store/upload/session2", session.URL)
}

func TestEnsureDestinationPath_CreatesNestedFolders(t *testing.T) {
	var requests []ensureFolderRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ensureFolderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(FolderInfo{FolderID: "folder-" + req.Name, Name: req.Name})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	folderID, err := c.EnsureDestinationPath(t.Context(), "CS101", "2026-07")
	require.NoError(t, err)
	assert.Equal(t, "folder-2026-07", folderID)
	require.Len(t, requests, 2)
	assert.Equal(t, "root1", requests[0].ParentID)
	assert.Equal(t, "CS101", requests[0].Name)
	assert.Equal(t, "folder-CS101", requests[1].ParentID)
}

func TestFindByExternalRecordingID_NoMatchReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(findByTagResponse{})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	m, err := c.FindByExternalRecordingID(t.Context(), "rec-123")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestFindByExternalRecordingID_MatchReturnsFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(findByTagResponse{Files: []Metadata{{FileID: "f1", ViewURL: "https://v/f1"}}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	m, err := c.FindByExternalRecordingID(t.Context(), "rec-123")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "f1", m.FileID)
}

func TestGrantPermissions_GivesUpNonFatallyAfterRetries(t *testing.T) {
	attempts := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	err := c.GrantPermissions(t.Context(), "f1")
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestGrantPermissions_SucceedsAfterTransientFailure(t *testing.T) {
	attempts := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	err := c.GrantPermissions(t.Context(), "f1")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}
