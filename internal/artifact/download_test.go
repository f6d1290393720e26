package artifact

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acme-edu/recording-pipeline/internal/clock"
)

var errRefreshFailed = errors.New("refresh failed")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDownloadClient() *Client {
	return newTestDownloadClientWithRefresher(nil)
}

func newTestDownloadClientWithRefresher(refresher TokenRefresher) *Client {
	return NewClient(http.DefaultClient, testLogger(), clock.NewFake(time.Unix(0, 0)), 0, 5, 5, time.Millisecond, time.Millisecond, refresher)
}

// fakeTokenRefresher hands out a new token string on each call, so tests
// can assert a download's retry attempt carries a genuinely different
// bearer token rather than the original caller-supplied one.
type fakeTokenRefresher struct {
	calls  int
	tokens []string
}

func (f *fakeTokenRefresher) RefreshAccessToken() (string, error) {
	f.calls++
	return f.tokens[f.calls-1], nil
}

func TestDownload_FreshSuccess(t *testing.T) {
	content := []byte("not really an mp4 but long enough to pass the floor check 0123456789")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "70")
			w.Header().Set("Content-Type", "video/mp4")
			return
		}

		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write(content)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "rec.mp4")

	c := newTestDownloadClient()

	result, err := c.Download(t.Context(), srv.URL, dest, "", int64(len(content)), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(70), result.ContentLength)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, statErr := os.Stat(dest + ".partial")
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownload_ResumesFromPartial(t *testing.T) {
	full := []byte("0123456789abcdefghijklmnopqrstuvwxyz")
	already := full[:10]
	rest := full[10:]

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "36")
			return
		}

		require.Equal(t, "bytes=10-", r.Header.Get("Range"))
		w.Header().Set("Content-Range", "bytes 10-35/36")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(rest)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "rec.mp4")
	require.NoError(t, os.WriteFile(dest+".partial", already, 0o600))

	c := newTestDownloadClient()

	_, err := c.Download(t.Context(), srv.URL, dest, "", 36, 5)
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, full, got)
}

func TestDownload_ServerIgnoresRangeRestartsFromZero(t *testing.T) {
	full := []byte("0123456789abcdefghij")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "20")
			return
		}

		// Server ignores the Range header and returns 200 with the full body.
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(full)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "rec.mp4")
	require.NoError(t, os.WriteFile(dest+".partial", []byte("garbage-stale-bytes"), 0o600))

	c := newTestDownloadClient()

	_, err := c.Download(t.Context(), srv.URL, dest, "", 20, 5)
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, full, got)
}

func TestDownload_HeadNotReadyThenReady(t *testing.T) {
	calls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusNotFound)
				return
			}

			w.Header().Set("Content-Length", "9")
			return
		}

		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("123456789"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "rec.mp4")
	c := newTestDownloadClient()

	_, err := c.Download(t.Context(), srv.URL, dest, "", 9, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDownload_HeadNeverReadyFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "rec.mp4")
	c := newTestDownloadClient()

	_, err := c.Download(t.Context(), srv.URL, dest, "", 0, 5)
	require.ErrorIs(t, err, ErrNotReady)
}

// TestDownload_QueryParamAuthFallsBackToHeaderOn401 covers a Client with no
// TokenRefresher wired in (e.g. a webhook-supplied, non-refreshable download
// token): the only option on a 401/403 is resending the same token moved
// from query parameter to header.
func TestDownload_QueryParamAuthFallsBackToHeaderOn401(t *testing.T) {
	attempt := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "5")
			return
		}

		attempt++
		if attempt == 1 {
			assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "rec.mp4")
	c := newTestDownloadClient()

	_, err := c.Download(t.Context(), srv.URL, dest, "tok", 5, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, attempt)
}

// TestDownload_401TriggersForcedTokenRefresh covers a Client with a
// TokenRefresher wired in: the retried attempt must carry the refreshed
// token, not the original one, per spec §4.1/§7's "one forced token refresh".
func TestDownload_401TriggersForcedTokenRefresh(t *testing.T) {
	attempt := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "5")
			return
		}

		attempt++
		if attempt == 1 {
			assert.Equal(t, "stale-tok", r.URL.Query().Get("access_token"))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		assert.Equal(t, "Bearer fresh-tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "rec.mp4")
	refresher := &fakeTokenRefresher{tokens: []string{"fresh-tok"}}
	c := newTestDownloadClientWithRefresher(refresher)

	_, err := c.Download(t.Context(), srv.URL, dest, "stale-tok", 5, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, attempt)
	assert.Equal(t, 1, refresher.calls)
}

// TestDownload_TokenRefreshFailureFallsBackToOriginalToken covers a
// TokenRefresher that errors: the retry must proceed with the original
// token as a header rather than aborting the download entirely.
func TestDownload_TokenRefreshFailureFallsBackToOriginalToken(t *testing.T) {
	attempt := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "5")
			return
		}

		attempt++
		if attempt == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "rec.mp4")
	c := newTestDownloadClientWithRefresher(&erroringTokenRefresher{})

	_, err := c.Download(t.Context(), srv.URL, dest, "tok", 5, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, attempt)
}

type erroringTokenRefresher struct{}

func (erroringTokenRefresher) RefreshAccessToken() (string, error) {
	return "", errRefreshFailed
}

func TestDownload_InvalidContentTypeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "100")
			return
		}

		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>not found, sorry</body></html>"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "rec.mp4")
	c := newTestDownloadClient()

	_, err := c.Download(t.Context(), srv.URL, dest, "", 0, 5)
	require.ErrorIs(t, err, ErrInvalidArtifact)

	_, statErr := os.Stat(dest + ".partial")
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownload_RejectsNonMP4Destination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "5")
			return
		}

		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "rec.txt")
	c := newTestDownloadClient()

	_, err := c.Download(t.Context(), srv.URL, dest, "", 0, 3)
	require.ErrorIs(t, err, ErrInvalidArtifact)
}
