package forum

import (
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

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	c := NewClient(config.ForumConfig{BaseURL: srv.URL, Token: "ws-token"}, srv.Client(), testLogger())
	c.policy = retry.New("forum", time.Millisecond, time.Millisecond, 3)

	return c
}

func TestGetCourseByField_MatchReturnsFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "ws-token", r.FormValue("wstoken"))
		assert.Equal(t, "core_course_get_courses_by_field", r.FormValue("wsfunction"))
		assert.Equal(t, "fullname", r.FormValue("field"))
		assert.Equal(t, "Matemáticas Básicas", r.FormValue("value"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"courses":[{"id":13,"fullname":"Matemáticas Básicas","shortname":"MATH101"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	course, err := c.GetCourseByField(t.Context(), "fullname", "Matemáticas Básicas")
	require.NoError(t, err)
	require.NotNil(t, course)
	assert.Equal(t, 13, course.ID)
}

func TestGetCourseByField_NoMatchReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"courses":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	course, err := c.GetCourseByField(t.Context(), "shortname", "NOPE")
	require.NoError(t, err)
	assert.Nil(t, course)
}

func TestCall_WSExceptionSurfacesAsClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"exception":"invalid_parameter_exception","errorcode":"invalidparameter","message":"bad field"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	_, err := c.GetCourseByField(t.Context(), "fullname", "x")
	require.Error(t, err)

	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "invalidparameter", ce.ErrorCode)
}

func TestCall_ServerErrorRetriesThenSucceeds(t *testing.T) {
	attempts := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"courses":[{"id":1,"fullname":"X"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	course, err := c.GetCourseByField(t.Context(), "fullname", "X")
	require.NoError(t, err)
	require.NotNil(t, course)
	assert.Equal(t, 2, attempts)
}

func TestResolveForumID_PrefersClasesGrabadas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"course":13,"name":"General"},{"id":2,"course":13,"name":"Clases Grabadas"}]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	id, err := c.ResolveForumID(t.Context(), 13)
	require.NoError(t, err)
	assert.Equal(t, 2, id)
}

func TestResolveForumID_FallsBackToAnnouncements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"course":13,"name":"General"},{"id":2,"course":13,"name":"Announcements"}]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	id, err := c.ResolveForumID(t.Context(), 13)
	require.NoError(t, err)
	assert.Equal(t, 2, id)
}

func TestResolveForumID_FallsBackToFirstForum(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":7,"course":13,"name":"Misc"}]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	id, err := c.ResolveForumID(t.Context(), 13)
	require.NoError(t, err)
	assert.Equal(t, 7, id)
}

func TestCreateDiscussion_PostsFormEncodedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "mod_forum_add_discussion", r.FormValue("wsfunction"))
		assert.Equal(t, "2", r.FormValue("forumid"))
		assert.Equal(t, "Matemáticas Básicas | 2026-07-29 [abc123]", r.FormValue("subject"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"discussionid":55,"warnings":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	id, err := c.CreateDiscussion(t.Context(), 2, "Matemáticas Básicas | 2026-07-29 [abc123]", BuildEmbed("https://store/f1/preview"))
	require.NoError(t, err)
	assert.Equal(t, 55, id)
}

func TestPreviewURL_ReplacesViewWithPreview(t *testing.T) {
	assert.Equal(t, "https://store/f1/preview", PreviewURL("https://store/f1/view"))
}
