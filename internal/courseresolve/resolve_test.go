package courseresolve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acme-edu/recording-pipeline/internal/clock"
	"github.com/acme-edu/recording-pipeline/internal/config"
	"github.com/acme-edu/recording-pipeline/internal/forum"
)

// fakeLMS records every field/value lookup and free-text search so tests
// can assert exactly which candidate forms were tried, in order.
type fakeLMS struct {
	byField map[string]map[string]forum.Course // field -> value -> course
	search  map[string]forum.Course

	fieldCalls  []string
	searchCalls []string
}

func newFakeLMS() *fakeLMS {
	return &fakeLMS{
		byField: make(map[string]map[string]forum.Course),
		search:  make(map[string]forum.Course),
	}
}

func (f *fakeLMS) withField(field, value string, course forum.Course) *fakeLMS {
	if f.byField[field] == nil {
		f.byField[field] = make(map[string]forum.Course)
	}

	f.byField[field][value] = course

	return f
}

func (f *fakeLMS) GetCourseByField(_ context.Context, field, value string) (*forum.Course, error) {
	f.fieldCalls = append(f.fieldCalls, field+":"+value)

	if m, ok := f.byField[field]; ok {
		if c, ok := m[value]; ok {
			return &c, nil
		}
	}

	return nil, nil
}

func (f *fakeLMS) SearchCourses(_ context.Context, query string) ([]forum.Course, error) {
	f.searchCalls = append(f.searchCalls, query)

	if c, ok := f.search[query]; ok {
		return []forum.Course{c}, nil
	}

	return nil, nil
}

func newResolver(lms lmsClient, cfg config.CourseResolveConfig) *Resolver {
	return &Resolver{
		lms:             lms,
		defaultCourseID: cfg.DefaultCourseID,
		cache:           newTopicCache(5*time.Minute, clock.NewFake(time.Unix(0, 0))),
	}
}

func TestResolve_ExactFullNameMatch(t *testing.T) {
	lms := newFakeLMS().withField("fullname", "Matemáticas Básicas", forum.Course{ID: 13, FullName: "Matemáticas Básicas"})
	r := newResolver(lms, config.CourseResolveConfig{})

	id, err := r.Resolve(t.Context(), "Matemáticas Básicas")
	require.NoError(t, err)
	assert.Equal(t, 13, id)
}

func TestResolve_FallsThroughToShortName(t *testing.T) {
	lms := newFakeLMS().withField("shortname", "MATH101", forum.Course{ID: 13, ShortName: "MATH101"})
	r := newResolver(lms, config.CourseResolveConfig{})

	id, err := r.Resolve(t.Context(), "MATH101")
	require.NoError(t, err)
	assert.Equal(t, 13, id)
}

func TestResolve_FallsThroughToFreeTextSearch(t *testing.T) {
	lms := newFakeLMS()
	lms.search["Some Random Topic"] = forum.Course{ID: 99}
	r := newResolver(lms, config.CourseResolveConfig{})

	id, err := r.Resolve(t.Context(), "Some Random Topic")
	require.NoError(t, err)
	assert.Equal(t, 99, id)
}

func TestResolve_NormalizedVariantMatchesWorkedExample(t *testing.T) {
	lms := newFakeLMS().withField("fullname", "Matemáticas Básicas", forum.Course{ID: 13, FullName: "Matemáticas Básicas"})
	r := newResolver(lms, config.CourseResolveConfig{})

	id, err := r.Resolve(t.Context(), "Matemáticas Básicas (EP) - Lunes")
	require.NoError(t, err)
	assert.Equal(t, 13, id)

	assert.Contains(t, lms.fieldCalls, "fullname:Matemáticas Básicas (EP) - Lunes")
	assert.Contains(t, lms.fieldCalls, "fullname:Matemáticas Básicas (EP)")
	assert.Contains(t, lms.fieldCalls, "fullname:Matemáticas Básicas")
}

func TestResolve_ProgressiveTruncationFallback(t *testing.T) {
	lms := newFakeLMS().withField("fullname", "Intro To Programming", forum.Course{ID: 42, FullName: "Intro To Programming"})
	r := newResolver(lms, config.CourseResolveConfig{})

	id, err := r.Resolve(t.Context(), "Intro To Programming Week Five")
	require.NoError(t, err)
	assert.Equal(t, 42, id)
}

func TestResolve_DefaultCourseIDFallback(t *testing.T) {
	lms := newFakeLMS()
	r := newResolver(lms, config.CourseResolveConfig{DefaultCourseID: 7})

	id, err := r.Resolve(t.Context(), "Completely Unrecognized Topic Name")
	require.NoError(t, err)
	assert.Equal(t, 7, id)
}

func TestResolve_NoCourseResolvedWithoutDefault(t *testing.T) {
	lms := newFakeLMS()
	r := newResolver(lms, config.CourseResolveConfig{})

	_, err := r.Resolve(t.Context(), "Completely Unrecognized Topic Name")
	require.ErrorIs(t, err, ErrNoCourseResolved)
}

func TestResolve_CachesResolvedTopic(t *testing.T) {
	lms := newFakeLMS().withField("fullname", "Cached Course", forum.Course{ID: 5, FullName: "Cached Course"})
	r := newResolver(lms, config.CourseResolveConfig{})

	id1, err := r.Resolve(t.Context(), "Cached Course")
	require.NoError(t, err)
	assert.Equal(t, 5, id1)

	callsBefore := len(lms.fieldCalls)

	id2, err := r.Resolve(t.Context(), "Cached Course")
	require.NoError(t, err)
	assert.Equal(t, 5, id2)
	assert.Equal(t, callsBefore, len(lms.fieldCalls), "second resolve should be served from cache with no new LMS calls")
}
