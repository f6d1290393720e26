// Package courseresolve maps a meeting topic string to a numeric course id
// via a cascade of LMS lookups and topic-normalization fallbacks (spec
// §4.5). Strategy order is a flat []matchStrategy slice iterated until one
// returns a non-zero course id, the same flat-iteration-over-strategies
// shape as a filter-chain evaluation.
package courseresolve

import (
	"context"
	"fmt"
	"time"

	"github.com/acme-edu/recording-pipeline/internal/clock"
	"github.com/acme-edu/recording-pipeline/internal/config"
	"github.com/acme-edu/recording-pipeline/internal/forum"
)

// lmsClient is the subset of *forum.Client the resolver depends on,
// accepted as an interface so tests can fake it without an httptest server.
type lmsClient interface {
	GetCourseByField(ctx context.Context, field, value string) (*forum.Course, error)
	SearchCourses(ctx context.Context, query string) ([]forum.Course, error)
}

// matchStrategy is one of spec §4.5's four ordered lookup strategies.
// Returns 0, nil when the strategy finds no match (not an error).
type matchStrategy func(ctx context.Context, lms lmsClient, candidate string) (int, error)

// strategies is iterated in order for every candidate topic string, per
// spec §4.5's numbered list.
var strategies = []matchStrategy{
	matchExactFullNameOrDisplayName,
	matchByField("fullname"),
	matchByField("shortname"),
	matchFreeTextSearch,
}

func matchExactFullNameOrDisplayName(ctx context.Context, lms lmsClient, candidate string) (int, error) {
	course, err := lms.GetCourseByField(ctx, "fullname", candidate)
	if err != nil {
		return 0, err
	}

	if course != nil && (course.FullName == candidate || course.DisplayName == candidate) {
		return course.ID, nil
	}

	return 0, nil
}

func matchByField(field string) matchStrategy {
	return func(ctx context.Context, lms lmsClient, candidate string) (int, error) {
		course, err := lms.GetCourseByField(ctx, field, candidate)
		if err != nil {
			return 0, err
		}

		if course == nil {
			return 0, nil
		}

		return course.ID, nil
	}
}

func matchFreeTextSearch(ctx context.Context, lms lmsClient, candidate string) (int, error) {
	courses, err := lms.SearchCourses(ctx, candidate)
	if err != nil {
		return 0, err
	}

	if len(courses) == 0 {
		return 0, nil
	}

	return courses[0].ID, nil
}

// Resolver implements spec §4.5's Course Resolver.
type Resolver struct {
	lms             lmsClient
	defaultCourseID int
	cache           *topicCache
}

// NewResolver builds a Resolver. cfg supplies the default-course-id
// fallback and course-list cache TTL.
func NewResolver(lms *forum.Client, cfg config.CourseResolveConfig, clk clock.Clock) *Resolver {
	ttl := time.Duration(cfg.CacheTTLMs) * time.Millisecond
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Resolver{
		lms:             lms,
		defaultCourseID: cfg.DefaultCourseID,
		cache:           newTopicCache(ttl, clk),
	}
}

// Resolve produces a numeric course id for topic, per spec §4.5's full
// cascade: the topic as-is, then normalized variants, then progressive
// right-truncation, then the configured default, else ErrNoCourseResolved.
func (r *Resolver) Resolve(ctx context.Context, topic string) (int, error) {
	topic = normalizeTopic(topic)

	if id, ok := r.cache.get(topic); ok {
		return id, nil
	}

	candidates := append([]string{topic}, normalizedVariants(topic)...)
	candidates = append(candidates, truncationVariants(topic)...)

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}

		for _, strategy := range strategies {
			id, err := strategy(ctx, r.lms, candidate)
			if err != nil {
				return 0, fmt.Errorf("courseresolve: resolving topic %q: %w", topic, err)
			}

			if id != 0 {
				r.cache.set(topic, id)

				return id, nil
			}
		}
	}

	if r.defaultCourseID != 0 {
		r.cache.set(topic, r.defaultCourseID)

		return r.defaultCourseID, nil
	}

	return 0, fmt.Errorf("%w: topic %q", ErrNoCourseResolved, topic)
}
