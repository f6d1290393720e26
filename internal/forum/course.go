package forum

import (
	"context"
	"fmt"
	"net/url"
)

// GetCourseByField implements core_course_get_courses_by_field, used by the
// course resolver (spec §4.5 steps 2-3) for fullname/shortname lookups.
// Returns nil, nil when the field yields no match.
func (c *Client) GetCourseByField(ctx context.Context, field, value string) (*Course, error) {
	params := url.Values{
		"field": {field},
		"value": {value},
	}

	var respBody coursesByFieldResponse
	if err := c.call(ctx, "core_course_get_courses_by_field", params, &respBody); err != nil {
		return nil, fmt.Errorf("forum: get course by %s: %w", field, err)
	}

	if len(respBody.Courses) == 0 {
		return nil, nil //nolint:nilnil // no match is a valid outcome, the resolver falls through to the next strategy
	}

	return &respBody.Courses[0], nil
}

// SearchCourses implements core_course_search_courses, the free-text
// fallback strategy (spec §4.5 step 4).
func (c *Client) SearchCourses(ctx context.Context, query string) ([]Course, error) {
	params := url.Values{
		"criterianame":  {"search"},
		"criteriavalue": {query},
		"page":          {"0"},
		"perpage":       {"10"},
	}

	var respBody searchCoursesResponse
	if err := c.call(ctx, "core_course_search_courses", params, &respBody); err != nil {
		return nil, fmt.Errorf("forum: search courses %q: %w", query, err)
	}

	return respBody.Courses, nil
}
