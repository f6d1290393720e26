package courseresolve

import "errors"

// ErrNoCourseResolved is returned when every match strategy, every
// normalized topic variant, and progressive right-truncation all fail to
// produce a course id, and no default course id is configured (spec §4.5).
var ErrNoCourseResolved = errors.New("courseresolve: no course resolved")
