package guard

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// RetryGuard surfaces "already-in-progress" to a concurrent manual-retry
// call for the same target, per spec §4.4/§4.8's exact skip reason, rather
// than blocking the second caller until the first completes. A bare
// singleflight.Group.Do alone would make the second caller wait and share
// the first's result; here membership in inProgress is checked first so a
// genuinely concurrent duplicate returns immediately, with
// singleflight.Group still owning the actual execution so the narrow
// window between the membership check and Do is also deduplicated.
type RetryGuard struct {
	group *singleflight.Group

	mu         sync.Mutex
	inProgress map[string]struct{}
}

// NewRetryGuard constructs an empty RetryGuard.
func NewRetryGuard() *RetryGuard {
	return &RetryGuard{
		group:      &singleflight.Group{},
		inProgress: make(map[string]struct{}),
	}
}

// Do runs fn under key's guard. If key is already in progress, Do returns
// immediately with alreadyInProgress=true and no result/error.
func (g *RetryGuard) Do(key string, fn func() (any, error)) (result any, alreadyInProgress bool, err error) {
	g.mu.Lock()
	if _, ok := g.inProgress[key]; ok {
		g.mu.Unlock()
		return nil, true, nil
	}

	g.inProgress[key] = struct{}{}
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.inProgress, key)
		g.mu.Unlock()
	}()

	result, err, _ = g.group.Do(key, fn)

	return result, false, err
}
