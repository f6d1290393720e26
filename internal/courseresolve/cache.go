package courseresolve

import (
	"sync"
	"time"

	"github.com/acme-edu/recording-pipeline/internal/clock"
)

// topicCache is the "course-list cache (TTL configurable, default 5
// minutes)" from spec §5, scoped to resolved topic -> course id rather than
// the raw course listing, since that is the only shape callers need.
// Mutex-guarded map, the same idiom as driveops.SessionProvider.tokenCache.
type topicCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   clock.Clock
	entries map[string]cacheEntry
}

type cacheEntry struct {
	courseID int
	expires  time.Time
}

func newTopicCache(ttl time.Duration, clk clock.Clock) *topicCache {
	return &topicCache{ttl: ttl, clock: clk, entries: make(map[string]cacheEntry)}
}

func (c *topicCache) get(topic string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[topic]
	if !ok || c.clock.Now().After(e.expires) {
		return 0, false
	}

	return e.courseID, true
}

func (c *topicCache) set(topic string, courseID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[topic] = cacheEntry{courseID: courseID, expires: c.clock.Now().Add(c.ttl)}
}
