package guard

import "context"

// UploadSemaphore bounds the number of concurrent uploads, a buffered
// channel counting semaphore — the usual Go idiom for worker-pool
// concurrency caps. Default capacity is 3 per
// spec §4.4.
type UploadSemaphore struct {
	tokens chan struct{}
}

// NewUploadSemaphore constructs a semaphore with the given capacity. A
// capacity <= 0 is treated as 1 (a semaphore that permits no concurrency at
// all would deadlock every caller).
func NewUploadSemaphore(capacity int) *UploadSemaphore {
	if capacity <= 0 {
		capacity = 1
	}

	return &UploadSemaphore{tokens: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free or ctx is done.
func (s *UploadSemaphore) Acquire(ctx context.Context) error {
	select {
	case s.tokens <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot. Must be called exactly once per successful Acquire.
func (s *UploadSemaphore) Release() {
	<-s.tokens
}
