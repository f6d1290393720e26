package pipeline

import "github.com/acme-edu/recording-pipeline/internal/guard"

// Guards bundles the three process-local concurrency structures spec §9
// asks to be modeled as an explicit value threaded into the Coordinator at
// construction, rather than module-level globals: an in-flight meeting
// set, per-path file locks, and a bounded upload semaphore (spec §4.4). The
// fourth guard, guard.RetryGuard, is scoped to manual-retry dispatch
// (internal/retryengine) rather than the recording pipeline itself, so it
// is not a field here.
type Guards struct {
	InFlight        *guard.InFlightSet
	PathLocks       *guard.PathLocks
	UploadSemaphore *guard.UploadSemaphore
}

// NewGuards builds a Guards with the configured upload concurrency.
func NewGuards(uploadConcurrency int) *Guards {
	return &Guards{
		InFlight:        guard.NewInFlightSet(),
		PathLocks:       guard.NewPathLocks(),
		UploadSemaphore: guard.NewUploadSemaphore(uploadConcurrency),
	}
}
