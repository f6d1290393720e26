// Package retry implements the pipeline's exponential-backoff-with-jitter
// policy (spec §4.3) as a label-scoped, standalone type shared by the
// conferencing client, the object-store client, and the course
// resolver's LMS calls.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// ErrAttemptsExhausted is returned (wrapped) when a Policy's bounded number
// of attempts has been used up without success.
var ErrAttemptsExhausted = errors.New("retry: attempts exhausted")

// DefaultJitterFraction is spec §4.3's jitter coefficient (0.2 * exp).
const DefaultJitterFraction = 0.2

// Policy implements delay(attempt) = min(MAX, BASE*2^attempt) + U[0, 0.2*exp),
// per spec §4.3 exactly, with a per-label bound on attempts. The zero value
// is not usable; construct with New.
type Policy struct {
	Label       string
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
	JitterFrac  float64
}

// New constructs a Policy with spec-default jitter fraction. Only the
// jitter fraction is defaulted here: base, max delay and attempt bound are
// always the caller's (the config defaults for download/upload are BASE
// 30s, MAX 300s, 10 attempts; other labels such as the forum client's LMS
// calls pass their own values).
func New(label string, base, maxDelay time.Duration, maxAttempts int) *Policy {
	return &Policy{
		Label:       label,
		Base:        base,
		Max:         maxDelay,
		MaxAttempts: maxAttempts,
		JitterFrac:  DefaultJitterFraction,
	}
}

// Delay computes the backoff duration for the given zero-based attempt
// number, per spec §4.3. Exposed standalone (not just via Run) so tests can
// assert on the formula directly without driving a full retry loop.
func (p *Policy) Delay(attempt int) time.Duration {
	exp := float64(p.Base) * math.Pow(2, float64(attempt))
	if exp > float64(p.Max) {
		exp = float64(p.Max)
	}

	jitter := exp * p.JitterFrac * rand.Float64() //nolint:gosec // jitter does not need crypto rand

	return time.Duration(exp + jitter)
}

// retriableError marks an error as eligible for another attempt. Wrap
// transient failures in this before returning them from the operation
// passed to Run; anything else is treated as terminal and aborts
// immediately without consuming further attempts.
type retriableError struct{ err error }

func (r retriableError) Error() string { return r.err.Error() }
func (r retriableError) Unwrap() error { return r.err }

// Retriable wraps err so Run will retry the operation (subject to
// MaxAttempts) instead of returning immediately.
func Retriable(err error) error {
	if err == nil {
		return nil
	}

	return retriableError{err: err}
}

// IsRetriable reports whether err was wrapped with Retriable.
func IsRetriable(err error) bool {
	var r retriableError
	return errors.As(err, &r)
}

// Run executes op up to p.MaxAttempts times (the initial attempt plus
// MaxAttempts-1 retries), sleeping p.Delay(attempt) between attempts. The
// sleep and attempt-bounding loop is driven by go-retry's Do, with a
// Backoff adapter that reproduces spec §4.3's exact jitter formula instead
// of go-retry's own exponential/jitter helpers (whose jitter is computed
// post-cap, a subtly different formula than spec requires). A non-retriable
// error returned by op aborts immediately, matching spec §7's "fatal for
// that target" semantics.
func (p *Policy) Run(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	attempt := 0
	var lastErr error
	fatal := false

	backoff := specBackoff(p)
	bounded := goretry.WithMaxRetries(uint64(maxRetriesFor(p.MaxAttempts)), backoff)

	runErr := goretry.Do(ctx, bounded, func(ctx context.Context) error {
		err := op(ctx, attempt)
		attempt++

		if err == nil {
			return nil
		}

		lastErr = unwrapRetriable(err)

		if !IsRetriable(err) {
			fatal = true
			return lastErr
		}

		return goretry.RetryableError(lastErr)
	})

	if runErr == nil {
		return nil
	}

	if fatal {
		return lastErr
	}

	if lastErr == nil {
		lastErr = runErr
	}

	return errors.Join(ErrAttemptsExhausted, lastErr)
}

func unwrapRetriable(err error) error {
	var r retriableError
	if errors.As(err, &r) {
		return r.err
	}

	return err
}

func maxRetriesFor(maxAttempts int) int {
	if maxAttempts <= 0 {
		return 0
	}

	return maxAttempts - 1
}

// specBackoff adapts Policy.Delay into a goretry.Backoff. It tracks its own
// attempt counter rather than reusing the Run-level one, since go-retry
// calls Next() once per retry (not once per attempt).
func specBackoff(p *Policy) goretry.Backoff {
	n := 0

	return goretry.BackoffFunc(func() (time.Duration, bool) {
		n++ // first retry uses attempt 1's delay; attempt 0 never sleeps
		return p.Delay(n), false
	})
}
