package authclient

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy models the ad-hoc `while True: try/except sleep` loops of
// the original firmware's Database.py as a typed value (spec.md §9
// "Retry policy as type"), passed to each Authorization Client call.
//
// Profile and card-details fetches use Attempts = 0 (infinite); log
// endpoints use Attempts = 1 (try once, then swallow the failure per
// spec.md §4.2/§7).
type RetryPolicy struct {
	// Attempts is the maximum number of tries; 0 means unlimited.
	Attempts int
	// BaseDelay is the constant interval between attempts.
	BaseDelay time.Duration
}

// ProfileRetryPolicy retries forever with a 5s backoff (spec.md §5).
func ProfileRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 0, BaseDelay: 5 * time.Second}
}

// CardDetailsRetryPolicy retries forever with a 1s backoff (spec.md §5).
func CardDetailsRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 0, BaseDelay: time.Second}
}

// LogRetryPolicy tries once, matching spec.md §4.2's fire-and-forget log
// endpoints.
func LogRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 1, BaseDelay: 0}
}

// Do runs op under p, retrying on any non-nil error until ctx is
// cancelled, the attempt cap is reached, or op succeeds. A cancelled ctx
// is the only way out of an "infinite" policy (spec.md §5 "the only way
// out of a suspension is the operation's own completion, retry, or a
// host-level reboot" — ctx cancellation stands in for that reboot path
// in tests and for graceful shutdown).
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	b := backoff.WithContext(&backoff.ConstantBackOff{Interval: p.BaseDelay}, ctx)
	var bo backoff.BackOff = b
	if p.Attempts > 0 {
		bo = backoff.WithMaxRetries(b, uint64(p.Attempts-1))
	}
	return backoff.Retry(op, bo)
}
