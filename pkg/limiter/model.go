package limiter

import (
	"context"
	"net/http"
	"time"
)

// Decision is the outcome of a single rate-limit check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool
	// Limit is the maximum number of requests permitted per window (or the
	// bucket capacity for the token-bucket strategy).
	Limit int64
	// Remaining is the number of requests still available in the current
	// window. It is never negative.
	Remaining int64
	// Reset is the absolute time at which the current window ends and the
	// counter starts over.
	Reset time.Time
	// RetryAfter is zero when allowed; when denied it is the duration until
	// the caller may try again, rounded up to whole seconds for header use.
	RetryAfter time.Duration
	// Bypassed is set when an allow-list matched and no counting happened.
	Bypassed bool
}

// Strategy decides whether a request identified by key is allowed right now.
//
// Implementations own their per-key state and must be safe for concurrent use
// by multiple goroutines.
type Strategy interface {
	Check(ctx context.Context, key string) (Decision, error)
}

// reverter is implemented by strategies that can undo the most recent hit for
// a key. Used by skip-successful/skip-failed accounting.
type reverter interface {
	Revert(key string)
}

// KeyFunc derives the string used to partition rate-limit state from an
// inbound request. The contract is context-aware so that generators which
// must decode a token or consult an identity service fit the same shape as
// trivial IP-based ones.
type KeyFunc func(ctx context.Context, r *http.Request) (string, error)
