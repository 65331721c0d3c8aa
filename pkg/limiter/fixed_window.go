package limiter

import (
	"context"
	"time"
)

// FixedWindow counts requests per key inside fixed wall-clock windows.
//
// The window permits exactly MaxRequests requests: the request that brings
// the count to the limit is still allowed, and the next one inside the same
// window is the first denial.
type FixedWindow struct {
	store  *Store
	limit  int64
	window time.Duration
	clock  Clock
}

// NewFixedWindow constructs a fixed-window strategy over store. The store may
// be shared between strategies that should also share counters, or dedicated
// for isolation.
func NewFixedWindow(store *Store, maxRequests int64, window time.Duration) *FixedWindow {
	if store == nil {
		store = NewStore(nil)
	}
	return &FixedWindow{
		store:  store,
		limit:  maxRequests,
		window: window,
		clock:  store.clock,
	}
}

// Check registers a hit for key and decides whether it is allowed.
func (f *FixedWindow) Check(_ context.Context, key string) (Decision, error) {
	count, reset := f.store.Increment(key, f.window)

	remaining := f.limit - count
	if remaining < 0 {
		remaining = 0
	}
	dec := Decision{
		Allowed:   count <= f.limit,
		Limit:     f.limit,
		Remaining: remaining,
		Reset:     reset,
	}
	if !dec.Allowed {
		dec.RetryAfter = ceilSeconds(reset.Sub(f.clock.Now()))
	}
	return dec, nil
}

// Revert undoes the most recent hit for key.
func (f *FixedWindow) Revert(key string) {
	f.store.Decrement(key)
}

// ceilSeconds rounds d up to a whole number of seconds, never below one
// second for a positive input. Retry-After carries whole seconds on the wire.
func ceilSeconds(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	secs := d / time.Second
	if d%time.Second != 0 {
		secs++
	}
	return secs * time.Second
}
