package limiter

import (
	"context"
	"sync"
	"time"
)

// SlidingWindow keeps a per-key log of request timestamps and counts those
// inside the trailing window. This gives exact rolling-window semantics with
// none of the boundary burst a fixed window allows, at the cost of one stored
// timestamp per counted request.
//
// Timestamps are pruned on access, not proactively; a key that goes silent
// keeps its stale entries until the next Check for that key (or until the
// whole key falls out of use and the map entry is dropped by a prune that
// empties it).
type SlidingWindow struct {
	mu     sync.Mutex
	clock  Clock
	limit  int64
	window time.Duration
	hits   map[string][]time.Time
}

// NewSlidingWindow constructs a sliding-window-log strategy. A nil clock
// defaults to the system clock.
func NewSlidingWindow(maxRequests int64, window time.Duration, clock Clock) *SlidingWindow {
	if clock == nil {
		clock = SystemClock()
	}
	return &SlidingWindow{
		clock:  clock,
		limit:  maxRequests,
		window: window,
		hits:   make(map[string][]time.Time),
	}
}

// Check prunes the log for key to the live window, then either records the
// hit and allows it, or denies without recording. Denied requests leave no
// trace, so a client hammering a full window does not push its own reset
// further out.
func (sw *SlidingWindow) Check(_ context.Context, key string) (Decision, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.clock.Now()
	cutoff := now.Add(-sw.window)

	log := sw.hits[key]
	live := log[:0]
	for _, ts := range log {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if int64(len(live)) >= sw.limit {
		sw.hits[key] = live
		oldest := live[0]
		reset := oldest.Add(sw.window)
		return Decision{
			Allowed:    false,
			Limit:      sw.limit,
			Remaining:  0,
			Reset:      reset,
			RetryAfter: ceilSeconds(reset.Sub(now)),
		}, nil
	}

	live = append(live, now)
	sw.hits[key] = live
	return Decision{
		Allowed:   true,
		Limit:     sw.limit,
		Remaining: sw.limit - int64(len(live)),
		Reset:     live[0].Add(sw.window),
	}, nil
}

// Revert drops the most recent recorded hit for key.
func (sw *SlidingWindow) Revert(key string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	log := sw.hits[key]
	if len(log) == 0 {
		return
	}
	log = log[:len(log)-1]
	if len(log) == 0 {
		delete(sw.hits, key)
		return
	}
	sw.hits[key] = log
}

// Reset drops all recorded hits for key.
func (sw *SlidingWindow) Reset(key string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	delete(sw.hits, key)
}
