package limiter

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// TokenBucket models per-key capacity as tokens refilled continuously at
// Rate per Period, up to Burst. Each allowed request consumes one token.
// Unlike fixed-window counters this enforces a smooth long-term average while
// tolerating short bursts up to the bucket capacity.
type TokenBucket struct {
	mu     sync.Mutex
	clock  Clock
	rate   int64
	period time.Duration
	burst  int64
	bkts   map[string]*bucket
}

// NewTokenBucket constructs a token-bucket strategy earning rate tokens per
// period with a maximum balance of burst. A nil clock defaults to the system
// clock.
func NewTokenBucket(rate int64, period time.Duration, burst int64, clock Clock) *TokenBucket {
	if clock == nil {
		clock = SystemClock()
	}
	return &TokenBucket{
		clock:  clock,
		rate:   rate,
		period: period,
		burst:  burst,
		bkts:   make(map[string]*bucket),
	}
}

// Check refills the bucket for key based on elapsed time, then consumes one
// token when at least one is available.
func (tb *TokenBucket) Check(_ context.Context, key string) (Decision, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.clock.Now()
	bkt, ok := tb.bkts[key]
	if !ok {
		tb.bkts[key] = &bucket{
			tokens:     float64(tb.burst) - 1,
			lastRefill: now,
		}
		return Decision{
			Allowed:   true,
			Limit:     tb.burst,
			Remaining: tb.burst - 1,
			Reset:     now,
		}, nil
	}

	elapsed := now.Sub(bkt.lastRefill)
	if elapsed < 0 {
		elapsed = 0
	}
	refill := float64(elapsed) / float64(tb.period) * float64(tb.rate)
	bkt.tokens += refill
	if bkt.tokens > float64(tb.burst) {
		bkt.tokens = float64(tb.burst)
	}
	bkt.lastRefill = now

	if bkt.tokens >= 1 {
		bkt.tokens--
		return Decision{
			Allowed:   true,
			Limit:     tb.burst,
			Remaining: int64(bkt.tokens),
			Reset:     now,
		}, nil
	}

	secPerToken := float64(tb.period) / float64(tb.rate)
	wait := time.Duration((1 - bkt.tokens) * secPerToken)
	return Decision{
		Allowed:    false,
		Limit:      tb.burst,
		Remaining:  int64(bkt.tokens),
		Reset:      now.Add(wait),
		RetryAfter: ceilSeconds(wait),
	}, nil
}

// Revert returns one token to the bucket for key, clamped to capacity.
func (tb *TokenBucket) Revert(key string) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	bkt, ok := tb.bkts[key]
	if !ok {
		return
	}
	bkt.tokens++
	if bkt.tokens > float64(tb.burst) {
		bkt.tokens = float64(tb.burst)
	}
}
