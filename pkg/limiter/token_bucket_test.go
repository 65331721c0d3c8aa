package limiter

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucket_BurstThenDenied(t *testing.T) {
	// A full bucket of capacity C permits C instant calls; the (C+1)-th is
	// denied.
	clock := newFakeClock()
	tb := NewTokenBucket(1, time.Second, 5, clock)

	for i := 0; i < 5; i++ {
		dec, _ := tb.Check(context.Background(), "k")
		if !dec.Allowed {
			t.Fatalf("Burst call %d should be allowed", i+1)
		}
	}

	dec, _ := tb.Check(context.Background(), "k")
	if dec.Allowed {
		t.Error("Call 6 against an empty bucket should be denied")
	}
}

func TestTokenBucket_RefillGrantsOneCall(t *testing.T) {
	// After draining the bucket, waiting exactly 1/r seconds earns one token:
	// one more call succeeds and the next is denied again.
	clock := newFakeClock()
	tb := NewTokenBucket(10, time.Second, 2, clock)

	tb.Check(context.Background(), "k")
	tb.Check(context.Background(), "k")
	if dec, _ := tb.Check(context.Background(), "k"); dec.Allowed {
		t.Fatal("Bucket should be empty")
	}

	clock.Advance(100 * time.Millisecond) // exactly one token at 10/s

	if dec, _ := tb.Check(context.Background(), "k"); !dec.Allowed {
		t.Fatal("Expected exactly one call after a single-token refill to succeed")
	}
	if dec, _ := tb.Check(context.Background(), "k"); dec.Allowed {
		t.Error("Expected the second call after a single-token refill to be denied")
	}
}

func TestTokenBucket_RefillClampsToCapacity(t *testing.T) {
	clock := newFakeClock()
	tb := NewTokenBucket(10, time.Second, 3, clock)

	tb.Check(context.Background(), "k")
	clock.Advance(time.Hour)

	// A long idle period refills to capacity 3, not to 36000.
	allowed := 0
	for n := 0; n < 10; n++ {
		if dec, _ := tb.Check(context.Background(), "k"); dec.Allowed {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("Expected exactly 3 calls after a long idle, got %d", allowed)
	}
}

func TestTokenBucket_RetryAfterEstimatesNextToken(t *testing.T) {
	clock := newFakeClock()
	tb := NewTokenBucket(1, time.Second, 1, clock)

	tb.Check(context.Background(), "k")
	dec, _ := tb.Check(context.Background(), "k")
	if dec.Allowed {
		t.Fatal("Expected denial")
	}
	if dec.RetryAfter != time.Second {
		t.Errorf("Expected RetryAfter 1s at 1 token/s, got %v", dec.RetryAfter)
	}
}

func TestTokenBucket_KeyIsolation(t *testing.T) {
	tb := NewTokenBucket(1, time.Second, 1, newFakeClock())

	tb.Check(context.Background(), "a")
	tb.Check(context.Background(), "a")

	if dec, _ := tb.Check(context.Background(), "b"); !dec.Allowed {
		t.Error("Exhausting key a must not affect key b")
	}
}

func TestTokenBucket_RevertReturnsToken(t *testing.T) {
	clock := newFakeClock()
	tb := NewTokenBucket(1, time.Hour, 1, clock)

	tb.Check(context.Background(), "k")
	tb.Revert("k")

	if dec, _ := tb.Check(context.Background(), "k"); !dec.Allowed {
		t.Error("Expected the returned token to permit another call")
	}
}
