// Package limiter provides in-process request rate limiting with three
// interchangeable algorithms behind one contract.
//
// The primary entry point is the Limiter:
//
//	l, _ := limiter.New(limiter.Options{
//		Window:      time.Minute,
//		MaxRequests: 5,
//	})
//	res, err := l.Check(ctx, r)
//
// The returned Result contains whether the request is allowed, how many
// requests remain in the window, and timing hints for callers that want to
// set rate-limit headers (Retry-After, X-RateLimit-Reset).
//
// # Algorithms
//
// Three strategies implement the same Check(ctx, key) contract and can be
// substituted per profile:
//
//   - FixedWindow: a counter that resets at fixed wall-clock intervals. The
//     cheapest option; a window of N permits exactly N requests, and the
//     (N+1)-th inside the window is the first denial. Bursts that straddle a
//     window boundary can briefly exceed the average rate.
//
//   - SlidingWindow: a per-key log of request timestamps counted over the
//     trailing window. Exact rolling semantics with no boundary artifact, at
//     the cost of one stored timestamp per counted request. Denied requests
//     are not recorded.
//
//   - TokenBucket: per-key tokens refilled continuously at a configured rate
//     and clamped to a burst capacity; each allowed request consumes one.
//     Smooth average-rate limiting that tolerates short bursts.
//
// Pick strict windows for auth-style endpoints and the token bucket for
// general API traffic.
//
// # Keys
//
// Identity is a namespaced string key ("ip:1.2.3.4", "user:42", "key:abc").
// KeyFunc generators derive it from the request: IPKey, HeaderKey,
// JWTSubjectKey, or a FirstKey composition. All generators share one
// context-aware signature, so a generator that decodes a token looks the same
// to the Limiter as one that reads RemoteAddr.
//
// # Bypass
//
// Requests carrying a recognized pre-shared API key, or originating from an
// allow-listed IP, skip counting entirely and report Bypassed on the
// Decision. BypassFunc is the extension point for anything richer (role
// checks, internal networks).
//
// # Concurrency
//
// All strategies are safe for concurrent use by multiple goroutines; each
// guards its key map with a mutex so the read-compare-write cycle for a key
// is a single critical section. State is local to the process. There is no
// cross-replica coordination and no persistence across restarts.
//
// # Lifecycle
//
// The fixed-window Store drops expired records lazily; run a Janitor to
// bound memory when key cardinality is high:
//
//	j := limiter.NewJanitor(store, 5*time.Minute)
//	j.Start()
//	defer j.Stop()
//
// The Janitor is owned by the host application. Stop halts the sweep loop
// and waits for it to exit, so process shutdown is deterministic.
//
// # Clock
//
// Every strategy takes an optional Clock. Production code uses the system
// clock; tests inject a fake to step time without sleeping.
package limiter
