// Package httpclient provides the outbound HTTP client used to talk to
// upstream services.
//
// The primary entry point is the Client:
//
//	c := httpclient.New(
//		httpclient.WithBaseURL("https://api.example.com"),
//		httpclient.WithRetries(3),
//		httpclient.WithBearerToken(token),
//	)
//	resp, err := c.Get(ctx, "/venues/42", nil)
//
// # Retry Policy
//
// A logical call makes up to retries+1 attempts. Failures split into two
// classes:
//
//   - Terminal: any HTTP status below 500 (including 429) and parent-context
//     cancellation. No further attempts are made; the mapped error is
//     returned immediately.
//   - Retryable: network failures, per-attempt timeouts, and 5xx statuses.
//     The client waits retryDelay * 2^n before retry n+1 (exponential
//     backoff) and surfaces the last failure once the budget is exhausted.
//
// Every attempt carries its own timeout; a hung upstream costs at most one
// timeout per attempt, never the whole call.
//
// # Error Mapping
//
// Errors returned by Do are always *envelope.Error values with a taxonomy
// kind: 401 authentication, 403 authorization, 404 not_found, 429
// rate_limit, other 4xx validation, 5xx server_error, transport failures
// external_service. Raw transport errors stay wrapped inside for logging and
// never leak into serialized envelopes.
//
// # Caching
//
// GET requests with RequestOptions.Cacheable set consult a ResponseCache
// before dialing and store successful responses under the endpoint's TTL.
// MemoryCache suits a single process; RedisCache shares the cache between
// replicas. A failing cache degrades to a network call, it never fails the
// request.
//
// # Throttling
//
// WithThrottle applies a client-side token bucket (golang.org/x/time/rate)
// to outbound traffic, useful when an upstream enforces its own limits.
//
// # Correlation
//
// Every logical call gets a generated X-Request-ID header, shared by all of
// its attempts, so upstream logs can be joined to client logs.
package httpclient
