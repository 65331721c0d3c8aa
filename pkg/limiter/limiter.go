package limiter

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// Options configures a Limiter. Window and MaxRequests describe the profile;
// everything else has a working default.
type Options struct {
	// Window is the limiting window. Must be positive.
	Window time.Duration
	// MaxRequests is the number of requests permitted per window. Must be at
	// least 1.
	MaxRequests int64

	// Strategy overrides the default fixed-window algorithm. When set, Window
	// and MaxRequests are not validated here; the strategy owns its
	// parameters.
	Strategy Strategy

	// KeyFunc derives the partition key. Defaults to IPKey(false).
	KeyFunc KeyFunc

	// SkipSuccessfulRequests uncounts requests that finished below 400.
	SkipSuccessfulRequests bool
	// SkipFailedRequests uncounts requests that finished at 400 or above.
	SkipFailedRequests bool

	// Message is the human-readable detail for denial envelopes.
	Message string

	// StandardHeaders controls X-RateLimit-* emission (default on; set
	// DisableStandardHeaders to turn off).
	DisableStandardHeaders bool
	// LegacyHeaders additionally emits the X-Rate-Limit-* spellings.
	LegacyHeaders bool

	// BypassAPIKeys lists pre-shared keys exempt from limiting, matched
	// against BypassAPIKeyHeader (default "X-API-Key").
	BypassAPIKeys      []string
	BypassAPIKeyHeader string
	// BypassIPs lists client IPs exempt from limiting.
	BypassIPs []string
	// BypassFunc is an extension point for custom exemptions (role lookups
	// and the like). It runs after the static allow-lists.
	BypassFunc func(r *http.Request) bool
	// TrustProxy makes bypass and default key generation honor
	// X-Forwarded-For / X-Real-IP.
	TrustProxy bool

	// Clock defaults to the system clock.
	Clock Clock
	// Recorder defaults to a no-op.
	Recorder MetricsRecorder
}

// Result pairs a Decision with the key it applied to, so callers can feed the
// key back into Observe once the response status is known.
type Result struct {
	Decision
	Key string
}

// Limiter applies one rate-limit profile to inbound requests: bypass
// allow-lists first, then key generation, then the configured strategy.
type Limiter struct {
	strategy  Strategy
	keyFn     KeyFunc
	opts      Options
	bypassKey map[string]struct{}
	bypassIP  map[string]struct{}
	recorder  MetricsRecorder
}

// DefaultMessage is the denial detail used when Options.Message is empty.
const DefaultMessage = "Too many requests, please try again later."

// New validates opts and constructs a Limiter. Without an explicit Strategy a
// fixed-window strategy over a private store is built from Window and
// MaxRequests.
func New(opts Options) (*Limiter, error) {
	if opts.Strategy == nil {
		if opts.Window <= 0 {
			return nil, errors.New("limiter: window must be positive")
		}
		if opts.MaxRequests < 1 {
			return nil, errors.New("limiter: max requests must be at least 1")
		}
		store := NewStore(opts.Clock)
		opts.Strategy = NewFixedWindow(store, opts.MaxRequests, opts.Window)
	}
	if opts.KeyFunc == nil {
		opts.KeyFunc = IPKey(opts.TrustProxy)
	}
	if opts.BypassAPIKeyHeader == "" {
		opts.BypassAPIKeyHeader = "X-API-Key"
	}
	if opts.Message == "" {
		opts.Message = DefaultMessage
	}
	if opts.Recorder == nil {
		opts.Recorder = NoOpMetricsRecorder{}
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}

	l := &Limiter{
		strategy:  opts.Strategy,
		keyFn:     opts.KeyFunc,
		opts:      opts,
		bypassKey: make(map[string]struct{}, len(opts.BypassAPIKeys)),
		bypassIP:  make(map[string]struct{}, len(opts.BypassIPs)),
		recorder:  opts.Recorder,
	}
	for _, k := range opts.BypassAPIKeys {
		l.bypassKey[k] = struct{}{}
	}
	for _, ip := range opts.BypassIPs {
		l.bypassIP[ip] = struct{}{}
	}
	return l, nil
}

// Check decides whether r may proceed. Bypassed requests are allowed without
// touching any counter and report Bypassed=true.
func (l *Limiter) Check(ctx context.Context, r *http.Request) (Result, error) {
	start := l.opts.Clock.Now()
	l.recorder.Add("ratelimit.check", 1, nil)

	if l.bypassed(r) {
		l.recorder.Add("ratelimit.bypass", 1, nil)
		return Result{Decision: Decision{Allowed: true, Bypassed: true}}, nil
	}

	key, err := l.keyFn(ctx, r)
	if err != nil {
		return Result{}, err
	}

	dec, err := l.strategy.Check(ctx, key)
	l.recorder.Observe("ratelimit.latency", l.opts.Clock.Now().Sub(start).Seconds(), nil)
	if err != nil {
		return Result{}, err
	}
	if !dec.Allowed {
		l.recorder.Add("ratelimit.denied", 1, nil)
	}
	return Result{Decision: dec, Key: key}, nil
}

// Observe applies skip-successful/skip-failed accounting once the response
// status for a previously allowed request is known.
func (l *Limiter) Observe(key string, statusCode int) {
	if key == "" {
		return
	}
	success := statusCode < http.StatusBadRequest
	if (success && !l.opts.SkipSuccessfulRequests) || (!success && !l.opts.SkipFailedRequests) {
		return
	}
	if rev, ok := l.strategy.(reverter); ok {
		rev.Revert(key)
	}
}

// Headers builds the rate-limit response headers for dec. Bypassed decisions
// get none; denials additionally carry Retry-After.
func (l *Limiter) Headers(dec Decision) http.Header {
	if dec.Bypassed {
		return nil
	}
	h := make(http.Header)
	if !l.opts.DisableStandardHeaders {
		h.Set("X-RateLimit-Limit", strconv.FormatInt(dec.Limit, 10))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(dec.Remaining, 10))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(dec.Reset.Unix(), 10))
	}
	if l.opts.LegacyHeaders {
		h.Set("X-Rate-Limit-Limit", strconv.FormatInt(dec.Limit, 10))
		h.Set("X-Rate-Limit-Remaining", strconv.FormatInt(dec.Remaining, 10))
		h.Set("X-Rate-Limit-Reset", strconv.FormatInt(dec.Reset.Unix(), 10))
	}
	if !dec.Allowed {
		h.Set("Retry-After", strconv.FormatInt(int64(dec.RetryAfter/time.Second), 10))
	}
	return h
}

// Message returns the configured denial detail.
func (l *Limiter) Message() string {
	return l.opts.Message
}

func (l *Limiter) bypassed(r *http.Request) bool {
	if len(l.bypassKey) > 0 {
		if k := r.Header.Get(l.opts.BypassAPIKeyHeader); k != "" {
			if _, ok := l.bypassKey[k]; ok {
				return true
			}
		}
	}
	if len(l.bypassIP) > 0 {
		if _, ok := l.bypassIP[ClientIP(r, l.opts.TrustProxy)]; ok {
			return true
		}
	}
	if l.opts.BypassFunc != nil && l.opts.BypassFunc(r) {
		return true
	}
	return false
}
