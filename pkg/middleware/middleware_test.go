package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stagedoor/apikit/pkg/envelope"
	"github.com/stagedoor/apikit/pkg/limiter"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

func newLimiter(t *testing.T, opts limiter.Options) *limiter.Limiter {
	t.Helper()
	l, err := limiter.New(opts)
	if err != nil {
		t.Fatalf("limiter.New failed: %v", err)
	}
	return l
}

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	l := newLimiter(t, limiter.Options{Window: time.Minute, MaxRequests: 2})
	h := RateLimit(l, nil)(okHandler())

	r := httptest.NewRequest("GET", "/api/events", nil)
	r.RemoteAddr = "1.2.3.4:80"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if rec.Code != 200 || rec.Body.String() != "ok" {
		t.Fatalf("Expected pass-through, got %d %q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Errorf("Expected X-RateLimit-Limit 2, got %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "1" {
		t.Errorf("Expected X-RateLimit-Remaining 1, got %q", got)
	}
}

func TestRateLimit_DenialEnvelope(t *testing.T) {
	l := newLimiter(t, limiter.Options{
		Window:      time.Minute,
		MaxRequests: 1,
		Message:     "Slow down.",
	})
	h := RequestID(RateLimit(l, nil)(okHandler()))

	r := httptest.NewRequest("GET", "/api/events", nil)
	r.RemoteAddr = "1.2.3.4:80"
	r.Header.Set(RequestIDHeader, "req-42")

	h.ServeHTTP(httptest.NewRecorder(), r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Expected Retry-After 60, got %q", got)
	}

	var body envelope.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Denial body is not a valid envelope: %v", err)
	}
	if body.Type != "https://stagedoor.dev/errors/rate-limit-exceeded" {
		t.Errorf("Unexpected type URI: %q", body.Type)
	}
	if body.Status != 429 || body.Detail != "Slow down." {
		t.Errorf("Unexpected body: %+v", body)
	}
	if body.RetryAfter != 60 {
		t.Errorf("Expected retry_after 60, got %d", body.RetryAfter)
	}
	if body.Instance != "/api/events" || body.RequestID != "req-42" {
		t.Errorf("Instance/request id missing: %+v", body)
	}
}

func TestRateLimit_FailsOpenOnKeyError(t *testing.T) {
	l := newLimiter(t, limiter.Options{
		Window:      time.Minute,
		MaxRequests: 1,
		KeyFunc: func(ctx context.Context, r *http.Request) (string, error) {
			return "", limiter.ErrNoKey
		},
	})
	h := RateLimit(l, nil)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != 200 {
		t.Errorf("Expected fail-open pass-through, got %d", rec.Code)
	}
}

func TestRateLimit_SkipSuccessfulAccounting(t *testing.T) {
	l := newLimiter(t, limiter.Options{
		Window:                 time.Minute,
		MaxRequests:            1,
		SkipSuccessfulRequests: true,
	})
	h := RateLimit(l, nil)(okHandler())

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "1.2.3.4:80"

	// Every request succeeds, so none of them count against the window.
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code != 200 {
			t.Fatalf("Request %d should pass (uncounted successes), got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimit_FailedResponsesStillCount(t *testing.T) {
	l := newLimiter(t, limiter.Options{
		Window:                 time.Minute,
		MaxRequests:            1,
		SkipSuccessfulRequests: true,
	})
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	h := RateLimit(l, nil)(failing)

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "1.2.3.4:80"

	h.ServeHTTP(httptest.NewRecorder(), r)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Expected the counted failure to exhaust the window, got %d", rec.Code)
	}
}

func TestRateLimit_BypassedRequestGetsNoHeaders(t *testing.T) {
	l := newLimiter(t, limiter.Options{
		Window:        time.Minute,
		MaxRequests:   1,
		BypassAPIKeys: []string{"ops"},
	})
	h := RateLimit(l, nil)(okHandler())

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "1.2.3.4:80"
	r.Header.Set("X-API-Key", "ops")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if rec.Code != 200 {
		t.Fatalf("Expected bypass pass-through, got %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "" {
		t.Error("Expected no rate-limit headers on a bypassed request")
	}
}

func TestRequestID_GeneratesAndEchoes(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if seen == "" {
		t.Fatal("Expected a generated request id on the context")
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Error("Expected the response header to echo the context id")
	}
}
