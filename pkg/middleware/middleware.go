// Package middleware wires the limiter and envelope packages into net/http
// handler chains.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/stagedoor/apikit/pkg/envelope"
	"github.com/stagedoor/apikit/pkg/limiter"
	"github.com/stagedoor/apikit/pkg/logging"
)

type ctxKey int

const requestIDKey ctxKey = 0

// RequestIDHeader carries the correlation id on requests and responses.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns each request a correlation id (reusing an inbound
// X-Request-ID when present), stores it on the context, and echoes it on the
// response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the correlation id stored by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RateLimit guards a handler chain with l. Denied requests are answered with
// a 429 error envelope and the rate-limit headers; allowed requests proceed
// and are fed back into the limiter's skip-successful/failed accounting once
// their status is known. Limiter errors fail open with a log line: dropping
// traffic because a key generator broke protects nothing.
func RateLimit(l *limiter.Limiter, log logging.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logging.NopLogger{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Check(r.Context(), r)
			if err != nil {
				log.Error("rate limit check failed", map[string]any{
					"path": r.URL.Path, "error": err.Error(),
				})
				next.ServeHTTP(w, r)
				return
			}

			for key, values := range l.Headers(res.Decision) {
				w.Header()[key] = values
			}

			if !res.Allowed {
				denial := envelope.New(envelope.KindRateLimit, l.Message())
				denial.RetryAfter = int(res.RetryAfter.Seconds())
				envelope.WriteError(w, denial, GetRequestID(r.Context()), r.URL.Path)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			l.Observe(res.Key, rec.status)
		})
	}
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}
