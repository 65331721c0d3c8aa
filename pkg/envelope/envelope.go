// Package envelope builds the uniform success/error wrappers every response
// in this toolkit is serialized as. Error bodies follow the RFC 7807 problem
// shape (type, title, status, detail, instance) extended with a timestamp,
// a request id, and optional field-level validation errors. A response is
// either a success envelope or an error envelope, never both.
package envelope

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a failure. Each kind maps to a stable type URI, a human
// title, and a default HTTP status via the registry below.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindAuthentication  Kind = "authentication"
	KindAuthorization   Kind = "authorization"
	KindNotFound        Kind = "not_found"
	KindRateLimit       Kind = "rate_limit"
	KindServerError     Kind = "server_error"
	KindExternalService Kind = "external_service"
)

type registryEntry struct {
	Type   string
	Title  string
	Status int
}

// The taxonomy table. Type URIs are stable identifiers; changing one is a
// breaking API change.
var registry = map[Kind]registryEntry{
	KindValidation:      {"https://stagedoor.dev/errors/validation", "Validation Failed", 422},
	KindAuthentication:  {"https://stagedoor.dev/errors/authentication", "Authentication Required", 401},
	KindAuthorization:   {"https://stagedoor.dev/errors/authorization", "Forbidden", 403},
	KindNotFound:        {"https://stagedoor.dev/errors/not-found", "Not Found", 404},
	KindRateLimit:       {"https://stagedoor.dev/errors/rate-limit-exceeded", "Rate Limit Exceeded", 429},
	KindServerError:     {"https://stagedoor.dev/errors/server-error", "Internal Server Error", 500},
	KindExternalService: {"https://stagedoor.dev/errors/external-service", "Upstream Service Error", 502},
}

// Version is the API version stamped into success metadata.
const Version = "1.0"

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// Error is the internal failure type the builders understand. It wraps an
// optional cause that is logged but never serialized.
type Error struct {
	Kind       Kind
	Detail     string
	RetryAfter int // seconds; meaningful for KindRateLimit
	Fields     []FieldError
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error of the given kind.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap constructs an Error carrying a cause for the log side channel.
func Wrap(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// Status returns the default HTTP status for kind; unknown kinds report 500.
func Status(kind Kind) int {
	if entry, ok := registry[kind]; ok {
		return entry.Status
	}
	return 500
}

// ErrorBody is the serialized error envelope.
type ErrorBody struct {
	Type       string       `json:"type"`
	Title      string       `json:"title"`
	Status     int          `json:"status"`
	Detail     string       `json:"detail"`
	Instance   string       `json:"instance"`
	Timestamp  time.Time    `json:"timestamp"`
	RequestID  string       `json:"request_id"`
	RetryAfter int          `json:"retry_after,omitempty"`
	Errors     []FieldError `json:"errors,omitempty"`
}

// Pagination is optional success metadata for list responses.
type Pagination struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

// CacheInfo reports whether a response was served from cache and for how
// long it remains valid.
type CacheInfo struct {
	Hit       bool      `json:"hit"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Meta is the success envelope metadata block.
type Meta struct {
	RequestID  string      `json:"request_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Version    string      `json:"version"`
	Status     string      `json:"status"`
	Message    string      `json:"message,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Cache      *CacheInfo  `json:"cache,omitempty"`
}

// Success is the serialized success envelope.
type Success struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// NewSuccess builds a success envelope around data. An empty requestID gets a
// generated uuid; the timestamp is the only non-deterministic field beyond
// that.
func NewSuccess(data any, requestID string) Success {
	return Success{
		Data: data,
		Meta: Meta{
			RequestID: orNewID(requestID),
			Timestamp: time.Now().UTC(),
			Version:   Version,
			Status:    "success",
		},
	}
}

// NewError builds an error envelope from err. An *Error picks its registry
// row and passes field errors through unchanged; anything else becomes a
// server_error with a generic detail so internals never leak into responses.
func NewError(err error, requestID, instance string) ErrorBody {
	kind := KindServerError
	detail := "An unexpected error occurred."
	var retryAfter int
	var fields []FieldError

	var e *Error
	if errors.As(err, &e) {
		kind = e.Kind
		detail = e.Detail
		retryAfter = e.RetryAfter
		fields = e.Fields
	}

	entry, ok := registry[kind]
	if !ok {
		entry = registry[KindServerError]
	}
	return ErrorBody{
		Type:       entry.Type,
		Title:      entry.Title,
		Status:     entry.Status,
		Detail:     detail,
		Instance:   instance,
		Timestamp:  time.Now().UTC(),
		RequestID:  orNewID(requestID),
		RetryAfter: retryAfter,
		Errors:     fields,
	}
}

func orNewID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
