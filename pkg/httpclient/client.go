package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/stagedoor/apikit/pkg/logging"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultRetries    = 3
	defaultRetryDelay = 250 * time.Millisecond
	defaultUserAgent  = "apikit-httpclient/" + clientVersion
	clientVersion     = "1.0"

	// RequestIDHeader carries the per-request correlation id.
	RequestIDHeader = "X-Request-ID"
)

// Client issues outbound HTTP requests with per-attempt timeouts,
// exponential-backoff retries, and optional response caching. Transport and
// HTTP failures never cross the public contract raw: every error returned by
// Do is an *envelope.Error carrying a taxonomy kind.
type Client struct {
	baseURL     string
	http        *http.Client
	timeout     time.Duration
	retries     int
	retryDelay  time.Duration
	bearerToken string
	apiKey      string
	userAgent   string
	cache       ResponseCache
	throttle    *rate.Limiter
	logger      logging.Logger
}

// RequestOptions tunes one logical call. The zero value is valid.
type RequestOptions struct {
	// Headers are merged over the client defaults.
	Headers http.Header
	// Body is sent as the request body. The caller sets Content-Type.
	Body []byte
	// Timeout overrides the client's per-attempt timeout.
	Timeout time.Duration
	// Cacheable marks a GET endpoint for response caching.
	Cacheable bool
	// CacheTTL is how long a cached response stays valid (default 60s).
	CacheTTL time.Duration
	// CacheKey overrides the default method+URL cache key.
	CacheKey string
}

// Response is the successful outcome of a logical call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// RequestID is the correlation id sent with the request.
	RequestID string
	// FromCache reports that no network call was made.
	FromCache bool
	// CachedAt is set when FromCache is true.
	CachedAt time.Time
}

// New constructs a Client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{},
		timeout:    defaultTimeout,
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
		userAgent:  defaultUserAgent,
		logger:     logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, opts)
}

// Post issues a POST request.
func (c *Client) Post(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, opts)
}

// Do runs one logical call: cache lookup for cacheable GETs, then up to
// retries+1 attempts with exponential backoff. Failures with a status below
// 500 are terminal; network errors, per-attempt timeouts, and 5xx responses
// are retried until the budget runs out, after which the last failure is
// surfaced.
func (c *Client) Do(ctx context.Context, method, path string, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	url := c.baseURL + path
	requestID := uuid.NewString()

	cacheKey := opts.CacheKey
	if cacheKey == "" {
		cacheKey = method + " " + url
	}
	cacheable := opts.Cacheable && method == http.MethodGet && c.cache != nil

	if cacheable {
		cached, err := c.cache.Get(ctx, cacheKey)
		if err != nil {
			// A broken cache must not break the call.
			c.logger.Error("cache lookup failed", map[string]any{
				"key": cacheKey, "error": err.Error(),
			})
		}
		if cached != nil {
			return &Response{
				StatusCode: cached.StatusCode,
				Header:     cached.Header,
				Body:       cached.Body,
				RequestID:  requestID,
				FromCache:  true,
				CachedAt:   cached.StoredAt,
			}, nil
		}
	}

	if c.throttle != nil {
		if err := c.throttle.Wait(ctx); err != nil {
			return nil, transportError(method, url, err)
		}
	}

	timeout := c.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			// Backoff: retryDelay * 2^(attempt-1) between attempts.
			delay := c.retryDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, transportError(method, url, ctx.Err())
			}
		}

		resp, retryable, err := c.attempt(ctx, method, url, requestID, timeout, opts)
		if err == nil {
			if cacheable {
				if cerr := c.cache.Set(ctx, cacheKey, &CachedResponse{
					StatusCode: resp.StatusCode,
					Header:     resp.Header,
					Body:       resp.Body,
				}, cacheTTL(opts)); cerr != nil {
					c.logger.Error("cache store failed", map[string]any{
						"key": cacheKey, "error": cerr.Error(),
					})
				}
			}
			return resp, nil
		}

		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
		c.logger.Info("retrying request", map[string]any{
			"method": method, "url": url, "attempt": attempt + 1, "error": err.Error(),
		})
	}
	return nil, lastErr
}

// attempt runs a single HTTP exchange. The second return reports whether the
// failure is retryable.
func (c *Client) attempt(ctx context.Context, method, url, requestID string, timeout time.Duration, opts *RequestOptions) (*Response, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if len(opts.Body) > 0 {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, url, body)
	if err != nil {
		return nil, false, transportError(method, url, err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, requestID)
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	for key, values := range opts.Headers {
		req.Header[key] = values
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		// Network failure or per-attempt timeout: eligible for retry as long
		// as the parent context is still live.
		return nil, true, transportError(method, url, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, true, transportError(method, url, err)
	}

	if httpResp.StatusCode >= 400 {
		return nil, httpResp.StatusCode >= 500, statusError(method, url, httpResp.StatusCode)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		RequestID:  requestID,
	}, false, nil
}

func cacheTTL(opts *RequestOptions) time.Duration {
	if opts.CacheTTL > 0 {
		return opts.CacheTTL
	}
	return time.Minute
}
