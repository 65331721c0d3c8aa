package httpclient

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/stagedoor/apikit/pkg/logging"
)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL prefixes every request path with base.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// WithTimeout sets the per-attempt timeout (default 10s).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetries sets how many times a retryable failure is retried (default 3;
// total attempts are retries+1).
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithRetryDelay sets the base backoff delay; attempt n waits delay*2^n
// (default 250ms).
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithBearerToken sends an Authorization: Bearer header on every request.
func WithBearerToken(token string) Option {
	return func(c *Client) { c.bearerToken = token }
}

// WithAPIKey sends an X-API-Key header on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithCache enables response caching for requests marked cacheable.
func WithCache(cache ResponseCache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithThrottle smooths outbound traffic to rps requests per second with the
// given burst, applied before the first attempt of each logical call.
func WithThrottle(rps float64, burst int) Option {
	return func(c *Client) { c.throttle = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithLogger sets the log side channel (default: discard).
func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient substitutes the transport primitive, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}
