package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedResponse is the unit stored in a ResponseCache.
type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
	StoredAt   time.Time   `json:"stored_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

// ResponseCache stores responses for cacheable GET endpoints under a TTL.
//
// Two implementations ship with the package: MemoryCache for single-instance
// deployments and tests, and RedisCache when several replicas should share
// one cache.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*CachedResponse, error)
	Set(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) error
}

// MemoryCache is an in-process TTL cache backed by a Go map. Expired entries
// are dropped on access.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*CachedResponse
}

// NewMemoryCache constructs an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*CachedResponse)}
}

// Get returns the cached response for key, or nil on a miss or expiry.
func (c *MemoryCache) Get(_ context.Context, key string) (*CachedResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.ExpiresAt) {
		delete(c.entries, key)
		return nil, nil
	}
	return entry, nil
}

// Set stores resp for key with the given TTL.
func (c *MemoryCache) Set(_ context.Context, key string, resp *CachedResponse, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	stored := *resp
	stored.StoredAt = now
	stored.ExpiresAt = now.Add(ttl)
	c.entries[key] = &stored
	return nil
}

// Flush drops every entry.
func (c *MemoryCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*CachedResponse)
}

// RedisCache stores responses in Redis so multiple replicas share one cache.
// Redis owns expiry; entries are written with the TTL attached.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache constructs a RedisCache over client. Keys are stored under
// prefix (default "httpcache:").
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "httpcache:"
	}
	return &RedisCache{client: client, prefix: prefix}
}

// Get returns the cached response for key, or nil on a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (*CachedResponse, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp CachedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Set stores resp for key; Redis drops it after ttl.
func (c *RedisCache) Set(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) error {
	now := time.Now()
	stored := *resp
	stored.StoredAt = now
	stored.ExpiresAt = now.Add(ttl)
	data, err := json.Marshal(&stored)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, data, ttl).Err()
}
