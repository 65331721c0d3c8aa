package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestClient_CacheShortCircuit(t *testing.T) {
	// Two hits inside the TTL: one network call. A hit after expiry: two.
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithCache(NewMemoryCache()))
	opts := &RequestOptions{Cacheable: true, CacheTTL: 100 * time.Millisecond}

	first, err := c.Get(context.Background(), "/artists", opts)
	if err != nil {
		t.Fatalf("First get failed: %v", err)
	}
	if first.FromCache {
		t.Error("First response should not come from cache")
	}

	second, err := c.Get(context.Background(), "/artists", opts)
	if err != nil {
		t.Fatalf("Second get failed: %v", err)
	}
	if !second.FromCache || string(second.Body) != "fresh" {
		t.Errorf("Second response should be served from cache: %+v", second)
	}
	if calls.Load() != 1 {
		t.Fatalf("Expected exactly 1 network call within the TTL, got %d", calls.Load())
	}

	time.Sleep(120 * time.Millisecond)

	third, err := c.Get(context.Background(), "/artists", opts)
	if err != nil {
		t.Fatalf("Third get failed: %v", err)
	}
	if third.FromCache {
		t.Error("Response after TTL expiry should not come from cache")
	}
	if calls.Load() != 2 {
		t.Errorf("Expected a second network call after expiry, got %d", calls.Load())
	}
}

func TestClient_CacheKeyIncludesURL(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithCache(NewMemoryCache()))
	opts := &RequestOptions{Cacheable: true}

	c.Get(context.Background(), "/a", opts)
	resp, _ := c.Get(context.Background(), "/b", opts)
	if resp.FromCache {
		t.Error("Different paths must not share a cache entry")
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 network calls, got %d", calls.Load())
	}
}

func TestClient_NonCacheableGetSkipsCache(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithCache(NewMemoryCache()))

	c.Get(context.Background(), "/", nil)
	c.Get(context.Background(), "/", nil)
	if calls.Load() != 2 {
		t.Errorf("Expected uncached GETs to always dial, got %d calls", calls.Load())
	}
}

func TestClient_PostNeverCached(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithCache(NewMemoryCache()))
	opts := &RequestOptions{Cacheable: true}

	c.Post(context.Background(), "/", opts)
	c.Post(context.Background(), "/", opts)
	if calls.Load() != 2 {
		t.Errorf("Expected POSTs to bypass the cache, got %d calls", calls.Load())
	}
}

func TestMemoryCache_ExpiryOnGet(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	cache.Set(ctx, "k", &CachedResponse{StatusCode: 200, Body: []byte("v")}, 10*time.Millisecond)

	if entry, _ := cache.Get(ctx, "k"); entry == nil {
		t.Fatal("Expected a hit inside the TTL")
	}

	time.Sleep(20 * time.Millisecond)
	if entry, _ := cache.Get(ctx, "k"); entry != nil {
		t.Error("Expected the expired entry to be dropped")
	}
}

func TestRedisCache_Integration(t *testing.T) {
	opts := &redis.Options{Addr: "localhost:6379"}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Skipping integration test: Redis not available (%v)", err)
	}
	defer client.Close()

	cache := NewRedisCache(client, "apikit_test:")
	key := t.Name() + time.Now().Format(time.RFC3339Nano)

	if err := cache.Set(ctx, key, &CachedResponse{StatusCode: 200, Body: []byte("v")}, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	entry, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry == nil || string(entry.Body) != "v" || entry.StatusCode != 200 {
		t.Errorf("Unexpected cached entry: %+v", entry)
	}

	if entry, _ := cache.Get(ctx, key+"_missing"); entry != nil {
		t.Error("Expected a miss for an unknown key")
	}
}
