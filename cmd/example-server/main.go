package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/stagedoor/apikit/internal/config"
	"github.com/stagedoor/apikit/pkg/envelope"
	"github.com/stagedoor/apikit/pkg/httpclient"
	"github.com/stagedoor/apikit/pkg/limiter"
	"github.com/stagedoor/apikit/pkg/logging"
	"github.com/stagedoor/apikit/pkg/middleware"
)

func main() {
	log := logging.NewStdLogger(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server exited", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run(cfg config.Config, log logging.Logger) error {
	// One store shared by the fixed-window profiles so a single janitor can
	// sweep it; its lifecycle belongs to this function.
	store := limiter.NewStore(nil)
	janitor := limiter.NewJanitor(store, 5*time.Minute)
	janitor.Start()
	defer janitor.Stop()

	apiLimiter, err := buildLimiter(cfg.Limiter, cfg.JWTSecret, store)
	if err != nil {
		return fmt.Errorf("api limiter: %w", err)
	}
	authLimiter, err := buildLimiter(cfg.AuthLimiter, cfg.JWTSecret, store)
	if err != nil {
		return fmt.Errorf("auth limiter: %w", err)
	}

	var cache httpclient.ResponseCache = httpclient.NewMemoryCache()
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		cache = httpclient.NewRedisCache(rdb, "")
		log.Info("using redis response cache", map[string]any{"addr": cfg.Redis.Addr})
	}

	clientOpts := []httpclient.Option{
		httpclient.WithBaseURL(cfg.Client.BaseURL),
		httpclient.WithTimeout(cfg.Client.Timeout),
		httpclient.WithRetries(cfg.Client.Retries),
		httpclient.WithRetryDelay(cfg.Client.RetryDelay),
		httpclient.WithCache(cache),
		httpclient.WithLogger(log),
	}
	switch cfg.Client.AuthType {
	case "bearer":
		clientOpts = append(clientOpts, httpclient.WithBearerToken(cfg.Client.Token))
	case "apikey":
		clientOpts = append(clientOpts, httpclient.WithAPIKey(cfg.Client.APIKey))
	}
	upstream := httpclient.New(clientOpts...)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(authLimiter, log))
		r.Post("/login", func(w http.ResponseWriter, req *http.Request) {
			envelope.WriteSuccess(w, http.StatusOK,
				map[string]string{"status": "authenticated"},
				middleware.GetRequestID(req.Context()))
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(apiLimiter, log))

		r.Get("/ping", func(w http.ResponseWriter, req *http.Request) {
			envelope.WriteSuccess(w, http.StatusOK,
				map[string]string{"message": "pong"},
				middleware.GetRequestID(req.Context()))
		})

		// Proxies a read through the retrying, caching upstream client.
		r.Get("/venues", func(w http.ResponseWriter, req *http.Request) {
			requestID := middleware.GetRequestID(req.Context())
			resp, err := upstream.Get(req.Context(), "/venues", &httpclient.RequestOptions{
				Cacheable: true,
				CacheTTL:  30 * time.Second,
			})
			if err != nil {
				envelope.WriteError(w, err, requestID, req.URL.Path)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(resp.StatusCode)
			w.Write(resp.Body)
		})
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", map[string]any{"addr": cfg.Addr})
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", map[string]any{"signal": sig.String()})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// buildLimiter assembles one limiter profile from config. Authenticated
// requests are keyed by JWT subject when a secret is configured, falling back
// to client IP.
func buildLimiter(cfg config.LimiterConfig, jwtSecret string, store *limiter.Store) (*limiter.Limiter, error) {
	name, err := limiter.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	var strategy limiter.Strategy
	switch name {
	case limiter.StrategyFixedWindow:
		strategy = limiter.NewFixedWindow(store, cfg.MaxRequests, cfg.Window)
	case limiter.StrategySlidingWindow:
		strategy = limiter.NewSlidingWindow(cfg.MaxRequests, cfg.Window, nil)
	case limiter.StrategyTokenBucket:
		strategy = limiter.NewTokenBucket(cfg.MaxRequests, cfg.Window, cfg.MaxRequests, nil)
	}

	keyFn := limiter.IPKey(cfg.TrustProxy)
	if jwtSecret != "" {
		keyFn = limiter.FirstKey(limiter.JWTSubjectKey([]byte(jwtSecret)), keyFn)
	}

	return limiter.New(limiter.Options{
		Strategy:      strategy,
		KeyFunc:       keyFn,
		BypassAPIKeys: cfg.BypassAPIKeys,
		BypassIPs:     cfg.BypassIPs,
		TrustProxy:    cfg.TrustProxy,
	})
}
