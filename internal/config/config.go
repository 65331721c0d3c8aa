// Package config centralizes environment-driven configuration for the
// example server. A .env file is honored when present; real environment
// variables win over it.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string `validate:"required"`
	JWTSecret   string
	Limiter     LimiterConfig `validate:"required"`
	AuthLimiter LimiterConfig `validate:"required"`
	Client      ClientConfig  `validate:"required"`
	Redis       RedisConfig
}

// LimiterConfig describes one rate-limit profile.
type LimiterConfig struct {
	Strategy      string        `validate:"required,oneof=fixed_window sliding_window token_bucket"`
	Window        time.Duration `validate:"gt=0"`
	MaxRequests   int64         `validate:"gte=1"`
	BypassAPIKeys []string
	BypassIPs     []string
	TrustProxy    bool
}

// ClientConfig describes the outbound HTTP client.
type ClientConfig struct {
	BaseURL    string        `validate:"required,url"`
	Timeout    time.Duration `validate:"gt=0"`
	Retries    int           `validate:"gte=0"`
	RetryDelay time.Duration `validate:"gt=0"`
	AuthType   string        `validate:"omitempty,oneof=bearer apikey"`
	Token      string
	APIKey     string
}

// RedisConfig enables the shared response cache.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from the environment (and an optional .env file)
// and validates it.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:      getString("SERVER_ADDR", ":8080"),
		JWTSecret: getString("JWT_SECRET", ""),
		Limiter: LimiterConfig{
			Strategy:      getString("RATE_LIMIT_STRATEGY", "token_bucket"),
			Window:        time.Duration(getInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
			MaxRequests:   getInt64("RATE_LIMIT_MAX_REQUESTS", 100),
			BypassAPIKeys: getList("RATE_LIMIT_BYPASS_KEYS"),
			BypassIPs:     getList("RATE_LIMIT_BYPASS_IPS"),
			TrustProxy:    getBool("RATE_LIMIT_TRUST_PROXY", false),
		},
		AuthLimiter: LimiterConfig{
			Strategy:    getString("AUTH_RATE_LIMIT_STRATEGY", "fixed_window"),
			Window:      time.Duration(getInt("AUTH_RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
			MaxRequests: getInt64("AUTH_RATE_LIMIT_MAX_REQUESTS", 5),
		},
		Client: ClientConfig{
			BaseURL:    getString("CLIENT_BASE_URL", "http://localhost:9090"),
			Timeout:    time.Duration(getInt("CLIENT_TIMEOUT_MS", 10000)) * time.Millisecond,
			Retries:    getInt("CLIENT_RETRIES", 3),
			RetryDelay: time.Duration(getInt("CLIENT_RETRY_DELAY_MS", 250)) * time.Millisecond,
			AuthType:   getString("CLIENT_AUTH_TYPE", ""),
			Token:      getString("CLIENT_TOKEN", ""),
			APIKey:     getString("CLIENT_API_KEY", ""),
		},
		Redis: RedisConfig{
			Enabled:  getBool("REDIS_ENABLED", false),
			Addr:     getString("REDIS_ADDR", "localhost:6379"),
			Password: getString("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
