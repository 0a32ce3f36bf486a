package app

import (
	"os"
	"strconv"
	"time"

	"github.com/proofile/authcore/internal/auth/service"
	"github.com/proofile/authcore/pkg/jwtx"
)

type Config struct {
	Issuer        string // Issuer claim for tokens (default: proofile-auth)
	SigningSecret string // Required: HS256 signing secret

	AccessTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTTL time.Duration // Refresh token lifetime (default: 7d)

	CacheTTL     time.Duration // Session cache TTL (default: 5s)
	CacheMaxSize int           // Session cache size bound (default: 4096)

	ThrottleMax        int64         // Failed logins before lockout (default: 5)
	ThrottleWindow     time.Duration // Lockout window (default: 15m)
	ThrottleFailClosed bool          // Deny logins when the counter store is down (default: false)

	RateLimitMax    int64         // Default requests per window per (client, route) (default: 60)
	RateLimitWindow time.Duration // Sliding window length (default: 1m)

	CounterBackend string // Counter store driver: memory or redis (default: memory)
	RedisAddr      string // Redis address for the redis backend (default: localhost:6379)
	RedisPassword  string // Optional Redis password

	DatabaseFile  string        // Path to SQLite database file (default: ./auth.db)
	CSRFDisabled  bool          // Skip CSRF checks entirely (tests only)
	SecureCookies bool          // Mark session cookies Secure (default: true outside dev)
	Env           string        // Environment (dev, staging, prod) (default: dev)
	LogLevel      string        // Log level (debug, info, warn, error) (default: info)
	LogFormat     string        // Log format (json, text) (default: json)
	Port          int           // HTTP server port (default: 8080)
	ShutdownGrace time.Duration // Graceful shutdown timeout (default: 10s)
	SweepInterval time.Duration // Session cache sweep interval (default: 30s)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:        getEnvOrDefault("AUTH_ISSUER", "proofile-auth"),
		SigningSecret: os.Getenv("AUTH_SIGNING_SECRET"),

		AccessTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTTL),
		RefreshTTL: getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTTL),

		CacheTTL:     getEnvDurationOrDefault("AUTH_CACHE_TTL", service.DefaultCacheTTL),
		CacheMaxSize: getEnvIntOrDefault("AUTH_CACHE_MAX_SIZE", service.DefaultCacheMaxSize),

		ThrottleMax:        int64(getEnvIntOrDefault("AUTH_THROTTLE_MAX", service.DefaultThrottleMax)),
		ThrottleWindow:     getEnvDurationOrDefault("AUTH_THROTTLE_WINDOW", service.DefaultThrottleWindow),
		ThrottleFailClosed: getEnvBoolOrDefault("AUTH_THROTTLE_FAIL_CLOSED", false),

		RateLimitMax:    int64(getEnvIntOrDefault("RATELIMIT_DEFAULT_REQUESTS", 60)),
		RateLimitWindow: getEnvDurationOrDefault("RATELIMIT_DEFAULT_WINDOW", time.Minute),

		CounterBackend: getEnvOrDefault("COUNTER_BACKEND", "memory"),
		RedisAddr:      getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),

		DatabaseFile:  getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		CSRFDisabled:  getEnvBoolOrDefault("AUTH_CSRF_DISABLED", false),
		Env:           getEnvOrDefault("ENV", "dev"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:     getEnvOrDefault("LOG_FORMAT", "json"),
		Port:          getEnvIntOrDefault("PORT", 8080),
		ShutdownGrace: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		SweepInterval: getEnvDurationOrDefault("AUTH_SWEEP_INTERVAL", 30*time.Second),
	}

	cfg.SecureCookies = getEnvBoolOrDefault("AUTH_SECURE_COOKIES", cfg.Env != "dev")

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Fall back to integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
