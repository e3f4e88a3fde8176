package config

import (
	"os"
	"strings"
	"time"

	"github.com/onnwee/storefront-cache/internal/utils"
)

// Cache medium selectors.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Backing store selectors.
const (
	BackingStorePostgres = "postgres"
	BackingStoreSupabase = "supabase"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	HTTPAddr      string
	AdminAPIToken string
	// Cache medium
	CacheBackend        string        // memory or redis
	CacheMaxSizeMB      int64         // ristretto cost budget
	CacheMaxEntries     int64         // ristretto counter sizing hint
	CacheOpTimeout      time.Duration // upper bound for a single medium call
	CacheHealthInterval time.Duration // how often the medium is pinged
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	RedisKeyPrefix      string
	RedisMaxRetries     int
	// Backing store
	BackingStore       string // postgres or supabase
	DatabaseURL        string
	SupabaseURL        string
	SupabaseKey        string
	BackingTimeout     time.Duration
	BackingRetryPreset string // quick, standard, aggressive, conservative
	// Circuit breaker around the backing store
	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerTimeout          time.Duration
	// Security settings
	RateLimitGlobal      float64 // requests per second globally
	RateLimitGlobalBurst int     // burst size for global rate limit
	RateLimitPerIP       float64 // requests per second per IP
	RateLimitPerIPBurst  int     // burst size for per-IP rate limit
	EnableRateLimit      bool
	// Observability settings
	LogLevel          string // log level: debug, info, warn, error
	MetricsInterval   time.Duration
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string  // Sentry DSN for error reporting
	SentryEnvironment string  // Sentry environment (dev, staging, production)
	SentryRelease     string  // Sentry release version
	SentrySampleRate  float64 // Sentry error sampling rate (0.0 to 1.0)
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	cached = &Config{
		HTTPAddr:      utils.GetEnv("HTTP_ADDR", ":8000"),
		AdminAPIToken: strings.TrimSpace(os.Getenv("ADMIN_API_TOKEN")),

		CacheBackend:        strings.ToLower(utils.GetEnv("CACHE_BACKEND", CacheBackendMemory)),
		CacheMaxSizeMB:      int64(utils.GetEnvAsInt("CACHE_MAX_SIZE_MB", 64)),
		CacheMaxEntries:     int64(utils.GetEnvAsInt("CACHE_MAX_ENTRIES", 10000)),
		CacheOpTimeout:      utils.GetEnvAsMillis("CACHE_OP_TIMEOUT_MS", 250),
		CacheHealthInterval: utils.GetEnvAsMillis("CACHE_HEALTH_INTERVAL_MS", 15000),
		RedisAddr:           utils.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             utils.GetEnvAsInt("REDIS_DB", 0),
		RedisKeyPrefix:      strings.TrimSpace(os.Getenv("REDIS_KEY_PREFIX")),
		RedisMaxRetries:     utils.GetEnvAsInt("REDIS_MAX_RETRIES", 3),

		BackingStore:       strings.ToLower(utils.GetEnv("BACKING_STORE", BackingStorePostgres)),
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SupabaseURL:        strings.TrimSpace(os.Getenv("SUPABASE_URL")),
		SupabaseKey:        strings.TrimSpace(os.Getenv("SUPABASE_KEY")),
		BackingTimeout:     utils.GetEnvAsMillis("BACKING_TIMEOUT_MS", 10000),
		BackingRetryPreset: strings.ToLower(utils.GetEnv("BACKING_RETRY_PRESET", "standard")),

		BreakerFailureThreshold: utils.GetEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerSuccessThreshold: utils.GetEnvAsInt("BREAKER_SUCCESS_THRESHOLD", 2),
		BreakerTimeout:          utils.GetEnvAsMillis("BREAKER_TIMEOUT_MS", 60000),

		RateLimitGlobal:      utils.GetEnvAsFloat("RATE_LIMIT_GLOBAL", 100.0),
		RateLimitGlobalBurst: utils.GetEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 200),
		RateLimitPerIP:       utils.GetEnvAsFloat("RATE_LIMIT_PER_IP", 10.0),
		RateLimitPerIPBurst:  utils.GetEnvAsInt("RATE_LIMIT_PER_IP_BURST", 20),
		EnableRateLimit:      utils.GetEnvAsBool("ENABLE_RATE_LIMIT", true),

		LogLevel:          strings.ToLower(utils.GetEnv("LOG_LEVEL", "info")),
		MetricsInterval:   utils.GetEnvAsMillis("METRICS_INTERVAL_MS", 15000),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
		SentrySampleRate:  utils.GetEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0),
	}
	if cached.SentryEnvironment == "" {
		if env := os.Getenv("ENV"); env != "" {
			cached.SentryEnvironment = env
		} else {
			cached.SentryEnvironment = "development"
		}
	}
	if cached.CacheOpTimeout <= 0 {
		cached.CacheOpTimeout = 250 * time.Millisecond
	}

	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }

// RequiredSecrets returns the environment values the selected backends cannot run without,
// keyed by variable name.
func (c *Config) RequiredSecrets() map[string]string {
	required := map[string]string{}
	switch c.BackingStore {
	case BackingStoreSupabase:
		required["SUPABASE_URL"] = c.SupabaseURL
		required["SUPABASE_KEY"] = c.SupabaseKey
	default:
		required["DATABASE_URL"] = c.DatabaseURL
	}
	if c.CacheBackend == CacheBackendRedis {
		required["REDIS_ADDR"] = c.RedisAddr
	}
	return required
}
