// Package server wires configuration, the catalog, the cache and the HTTP surface
// into a runnable process.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/onnwee/storefront-cache/internal/api"
	"github.com/onnwee/storefront-cache/internal/cache"
	"github.com/onnwee/storefront-cache/internal/cachedapi"
	"github.com/onnwee/storefront-cache/internal/catalog"
	"github.com/onnwee/storefront-cache/internal/circuitbreaker"
	"github.com/onnwee/storefront-cache/internal/config"
	"github.com/onnwee/storefront-cache/internal/errorreporting"
	"github.com/onnwee/storefront-cache/internal/logger"
	"github.com/onnwee/storefront-cache/internal/metrics"
	"github.com/onnwee/storefront-cache/internal/middleware"
	"github.com/onnwee/storefront-cache/internal/retry"
	"github.com/onnwee/storefront-cache/internal/secrets"
	"github.com/onnwee/storefront-cache/internal/tracing"
)

var log = logger.For("server")

const shutdownTimeout = 15 * time.Second

// Server owns every long-lived component of the process.
type Server struct {
	cfg       *config.Config
	catalog   catalog.Backend
	store     *cache.Store
	service   *cachedapi.Service
	collector *metrics.Collector
	limiter   *middleware.RateLimiter
	http      *http.Server
}

// ValidateConfig checks that the secrets the selected backends need are present and
// well formed.
func ValidateConfig(cfg *config.Config) error {
	switch cfg.CacheBackend {
	case config.CacheBackendMemory, config.CacheBackendRedis:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}
	if err := secrets.ValidateRequired(cfg.RequiredSecrets()); err != nil {
		return err
	}
	switch cfg.BackingStore {
	case config.BackingStorePostgres:
		return secrets.ValidateURL("DATABASE_URL", cfg.DatabaseURL, "postgres", "postgresql")
	case config.BackingStoreSupabase:
		return secrets.ValidateURL("SUPABASE_URL", cfg.SupabaseURL, "https", "http")
	default:
		return fmt.Errorf("unknown BACKING_STORE %q", cfg.BackingStore)
	}
}

// InitObservability starts tracing and error reporting. The returned function flushes
// both and is safe to call when either is disabled.
func InitObservability(ctx context.Context, cfg *config.Config, service, version string) (func(context.Context), error) {
	shutdownTracing, err := tracing.Init(ctx, tracing.Options{
		Enabled:     cfg.OTELEnabled,
		ServiceName: service,
		Version:     version,
		Endpoint:    cfg.OTELEndpoint,
		SampleRate:  cfg.OTELSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	if err := errorreporting.Init(errorreporting.Options{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     cfg.SentryRelease,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		// Error reporting is optional; run without it.
		log.Warn(ctx, "sentry disabled", "error", err)
	}
	return func(ctx context.Context) {
		if err := shutdownTracing(ctx); err != nil {
			log.Warn(ctx, "tracing shutdown failed", "error", err)
		}
		errorreporting.Flush(2 * time.Second)
	}, nil
}

// OpenCatalog connects the configured backing store and wraps it with retries, a
// per-attempt timeout and a circuit breaker.
func OpenCatalog(cfg *config.Config) (catalog.Backend, error) {
	var (
		backend catalog.Backend
		err     error
	)
	switch cfg.BackingStore {
	case config.BackingStoreSupabase:
		backend, err = catalog.NewSupabaseBackend(cfg.SupabaseURL, cfg.SupabaseKey)
	default:
		backend, err = catalog.OpenPostgres(cfg.DatabaseURL)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s catalog: %w", cfg.BackingStore, err)
	}

	policy, ok := retry.Preset(cfg.BackingRetryPreset)
	if !ok {
		log.Warn(context.Background(), "unknown retry preset, using standard", "preset", cfg.BackingRetryPreset)
	}
	return catalog.NewResilient(backend, catalog.ResilientConfig{
		Retry:   policy,
		Timeout: cfg.BackingTimeout,
		Breaker: circuitbreaker.Config{
			Name:             "catalog",
			FailureThreshold: cfg.BreakerFailureThreshold,
			SuccessThreshold: cfg.BreakerSuccessThreshold,
			Timeout:          cfg.BreakerTimeout,
		},
	}), nil
}

// OpenCacheBackend builds the configured cache medium without dialing it.
func OpenCacheBackend(cfg *config.Config) (cache.Backend, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		return cache.NewRedisBackend(cache.RedisConfig{
			Address:    cfg.RedisAddr,
			Password:   cfg.RedisPassword,
			DB:         cfg.RedisDB,
			KeyPrefix:  cfg.RedisKeyPrefix,
			MaxRetries: cfg.RedisMaxRetries,
		})
	default:
		return cache.NewMemoryBackend(cfg.CacheMaxSizeMB, cfg.CacheMaxEntries)
	}
}

// OpenService opens the catalog and the cache store and returns the read-through
// service over them. An unreachable cache medium is not an error: the store starts
// degraded and reads go straight to the catalog.
func OpenService(ctx context.Context, cfg *config.Config) (*cachedapi.Service, catalog.Backend, error) {
	cat, err := OpenCatalog(cfg)
	if err != nil {
		return nil, nil, err
	}
	backend, err := OpenCacheBackend(cfg)
	if err != nil {
		_ = cat.Close()
		return nil, nil, fmt.Errorf("open %s cache: %w", cfg.CacheBackend, err)
	}
	if err := cat.Ping(ctx); err != nil {
		log.Warn(ctx, "catalog not reachable yet", "backing_store", cfg.BackingStore, "error", err)
	}
	store := cache.NewStore(backend, cache.WithOpTimeout(cfg.CacheOpTimeout))
	store.Open(ctx)

	log.Info(ctx, "storefront cache ready",
		"cache_backend", backend.Name(),
		"cache_healthy", store.Healthy(),
		"backing_store", cfg.BackingStore,
		"redis_addr", secrets.MaskAddr(cfg.RedisAddr),
		"database_url", secrets.MaskURL(cfg.DatabaseURL),
		"supabase_key", secrets.Mask(cfg.SupabaseKey),
	)
	return cachedapi.NewService(store, cat), cat, nil
}

// New builds a Server from cfg.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	svc, cat, err := OpenService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newServer(cfg, svc, cat), nil
}

func newServer(cfg *config.Config, svc *cachedapi.Service, cat catalog.Backend) *Server {
	s := &Server{
		cfg:       cfg,
		catalog:   cat,
		store:     svc.Store(),
		service:   svc,
		collector: metrics.NewCollector(svc.Store(), cfg.MetricsInterval),
	}
	if cfg.EnableRateLimit {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimitGlobal, cfg.RateLimitGlobalBurst, cfg.RateLimitPerIP, cfg.RateLimitPerIPBurst)
	}
	s.http = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Wrap(api.NewRouter(svc, cfg.AdminAPIToken), s.limiter),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run serves HTTP and runs the background loops until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.store.Monitor(bgCtx, s.cfg.CacheHealthInterval)
	go s.collector.Start(bgCtx)

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "HTTP server listening", "addr", s.cfg.HTTPAddr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			s.close(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "HTTP shutdown failed", "error", err)
	}
	s.close(shutdownCtx)
	return nil
}

// close releases everything except the HTTP listener.
func (s *Server) close(ctx context.Context) {
	s.collector.Stop()
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if err := s.store.Close(); err != nil {
		log.Warn(ctx, "cache close failed", "error", err)
	}
	if err := s.catalog.Close(); err != nil {
		log.Warn(ctx, "catalog close failed", "error", err)
	}
}
