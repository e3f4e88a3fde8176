// Command warmcache pre-populates the product entries of a shared cache medium so the
// first requests after a deploy are hits.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/storefront-cache/internal/config"
	"github.com/onnwee/storefront-cache/internal/logger"
	"github.com/onnwee/storefront-cache/internal/server"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	if cfg.CacheBackend == config.CacheBackendMemory {
		logger.Warn("CACHE_BACKEND=memory: warmed entries vanish when this process exits")
	}
	if err := server.ValidateConfig(cfg); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flush, err := server.InitObservability(ctx, cfg, "storefront-warmcache", version)
	if err != nil {
		logger.Error("observability init failed", "error", err)
		os.Exit(1)
	}

	os.Exit(run(ctx, cfg, flush))
}

func run(ctx context.Context, cfg *config.Config, flush func(context.Context)) int {
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		flush(shutdownCtx)
	}()

	svc, cat, err := server.OpenService(ctx, cfg)
	if err != nil {
		logger.Error("open service failed", "error", err)
		return 1
	}
	defer cat.Close()
	defer svc.Store().Close()

	if !svc.Store().Healthy() {
		logger.Error("cache medium unreachable, nothing to warm")
		return 1
	}

	start := time.Now()
	n, err := svc.Warm(ctx)
	if err != nil {
		logger.Error("cache warm failed", "error", err, "warmed", n)
		return 1
	}
	logger.Info("cache warm complete", "products", n, "duration", time.Since(start).String())
	return 0
}
