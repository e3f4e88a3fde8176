package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/onnwee/storefront-cache/internal/apierr"
)

// HealthChecker reports whether the cache medium is reachable.
type HealthChecker interface {
	Healthy() bool
}

// Health returns a JSON payload indicating the API is alive. A degraded cache still
// answers 200: reads fall through to the catalog.
func Health(c HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cacheStatus := "ok"
		if !c.Healthy() {
			cacheStatus = "degraded"
		}
		writeJSON(w, r, http.StatusOK, map[string]string{
			"status": "ok",
			"cache":  cacheStatus,
		})
	}
}

// Pinger reports whether the catalog is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

const readyTimeout = 2 * time.Second

// Ready answers 200 when the catalog is reachable and 503 otherwise. The cache is not
// consulted: a process with a dead cache can still serve.
func Ready(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			log.Warn(r.Context(), "readiness check failed", "error", err)
			apierr.WriteErrorWithContext(w, r, apierr.CatalogUnavailable(""))
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
	}
}
