package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/storefront-cache/internal/api/handlers"
	"github.com/onnwee/storefront-cache/internal/apierr"
	"github.com/onnwee/storefront-cache/internal/cachedapi"
	"github.com/onnwee/storefront-cache/internal/middleware"
)

// NewRouter registers the storefront, admin, probe and metrics routes.
// Admin routes answer 503 when adminToken is empty.
func NewRouter(svc *cachedapi.Service, adminToken string) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics)

	store := svc.Store()

	r.HandleFunc("/health", handlers.Health(store)).Methods(http.MethodGet)
	r.HandleFunc("/ready", handlers.Ready(svc)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Products. Literal paths first so {id} does not swallow them.
	r.HandleFunc("/api/products", handlers.ListProducts(svc)).Methods(http.MethodGet)
	r.HandleFunc("/api/products/search", handlers.SearchProducts(svc, svc)).Methods(http.MethodGet)
	r.HandleFunc("/api/products/by-name/{name}", handlers.GetProductByName(svc)).Methods(http.MethodGet)
	r.HandleFunc("/api/products/{id}", handlers.GetProduct(svc)).Methods(http.MethodGet)

	// Users
	r.HandleFunc("/api/users/{id}/session", handlers.GetSession(svc)).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}/wishlist", handlers.GetWishlist(svc)).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}/search-history", handlers.GetSearchHistory(svc)).Methods(http.MethodGet)

	// Cache admin
	admin := r.PathPrefix("/api/admin/cache").Subrouter()
	admin.Use(adminOnly(adminToken))
	ca := handlers.NewCacheAdminHandler(svc, store)
	admin.HandleFunc("/products/invalidate", ca.InvalidateProducts).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}/invalidate", ca.InvalidateUser).Methods(http.MethodPost)
	admin.HandleFunc("/flush", ca.Flush).Methods(http.MethodPost)
	admin.HandleFunc("/stats", ca.GetCacheStats).Methods(http.MethodGet)

	return r
}

// adminOnly requires "Authorization: Bearer <token>".
func adminOnly(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				apierr.WriteErrorWithContext(w, r, apierr.SystemUnavailable("Admin token not configured"))
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" {
				apierr.WriteErrorWithContext(w, r, apierr.AuthMissing(""))
				return
			}
			const prefix = "Bearer "
			got, ok := strings.CutPrefix(auth, prefix)
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				apierr.WriteErrorWithContext(w, r, apierr.AuthInvalid(""))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Wrap applies the outer middleware chain: request ID, panic recovery, rate limiting
// when rl is non-nil, and response compression.
func Wrap(h http.Handler, rl *middleware.RateLimiter) http.Handler {
	h = middleware.Compress(h)
	if rl != nil {
		h = rl.Limit(h)
	}
	h = middleware.RecoverWithSentry(h)
	return middleware.RequestID(h)
}
