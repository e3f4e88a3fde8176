package handlers

import (
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/onnwee/storefront-cache/internal/cachedapi"
	"github.com/onnwee/storefront-cache/internal/logger"
)

var log = logger.For("api")

// CacheHeader reports whether a lookup was answered from cache.
const CacheHeader = "X-Cache"

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := sonic.ConfigStd.NewEncoder(w).Encode(v); err != nil {
		log.Error(r.Context(), "failed to encode response", "error", err, "path", r.URL.Path)
	}
}

func setCacheHeader(w http.ResponseWriter, o *cachedapi.Outcome) {
	if !o.Set {
		return
	}
	if o.Hit {
		w.Header().Set(CacheHeader, "HIT")
	} else {
		w.Header().Set(CacheHeader, "MISS")
	}
}
