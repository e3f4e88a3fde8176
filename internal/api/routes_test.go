package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/onnwee/storefront-cache/internal/cache"
	"github.com/onnwee/storefront-cache/internal/cachedapi"
	"github.com/onnwee/storefront-cache/internal/catalog"
)

const testToken = "test-admin-token-123"

// countingCatalog serves a fixed product list and counts backing-store reads.
type countingCatalog struct {
	mu       sync.Mutex
	reads    int
	products []catalog.Product
}

func (c *countingCatalog) read() {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
}

func (c *countingCatalog) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

func (c *countingCatalog) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	c.read()
	return c.products, nil
}

func (c *countingCatalog) ProductByID(ctx context.Context, id string) (*catalog.Product, error) {
	c.read()
	for i := range c.products {
		if c.products[i].ID == id {
			p := c.products[i]
			return &p, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (c *countingCatalog) ProductByName(ctx context.Context, name string) (*catalog.Product, error) {
	c.read()
	for i := range c.products {
		if strings.EqualFold(c.products[i].Name, name) {
			p := c.products[i]
			return &p, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (c *countingCatalog) SearchProducts(ctx context.Context, query string) ([]catalog.Product, error) {
	c.read()
	out := []catalog.Product{}
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), query) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *countingCatalog) UserSession(ctx context.Context, userID string) (*catalog.UserSession, error) {
	c.read()
	return nil, catalog.ErrNotFound
}

func (c *countingCatalog) UserWishlist(ctx context.Context, userID string) ([]catalog.WishlistItem, error) {
	c.read()
	return []catalog.WishlistItem{}, nil
}

func (c *countingCatalog) Ping(ctx context.Context) error { return nil }
func (c *countingCatalog) Close() error                   { return nil }

func newTestRouter(t *testing.T) (http.Handler, *countingCatalog, *cache.FakeBackend) {
	t.Helper()
	cat := &countingCatalog{products: []catalog.Product{
		{ID: "p1", Name: "Blue Shirt", Price: 20},
		{ID: "p2", Name: "Red Hat", Price: 15},
	}}
	backend := cache.NewFakeBackend()
	store := cache.NewStore(backend)
	svc := cachedapi.NewService(store, cat)
	return NewRouter(svc, testToken), cat, backend
}

func do(h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRoutes_XCacheMissThenHit(t *testing.T) {
	h, cat, _ := newTestRouter(t)

	paths := []string{
		"/api/products",
		"/api/products/p1",
		"/api/products/by-name/blue-shirt",
		"/api/products/search?q=shirt",
		"/api/users/u1/wishlist",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			before := cat.Reads()
			first := do(h, http.MethodGet, path, "")
			if first.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", first.Code, first.Body.String())
			}
			if got := first.Header().Get("X-Cache"); got != "MISS" {
				t.Errorf("first request: X-Cache = %q, want MISS", got)
			}
			second := do(h, http.MethodGet, path, "")
			if got := second.Header().Get("X-Cache"); got != "HIT" {
				t.Errorf("second request: X-Cache = %q, want HIT", got)
			}
			if got := cat.Reads() - before; got != 1 {
				t.Errorf("expected exactly 1 catalog read, got %d", got)
			}
			if first.Body.String() != second.Body.String() {
				t.Error("cached body differs from fresh body")
			}
		})
	}
}

func TestRoutes_NotFoundIsCached(t *testing.T) {
	h, cat, _ := newTestRouter(t)

	if rr := do(h, http.MethodGet, "/api/products/missing", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	rr := do(h, http.MethodGet, "/api/products/missing", "")
	if rr.Code != http.StatusNotFound || rr.Header().Get("X-Cache") != "HIT" {
		t.Errorf("expected cached 404, got %d %q", rr.Code, rr.Header().Get("X-Cache"))
	}
	if cat.Reads() != 1 {
		t.Errorf("expected 1 catalog read, got %d", cat.Reads())
	}
}

func TestRoutes_AdminAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + testToken, http.StatusOK},
		{"invalid token", "Bearer wrong-token", http.StatusUnauthorized},
		{"missing token", "", http.StatusUnauthorized},
		{"malformed bearer", "Bearer" + testToken, http.StatusUnauthorized},
		{"wrong scheme", "Basic dGVzdDp0ZXN0", http.StatusUnauthorized},
	}
	h, _, _ := newTestRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/cache/stats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rr.Code)
			}
		})
	}
}

func TestRoutes_AdminDisabledWithoutToken(t *testing.T) {
	svc := cachedapi.NewService(cache.NewStore(cache.NewFakeBackend()), &countingCatalog{})
	h := NewRouter(svc, "")

	endpoints := []struct{ method, path string }{
		{http.MethodPost, "/api/admin/cache/products/invalidate"},
		{http.MethodPost, "/api/admin/cache/users/u1/invalidate"},
		{http.MethodPost, "/api/admin/cache/flush"},
		{http.MethodGet, "/api/admin/cache/stats"},
	}
	for _, ep := range endpoints {
		if rr := do(h, ep.method, ep.path, "anything"); rr.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s: expected 503, got %d", ep.method, ep.path, rr.Code)
		}
	}
}

func TestRoutes_InvalidateProduct(t *testing.T) {
	h, cat, backend := newTestRouter(t)

	do(h, http.MethodGet, "/api/products", "")
	do(h, http.MethodGet, "/api/products/p1", "")
	do(h, http.MethodGet, "/api/products/p2", "")
	do(h, http.MethodGet, "/api/products/search?q=shirt", "")

	rr := do(h, http.MethodPost, "/api/admin/cache/products/invalidate?id=p1", testToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	for _, key := range []string{
		cache.KeyForAll(cache.ProductsAll),
		cache.KeyForEntity(cache.ProductByID, "p1"),
		cache.KeyForSearch(cache.ProductSearch, "shirt"),
	} {
		if backend.Has(key) {
			t.Errorf("%s should be invalidated", key)
		}
	}
	if !backend.Has(cache.KeyForEntity(cache.ProductByID, "p2")) {
		t.Error("unrelated product entry should survive")
	}

	before := cat.Reads()
	if rr := do(h, http.MethodGet, "/api/products/p1", ""); rr.Header().Get("X-Cache") != "MISS" {
		t.Errorf("expected MISS after invalidation, got %q", rr.Header().Get("X-Cache"))
	}
	if cat.Reads() != before+1 {
		t.Error("expected a catalog read after invalidation")
	}
}

func TestRoutes_SearchHistory(t *testing.T) {
	h, _, _ := newTestRouter(t)

	do(h, http.MethodGet, "/api/products/search?q=Shirt&user=u1", "")
	do(h, http.MethodGet, "/api/products/search?q=hat&user=u1", "")
	do(h, http.MethodGet, "/api/products/search?q=shirt&user=u1", "")

	rr := do(h, http.MethodGet, "/api/users/u1/search-history", "")
	var body struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Join(body.Queries, ",") != "shirt,hat" {
		t.Errorf("expected [shirt hat], got %v", body.Queries)
	}

	do(h, http.MethodPost, "/api/admin/cache/users/u1/invalidate", testToken)
	rr = do(h, http.MethodGet, "/api/users/u1/search-history", "")
	body.Queries = nil
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if len(body.Queries) != 0 {
		t.Errorf("history should be empty after user invalidation, got %v", body.Queries)
	}
}

func TestRoutes_DegradedCacheStillServes(t *testing.T) {
	cat := &countingCatalog{products: []catalog.Product{{ID: "p1", Name: "Blue Shirt"}}}
	backend := cache.NewFakeBackend()
	backend.FailAll()
	store := cache.NewStore(backend)
	store.Open(context.Background())
	h := NewRouter(cachedapi.NewService(store, cat), testToken)

	for i := 0; i < 2; i++ {
		if rr := do(h, http.MethodGet, "/api/products/p1", ""); rr.Code != http.StatusOK {
			t.Fatalf("expected 200 with cache down, got %d", rr.Code)
		}
	}
	if cat.Reads() != 2 {
		t.Errorf("every read should reach the catalog while degraded, got %d", cat.Reads())
	}

	rr := do(h, http.MethodGet, "/health", "")
	if !strings.Contains(rr.Body.String(), `"degraded"`) {
		t.Errorf("health should report degraded cache, got %s", rr.Body.String())
	}
}

func TestRoutes_Metrics(t *testing.T) {
	h, _, _ := newTestRouter(t)
	do(h, http.MethodGet, "/api/products", "")

	rr := do(h, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "api_requests_total") {
		t.Error("metrics output should include api_requests_total")
	}
}

func TestWrap_Chain(t *testing.T) {
	h, _, _ := newTestRouter(t)
	wrapped := Wrap(h, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, req)

	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if rr.Header().Get("Content-Encoding") != "gzip" {
		t.Errorf("expected gzip response, got %q", rr.Header().Get("Content-Encoding"))
	}
	if !strings.Contains(rr.Header().Get("Vary"), "Accept-Encoding") {
		t.Error("expected Vary: Accept-Encoding")
	}
}
