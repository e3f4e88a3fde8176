package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/storefront-cache/internal/apierr"
	"github.com/onnwee/storefront-cache/internal/cachedapi"
	"github.com/onnwee/storefront-cache/internal/catalog"
	"github.com/onnwee/storefront-cache/internal/tracing"
)

// maxQueryLen bounds search queries and product names taken from the URL.
const maxQueryLen = 200

// ProductReader abstracts the cached product reads for testability.
type ProductReader interface {
	GetAllProducts(ctx context.Context) []catalog.Product
	GetProductByID(ctx context.Context, id string) *catalog.Product
	GetProductByName(ctx context.Context, name string) *catalog.Product
	SearchProducts(ctx context.Context, query string) []catalog.Product
}

// SearchRecorder remembers what a user searched for.
type SearchRecorder interface {
	SaveSearchHistory(ctx context.Context, userID, query string)
}

// ListProducts handles GET /api/products.
func ListProducts(p ProductReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, outcome := cachedapi.WithOutcome(r.Context())
		products := p.GetAllProducts(ctx)
		setCacheHeader(w, outcome)
		writeJSON(w, r, http.StatusOK, map[string]any{
			"count":    len(products),
			"products": products,
		})
	}
}

// GetProduct handles GET /api/products/{id}.
func GetProduct(p ProductReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(mux.Vars(r)["id"])
		if id == "" {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("id"))
			return
		}
		ctx, outcome := cachedapi.WithOutcome(r.Context())
		product := p.GetProductByID(ctx, id)
		setCacheHeader(w, outcome)
		if product == nil {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("product"))
			return
		}
		writeJSON(w, r, http.StatusOK, product)
	}
}

// GetProductByName handles GET /api/products/by-name/{name}. Slugs such as
// "blue-shirt" resolve to "blue shirt".
func GetProductByName(p ProductReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(mux.Vars(r)["name"])
		if name == "" {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("name"))
			return
		}
		if len(name) > maxQueryLen {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("name", "name is too long"))
			return
		}
		ctx, outcome := cachedapi.WithOutcome(r.Context())
		product := p.GetProductByName(ctx, name)
		setCacheHeader(w, outcome)
		if product == nil {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("product"))
			return
		}
		writeJSON(w, r, http.StatusOK, product)
	}
}

// SearchProducts handles GET /api/products/search?q=...&user=...
// When user is present the query is appended to that user's search history.
func SearchProducts(p ProductReader, rec SearchRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.StartSpan(r.Context(), "handlers.SearchProducts")
		defer span.End()

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			apierr.WriteErrorWithContext(w, r, apierr.SearchInvalidQuery("q parameter is required"))
			return
		}
		if len(query) > maxQueryLen {
			apierr.WriteErrorWithContext(w, r, apierr.SearchInvalidQuery("q parameter is too long"))
			return
		}
		user := strings.TrimSpace(r.URL.Query().Get("user"))
		span.SetAttributes(
			attribute.String("search_query", query),
			attribute.Bool("has_user", user != ""),
		)

		ctx, outcome := cachedapi.WithOutcome(ctx)
		results := p.SearchProducts(ctx, query)
		setCacheHeader(w, outcome)
		if user != "" && rec != nil {
			rec.SaveSearchHistory(ctx, user, query)
		}
		span.SetAttributes(attribute.Int("results_count", len(results)))

		writeJSON(w, r, http.StatusOK, map[string]any{
			"query":   query,
			"count":   len(results),
			"results": results,
		})
	}
}
