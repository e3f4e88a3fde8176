package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/onnwee/storefront-cache/internal/apierr"
	"github.com/onnwee/storefront-cache/internal/cachedapi"
	"github.com/onnwee/storefront-cache/internal/catalog"
)

// UserReader abstracts the cached per-user reads.
type UserReader interface {
	GetUserSession(ctx context.Context, userID string) *catalog.UserSession
	GetUserWishlist(ctx context.Context, userID string) []catalog.WishlistItem
	GetSearchHistory(ctx context.Context, userID string) []string
}

func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("id"))
		return "", false
	}
	return id, true
}

// GetSession handles GET /api/users/{id}/session.
func GetSession(u UserReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(w, r)
		if !ok {
			return
		}
		ctx, outcome := cachedapi.WithOutcome(r.Context())
		session := u.GetUserSession(ctx, id)
		setCacheHeader(w, outcome)
		if session == nil {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("session"))
			return
		}
		writeJSON(w, r, http.StatusOK, session)
	}
}

// GetWishlist handles GET /api/users/{id}/wishlist.
func GetWishlist(u UserReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(w, r)
		if !ok {
			return
		}
		ctx, outcome := cachedapi.WithOutcome(r.Context())
		items := u.GetUserWishlist(ctx, id)
		setCacheHeader(w, outcome)
		writeJSON(w, r, http.StatusOK, map[string]any{
			"user_id": id,
			"count":   len(items),
			"items":   items,
		})
	}
}

// GetSearchHistory handles GET /api/users/{id}/search-history.
func GetSearchHistory(u UserReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(w, r)
		if !ok {
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{
			"user_id": id,
			"queries": u.GetSearchHistory(r.Context(), id),
		})
	}
}
