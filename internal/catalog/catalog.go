// Package catalog reads storefront products and user data from the authoritative store.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a single-entity lookup legitimately matches nothing.
var ErrNotFound = errors.New("not found")

// Product is a storefront product.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url,omitempty"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
	Details     string  `json:"details,omitempty"`
}

// UserSession is the persisted session document of a user.
type UserSession struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Data      json.RawMessage `json:"data,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// WishlistItem is one product saved by a user, with the product embedded.
type WishlistItem struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
	Product   *Product  `json:"product,omitempty"`
}

// Backend is the authoritative product and user store.
// Single-entity lookups return ErrNotFound when nothing matches; list lookups return
// an empty slice.
type Backend interface {
	ListProducts(ctx context.Context) ([]Product, error)
	ProductByID(ctx context.Context, id string) (*Product, error)
	// ProductByName matches case-insensitively; dashes in slugs match spaces.
	ProductByName(ctx context.Context, name string) (*Product, error)
	// SearchProducts returns products whose name contains query, case-insensitively.
	SearchProducts(ctx context.Context, query string) ([]Product, error)
	UserSession(ctx context.Context, userID string) (*UserSession, error)
	// UserWishlist returns the wishlist newest first.
	UserWishlist(ctx context.Context, userID string) ([]WishlistItem, error)
	Ping(ctx context.Context) error
	Close() error
}

// slugToName turns a URL slug into the product name it refers to.
func slugToName(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c == '-' {
			b[i] = ' '
		}
	}
	return string(b)
}
