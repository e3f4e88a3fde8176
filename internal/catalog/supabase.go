package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/supabase-community/supabase-go"
)

const wishlistColumns = "id,product_id,created_at,product:products(*)"

// SupabaseBackend reads the catalog through the Supabase PostgREST API.
// The client does not accept a context, so cancellation is only checked between calls.
type SupabaseBackend struct {
	client *supabase.Client
}

// NewSupabaseBackend creates a client for the project at url using key.
func NewSupabaseBackend(url, key string) (*SupabaseBackend, error) {
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &SupabaseBackend{client: client}, nil
}

// ListProducts implements Backend.
func (b *SupabaseBackend) ListProducts(ctx context.Context) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	products := []Product{}
	if _, err := b.client.From("products").Select("*", "", false).ExecuteTo(&products); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// ProductByID implements Backend.
func (b *SupabaseBackend) ProductByID(ctx context.Context, id string) (*Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []Product
	_, err := b.client.From("products").Select("*", "", false).
		Eq("id", id).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("product %q: %w", id, err)
	}
	return first(rows)
}

// ProductByName implements Backend.
func (b *SupabaseBackend) ProductByName(ctx context.Context, name string) (*Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []Product
	_, err := b.client.From("products").Select("*", "", false).
		Ilike("name", escapeLike(slugToName(name))).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("product by name %q: %w", name, err)
	}
	return first(rows)
}

// SearchProducts implements Backend.
func (b *SupabaseBackend) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	products := []Product{}
	_, err := b.client.From("products").Select("*", "", false).
		Ilike("name", "*"+escapeLike(query)+"*").
		ExecuteTo(&products)
	if err != nil {
		return nil, fmt.Errorf("search products %q: %w", query, err)
	}
	sort.SliceStable(products, func(i, j int) bool {
		return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
	})
	return products, nil
}

// UserSession implements Backend.
func (b *SupabaseBackend) UserSession(ctx context.Context, userID string) (*UserSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []UserSession
	_, err := b.client.From("user_sessions").Select("*", "", false).
		Eq("user_id", userID).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("session for user %q: %w", userID, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// UserWishlist implements Backend.
func (b *SupabaseBackend) UserWishlist(ctx context.Context, userID string) ([]WishlistItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items := []WishlistItem{}
	_, err := b.client.From("wishlist").Select(wishlistColumns, "", false).
		Eq("user_id", userID).
		ExecuteTo(&items)
	if err != nil {
		return nil, fmt.Errorf("wishlist for user %q: %w", userID, err)
	}
	sortWishlist(items)
	return items, nil
}

// Ping implements Backend with a one-row read.
func (b *SupabaseBackend) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var rows []struct {
		ID any `json:"id"`
	}
	if _, err := b.client.From("products").Select("id", "", false).Limit(1, "").ExecuteTo(&rows); err != nil {
		return fmt.Errorf("ping supabase: %w", err)
	}
	return nil
}

// Close implements Backend.
func (b *SupabaseBackend) Close() error { return nil }

func first(rows []Product) (*Product, error) {
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// sortWishlist orders items newest first.
func sortWishlist(items []WishlistItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
