package catalog

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"shoes", "shoes"},
		{"100%", `100\%`},
		{"a_b", `a\_b`},
		{`c:\x`, `c:\\x`},
	}
	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugToName(t *testing.T) {
	if got := slugToName("blue-cotton-hat"); got != "blue cotton hat" {
		t.Errorf("slugToName = %q", got)
	}
}

func TestSortWishlist(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	items := []WishlistItem{
		{ID: "old", CreatedAt: base},
		{ID: "new", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "mid", CreatedAt: base.Add(time.Hour)},
	}
	sortWishlist(items)
	for i, want := range []string{"new", "mid", "old"} {
		if items[i].ID != want {
			t.Errorf("items[%d] = %s, want %s", i, items[i].ID, want)
		}
	}
}

func TestIsPermanentPostgresError_NonPQ(t *testing.T) {
	if IsPermanentPostgresError(errors.New("dial tcp: refused")) {
		t.Error("network errors are not permanent")
	}
}

func TestPostgresBackend_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	b, err := OpenPostgres(dsn)
	if err != nil {
		t.Fatalf("OpenPostgres failed: %v", err)
	}
	defer b.Close()
	ctx := context.Background()

	if err := b.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if _, err := b.ListProducts(ctx); err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if _, err := b.ProductByID(ctx, "does-not-exist-"+time.Now().Format("150405")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
