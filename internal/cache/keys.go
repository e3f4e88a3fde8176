package cache

import (
	"strings"
)

// Category is a logical resource kind. Each category has one key rule and one TTL.
type Category string

const (
	ProductsAll   Category = "products-all"
	ProductByID   Category = "product-by-id"
	ProductByName Category = "product-by-name"
	ProductSearch Category = "product-search"
	UserSession   Category = "user-session"
	UserWishlist  Category = "user-wishlist"
	SearchHistory Category = "search-history"
)

// Categories lists every known category.
var Categories = []Category{
	ProductsAll, ProductByID, ProductByName, ProductSearch,
	UserSession, UserWishlist, SearchHistory,
}

var keyPrefixes = map[Category]string{
	ProductsAll:   "products",
	ProductByID:   "product",
	ProductByName: "product:name",
	ProductSearch: "product",
	UserSession:   "user:session",
	UserWishlist:  "user:wishlist",
	SearchHistory: "search:history",
}

func prefix(cat Category) string {
	if p, ok := keyPrefixes[cat]; ok {
		return p
	}
	return string(cat)
}

// KeyForAll returns the key for a category-wide collection, e.g. "products:all".
func KeyForAll(cat Category) string {
	return prefix(cat) + ":all"
}

// KeyForEntity returns "{prefix}:{id}". The id is used verbatim; an empty id yields
// a degenerate but valid key.
func KeyForEntity(cat Category, id string) string {
	return prefix(cat) + ":" + id
}

// KeyForName returns the entity key for a product name or URL slug.
func KeyForName(cat Category, name string) string {
	return KeyForEntity(cat, NormalizeName(name))
}

// KeyForSearch returns "{prefix}:search:{normalized query}".
func KeyForSearch(cat Category, query string) string {
	return prefix(cat) + ":search:" + NormalizeQuery(query)
}

// SearchPattern matches every search key of a category.
func SearchPattern(cat Category) string {
	return prefix(cat) + ":search:*"
}

// NormalizeQuery trims, lower-cases, and collapses whitespace runs to a single space.
// Lookups and invalidation must both go through it or entries become unreachable.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// NormalizeName normalizes a product name, treating dashes in URL slugs as spaces.
func NormalizeName(name string) string {
	return NormalizeQuery(strings.ReplaceAll(name, "-", " "))
}

// NamePattern matches every product-by-name key.
func NamePattern() string {
	return prefix(ProductByName) + ":*"
}
