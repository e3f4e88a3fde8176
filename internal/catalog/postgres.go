package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

const productColumns = `p.id::text, p.name, p.price, p.image_url, p.category, p.description, p.details`

// PostgresBackend reads the catalog directly from Postgres.
type PostgresBackend struct {
	db *sql.DB
}

// OpenPostgres opens a connection pool for dsn. The pool dials lazily; use Ping to verify.
func OpenPostgres(dsn string) (*PostgresBackend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return NewPostgresBackend(db), nil
}

// NewPostgresBackend wraps an existing pool.
func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	var image, category, description, details sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &image, &category, &description, &details); err != nil {
		return Product{}, err
	}
	p.ImageURL = image.String
	p.Category = category.String
	p.Description = description.String
	p.Details = details.String
	return p, nil
}

func (b *PostgresBackend) queryProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (b *PostgresBackend) queryProduct(ctx context.Context, query string, args ...any) (*Product, error) {
	p, err := scanProduct(b.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts implements Backend.
func (b *PostgresBackend) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := b.queryProducts(ctx, `SELECT `+productColumns+` FROM products p ORDER BY p.name`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// ProductByID implements Backend.
func (b *PostgresBackend) ProductByID(ctx context.Context, id string) (*Product, error) {
	p, err := b.queryProduct(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id::text = $1`, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("product %q: %w", id, err)
	}
	return p, err
}

// ProductByName implements Backend.
func (b *PostgresBackend) ProductByName(ctx context.Context, name string) (*Product, error) {
	p, err := b.queryProduct(ctx,
		`SELECT `+productColumns+` FROM products p WHERE p.name ILIKE $1 ESCAPE '\' ORDER BY p.id LIMIT 1`,
		escapeLike(slugToName(name)))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("product by name %q: %w", name, err)
	}
	return p, err
}

// SearchProducts implements Backend.
func (b *PostgresBackend) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	products, err := b.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products p WHERE p.name ILIKE $1 ESCAPE '\' ORDER BY p.name`,
		"%"+escapeLike(query)+"%")
	if err != nil {
		return nil, fmt.Errorf("search products %q: %w", query, err)
	}
	return products, nil
}

// UserSession implements Backend.
func (b *PostgresBackend) UserSession(ctx context.Context, userID string) (*UserSession, error) {
	var (
		s    UserSession
		data pqtype.NullRawMessage
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT id::text, user_id::text, data, updated_at FROM user_sessions WHERE user_id::text = $1 ORDER BY updated_at DESC LIMIT 1`,
		userID,
	).Scan(&s.ID, &s.UserID, &data, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session for user %q: %w", userID, err)
	}
	if data.Valid {
		s.Data = data.RawMessage
	}
	return &s, nil
}

// UserWishlist implements Backend.
func (b *PostgresBackend) UserWishlist(ctx context.Context, userID string) ([]WishlistItem, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT w.id::text, w.product_id::text, w.created_at,
		       p.id::text, p.name, p.price, p.image_url, p.category, p.description, p.details
		FROM wishlist w
		LEFT JOIN products p ON p.id = w.product_id
		WHERE w.user_id::text = $1
		ORDER BY w.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("wishlist for user %q: %w", userID, err)
	}
	defer rows.Close()

	items := []WishlistItem{}
	for rows.Next() {
		var (
			it                                    WishlistItem
			pid, pname                            sql.NullString
			price                                 sql.NullFloat64
			image, category, description, details sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.ProductID, &it.CreatedAt,
			&pid, &pname, &price, &image, &category, &description, &details); err != nil {
			return nil, fmt.Errorf("scan wishlist row: %w", err)
		}
		if pid.Valid {
			it.Product = &Product{
				ID:          pid.String,
				Name:        pname.String,
				Price:       price.Float64,
				ImageURL:    image.String,
				Category:    category.String,
				Description: description.String,
				Details:     details.String,
			}
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("wishlist for user %q: %w", userID, err)
	}
	return items, nil
}

// Ping implements Backend.
func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close implements Backend.
func (b *PostgresBackend) Close() error {
	return b.db.Close()
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// IsPermanentPostgresError reports errors that retrying cannot fix: bad SQL, missing
// relations, privilege problems, and data exceptions.
func IsPermanentPostgresError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code.Class() {
	case "22", "42", "28":
		return true
	}
	return false
}
