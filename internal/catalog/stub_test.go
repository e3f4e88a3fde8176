package catalog

import (
	"context"
	"sync"
)

// stubBackend returns canned results and counts calls.
type stubBackend struct {
	mu       sync.Mutex
	calls    int
	errs     []error // consumed one per call; nil entries succeed
	products []Product
}

func (s *stubBackend) next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *stubBackend) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubBackend) ListProducts(ctx context.Context) ([]Product, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	return s.products, nil
}

func (s *stubBackend) ProductByID(ctx context.Context, id string) (*Product, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	for i := range s.products {
		if s.products[i].ID == id {
			return &s.products[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *stubBackend) ProductByName(ctx context.Context, name string) (*Product, error) {
	return nil, ErrNotFound
}

func (s *stubBackend) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	return []Product{}, s.next()
}

func (s *stubBackend) UserSession(ctx context.Context, userID string) (*UserSession, error) {
	return nil, ErrNotFound
}

func (s *stubBackend) UserWishlist(ctx context.Context, userID string) ([]WishlistItem, error) {
	return []WishlistItem{}, nil
}

func (s *stubBackend) Ping(ctx context.Context) error { return nil }
func (s *stubBackend) Close() error                   { return nil }
