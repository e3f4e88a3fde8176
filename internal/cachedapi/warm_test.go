package cachedapi

import (
	"context"
	"errors"
	"testing"

	"github.com/onnwee/storefront-cache/internal/catalog"
)

func TestWarm_PopulatesCollectionAndEntities(t *testing.T) {
	svc, fake, stub := newTestService(
		catalog.Product{ID: "1", Name: "Watch"},
		catalog.Product{ID: "2", Name: "Blue Cotton Hat"},
	)
	ctx := context.Background()

	n, err := svc.Warm(ctx)
	if err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 products warmed, got %d", n)
	}
	for _, key := range []string{"products:all", "product:1", "product:2", "product:name:watch", "product:name:blue cotton hat"} {
		if !fake.Has(key) {
			t.Errorf("%s should be cached after Warm", key)
		}
	}

	svc.GetAllProducts(ctx)
	if p := svc.GetProductByID(ctx, "2"); p == nil || p.Name != "Blue Cotton Hat" {
		t.Errorf("unexpected warmed product %+v", p)
	}
	if p := svc.GetProductByName(ctx, "blue-cotton-hat"); p == nil || p.ID != "2" {
		t.Errorf("unexpected warmed product by slug %+v", p)
	}
	if stub.Calls("ListProducts") != 1 || stub.Calls("ProductByID") != 0 || stub.Calls("ProductByName") != 0 {
		t.Errorf("reads after Warm should all hit, calls=%v", stub.calls)
	}
}

func TestWarm_CatalogError(t *testing.T) {
	svc, fake, stub := newTestService(catalog.Product{ID: "1"})
	stub.setErr(errDown)

	if _, err := svc.Warm(context.Background()); !errors.Is(err, errDown) {
		t.Fatalf("expected catalog error, got %v", err)
	}
	if len(fake.Keys()) != 0 {
		t.Errorf("nothing should be cached on failure, got %v", fake.Keys())
	}
}
