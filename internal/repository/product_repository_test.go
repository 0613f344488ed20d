package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func newTestProduct(name string) *domain.Product {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Product{
		ID:              uuid.New(),
		Name:            name,
		Category:        "skincare",
		Price:           499.0,
		OriginalPrice:   599.0,
		Description:     "short description",
		FullDescription: "full description",
		Benefits:        []string{"hydrating", "gentle"},
		Usage:           "apply twice daily",
		Ingredients:     []string{"aloe", "glycerin"},
		Size:            "100ml",
		Images:          []string{"/uploads/a.jpg", "/uploads/b.jpg"},
		CountInStock:    10,
		SKU:             "SKU-" + uuid.New().String()[:8],
		Tags:            []string{"new", "featured"},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestProductCreateAndFindRoundTrip(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	product := newTestProduct("Aloe Gel")
	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer repo.Delete(ctx, product.ID)

	found, err := repo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}

	if found.Name != product.Name || found.Category != product.Category {
		t.Errorf("scalar fields did not round trip: %+v", found)
	}
	if len(found.Benefits) != 2 || found.Benefits[0] != "hydrating" {
		t.Errorf("benefits array did not round trip: %v", found.Benefits)
	}
	if len(found.Images) != 2 || found.Images[1] != "/uploads/b.jpg" {
		t.Errorf("images array did not round trip: %v", found.Images)
	}
	if len(found.Tags) != 2 {
		t.Errorf("tags array did not round trip: %v", found.Tags)
	}
}

func TestProperty_ProductArrayColumnsRoundTrip(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("string array columns survive storage", prop.ForAll(
		func(benefits []string, tags []string) bool {
			product := newTestProduct("Array Probe")
			product.Benefits = benefits
			product.Tags = tags

			if err := repo.Create(ctx, product); err != nil {
				t.Logf("create failed: %v", err)
				return false
			}
			defer repo.Delete(ctx, product.ID)

			found, err := repo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("find failed: %v", err)
				return false
			}

			if len(found.Benefits) != len(benefits) || len(found.Tags) != len(tags) {
				return false
			}
			for i := range benefits {
				if found.Benefits[i] != benefits[i] {
					return false
				}
			}
			for i := range tags {
				if found.Tags[i] != tags[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductListFeaturedOnly(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	featured := newTestProduct("Featured One")
	featured.IsFeatured = true
	plain := newTestProduct("Plain One")

	for _, p := range []*domain.Product{featured, plain} {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		defer repo.Delete(ctx, p.ID)
	}

	products, err := repo.List(ctx, true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	foundFeatured := false
	for _, p := range products {
		if !p.IsFeatured {
			t.Errorf("featured listing returned non-featured product %s", p.ID)
		}
		if p.ID == featured.ID {
			foundFeatured = true
		}
		if p.ID == plain.ID {
			t.Error("featured listing included a non-featured product")
		}
	}
	if !foundFeatured {
		t.Error("featured listing missing the featured product")
	}
}

func TestProductFindByIDs(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	first := newTestProduct("First")
	second := newTestProduct("Second")

	for _, p := range []*domain.Product{first, second} {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		defer repo.Delete(ctx, p.ID)
	}

	products, err := repo.FindByIDs(ctx, []uuid.UUID{first.ID, uuid.New()})
	if err != nil {
		t.Fatalf("find by ids failed: %v", err)
	}

	if len(products) != 1 || products[0].ID != first.ID {
		t.Errorf("expected only the first product, got %v", products)
	}

	empty, err := repo.FindByIDs(ctx, nil)
	if err != nil {
		t.Fatalf("find by empty ids failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no products for empty id list, got %d", len(empty))
	}
}

func TestProductUpdate(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	product := newTestProduct("Before")
	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer repo.Delete(ctx, product.ID)

	product.Name = "After"
	product.Price = 375.5
	product.CountInStock = 3
	product.Tags = []string{"sale"}

	if err := repo.Update(ctx, product); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	found, err := repo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.Name != "After" || found.Price != 375.5 || found.CountInStock != 3 {
		t.Errorf("update not persisted: %+v", found)
	}
	if len(found.Tags) != 1 || found.Tags[0] != "sale" {
		t.Errorf("tags update not persisted: %v", found.Tags)
	}
}

func TestProductDelete(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	product := newTestProduct("Doomed")
	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.Delete(ctx, product.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := repo.FindByID(ctx, product.ID); err != ErrProductNotFound {
		t.Errorf("expected ErrProductNotFound after delete, got %v", err)
	}

	if err := repo.Delete(ctx, product.ID); err != ErrProductNotFound {
		t.Errorf("expected ErrProductNotFound on second delete, got %v", err)
	}
}
