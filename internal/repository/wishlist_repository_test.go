package repository

import (
	"context"
	"testing"
)

func TestWishlistAddIsIdempotent(t *testing.T) {
	repo := NewWishlistRepository(testDB)
	ctx := context.Background()

	user, products, cleanup := createCartFixtures(t, ctx)
	defer cleanup()

	if err := repo.Add(ctx, user.ID, products[0].ID); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	// Adding again must not error or duplicate.
	if err := repo.Add(ctx, user.ID, products[0].ID); err != nil {
		t.Fatalf("repeated add failed: %v", err)
	}

	ids, err := repo.ListProductIDs(ctx, user.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != products[0].ID {
		t.Errorf("expected a single wishlist entry, got %v", ids)
	}
}

func TestWishlistContainsAndRemove(t *testing.T) {
	repo := NewWishlistRepository(testDB)
	ctx := context.Background()

	user, products, cleanup := createCartFixtures(t, ctx)
	defer cleanup()

	if err := repo.Add(ctx, user.ID, products[0].ID); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	has, err := repo.Contains(ctx, user.ID, products[0].ID)
	if err != nil {
		t.Fatalf("contains failed: %v", err)
	}
	if !has {
		t.Error("expected wishlist to contain the product")
	}

	has, err = repo.Contains(ctx, user.ID, products[1].ID)
	if err != nil {
		t.Fatalf("contains failed: %v", err)
	}
	if has {
		t.Error("expected wishlist not to contain the product")
	}

	if err := repo.Remove(ctx, user.ID, products[0].ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	ids, err := repo.ListProductIDs(ctx, user.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected empty wishlist, got %v", ids)
	}

	// Removing an absent entry is a no-op.
	if err := repo.Remove(ctx, user.ID, products[0].ID); err != nil {
		t.Errorf("second remove should be a no-op, got %v", err)
	}
}

func TestWishlistRemovedWithProduct(t *testing.T) {
	repo := NewWishlistRepository(testDB)
	productRepo := NewProductRepository(testDB)
	ctx := context.Background()

	user, products, cleanup := createCartFixtures(t, ctx)
	defer cleanup()

	if err := repo.Add(ctx, user.ID, products[0].ID); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := productRepo.Delete(ctx, products[0].ID); err != nil {
		t.Fatalf("delete product failed: %v", err)
	}

	ids, err := repo.ListProductIDs(ctx, user.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("wishlist entry should cascade with the product, got %v", ids)
	}
}
