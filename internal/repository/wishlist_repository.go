package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WishlistRepository defines the interface for wishlist data access. Entries
// are weak references from a user to catalog products.
type WishlistRepository interface {
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	ListProductIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type wishlistRepository struct {
	db *sql.DB
}

// NewWishlistRepository creates a new instance of WishlistRepository
func NewWishlistRepository(db *sql.DB) WishlistRepository {
	return &wishlistRepository{db: db}
}

// Add inserts the wishlist entry; re-adding is a no-op.
func (r *wishlistRepository) Add(ctx context.Context, userID, productID uuid.UUID) error {
	query := `
		INSERT INTO wishlist_items (user_id, product_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, userID, productID, time.Now()); err != nil {
		return fmt.Errorf("failed to add wishlist item: %w", err)
	}
	return nil
}

// Remove deletes the wishlist entry if present.
func (r *wishlistRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	return nil
}

// Contains reports whether the product is on the user's wishlist.
func (r *wishlistRepository) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM wishlist_items WHERE user_id = $1 AND product_id = $2)`,
		userID, productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check wishlist: %w", err)
	}
	return exists, nil
}

// ListProductIDs returns the wishlisted product IDs, oldest first.
func (r *wishlistRepository) ListProductIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id FROM wishlist_items WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wishlist: %w", err)
	}

	return ids, nil
}
