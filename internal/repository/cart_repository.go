package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrCartItemNotFound = errors.New("item not found in cart")
)

// CartRepository defines the interface for cart data access. At most one row
// exists per (user, product); rows never persist a non-positive quantity.
type CartRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error)
	FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.CartItem, error)
	Insert(ctx context.Context, item *domain.CartItem) error
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	Delete(ctx context.Context, userID, productID uuid.UUID) error
	DeleteByUserAndProducts(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

const cartColumns = `id, user_id, product_id, name, image, price, quantity, size, created_at, updated_at`

func scanCartItem(row interface{ Scan(...any) error }) (*domain.CartItem, error) {
	item := &domain.CartItem{}
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Name,
		&item.Image,
		&item.Price,
		&item.Quantity,
		&item.Size,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to scan cart item: %w", err)
	}
	return item, nil
}

// ListByUser returns the user's cart rows, oldest first.
func (r *cartRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM cart_items WHERE user_id = $1 ORDER BY created_at`, cartColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []*domain.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// FindByUserAndProduct retrieves the single row for (user, product).
func (r *cartRepository) FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.CartItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM cart_items WHERE user_id = $1 AND product_id = $2`, cartColumns)
	return scanCartItem(r.db.QueryRowContext(ctx, query, userID, productID))
}

// Insert creates a new cart row from a product snapshot.
func (r *cartRepository) Insert(ctx context.Context, item *domain.CartItem) error {
	query := `
		INSERT INTO cart_items (id, user_id, product_id, name, image, price, quantity, size, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		item.ID,
		item.UserID,
		item.ProductID,
		item.Name,
		item.Image,
		item.Price,
		item.Quantity,
		item.Size,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cart item: %w", err)
	}

	return nil
}

// UpdateQuantity sets the quantity for an existing (user, product) row.
func (r *cartRepository) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	query := `UPDATE cart_items SET quantity = $3, updated_at = $4 WHERE user_id = $1 AND product_id = $2`

	result, err := r.db.ExecContext(ctx, query, userID, productID, quantity, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update cart quantity: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// Delete removes the (user, product) row if present. Deleting an absent row
// is not an error.
func (r *cartRepository) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return nil
}

// DeleteByUserAndProducts removes only the rows for the given products,
// leaving the rest of the user's cart untouched.
func (r *cartRepository) DeleteByUserAndProducts(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}

	idStrings := make([]string, len(productIDs))
	for i, id := range productIDs {
		idStrings[i] = id.String()
	}

	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = ANY($2)`,
		userID, pq.StringArray(idStrings))
	if err != nil {
		return fmt.Errorf("failed to delete purchased cart items: %w", err)
	}
	return nil
}
