package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// OrderRepository defines the interface for order aggregate access. An order
// is written together with its item snapshots and status history; orders are
// never deleted.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	ListAll(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, order *domain.Order, change domain.StatusChange) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, user_id, shipping_name, shipping_phone, shipping_address, shipping_city,
	shipping_pincode, payment_method, payment_result_id, payment_result_status,
	payment_result_update_time, payment_result_email, items_price, tax_price, shipping_price,
	total_price, is_paid, paid_at, is_delivered, delivered_at, status, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.ShippingAddress.Name,
		&order.ShippingAddress.Phone,
		&order.ShippingAddress.Address,
		&order.ShippingAddress.City,
		&order.ShippingAddress.Pincode,
		&order.PaymentMethod,
		&order.PaymentResult.ID,
		&order.PaymentResult.Status,
		&order.PaymentResult.UpdateTime,
		&order.PaymentResult.Email,
		&order.ItemsPrice,
		&order.TaxPrice,
		&order.ShippingPrice,
		&order.TotalPrice,
		&order.IsPaid,
		&order.PaidAt,
		&order.IsDelivered,
		&order.DeliveredAt,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return order, nil
}

// Create persists the order with its item snapshots and initial status
// history in a single transaction.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, user_id, shipping_name, shipping_phone, shipping_address,
			shipping_city, shipping_pincode, payment_method, payment_result_id,
			payment_result_status, payment_result_update_time, payment_result_email,
			items_price, tax_price, shipping_price, total_price, is_paid, paid_at,
			is_delivered, delivered_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23)
	`

	_, err = tx.ExecContext(
		ctx,
		query,
		order.ID,
		order.UserID,
		order.ShippingAddress.Name,
		order.ShippingAddress.Phone,
		order.ShippingAddress.Address,
		order.ShippingAddress.City,
		order.ShippingAddress.Pincode,
		order.PaymentMethod,
		order.PaymentResult.ID,
		order.PaymentResult.Status,
		order.PaymentResult.UpdateTime,
		order.PaymentResult.Email,
		order.ItemsPrice,
		order.TaxPrice,
		order.ShippingPrice,
		order.TotalPrice,
		order.IsPaid,
		order.PaidAt,
		order.IsDelivered,
		order.DeliveredAt,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, position, product_id, name, qty, image, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i, item := range order.OrderItems {
		if _, err := tx.ExecContext(ctx, itemQuery,
			order.ID, i, item.ProductID, item.Name, item.Qty, item.Image, item.Price,
		); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	historyQuery := `
		INSERT INTO order_status_history (order_id, position, status, updated_by, note, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i, change := range order.StatusHistory {
		if _, err := tx.ExecContext(ctx, historyQuery,
			order.ID, i, change.Status, change.UpdatedBy, change.Note, change.Timestamp,
		); err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

// FindByID loads the full order aggregate: row, item snapshots, history.
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	if err := r.loadHistory(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// ListByUser returns the user's orders, newest first, with items and history.
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, orderColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	return r.collectOrders(ctx, rows)
}

// ListAll returns every order, newest first, with items and history.
func (r *orderRepository) ListAll(ctx context.Context) ([]*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders ORDER BY created_at DESC`, orderColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	return r.collectOrders(ctx, rows)
}

// UpdateStatus writes the new status and delivery flags and appends exactly
// one history entry, atomically.
func (r *orderRepository) UpdateStatus(ctx context.Context, order *domain.Order, change domain.StatusChange) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE orders
		SET status = $2, is_delivered = $3, delivered_at = $4, updated_at = NOW()
		WHERE id = $1
	`
	result, err := tx.ExecContext(ctx, query, order.ID, order.Status, order.IsDelivered, order.DeliveredAt)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}

	historyQuery := `
		INSERT INTO order_status_history (order_id, position, status, updated_by, note, changed_at)
		VALUES ($1, (SELECT COALESCE(MAX(position), -1) + 1 FROM order_status_history WHERE order_id = $1), $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, historyQuery,
		order.ID, change.Status, change.UpdatedBy, change.Note, change.Timestamp,
	); err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status update: %w", err)
	}
	return nil
}

func (r *orderRepository) collectOrders(ctx context.Context, rows *sql.Rows) ([]*domain.Order, error) {
	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for _, order := range orders {
		if err := r.loadItems(ctx, order); err != nil {
			return nil, err
		}
		if err := r.loadHistory(ctx, order); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, order *domain.Order) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, name, qty, image, price FROM order_items WHERE order_id = $1 ORDER BY position`,
		order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	order.OrderItems = []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Qty, &item.Image, &item.Price); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		order.OrderItems = append(order.OrderItems, item)
	}
	return rows.Err()
}

func (r *orderRepository) loadHistory(ctx context.Context, order *domain.Order) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, updated_by, note, changed_at FROM order_status_history WHERE order_id = $1 ORDER BY position`,
		order.ID)
	if err != nil {
		return fmt.Errorf("failed to load status history: %w", err)
	}
	defer rows.Close()

	order.StatusHistory = []domain.StatusChange{}
	for rows.Next() {
		var change domain.StatusChange
		if err := rows.Scan(&change.Status, &change.UpdatedBy, &change.Note, &change.Timestamp); err != nil {
			return fmt.Errorf("failed to scan status change: %w", err)
		}
		order.StatusHistory = append(order.StatusHistory, change)
	}
	return rows.Err()
}
