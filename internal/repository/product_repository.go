package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrProductAlreadyExists = errors.New("product with this name already exists")
)

// ProductRepository defines the interface for catalog data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error)
	List(ctx context.Context, featuredOnly bool) ([]*domain.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, category, price, original_price, description, full_description,
	benefits, usage, ingredients, size, images, count_in_stock, sku, rating, reviews, tags,
	is_featured, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	product := &domain.Product{}
	var benefits, ingredients, images, tags pq.StringArray
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Category,
		&product.Price,
		&product.OriginalPrice,
		&product.Description,
		&product.FullDescription,
		&benefits,
		&product.Usage,
		&ingredients,
		&product.Size,
		&images,
		&product.CountInStock,
		&product.SKU,
		&product.Rating,
		&product.Reviews,
		&tags,
		&product.IsFeatured,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	product.Benefits = benefits
	product.Ingredients = ingredients
	product.Images = images
	product.Tags = tags
	return product, nil
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, category, price, original_price, description, full_description,
			benefits, usage, ingredients, size, images, count_in_stock, sku, rating, reviews, tags,
			is_featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Category,
		product.Price,
		product.OriginalPrice,
		product.Description,
		product.FullDescription,
		pq.StringArray(product.Benefits),
		product.Usage,
		pq.StringArray(product.Ingredients),
		product.Size,
		pq.StringArray(product.Images),
		product.CountInStock,
		product.SKU,
		product.Rating,
		product.Reviews,
		pq.StringArray(product.Tags),
		product.IsFeatured,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrProductAlreadyExists
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update replaces every mutable product field; field-level merge semantics
// live in the service layer.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, category = $3, price = $4, original_price = $5, description = $6,
		    full_description = $7, benefits = $8, usage = $9, ingredients = $10, size = $11,
		    images = $12, count_in_stock = $13, sku = $14, rating = $15, reviews = $16,
		    tags = $17, is_featured = $18, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Category,
		product.Price,
		product.OriginalPrice,
		product.Description,
		product.FullDescription,
		pq.StringArray(product.Benefits),
		product.Usage,
		pq.StringArray(product.Ingredients),
		product.Size,
		pq.StringArray(product.Images),
		product.CountInStock,
		product.SKU,
		product.Rating,
		product.Reviews,
		pq.StringArray(product.Tags),
		product.IsFeatured,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrProductAlreadyExists
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product from the database using parameterized queries
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	return scanProduct(r.db.QueryRowContext(ctx, query, id))
}

// FindByIDs retrieves the products matching the given IDs. Missing IDs are
// silently absent from the result.
func (r *productRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return []*domain.Product{}, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = ANY($1)`, productColumns)

	rows, err := r.db.QueryContext(ctx, query, pq.StringArray(idStrings))
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// List retrieves catalog products, optionally restricted to featured ones.
func (r *productRepository) List(ctx context.Context, featuredOnly bool) ([]*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products`, productColumns)
	if featuredOnly {
		query += ` WHERE is_featured`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func collectProducts(rows *sql.Rows) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}
