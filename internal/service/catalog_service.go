package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	catalogCacheTTL         = 5 * time.Minute
	catalogCacheKeyAll      = "catalog:all"
	catalogCacheKeyFeatured = "catalog:featured"
)

// UpdateProductInput carries a partial product update. Nil fields keep the
// stored value; set fields replace it.
type UpdateProductInput struct {
	Name            *string   `json:"name"`
	Category        *string   `json:"category"`
	Price           *float64  `json:"price"`
	OriginalPrice   *float64  `json:"original_price"`
	Description     *string   `json:"description"`
	FullDescription *string   `json:"full_description"`
	Benefits        *[]string `json:"benefits"`
	Usage           *string   `json:"usage"`
	Ingredients     *[]string `json:"ingredients"`
	Size            *string   `json:"size"`
	Images          *[]string `json:"images"`
	CountInStock    *int      `json:"count_in_stock"`
	SKU             *string   `json:"sku"`
	Tags            *[]string `json:"tags"`
	IsFeatured      *bool     `json:"is_featured"`
}

// CatalogService defines the interface for product catalog business logic
type CatalogService interface {
	List(ctx context.Context, featuredOnly bool) ([]*domain.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Create(ctx context.Context) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	productRepo repository.ProductRepository
	cache       *redis.Client
	logger      *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService. The redis
// client may be nil, which disables the list cache.
func NewCatalogService(productRepo repository.ProductRepository, cache *redis.Client, logger *zap.Logger) CatalogService {
	return &catalogService{
		productRepo: productRepo,
		cache:       cache,
		logger:      logger,
	}
}

// List returns the catalog, optionally restricted to featured products. Reads
// go through a short-TTL redis cache; cache errors fall back to the database.
func (s *catalogService) List(ctx context.Context, featuredOnly bool) ([]*domain.Product, error) {
	key := catalogCacheKeyAll
	if featuredOnly {
		key = catalogCacheKeyFeatured
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var products []*domain.Product
			if err := json.Unmarshal(cached, &products); err == nil {
				return products, nil
			}
		}
	}

	products, err := s.productRepo.List(ctx, featuredOnly)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(products); err == nil {
			if err := s.cache.Set(ctx, key, encoded, catalogCacheTTL).Err(); err != nil {
				s.logger.Warn("Failed to cache catalog", zap.Error(err))
			}
		}
	}

	return products, nil
}

// Get retrieves a single product.
func (s *catalogService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// Create inserts a placeholder product for the admin to edit afterwards.
func (s *catalogService) Create(ctx context.Context) (*domain.Product, error) {
	now := time.Now()
	product := &domain.Product{
		ID:           uuid.New(),
		Name:         fmt.Sprintf("Sample Product Name %d", now.UnixMilli()),
		Category:     "Sample Category",
		Price:        0,
		Description:  "Sample description.",
		Benefits:     []string{},
		Ingredients:  []string{},
		Images:       []string{"/images/placeholder.jpg"},
		CountInStock: 0,
		Tags:         []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx)
	return product, nil
}

// Update replaces each field only when the incoming value was provided.
func (s *catalogService) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.OriginalPrice != nil {
		product.OriginalPrice = *input.OriginalPrice
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.FullDescription != nil {
		product.FullDescription = *input.FullDescription
	}
	if input.Benefits != nil {
		product.Benefits = *input.Benefits
	}
	if input.Usage != nil {
		product.Usage = *input.Usage
	}
	if input.Ingredients != nil {
		product.Ingredients = *input.Ingredients
	}
	if input.Size != nil {
		product.Size = *input.Size
	}
	if input.Images != nil {
		product.Images = *input.Images
	}
	if input.CountInStock != nil {
		product.CountInStock = *input.CountInStock
	}
	if input.SKU != nil {
		product.SKU = *input.SKU
	}
	if input.Tags != nil {
		product.Tags = *input.Tags
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx)
	return product, nil
}

// Delete removes a product from the catalog.
func (s *catalogService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	return nil
}

func (s *catalogService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, catalogCacheKeyAll, catalogCacheKeyFeatured).Err(); err != nil {
		s.logger.Warn("Failed to invalidate catalog cache", zap.Error(err))
	}
}
