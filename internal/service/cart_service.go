package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// CartService defines the interface for cart business logic. Every mutation
// returns the full recomputed cart view.
type CartService interface {
	Get(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error)
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) ([]domain.CartLine, error)
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) ([]domain.CartLine, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) ([]domain.CartLine, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// Get returns the cart view joined against live catalog data, so renamed or
// repriced products show their current values.
func (s *cartService) Get(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	return s.buildView(ctx, userID)
}

// Add increments the quantity of an existing (user, product) row, or inserts
// a denormalized snapshot of the product on first add.
func (s *cartService) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) ([]domain.CartLine, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	item, err := s.cartRepo.FindByUserAndProduct(ctx, userID, productID)
	switch err {
	case nil:
		if err := s.cartRepo.UpdateQuantity(ctx, userID, productID, item.Quantity+quantity); err != nil {
			return nil, err
		}
	case repository.ErrCartItemNotFound:
		now := time.Now()
		item = &domain.CartItem{
			ID:        uuid.New(),
			UserID:    userID,
			ProductID: productID,
			Name:      product.Name,
			Image:     product.FirstImage(),
			Price:     product.Price,
			Quantity:  quantity,
			Size:      product.Size,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.cartRepo.Insert(ctx, item); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to look up cart item: %w", err)
	}

	return s.buildView(ctx, userID)
}

// UpdateQuantity sets an absolute quantity; zero or less deletes the row
// rather than persisting a non-positive quantity.
func (s *cartService) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) ([]domain.CartLine, error) {
	if _, err := s.cartRepo.FindByUserAndProduct(ctx, userID, productID); err != nil {
		return nil, err
	}

	if quantity <= 0 {
		if err := s.cartRepo.Delete(ctx, userID, productID); err != nil {
			return nil, err
		}
	} else {
		if err := s.cartRepo.UpdateQuantity(ctx, userID, productID, quantity); err != nil {
			return nil, err
		}
	}

	return s.buildView(ctx, userID)
}

// Remove deletes the (user, product) row; removing an absent item still
// returns the current cart.
func (s *cartService) Remove(ctx context.Context, userID, productID uuid.UUID) ([]domain.CartLine, error) {
	if err := s.cartRepo.Delete(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.buildView(ctx, userID)
}

func (s *cartService) buildView(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := []domain.CartLine{}
	for _, item := range items {
		line := domain.CartLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Image:     item.Image,
			Quantity:  item.Quantity,
			Size:      item.Size,
		}
		if p, ok := byID[item.ProductID]; ok {
			line.Name = p.Name
			line.Price = p.Price
			line.Image = p.FirstImage()
			line.Size = p.Size
		}
		lines = append(lines, line)
	}

	return lines, nil
}
