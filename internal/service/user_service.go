package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrCannotDeleteAdmin = errors.New("cannot delete an administrator user")
)

// UpdateProfileInput carries a partial profile update. Nil fields keep the
// stored value. A non-nil Addresses slice replaces the saved set wholesale;
// entries without an ID get one minted server-side.
type UpdateProfileInput struct {
	Name         *string          `json:"name"`
	Email        *string          `json:"email"`
	Phone        *string          `json:"phone"`
	Password     *string          `json:"password"`
	ProfileImage *string          `json:"profile_image"`
	Addresses    []domain.Address `json:"addresses"`
}

// UserService defines the interface for profile, wishlist, and admin user
// management.
type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*domain.User, error)
	GetWishlist(ctx context.Context, userID uuid.UUID) ([]*domain.Product, error)
	ToggleWishlist(ctx context.Context, userID, productID uuid.UUID) ([]*domain.Product, bool, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type userService struct {
	userRepo     repository.UserRepository
	productRepo  repository.ProductRepository
	wishlistRepo repository.WishlistRepository
}

// NewUserService creates a new instance of UserService
func NewUserService(
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	wishlistRepo repository.WishlistRepository,
) UserService {
	return &userService{
		userRepo:     userRepo,
		productRepo:  productRepo,
		wishlistRepo: wishlistRepo,
	}
}

// GetProfile returns the user with their saved addresses attached.
func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	addresses, err := s.userRepo.ListAddresses(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Addresses = addresses

	return user, nil
}

// UpdateProfile applies the provided fields and, when given, replaces the
// address book wholesale.
func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Email != nil {
		user.Email = input.Email
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if input.ProfileImage != nil {
		user.ProfileImage = *input.ProfileImage
	}
	if input.Password != nil && *input.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if input.Addresses != nil {
		for i := range input.Addresses {
			if input.Addresses[i].ID == uuid.Nil {
				input.Addresses[i].ID = uuid.New()
			}
		}
		if err := s.userRepo.ReplaceAddresses(ctx, userID, input.Addresses); err != nil {
			return nil, err
		}
	}

	return s.GetProfile(ctx, userID)
}

// GetWishlist returns the wishlisted products that still exist in the catalog.
func (s *userService) GetWishlist(ctx context.Context, userID uuid.UUID) ([]*domain.Product, error) {
	ids, err := s.wishlistRepo.ListProductIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.productRepo.FindByIDs(ctx, ids)
}

// ToggleWishlist adds the product when absent and removes it when present.
// The returned bool reports whether the product ended up on the list.
func (s *userService) ToggleWishlist(ctx context.Context, userID, productID uuid.UUID) ([]*domain.Product, bool, error) {
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		return nil, false, err
	}

	present, err := s.wishlistRepo.Contains(ctx, userID, productID)
	if err != nil {
		return nil, false, err
	}

	if present {
		err = s.wishlistRepo.Remove(ctx, userID, productID)
	} else {
		err = s.wishlistRepo.Add(ctx, userID, productID)
	}
	if err != nil {
		return nil, false, err
	}

	wishlist, err := s.GetWishlist(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	return wishlist, !present, nil
}

// ListUsers returns every account for the admin overview.
func (s *userService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.List(ctx)
}

// DeleteUser removes a non-admin account. Deleting an administrator is
// rejected.
func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin {
		return ErrCannotDeleteAdmin
	}
	return s.userRepo.Delete(ctx, id)
}
