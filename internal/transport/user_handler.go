package transport

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// currentUserID resolves the authenticated user's ID from the request context.
func currentUserID(r *http.Request) (uuid.UUID, bool) {
	raw, ok := middleware.GetUserID(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// AddToCartRequest represents the add-to-cart payload
type AddToCartRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateCartItemRequest carries the new quantity for a cart line
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// CartResponse wraps the full cart view returned after every cart operation
type CartResponse struct {
	Items []domain.CartLine `json:"items"`
}

// WishlistResponse wraps the resolved wishlist products
type WishlistResponse struct {
	Products []*domain.Product `json:"products"`
	Added    *bool             `json:"added,omitempty"`
}

// UserHandler handles HTTP requests for profile, cart, wishlist, and admin
// user management
type UserHandler struct {
	userService service.UserService
	cartService service.CartService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, cartService service.CartService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers all user routes
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)

			r.Get("/cart", h.GetCart)
			r.Post("/cart", h.AddToCart)
			r.Put("/cart/{productID}", h.UpdateCartItem)
			r.Delete("/cart/{productID}", h.RemoveFromCart)

			r.Get("/wishlist", h.GetWishlist)
			r.Post("/wishlist/{productID}", h.ToggleWishlist)
			r.Delete("/wishlist/{productID}", h.ToggleWishlist)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(adminMiddleware)

			r.Get("/", h.ListUsers)
			r.Delete("/{id}", h.DeleteUser)
		})
	})
}

// GetProfile returns the authenticated user's profile with addresses
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	user, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("Failed to load profile", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, user)
}

// UpdateProfile applies a partial profile update
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	var input service.UpdateProfileInput
	if err := middleware.DecodeAndValidate(r, &input); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, input)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "user not found")
			return
		}
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			middleware.RespondWithError(w, http.StatusBadRequest, "phone or email already in use")
			return
		}
		h.logger.Error("Failed to update profile", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, user)
}

// GetCart returns the authenticated user's cart
func (h *UserHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	lines, err := h.cartService.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{Items: lines})
}

// AddToCart adds a product to the cart, incrementing quantity if present
func (h *UserHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	var req AddToCartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	lines, err := h.cartService.Add(r.Context(), userID, productID, req.Quantity)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to add to cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add to cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{Items: lines})
}

// UpdateCartItem sets the quantity of a cart line; zero removes it
func (h *UserHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req UpdateCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines, err := h.cartService.UpdateQuantity(r.Context(), userID, productID, req.Quantity)
	if err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "cart item not found")
			return
		}
		h.logger.Error("Failed to update cart item", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update cart item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{Items: lines})
}

// RemoveFromCart deletes a cart line. Removing an absent line is a no-op.
func (h *UserHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	lines, err := h.cartService.Remove(r.Context(), userID, productID)
	if err != nil {
		h.logger.Error("Failed to remove from cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to remove from cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{Items: lines})
}

// GetWishlist returns the authenticated user's wishlist products
func (h *UserHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	products, err := h.userService.GetWishlist(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load wishlist", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load wishlist")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, WishlistResponse{Products: products})
}

// ToggleWishlist adds the product to the wishlist if absent, removes it if
// present, and returns the updated list
func (h *UserHandler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	products, added, err := h.userService.ToggleWishlist(r.Context(), userID, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to toggle wishlist", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update wishlist")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, WishlistResponse{Products: products, Added: &added})
}

// ListUsers returns all registered users. Admin only.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("Failed to list users", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, users)
}

// DeleteUser removes a non-admin user. Admin only.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.userService.DeleteUser(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrCannotDeleteAdmin):
			middleware.RespondWithError(w, http.StatusBadRequest, "cannot delete an administrator")
		default:
			h.logger.Error("Failed to delete user", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete user")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "user deleted"})
}
