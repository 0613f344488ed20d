package transport

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderItemRequest is one line of the checkout payload
type OrderItemRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	Name      string  `json:"name" validate:"required"`
	Qty       int     `json:"qty" validate:"required,gte=1"`
	Image     string  `json:"image"`
	Price     float64 `json:"price" validate:"required,gt=0"`
}

// ShippingAddressRequest is the checkout shipping address
type ShippingAddressRequest struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	Pincode string `json:"pincode" validate:"required"`
}

// PaymentResultRequest is the gateway payment outcome attached at checkout
type PaymentResultRequest struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	UpdateTime string `json:"update_time"`
	Email      string `json:"email"`
}

// PlaceOrderRequest represents the checkout payload
type PlaceOrderRequest struct {
	OrderItems      []OrderItemRequest     `json:"order_items" validate:"required,dive"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address" validate:"required"`
	PaymentMethod   string                 `json:"payment_method" validate:"required"`
	PaymentResult   *PaymentResultRequest  `json:"payment_result"`
	ShippingPrice   float64                `json:"shipping_price" validate:"gte=0"`
}

// UpdateStatusRequest carries an admin status change
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"`
}

// CreateGatewayOrderRequest asks the payment gateway for an order handle
type CreateGatewayOrderRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// VerifyPaymentRequest carries the gateway callback fields for verification
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// OrderHandler handles HTTP requests for the order workflow
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.Post("/", h.PlaceOrder)
			r.Get("/myorders", h.ListMyOrders)
			r.Get("/{id}", h.GetOrder)
			r.Post("/razorpay/create-order", h.CreateGatewayOrder)
			r.Post("/razorpay/verify", h.VerifyPayment)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(adminMiddleware)

			r.Get("/", h.ListAllOrders)
			r.Put("/{id}/status", h.UpdateStatus)
			r.Put("/{id}/deliver", h.MarkDelivered)
		})
	})
}

// PlaceOrder creates an order from the checkout payload
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	var req PlaceOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.PlaceOrderInput{
		ShippingAddress: domain.ShippingAddress{
			Name:    req.ShippingAddress.Name,
			Phone:   req.ShippingAddress.Phone,
			Address: req.ShippingAddress.Address,
			City:    req.ShippingAddress.City,
			Pincode: req.ShippingAddress.Pincode,
		},
		PaymentMethod: req.PaymentMethod,
		ShippingPrice: req.ShippingPrice,
	}
	for _, item := range req.OrderItems {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id in order items")
			return
		}
		input.OrderItems = append(input.OrderItems, domain.OrderItem{
			ProductID: productID,
			Name:      item.Name,
			Qty:       item.Qty,
			Image:     item.Image,
			Price:     item.Price,
		})
	}
	if req.PaymentResult != nil {
		input.PaymentResult = &domain.PaymentResult{
			ID:         req.PaymentResult.ID,
			Status:     req.PaymentResult.Status,
			UpdateTime: req.PaymentResult.UpdateTime,
			Email:      req.PaymentResult.Email,
		}
	}

	order, err := h.orderService.PlaceOrder(r.Context(), userID, input)
	if err != nil {
		if errors.Is(err, service.ErrEmptyOrder) {
			middleware.RespondWithError(w, http.StatusBadRequest, "order must contain at least one item")
			return
		}
		h.logger.Error("Failed to place order", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to place order")
		return
	}

	h.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// ListMyOrders returns the authenticated user's orders, newest first
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	orders, err := h.orderService.ListMyOrders(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// GetOrder returns one order. Owners see their own orders; admins see any.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}
	isAdmin, _ := middleware.GetIsAdmin(r.Context())

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), orderID, userID, isAdmin)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrForbidden):
			middleware.RespondWithError(w, http.StatusForbidden, "not allowed to view this order")
		default:
			h.logger.Error("Failed to load order", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load order")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// ListAllOrders returns every order, newest first. Admin only.
func (h *OrderHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListAllOrders(r.Context())
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// UpdateStatus applies an admin status change and appends to the timeline
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req UpdateStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), orderID, domain.OrderStatus(req.Status), req.Note, actorID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrInvalidStatus):
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid order status")
		case errors.Is(err, service.ErrTransitionNotAllowed):
			middleware.RespondWithError(w, http.StatusConflict, "status transition not allowed")
		default:
			h.logger.Error("Failed to update order status", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update order status")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// MarkDelivered marks an order as delivered. Admin only.
func (h *OrderHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orderService.MarkDelivered(r.Context(), orderID, actorID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrAlreadyDelivered):
			middleware.RespondWithError(w, http.StatusConflict, "order is already delivered")
		case errors.Is(err, service.ErrTransitionNotAllowed):
			middleware.RespondWithError(w, http.StatusConflict, "status transition not allowed")
		default:
			h.logger.Error("Failed to mark order delivered", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to mark order delivered")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// CreateGatewayOrder asks the payment gateway to open an order for the
// given amount
func (h *OrderHandler) CreateGatewayOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateGatewayOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	gatewayOrder, err := h.orderService.CreateGatewayOrder(r.Context(), req.Amount)
	if err != nil {
		if errors.Is(err, payment.ErrGateway) {
			middleware.RespondWithError(w, http.StatusInternalServerError, "payment gateway unavailable")
			return
		}
		h.logger.Error("Failed to create gateway order", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create gateway order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, gatewayOrder)
}

// VerifyPayment checks the gateway signature over the order and payment IDs
func (h *OrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.orderService.VerifyPayment(req.OrderID, req.PaymentID, req.Signature); err != nil {
		if errors.Is(err, payment.ErrSignatureMismatch) {
			middleware.RespondWithError(w, http.StatusBadRequest, "payment signature verification failed")
			return
		}
		h.logger.Error("Payment verification failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to verify payment")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "payment verified"})
}
