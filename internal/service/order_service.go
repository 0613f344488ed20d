package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/mail"
	"storefront/internal/metrics"
	"storefront/internal/payment"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaxDivisor implements the flat 5% inclusive tax policy: displayed prices
// already carry the tax, so the base price is back-calculated, not added.
const TaxDivisor = 1.05

var (
	ErrEmptyOrder           = errors.New("no order items")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrForbidden            = errors.New("not authorized to view this order")
	ErrAlreadyDelivered     = errors.New("order is already delivered")
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
)

// TransitionPolicy decides whether an order may move between two statuses.
type TransitionPolicy interface {
	Allowed(from, to domain.OrderStatus) bool
}

// PermissiveTransitions allows any status to follow any other, matching the
// historical behavior of the system.
type PermissiveTransitions struct{}

func (PermissiveTransitions) Allowed(from, to domain.OrderStatus) bool { return true }

// StrictTransitions enforces the forward fulfillment flow. Cancelled is
// reachable from any non-terminal status; Delivered and Cancelled are final.
type StrictTransitions struct{}

func (StrictTransitions) Allowed(from, to domain.OrderStatus) bool {
	if from == domain.StatusDelivered || from == domain.StatusCancelled {
		return false
	}
	if to == domain.StatusCancelled {
		return true
	}
	next := map[domain.OrderStatus]domain.OrderStatus{
		domain.StatusPending: domain.StatusOrdered,
		domain.StatusOrdered: domain.StatusPacked,
		domain.StatusPacked:  domain.StatusShipped,
		domain.StatusShipped: domain.StatusDelivered,
	}
	return next[from] == to
}

// PlaceOrderInput carries the checkout payload. Item prices are the
// tax-inclusive prices shown to the buyer.
type PlaceOrderInput struct {
	OrderItems      []domain.OrderItem
	ShippingAddress domain.ShippingAddress
	PaymentMethod   string
	PaymentResult   *domain.PaymentResult
	ShippingPrice   float64
}

// OrderService defines the interface for the order workflow
type OrderService interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID, requesterID uuid.UUID, isAdmin bool) (*domain.Order, error)
	ListMyOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	ListAllOrders(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus, note string, actorID uuid.UUID) (*domain.Order, error)
	MarkDelivered(ctx context.Context, orderID, actorID uuid.UUID) (*domain.Order, error)
	CreateGatewayOrder(ctx context.Context, total float64) (*payment.GatewayOrder, error)
	VerifyPayment(orderID, paymentID, signature string) error
}

type orderService struct {
	orderRepo  repository.OrderRepository
	cartRepo   repository.CartRepository
	userRepo   repository.UserRepository
	gateway    *payment.Gateway
	publisher  events.Publisher
	mailer     mail.Mailer
	transition TransitionPolicy
	logger     *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	userRepo repository.UserRepository,
	gateway *payment.Gateway,
	publisher events.Publisher,
	mailer mail.Mailer,
	transition TransitionPolicy,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:  orderRepo,
		cartRepo:   cartRepo,
		userRepo:   userRepo,
		gateway:    gateway,
		publisher:  publisher,
		mailer:     mailer,
		transition: transition,
		logger:     logger,
	}
}

// round2 rounds to two decimal places: round(x*100)/100.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// ComputePrices derives the price breakdown from tax-inclusive line prices.
func ComputePrices(items []domain.OrderItem, shippingPrice float64) (itemsPrice, taxPrice, totalPrice float64) {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Price * float64(item.Qty)
	}

	itemsPrice = round2(subtotal / TaxDivisor)
	taxPrice = round2(subtotal - itemsPrice)
	totalPrice = round2(itemsPrice + taxPrice + shippingPrice)
	return itemsPrice, taxPrice, totalPrice
}

// PlaceOrder persists a new order with an initial Ordered history entry and
// then removes only the purchased products from the buyer's cart. The two
// writes are deliberately separate: a cart-cleanup failure after the order
// write leaves a small inconsistency window that is logged, not rolled back.
func (s *orderService) PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*domain.Order, error) {
	if len(input.OrderItems) == 0 {
		metrics.OrdersFailedTotal.WithLabelValues("empty_order").Inc()
		return nil, ErrEmptyOrder
	}

	itemsPrice, taxPrice, totalPrice := ComputePrices(input.OrderItems, input.ShippingPrice)

	now := time.Now()
	paidViaGateway := strings.EqualFold(input.PaymentMethod, "razorpay")

	paymentResult := domain.PaymentResult{ID: "COD_ORDER", Status: "Pending"}
	if input.PaymentResult != nil {
		paymentResult = *input.PaymentResult
	}

	order := &domain.Order{
		ID:              uuid.New(),
		UserID:          userID,
		OrderItems:      input.OrderItems,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		PaymentResult:   paymentResult,
		ItemsPrice:      itemsPrice,
		TaxPrice:        taxPrice,
		ShippingPrice:   input.ShippingPrice,
		TotalPrice:      totalPrice,
		IsPaid:          paidViaGateway,
		Status:          domain.StatusOrdered,
		StatusHistory: []domain.StatusChange{
			{Status: domain.StatusOrdered, UpdatedBy: userID, Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if paidViaGateway {
		order.PaidAt = &now
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		metrics.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	metrics.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Float64("total_price", totalPrice),
	)

	purchased := make([]uuid.UUID, len(input.OrderItems))
	for i, item := range input.OrderItems {
		purchased[i] = item.ProductID
	}
	if err := s.cartRepo.DeleteByUserAndProducts(ctx, userID, purchased); err != nil {
		// Accepted inconsistency window: the order exists, stale cart rows remain.
		s.logger.Error("Failed to clear purchased cart items",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}

	if err := s.publisher.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.Error("Failed to publish order placed event", zap.Error(err))
	}
	s.sendOrderConfirmation(ctx, order)

	return order, nil
}

// GetOrder returns the order only to its owner or an admin.
func (s *orderService) GetOrder(ctx context.Context, orderID, requesterID uuid.UUID, isAdmin bool) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !isAdmin && order.UserID != requesterID {
		return nil, ErrForbidden
	}

	return order, nil
}

// ListMyOrders returns the requester's orders, newest first.
func (s *orderService) ListMyOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}

// ListAllOrders returns every order, newest first.
func (s *orderService) ListAllOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.orderRepo.ListAll(ctx)
}

// UpdateStatus validates the new status, derives the delivery flags from it,
// and appends exactly one history entry stamped with the actor and time.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus, note string, actorID uuid.UUID) (*domain.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !s.transition.Allowed(order.Status, status) {
		return nil, ErrTransitionNotAllowed
	}

	return s.applyStatus(ctx, order, status, note, actorID)
}

// MarkDelivered is the legacy deliver endpoint: it rejects an already
// delivered order and otherwise records the Delivered transition.
func (s *orderService) MarkDelivered(ctx context.Context, orderID, actorID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsDelivered {
		return nil, ErrAlreadyDelivered
	}
	if !s.transition.Allowed(order.Status, domain.StatusDelivered) {
		return nil, ErrTransitionNotAllowed
	}

	return s.applyStatus(ctx, order, domain.StatusDelivered, "Marked delivered by admin.", actorID)
}

func (s *orderService) applyStatus(ctx context.Context, order *domain.Order, status domain.OrderStatus, note string, actorID uuid.UUID) (*domain.Order, error) {
	now := time.Now()

	order.Status = status
	if status == domain.StatusDelivered {
		order.IsDelivered = true
		order.DeliveredAt = &now
	} else {
		order.IsDelivered = false
		order.DeliveredAt = nil
	}

	change := domain.StatusChange{
		Status:    status,
		UpdatedBy: actorID,
		Note:      note,
		Timestamp: now,
	}

	if err := s.orderRepo.UpdateStatus(ctx, order, change); err != nil {
		return nil, err
	}
	order.StatusHistory = append(order.StatusHistory, change)

	metrics.OrderStatusUpdatesTotal.WithLabelValues(string(status)).Inc()
	if err := s.publisher.PublishOrderStatusChanged(ctx, order, actorID); err != nil {
		s.logger.Error("Failed to publish status change event", zap.Error(err))
	}

	return order, nil
}

// CreateGatewayOrder asks the payment gateway to register a remote order.
func (s *orderService) CreateGatewayOrder(ctx context.Context, total float64) (*payment.GatewayOrder, error) {
	start := time.Now()
	order, err := s.gateway.CreateOrder(ctx, total)
	metrics.GatewayOrderLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return order, nil
}

// VerifyPayment checks the gateway signature for the given order/payment pair.
func (s *orderService) VerifyPayment(orderID, paymentID, signature string) error {
	if err := s.gateway.VerifySignature(orderID, paymentID, signature); err != nil {
		metrics.PaymentVerificationsTotal.WithLabelValues("mismatch").Inc()
		return err
	}
	metrics.PaymentVerificationsTotal.WithLabelValues("verified").Inc()
	return nil
}

// sendOrderConfirmation mails the buyer best-effort when an email is on file.
func (s *orderService) sendOrderConfirmation(ctx context.Context, order *domain.Order) {
	user, err := s.userRepo.FindByID(ctx, order.UserID)
	if err != nil || user.Email == nil || *user.Email == "" {
		return
	}

	to, name := *user.Email, user.Name
	orderID, total := order.ID.String(), order.TotalPrice
	go func() {
		if err := s.mailer.SendOrderConfirmation(to, name, orderID, total); err != nil {
			s.logger.Error("Failed to send order confirmation", zap.Error(err))
		}
	}()
}
