package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusOrdered   OrderStatus = "Ordered"
	StatusPacked    OrderStatus = "Packed"
	StatusShipped   OrderStatus = "Shipped"
	StatusDelivered OrderStatus = "Delivered"
	StatusCancelled OrderStatus = "Cancelled"
)

// OrderStatuses lists every valid status value.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusOrdered,
	StatusPacked,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// Valid reports whether s is one of the enumerated statuses.
func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// OrderItem is an immutable snapshot of a purchased line item. ProductID is
// a weak reference: deleting the product later does not touch past orders.
type OrderItem struct {
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	Qty       int       `json:"qty" db:"qty"`
	Image     string    `json:"image" db:"image"`
	Price     float64   `json:"price" db:"price"`
}

// ShippingAddress is copied onto the order at checkout, not referenced.
type ShippingAddress struct {
	Name    string `json:"name" db:"shipping_name"`
	Phone   string `json:"phone" db:"shipping_phone"`
	Address string `json:"address" db:"shipping_address"`
	City    string `json:"city" db:"shipping_city"`
	Pincode string `json:"pincode" db:"shipping_pincode"`
}

// PaymentResult records the gateway's view of the payment.
type PaymentResult struct {
	ID         string `json:"id" db:"payment_result_id"`
	Status     string `json:"status" db:"payment_result_status"`
	UpdateTime string `json:"update_time,omitempty" db:"payment_result_update_time"`
	Email      string `json:"email,omitempty" db:"payment_result_email"`
}

// StatusChange is one entry in an order's append-only status timeline.
type StatusChange struct {
	Status    OrderStatus `json:"status" db:"status"`
	UpdatedBy uuid.UUID   `json:"updated_by" db:"updated_by"`
	Note      string      `json:"note" db:"note"`
	Timestamp time.Time   `json:"timestamp" db:"changed_at"`
}

// Order is the aggregate root for a placed order: item and address snapshots,
// the computed price breakdown, payment state, and the status timeline.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	OrderItems      []OrderItem     `json:"order_items" db:"-"`
	ShippingAddress ShippingAddress `json:"shipping_address" db:"-"`
	PaymentMethod   string          `json:"payment_method" db:"payment_method"`
	PaymentResult   PaymentResult   `json:"payment_result" db:"-"`
	ItemsPrice      float64         `json:"items_price" db:"items_price"`
	TaxPrice        float64         `json:"tax_price" db:"tax_price"`
	ShippingPrice   float64         `json:"shipping_price" db:"shipping_price"`
	TotalPrice      float64         `json:"total_price" db:"total_price"`
	IsPaid          bool            `json:"is_paid" db:"is_paid"`
	PaidAt          *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	IsDelivered     bool            `json:"is_delivered" db:"is_delivered"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty" db:"delivered_at"`
	Status          OrderStatus     `json:"status" db:"status"`
	StatusHistory   []StatusChange  `json:"status_history" db:"-"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}
