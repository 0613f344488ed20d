package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one row per (user, product) pair, denormalized from the
// catalog at the time the product was first added.
type CartItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	Image     string    `json:"image" db:"image"`
	Price     float64   `json:"price" db:"price"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Size      string    `json:"size" db:"size"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CartLine is the client-facing cart view, recomputed against live
// catalog data on every cart read or mutation.
type CartLine struct {
	ProductID uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Image     string    `json:"image"`
	Quantity  int       `json:"quantity"`
	Size      string    `json:"size"`
}
