package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a product in the catalog
type Product struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Category        string    `json:"category" db:"category"`
	Price           float64   `json:"price" db:"price"`
	OriginalPrice   float64   `json:"original_price" db:"original_price"`
	Description     string    `json:"description" db:"description"`
	FullDescription string    `json:"full_description" db:"full_description"`
	Benefits        []string  `json:"benefits" db:"benefits"`
	Usage           string    `json:"usage" db:"usage"`
	Ingredients     []string  `json:"ingredients" db:"ingredients"`
	Size            string    `json:"size" db:"size"`
	Images          []string  `json:"images" db:"images"`
	CountInStock    int       `json:"count_in_stock" db:"count_in_stock"`
	SKU             string    `json:"sku" db:"sku"`
	Rating          float64   `json:"rating" db:"rating"`
	Reviews         int       `json:"reviews" db:"reviews"`
	Tags            []string  `json:"tags" db:"tags"`
	IsFeatured      bool      `json:"is_featured" db:"is_featured"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// FirstImage returns the primary product image, or empty if none uploaded.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
