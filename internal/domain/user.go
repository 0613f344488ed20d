package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account. Phone is the primary identifier;
// email is optional and only unique when present.
type User struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	Name                 string     `json:"name" db:"name"`
	Phone                string     `json:"phone" db:"phone"`
	Email                *string    `json:"email,omitempty" db:"email"`
	PasswordHash         string     `json:"-" db:"password_hash"`
	IsAdmin              bool       `json:"is_admin" db:"is_admin"`
	ProfileImage         string     `json:"profile_image" db:"profile_image"`
	IsVerified           bool       `json:"is_verified" db:"is_verified"`
	VerifyTokenHash      *string    `json:"-" db:"verify_token_hash"`
	VerifyTokenExpiresAt *time.Time `json:"-" db:"verify_token_expires_at"`
	ResetTokenHash       *string    `json:"-" db:"reset_token_hash"`
	ResetTokenExpiresAt  *time.Time `json:"-" db:"reset_token_expires_at"`
	Addresses            []Address  `json:"addresses,omitempty" db:"-"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// Address is a saved shipping address owned by a user. The full set is
// replaced wholesale on profile update.
type Address struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Address   string    `json:"address" db:"address"`
	City      string    `json:"city" db:"city"`
	Pincode   string    `json:"pincode" db:"pincode"`
	IsDefault bool      `json:"is_default" db:"is_default"`
}
