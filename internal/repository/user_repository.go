package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user with this phone or email already exists")
)

// isUniqueViolation reports whether err is a postgres unique-constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*domain.User, error)
	FindByVerifyTokenHash(ctx context.Context, tokenHash string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	SetVerifyToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ReplaceAddresses(ctx context.Context, userID uuid.UUID, addresses []domain.Address) error
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]domain.Address, error)
}

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, name, phone, email, password_hash, is_admin, profile_image,
	is_verified, verify_token_hash, verify_token_expires_at,
	reset_token_hash, reset_token_expires_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Phone,
		&user.Email,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.ProfileImage,
		&user.IsVerified,
		&user.VerifyTokenHash,
		&user.VerifyTokenExpiresAt,
		&user.ResetTokenHash,
		&user.ResetTokenExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

// Create inserts a new user. A unique violation on phone or email maps to
// ErrUserAlreadyExists.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, phone, email, password_hash, is_admin, profile_image,
			is_verified, verify_token_hash, verify_token_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Phone,
		user.Email,
		user.PasswordHash,
		user.IsAdmin,
		user.ProfileImage,
		user.IsVerified,
		user.VerifyTokenHash,
		user.VerifyTokenExpiresAt,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// FindByID retrieves a user by ID
func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// FindByIdentifier retrieves a user whose phone or email matches identifier.
func (r *userRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE phone = $1 OR email = $1`, userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, identifier))
}

// FindByResetTokenHash retrieves the user holding the given reset-token hash.
// Expiry is checked by the caller.
func (r *userRepository) FindByResetTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE reset_token_hash = $1`, userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, tokenHash))
}

// FindByVerifyTokenHash retrieves the user holding the given verification-token hash.
func (r *userRepository) FindByVerifyTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE verify_token_hash = $1`, userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, tokenHash))
}

// Update persists mutable profile fields.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET name = $2, phone = $3, email = $4, password_hash = $5,
		    profile_image = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Phone,
		user.Email,
		user.PasswordHash,
		user.ProfileImage,
		time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetResetToken stores the hashed password-reset token and its expiry.
func (r *userRepository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	query := `UPDATE users SET reset_token_hash = $2, reset_token_expires_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetVerifyToken stores the hashed email-verification token and its expiry.
func (r *userRepository) SetVerifyToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	query := `UPDATE users SET verify_token_hash = $2, verify_token_expires_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to set verify token: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePassword replaces the password hash and clears any reset token.
func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, reset_token_hash = NULL, reset_token_expires_at = NULL
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// MarkVerified flips is_verified and clears the verification token.
func (r *userRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET is_verified = TRUE, verify_token_hash = NULL, verify_token_expires_at = NULL
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List retrieves all users, newest first.
func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY created_at DESC`, userColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Delete removes a user. Admin protection is enforced in the service layer.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ReplaceAddresses swaps the user's saved addresses for the given set.
func (r *userRepository) ReplaceAddresses(ctx context.Context, userID uuid.UUID, addresses []domain.Address) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM addresses WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear addresses: %w", err)
	}

	query := `
		INSERT INTO addresses (id, user_id, name, phone, address, city, pincode, is_default, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for i, addr := range addresses {
		if _, err := tx.ExecContext(ctx, query,
			addr.ID, userID, addr.Name, addr.Phone, addr.Address, addr.City, addr.Pincode, addr.IsDefault, i,
		); err != nil {
			return fmt.Errorf("failed to insert address: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit addresses: %w", err)
	}
	return nil
}

// ListAddresses returns the user's saved addresses in stored order.
func (r *userRepository) ListAddresses(ctx context.Context, userID uuid.UUID) ([]domain.Address, error) {
	query := `
		SELECT id, name, phone, address, city, pincode, is_default
		FROM addresses
		WHERE user_id = $1
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer rows.Close()

	addresses := []domain.Address{}
	for rows.Next() {
		var addr domain.Address
		if err := rows.Scan(&addr.ID, &addr.Name, &addr.Phone, &addr.Address, &addr.City, &addr.Pincode, &addr.IsDefault); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, addr)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating addresses: %w", err)
	}

	return addresses, nil
}
