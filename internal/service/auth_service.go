package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/mail"
	"storefront/internal/metrics"
	"storefront/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	// TokenExpiration is the lifetime of a minted bearer token
	TokenExpiration = 30 * 24 * time.Hour

	// Token lifetimes for the one-way-hashed email tokens
	VerifyTokenExpiration = 24 * time.Hour
	ResetTokenExpiration  = time.Hour
)

var (
	ErrInvalidCredentials       = errors.New("invalid phone/email or password")
	ErrEmailNotVerified         = errors.New("email address not verified")
	ErrInvalidToken             = errors.New("invalid token")
	ErrInvalidOrExpiredToken    = errors.New("invalid or expired token")
	ErrEmailRequired            = errors.New("email is required for email verification")
	ErrInvalidVerificationProof = errors.New("invalid verification proof")
)

// VerificationStrategy selects how ownership of the registration identifier
// is proven. Exactly one strategy is active per deployment.
type VerificationStrategy string

const (
	VerifyPassword VerificationStrategy = "password" // no proof beyond the password
	VerifyEmail    VerificationStrategy = "email"    // emailed link with a hashed, time-boxed token
	VerifyPhone    VerificationStrategy = "phone"    // OTP token checked against an external issuer
)

// PhoneTokenVerifier validates a phone-ownership token minted by an external
// identity issuer and returns the phone number it attests.
type PhoneTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (phone string, err error)
}

// Claims represents the JWT claims
type Claims struct {
	UserID  uuid.UUID `json:"user_id"`
	IsAdmin bool      `json:"is_admin"`
	jwt.RegisteredClaims
}

// RegisterInput is the payload for account creation.
type RegisterInput struct {
	Name              string
	Phone             string
	Password          string
	Email             *string
	VerificationProof string
}

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, string, error)
	Login(ctx context.Context, identifier, password string) (*domain.User, string, error)
	ForgotPassword(ctx context.Context, identifier string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
	VerifyEmail(ctx context.Context, rawToken string) error
	ValidateToken(tokenString string) (*Claims, error)
}

type authService struct {
	userRepo      repository.UserRepository
	mailer        mail.Mailer
	phoneVerifier PhoneTokenVerifier
	strategy      VerificationStrategy
	jwtSecret     string
	logger        *zap.Logger
}

// NewAuthService creates a new instance of AuthService
func NewAuthService(
	userRepo repository.UserRepository,
	mailer mail.Mailer,
	phoneVerifier PhoneTokenVerifier,
	strategy VerificationStrategy,
	jwtSecret string,
	logger *zap.Logger,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		mailer:        mailer,
		phoneVerifier: phoneVerifier,
		strategy:      strategy,
		jwtSecret:     jwtSecret,
		logger:        logger,
	}
}

// Register creates a new user account with a hashed password. Under the
// email strategy the account starts unverified and a verification link is
// mailed best-effort; under the phone strategy the supplied proof must check
// out against the external issuer before the account is created.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*domain.User, string, error) {
	existing, err := s.userRepo.FindByIdentifier(ctx, input.Phone)
	if err != nil && err != repository.ErrUserNotFound {
		return nil, "", fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, "", repository.ErrUserAlreadyExists
	}
	if input.Email != nil && *input.Email != "" {
		existing, err = s.userRepo.FindByIdentifier(ctx, *input.Email)
		if err != nil && err != repository.ErrUserNotFound {
			return nil, "", fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing != nil {
			return nil, "", repository.ErrUserAlreadyExists
		}
	}

	if s.strategy == VerifyPhone {
		phone, err := s.phoneVerifier.VerifyIDToken(ctx, input.VerificationProof)
		if err != nil || phone != input.Phone {
			return nil, "", ErrInvalidVerificationProof
		}
	}

	hashedPassword, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Name:         input.Name,
		Phone:        input.Phone,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		ProfileImage: "/images/default_user.png",
		IsVerified:   s.strategy != VerifyEmail,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	var rawVerifyToken string
	if s.strategy == VerifyEmail {
		if user.Email == nil || *user.Email == "" {
			return nil, "", ErrEmailRequired
		}
		rawVerifyToken, err = generateToken()
		if err != nil {
			return nil, "", fmt.Errorf("failed to generate verification token: %w", err)
		}
		hash := hashToken(rawVerifyToken)
		expiry := time.Now().Add(VerifyTokenExpiration)
		user.VerifyTokenHash = &hash
		user.VerifyTokenExpiresAt = &expiry
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	metrics.UsersRegisteredTotal.Inc()

	if s.strategy == VerifyEmail {
		s.dispatchMail(func() error {
			return s.mailer.SendVerificationEmail(*user.Email, user.Name, rawVerifyToken)
		})
	}

	token, err := s.generateBearerToken(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return user, token, nil
}

// Login authenticates by phone or email and mints a 30-day bearer token.
func (s *authService) Login(ctx context.Context, identifier, password string) (*domain.User, string, error) {
	user, err := s.userRepo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if err == repository.ErrUserNotFound {
			metrics.LoginsTotal.WithLabelValues("invalid").Inc()
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return nil, "", ErrInvalidCredentials
	}

	if s.strategy == VerifyEmail && user.Email != nil && !user.IsVerified {
		metrics.LoginsTotal.WithLabelValues("unverified").Inc()
		return nil, "", ErrEmailNotVerified
	}

	token, err := s.generateBearerToken(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return user, token, nil
}

// ForgotPassword stores a hashed reset token and mails the raw token. The
// caller always receives the same result whether or not the identifier
// matched, so account existence cannot be probed.
func (s *authService) ForgotPassword(ctx context.Context, identifier string) error {
	user, err := s.userRepo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user.Email == nil || *user.Email == "" {
		return nil
	}

	rawToken, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	expiry := time.Now().Add(ResetTokenExpiration)
	if err := s.userRepo.SetResetToken(ctx, user.ID, hashToken(rawToken), expiry); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	email := *user.Email
	s.dispatchMail(func() error {
		return s.mailer.SendPasswordResetEmail(email, user.Name, rawToken)
	})

	return nil
}

// ResetPassword consumes a raw reset token: the stored hash must match and
// the expiry must not have passed.
func (s *authService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	user, err := s.userRepo.FindByResetTokenHash(ctx, hashToken(rawToken))
	if err != nil {
		if err == repository.ErrUserNotFound {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}

	if user.ResetTokenExpiresAt == nil || time.Now().After(*user.ResetTokenExpiresAt) {
		return ErrInvalidOrExpiredToken
	}

	hashedPassword, err := s.hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// VerifyEmail consumes a raw verification token using the same
// hash-and-expiry-match pattern as password reset.
func (s *authService) VerifyEmail(ctx context.Context, rawToken string) error {
	user, err := s.userRepo.FindByVerifyTokenHash(ctx, hashToken(rawToken))
	if err != nil {
		if err == repository.ErrUserNotFound {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("failed to look up verification token: %w", err)
	}

	if user.VerifyTokenExpiresAt == nil || time.Now().After(*user.VerifyTokenExpiresAt) {
		return ErrInvalidOrExpiredToken
	}

	if err := s.userRepo.MarkVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}

	return nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// dispatchMail sends mail on a separate goroutine; a failed send is logged
// and never reaches the caller.
func (s *authService) dispatchMail(send func() error) {
	go func() {
		if err := send(); err != nil {
			s.logger.Error("Failed to send email", zap.Error(err))
		}
	}()
}

func (s *authService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *authService) generateBearerToken(user *domain.User) (string, error) {
	claims := &Claims{
		UserID:  user.ID,
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// generateToken returns 32 random bytes, hex encoded. Only the SHA-256 hash
// of the token is ever stored; a leaked database cannot produce usable links.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
