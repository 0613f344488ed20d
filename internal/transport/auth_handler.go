package transport

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Name              string  `json:"name" validate:"required"`
	Phone             string  `json:"phone" validate:"required,min=10"`
	Password          string  `json:"password" validate:"required,min=6"`
	Email             *string `json:"email" validate:"omitempty,email"`
	VerificationProof string  `json:"verification_proof"`
}

// LoginRequest represents the login request payload. Identifier is the
// phone number or email used at registration.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// ForgotPasswordRequest represents the password reset initiation payload
type ForgotPasswordRequest struct {
	Identifier string `json:"identifier" validate:"required"`
}

// ResetPasswordRequest carries the new password for a reset link
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

// VerifyEmailRequest carries the raw verification token from the email link
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// AuthResponse is returned on successful registration or login
type AuthResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// MessageResponse is a generic confirmation payload
type MessageResponse struct {
	Message string `json:"message"`
}

// AuthHandler handles HTTP requests for registration and authentication
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers all auth routes
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password/{token}", h.ResetPassword)
		r.Post("/verify-email", h.VerifyEmail)
	})
}

// Register handles account creation
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Registration validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.authService.Register(r.Context(), service.RegisterInput{
		Name:              req.Name,
		Phone:             req.Phone,
		Password:          req.Password,
		Email:             req.Email,
		VerificationProof: req.VerificationProof,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserAlreadyExists):
			middleware.RespondWithError(w, http.StatusBadRequest, "an account with this phone or email already exists")
		case errors.Is(err, service.ErrEmailRequired):
			middleware.RespondWithError(w, http.StatusBadRequest, "email is required")
		case errors.Is(err, service.ErrInvalidVerificationProof):
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid verification proof")
		default:
			h.logger.Error("Registration failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to register user")
		}
		return
	}

	h.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// Login handles authentication by phone or email plus password
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.authService.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, service.ErrEmailNotVerified):
			middleware.RespondWithError(w, http.StatusForbidden, "email address not verified")
		default:
			h.logger.Error("Login failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to log in")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// ForgotPassword starts the reset flow. The response does not reveal
// whether an account exists for the identifier.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Identifier); err != nil {
		h.logger.Error("Forgot password failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to process request")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{
		Message: "if an account exists, a reset link has been sent",
	})
}

// ResetPassword consumes a reset token and sets the new password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	rawToken := chi.URLParam(r, "token")

	var req ResetPasswordRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.authService.ResetPassword(r.Context(), rawToken, req.Password); err != nil {
		if errors.Is(err, service.ErrInvalidOrExpiredToken) {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid or expired reset token")
			return
		}
		h.logger.Error("Password reset failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "password has been reset"})
}

// VerifyEmail consumes an email verification token
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.authService.VerifyEmail(r.Context(), req.Token); err != nil {
		if errors.Is(err, service.ErrInvalidOrExpiredToken) {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid or expired verification token")
			return
		}
		h.logger.Error("Email verification failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to verify email")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "email verified"})
}
