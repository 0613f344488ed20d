package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// RequireAdmin middleware ensures the authenticated user is an admin
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			isAdmin, ok := GetIsAdmin(r.Context())
			if !ok {
				logger.Warn("Admin flag not found in context")
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			if !isAdmin {
				userID, _ := GetUserID(r.Context())
				logger.Warn("Non-admin user attempted to access admin endpoint",
					zap.String("user_id", userID),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
