package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSMiddleware builds the browser cross-origin policy. Development accepts
// any origin; production accepts only the configured storefront origins and
// falls back to the wildcard when none are set.
func CORSMiddleware(allowedOrigins []string, isDevelopment bool) func(http.Handler) http.Handler {
	if isDevelopment || len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		// Content-Disposition lets the frontend read invoice filenames;
		// the X-RateLimit headers surface the request budget.
		ExposedHeaders:   []string{"Content-Disposition", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
