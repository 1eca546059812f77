// internal/middleware/cors.go

package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows credentialed requests from origins. A "*" entry reflects any origin.
func CORS(origins []string) func(next http.Handler) http.Handler {
	allowAll := false
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}

	opts := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}
	if allowAll {
		// credentialed requests cannot use a literal "*"
		opts.AllowOriginFunc = func(string) bool { return true }
	} else {
		opts.AllowedOrigins = origins
	}
	return cors.New(opts).Handler
}
