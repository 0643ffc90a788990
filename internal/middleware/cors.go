// Package middleware provides reusable HTTP middleware for the travel journal API.
package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// NewCORSHandler returns a middleware that applies CORS headers based on allowedOrigins.
// Each entry in allowedOrigins must be a full origin (scheme + host, no trailing slash).
// extraHeaders are added to the allowed request headers, which is how the
// identity headers reach the API from a browser during local development.
// Content-Disposition is exposed so clients can read the export file name.
func NewCORSHandler(allowedOrigins []string, extraHeaders ...string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: append([]string{"Content-Type", "Authorization"}, extraHeaders...),
		ExposedHeaders: []string{"Content-Disposition"},
	})
	return func(next http.Handler) http.Handler {
		return c.Handler(next)
	}
}
