package api

import (
	"net/http"

	"github.com/go-chi/cors"
)

// WithCORS wraps h so browsers on the given origins may call the API.
// An empty list allows any origin.
func WithCORS(h http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})(h)
}
