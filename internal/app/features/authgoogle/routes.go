// internal/app/features/authgoogle/routes.go
package authgoogle

import (
	"github.com/dalemusser/taskhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for Google OAuth endpoints. They are public;
// lim may be nil in tests.
func Routes(h *Handler, lim *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	if lim != nil {
		r.Use(lim.Middleware(h.Log))
	}

	r.Get("/", h.ServeLogin)            // redirect to the consent screen
	r.Get("/callback", h.ServeCallback) // Google redirects back here

	return r
}
