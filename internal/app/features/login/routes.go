// internal/app/features/login/routes.go
package login

import (
	"github.com/dalemusser/taskhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts POST / for sign-in. lim may be nil in tests.
func Routes(h *Handler, lim *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	if lim != nil {
		r.Use(lim.Middleware(h.Log))
	}
	r.Post("/", h.HandleLogin)
	return r
}
