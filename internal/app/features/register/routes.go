// internal/app/features/register/routes.go
package register

import (
	"github.com/dalemusser/taskhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, lim *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	if lim != nil {
		r.Use(lim.Middleware(h.Log))
	}
	r.Post("/", h.HandleRegister)
	return r
}
