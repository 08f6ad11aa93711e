// internal/app/features/invitations/routes.go
package invitations

import (
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts invitation management plus the public token check. lim
// guards the public route and may be nil in tests.
func Routes(h *Handler, lim *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pub chi.Router) {
		if lim != nil {
			pub.Use(lim.Middleware(h.Log))
		}
		pub.Get("/validate/{token}", h.ServeValidate)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleIssue)
		pr.Delete("/{id}", h.HandleCancel)
		pr.Post("/{id}/resend", h.HandleResend)
	})

	return r
}
