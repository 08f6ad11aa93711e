// internal/app/features/organizations/routes.go
package organizations

import (
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the organization routes. Typically:
// r.Mount("/organization", organizations.Routes(handler))
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.ServeOrganization)
		pr.Patch("/", h.HandleUpdate)
	})

	return r
}
