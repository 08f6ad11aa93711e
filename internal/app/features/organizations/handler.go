// internal/app/features/organizations/handler.go
package organizations

import (
	"context"
	"net/http"

	orgservice "github.com/dalemusser/taskhub/internal/app/services/organizations"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/httpjson"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler serves the caller's own organization. There is no listing of
// other organizations.
type Handler struct {
	Orgs *orgservice.Service
	Log  *zap.Logger
}

func NewHandler(orgs *orgservice.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Orgs: orgs,
		Log:  logger,
	}
}

// ServeOrganization handles GET /organization.
func (h *Handler) ServeOrganization(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	org, err := h.Orgs.Get(ctx, u)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, org)
}

// HandleUpdate handles PATCH /organization. Absent fields are left alone;
// "description": null clears the description.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	var in orgservice.UpdateInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	org, err := h.Orgs.Update(ctx, u, in)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, org)
}
