// internal/app/features/members/handler.go
package members

import (
	"context"
	"net/http"

	orgservice "github.com/dalemusser/taskhub/internal/app/services/organizations"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/httpjson"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler is the feature-level handler for the members of the caller's
// organization.
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

// ServeList handles GET /organization/members.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Orgs.ListMembers(ctx, u)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]any{"members": list})
}

// HandleChangeRole handles PATCH /organization/members/{id}/role.
func (h *Handler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	var in orgservice.RoleInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	member, err := h.Orgs.ChangeRole(ctx, u, chi.URLParam(r, "id"), in)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, member)
}

// HandleRemove handles DELETE /organization/members/{id}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Orgs.RemoveMember(ctx, u, chi.URLParam(r, "id")); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
