// internal/app/features/invitations/handler.go
package invitations

import (
	"context"
	"net/http"

	invitationservice "github.com/dalemusser/taskhub/internal/app/services/invitations"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/httpjson"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Invitations *invitationservice.Service
	Log         *zap.Logger
}

func NewHandler(invitations *invitationservice.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Invitations: invitations,
		Log:         logger,
	}
}

// issued is returned to the manager who created or resent an invitation.
// AcceptURL is the same link the email carries, so an invitation can still
// be handed over when mail delivery is down.
type issued struct {
	models.Invitation
	AcceptURL string `json:"accept_url"`
}

// ServeList handles GET /invitations (pending only, newest first).
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Invitations.ListPending(ctx, u)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]any{"invitations": list})
}

// HandleIssue handles POST /invitations.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	var in invitationservice.IssueInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	inv, err := h.Invitations.Issue(ctx, u, in)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusCreated, issued{Invitation: inv, AcceptURL: h.Invitations.AcceptURL(inv.Token)})
}

// HandleCancel handles DELETE /invitations/{id}.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Invitations.Cancel(ctx, u, chi.URLParam(r, "id")); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleResend handles POST /invitations/{id}/resend. The expiry restarts
// from now; the token does not change.
func (h *Handler) HandleResend(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	inv, err := h.Invitations.Resend(ctx, u, chi.URLParam(r, "id"))
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, issued{Invitation: inv, AcceptURL: h.Invitations.AcceptURL(inv.Token)})
}

// ServeValidate handles GET /invitations/validate/{token}. It is public:
// the registration page calls it before the visitor has an account.
func (h *Handler) ServeValidate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	preview, err := h.Invitations.Validate(ctx, chi.URLParam(r, "token"))
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, preview)
}
