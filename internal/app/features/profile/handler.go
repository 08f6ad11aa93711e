// internal/app/features/profile/handler.go
package profile

import (
	"context"
	"net/http"

	accountservice "github.com/dalemusser/taskhub/internal/app/services/accounts"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/httpjson"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler serves the signed-in caller's own profile.
type Handler struct {
	Accounts *accountservice.Service
	Log      *zap.Logger
}

func NewHandler(accounts *accountservice.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts: accounts,
		Log:      logger,
	}
}

// ServeMe handles GET /me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Accounts.Me(ctx, u)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, p)
}
