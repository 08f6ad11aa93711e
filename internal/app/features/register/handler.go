// internal/app/features/register/handler.go
package register

import (
	"net/http"

	accountservice "github.com/dalemusser/taskhub/internal/app/services/accounts"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/httpjson"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type Handler struct {
	Accounts   *accountservice.Service
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

func NewHandler(accounts *accountservice.Service, sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts:   accounts,
		SessionMgr: sessionMgr,
		Log:        logger,
	}
}

// HandleRegister handles POST /auth/register.
//
// The body names exactly one way in: organization_name creates a new
// organization with the caller as admin, join_code joins as a member, and
// invite_token redeems an invitation for its role. Responds 201 with the
// same body as a login.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in accountservice.RegisterInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "register")
	defer cancel()

	sess, err := h.Accounts.Register(ctx, in)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}

	if h.SessionMgr != nil {
		if err := h.SessionMgr.SetToken(w, r, sess.Token); err != nil {
			h.Log.Warn("register: save session", zap.Error(err))
		}
	}
	httpjson.WriteJSON(w, http.StatusCreated, sess)
}
