// internal/app/features/login/handler.go
package login

import (
	"context"
	"net/http"

	accountservice "github.com/dalemusser/taskhub/internal/app/services/accounts"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/httpjson"
	"github.com/dalemusser/taskhub/internal/app/system/normalize"
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

// HandleLogin handles POST /auth/login.
//
// On success it returns the identity token with the user and organization,
// and stores the token in the session cookie for browser clients.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in accountservice.LoginInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sess, err := h.Accounts.Login(ctx, in)
	if err != nil {
		h.Log.Info("login failed", zap.String("email", normalize.Email(in.Email)))
		httpjson.WriteError(w, h.Log, err)
		return
	}

	if h.SessionMgr != nil {
		if err := h.SessionMgr.SetToken(w, r, sess.Token); err != nil {
			h.Log.Warn("login: save session", zap.Error(err))
		}
	}

	h.Log.Info("user signed in",
		zap.String("user_id", sess.User.ID.Hex()),
		zap.String("org_id", sess.Organization.ID.Hex()))
	httpjson.WriteJSON(w, http.StatusOK, sess)
}
