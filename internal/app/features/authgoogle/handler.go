// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	accountservice "github.com/dalemusser/taskhub/internal/app/services/accounts"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/httpjson"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultUserInfoURL is Google's OpenID userinfo endpoint.
const DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// stateTTL bounds the consent round trip.
const stateTTL = 10 * time.Minute

// StateStore keeps one-time CSRF states between redirect and callback.
type StateStore interface {
	Save(ctx context.Context, state, returnURL string, expiresAt time.Time) error
	Consume(ctx context.Context, state string) (returnURL string, ok bool, err error)
}

// Handler handles Google OAuth sign-in for accounts that already exist.
type Handler struct {
	Accounts   *accountservice.Service
	SessionMgr *auth.SessionManager
	States     StateStore
	Log        *zap.Logger

	// OAuth configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://taskhub.example/auth/google/callback"

	// Endpoint and UserInfoURL default to Google's; tests point them elsewhere.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// NewHandler creates a new Google OAuth handler.
func NewHandler(
	accounts *accountservice.Service,
	sessionMgr *auth.SessionManager,
	states StateStore,
	clientID, clientSecret, baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Accounts:     accounts,
		SessionMgr:   sessionMgr,
		States:       states,
		Log:          logger,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
		Endpoint:     google.Endpoint,
		UserInfoURL:  DefaultUserInfoURL,
	}
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

var errNotConfigured = apperr.New(apperr.CodeNotFound, "google sign-in is not enabled")

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
| Redirects to Google's consent screen.                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		httpjson.WriteError(w, h.Log, errNotConfigured)
		return
	}

	state, err := auth.RandomToken(32)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	returnURL := urlutil.SafeReturn(query.Get(r, "return"), "", "/")
	if err := h.States.Save(ctx, state, returnURL, time.Now().UTC().Add(stateTTL)); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		httpjson.WriteError(w, h.Log, err)
		return
	}

	http.Redirect(w, r, h.oauth2Config().AuthCodeURL(state), http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
| Exchanges the code, reads the verified email, and signs the user in.         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		httpjson.WriteError(w, h.Log, errNotConfigured)
		return
	}

	if errParam := query.Get(r, "error"); errParam != "" {
		h.Log.Warn("Google OAuth error", zap.String("error", errParam))
		httpjson.WriteError(w, h.Log, apperr.New(apperr.CodeUnauthenticated, "google sign-in was cancelled"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "google callback")
	defer cancel()

	returnURL, ok, err := h.States.Consume(ctx, query.Get(r, "state"))
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		httpjson.WriteError(w, h.Log, err)
		return
	}
	if !ok {
		httpjson.WriteError(w, h.Log, apperr.Validation("sign-in state is invalid or expired; start again"))
		return
	}

	code := query.Get(r, "code")
	if code == "" {
		httpjson.WriteError(w, h.Log, apperr.Validation("missing authorization code"))
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Warn("failed to exchange OAuth code", zap.Error(err))
		httpjson.WriteError(w, h.Log, apperr.New(apperr.CodeUnauthenticated, "google sign-in failed"))
		return
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		httpjson.WriteError(w, h.Log, apperr.New(apperr.CodeUnauthenticated, "google sign-in failed"))
		return
	}
	if !info.EmailVerified || info.Email == "" {
		httpjson.WriteError(w, h.Log, apperr.New(apperr.CodeUnauthenticated, "google account email is not verified"))
		return
	}

	sess, err := h.Accounts.LoginVerifiedEmail(ctx, info.Email)
	if err != nil {
		h.Log.Info("Google OAuth: sign-in refused", zap.String("email", info.Email), zap.Error(err))
		httpjson.WriteError(w, h.Log, err)
		return
	}

	if err := h.SessionMgr.SetToken(w, r, sess.Token); err != nil {
		h.Log.Error("google login: save session", zap.Error(err))
		httpjson.WriteError(w, h.Log, err)
		return
	}

	h.Log.Info("user signed in with Google", zap.String("user_id", sess.User.ID.Hex()))
	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/"), http.StatusSeeOther)
}

// googleUserInfo is the subset of Google's userinfo response we read.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}
