package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/httpjson"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the authenticated caller, rebuilt from the users collection
// on every request so role changes and removals apply immediately.
type SessionUser struct {
	ID             primitive.ObjectID
	Name           string
	Email          string
	Role           string
	OrganizationID primitive.ObjectID
}

// FromUser builds a SessionUser from a stored user.
func FromUser(u models.User) *SessionUser {
	return &SessionUser{
		ID:             u.ID,
		Name:           u.FullName,
		Email:          u.Email,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
	}
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user and a found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	return FromContext(r.Context())
}

// FromContext is CurrentUser for code that only has a context.
func FromContext(ctx context.Context) (*SessionUser, bool) {
	u, ok := ctx.Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser injects u into the request context. Handler tests use it
// in place of the middleware.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// UserLookup loads a user by id.
type UserLookup interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

// Authenticator resolves the caller from a bearer token or the session
// cookie. Any failure simply leaves the request anonymous.
type Authenticator struct {
	Tokens   *TokenIssuer
	Sessions *SessionManager
	Users    UserLookup
	Log      *zap.Logger
}

// LoadUser injects the caller into the request context when the request
// carries a valid token for an existing user.
func (a *Authenticator) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" && a.Sessions != nil {
			raw = a.Sessions.Token(r)
		}
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := a.Tokens.Verify(raw)
		if err != nil {
			a.Log.Debug("identity token rejected", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		uid, err := primitive.ObjectIDFromHex(claims.Subject)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		u, err := a.Users.GetByID(ctx, uid)
		cancel()
		if err != nil {
			if !errors.Is(err, mongo.ErrNoDocuments) {
				a.Log.Warn("load session user failed", zap.String("user_id", uid.Hex()), zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, withUser(r, FromUser(u)))
	})
}

// RequireSignedIn rejects anonymous requests with 401 UNAUTHENTICATED.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("WWW-Authenticate", `Bearer realm="taskhub"`)
		httpjson.WriteError(w, nil, apperr.ErrUnauthenticated)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
