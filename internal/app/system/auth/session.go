package auth

import (
	"crypto/sha256"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const tokenKey = "token"

// SessionManager keeps the identity token in a signed, encrypted cookie for
// browser clients.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
	log   *zap.Logger
}

// NewSessionManager builds a cookie store. In production (secure=true)
// cookies are Secure and SameSite=None; otherwise SameSite=Lax so they
// work over http://localhost.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, errors.New("session key is empty; provide 32+ random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "taskhub-session"
	}

	// Derive separate signing and encryption keys from the configured secret.
	blockKey := sha256.Sum256([]byte("enc:" + sessionKey))
	store := sessions.NewCookieStore([]byte(sessionKey), blockKey[:])
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}
	return &SessionManager{store: store, name: name, log: logger}, nil
}

// Name returns the cookie name.
func (m *SessionManager) Name() string { return m.name }

// Token returns the identity token stored in the request's session cookie,
// or "" when there is none. A cookie that fails to decode (rotated key,
// tampering) counts as no session.
func (m *SessionManager) Token(r *http.Request) string {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			return ""
		}
		m.log.Debug("session read failed", zap.Error(err))
		return ""
	}
	tok, _ := sess.Values[tokenKey].(string)
	return tok
}

// SetToken stores token in the session cookie.
func (m *SessionManager) SetToken(w http.ResponseWriter, r *http.Request, token string) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values[tokenKey] = token
	return sess.Save(r, w)
}

// Clear expires the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, m.name)
	delete(sess.Values, tokenKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
