package authgoogle_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dalemusser/taskhub/internal/app/features/authgoogle"
	"github.com/dalemusser/taskhub/internal/app/store/oauthstate"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/testutil"
	"github.com/dalemusser/taskhub/internal/testutil/apptest"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// fakeGoogle serves the token and userinfo endpoints.
func fakeGoogle(t *testing.T, email string, verified bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fake-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fake-access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             "12345",
			"email":          email,
			"verified_email": verified,
			"name":           "Google User",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newHandler(t *testing.T, db *mongo.Database, google *httptest.Server) *authgoogle.Handler {
	t.Helper()
	set, _ := apptest.Services(t, db)
	h := authgoogle.NewHandler(set.Accounts, apptest.SessionManager(t), oauthstate.New(db),
		"client-id", "client-secret", "http://localhost:8080", zap.NewNop())
	if google != nil {
		h.Endpoint = oauth2.Endpoint{AuthURL: google.URL + "/auth", TokenURL: google.URL + "/token"}
		h.UserInfoURL = google.URL + "/userinfo"
	}
	return h
}

// startLogin runs GET /auth/google and returns the state from the redirect.
func startLogin(t *testing.T, router http.Handler, target string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	testutil.AssertStatus(t, rec, http.StatusTemporaryRedirect)

	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse Location: %v", err)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatalf("Location %q carries no state", loc)
	}
	return state
}

func callback(router http.Handler, state, code string) *httptest.ResponseRecorder {
	q := url.Values{}
	if state != "" {
		q.Set("state", state)
	}
	if code != "" {
		q.Set("code", code)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+q.Encode(), nil))
	return rec
}

func TestIsConfigured(t *testing.T) {
	h := &authgoogle.Handler{}
	if h.IsConfigured() {
		t.Error("IsConfigured() = true without client ID and secret")
	}
	h.ClientID, h.ClientSecret = "id", "secret"
	if !h.IsConfigured() {
		t.Error("IsConfigured() = false with client ID and secret")
	}
}

func TestServeLogin_NotConfigured(t *testing.T) {
	h := &authgoogle.Handler{Log: zap.NewNop()}
	rec := httptest.NewRecorder()
	authgoogle.Routes(h, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	testutil.AssertStatus(t, rec, http.StatusNotFound)
}

func TestServeLogin_RedirectsToGoogle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, nil)

	rec := httptest.NewRecorder()
	authgoogle.Routes(h, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	testutil.AssertStatus(t, rec, http.StatusTemporaryRedirect)
	location := rec.Header().Get("Location")
	if !strings.Contains(location, "accounts.google.com") {
		t.Errorf("Location = %q, want to contain accounts.google.com", location)
	}
	if !strings.Contains(location, url.QueryEscape("http://localhost:8080/auth/google/callback")) {
		t.Errorf("Location = %q, want redirect_uri for the callback", location)
	}
}

func TestCallback_SignsInExistingUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	org := fx.CreateOrganization(ctx, "Acme")
	fx.CreateUser(ctx, "Ada Admin", "ada@acme.test", models.RoleAdmin, org.ID)

	google := fakeGoogle(t, "ada@acme.test", true)
	router := authgoogle.Routes(newHandler(t, db, google), nil)

	state := startLogin(t, router, "/?return=/tasks")
	rec := callback(router, state, "auth-code")

	testutil.AssertStatus(t, rec, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != "/tasks" {
		t.Errorf("Location = %q, want /tasks", loc)
	}
	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected session cookie to be set")
	}

	// States are single-use.
	rec = callback(router, state, "auth-code")
	testutil.AssertStatus(t, rec, http.StatusUnprocessableEntity)
}

func TestCallback_Rejections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	org := fx.CreateOrganization(ctx, "Acme")
	fx.CreateUser(ctx, "Ada Admin", "ada@acme.test", models.RoleAdmin, org.ID)

	tests := []struct {
		name     string
		email    string
		verified bool
		code     string
		want     int
		wantCode string
	}{
		{"unknown email", "nobody@acme.test", true, "auth-code", http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"unverified email", "ada@acme.test", false, "auth-code", http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"missing code", "ada@acme.test", true, "", http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			google := fakeGoogle(t, tc.email, tc.verified)
			router := authgoogle.Routes(newHandler(t, db, google), nil)

			state := startLogin(t, router, "/")
			rec := callback(router, state, tc.code)

			testutil.AssertStatus(t, rec, tc.want)
			if got := testutil.ErrorCode(t, rec); got != tc.wantCode {
				t.Errorf("error code = %s, want %s", got, tc.wantCode)
			}
		})
	}
}

func TestCallback_UnknownState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := authgoogle.Routes(newHandler(t, db, fakeGoogle(t, "ada@acme.test", true)), nil)

	rec := callback(router, "never-issued", "auth-code")
	testutil.AssertStatus(t, rec, http.StatusUnprocessableEntity)
}

func TestCallback_GoogleError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := authgoogle.Routes(newHandler(t, db, nil), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?error=access_denied", nil))

	testutil.AssertStatus(t, rec, http.StatusUnauthorized)
}
