package register_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/taskhub/internal/app/features/register"
	accountservice "github.com/dalemusser/taskhub/internal/app/services/accounts"
	"github.com/dalemusser/taskhub/internal/app/system/ratelimit"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/testutil"
	"github.com/dalemusser/taskhub/internal/testutil/apptest"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) *register.Handler {
	t.Helper()
	db := testutil.SetupTestDB(t)
	set, _ := apptest.Services(t, db)
	return register.NewHandler(set.Accounts, apptest.SessionManager(t), zap.NewNop())
}

func post(t *testing.T, h *register.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.HandleRegister(rec, testutil.JSONRequest(t, http.MethodPost, "/auth/register", body))
	return rec
}

func TestHandleRegister_NewOrgThenJoinCode(t *testing.T) {
	h := newTestHandler(t)

	rec := post(t, h, map[string]string{
		"name": "Alice", "email": "alice@acme.test", "password": "password1", "organization_name": "Acme",
	})
	testutil.AssertStatus(t, rec, http.StatusCreated)

	var admin accountservice.Session
	testutil.DecodeJSON(t, rec, &admin)
	if admin.User.Role != models.RoleAdmin {
		t.Errorf("creator role = %q, want admin", admin.User.Role)
	}
	if len(admin.Organization.JoinCode) != 8 {
		t.Fatalf("join code = %q, want 8 characters", admin.Organization.JoinCode)
	}

	rec = post(t, h, map[string]string{
		"name": "Bob", "email": "bob@acme.test", "password": "password2", "join_code": admin.Organization.JoinCode,
	})
	testutil.AssertStatus(t, rec, http.StatusCreated)

	var bob accountservice.Session
	testutil.DecodeJSON(t, rec, &bob)
	if bob.User.Role != models.RoleMember || bob.Organization.ID != admin.Organization.ID {
		t.Errorf("joined user = %+v in org %s", bob.User, bob.Organization.ID.Hex())
	}
}

func TestHandleRegister_Errors(t *testing.T) {
	h := newTestHandler(t)
	testutil.AssertStatus(t, post(t, h, map[string]string{
		"name": "Alice", "email": "alice@acme.test", "password": "password1", "organization_name": "Acme",
	}), http.StatusCreated)

	tests := []struct {
		name     string
		body     map[string]string
		wantCode int
		wantErr  string
	}{
		{"duplicate email", map[string]string{"name": "Al", "email": "ALICE@acme.test", "password": "password1", "organization_name": "Other"}, http.StatusConflict, "DUPLICATE_CREDENTIAL"},
		{"short password", map[string]string{"name": "Cy", "email": "cy@acme.test", "password": "short", "organization_name": "Other"}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"no join mode", map[string]string{"name": "Cy", "email": "cy@acme.test", "password": "password1"}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"two join modes", map[string]string{"name": "Cy", "email": "cy@acme.test", "password": "password1", "organization_name": "X", "join_code": "ABCDEFGH"}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"bad invite token", map[string]string{"name": "Cy", "email": "cy@acme.test", "password": "password1", "invite_token": "nope"}, http.StatusGone, "INVALID_OR_EXPIRED_INVITATION"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(t, h, tc.body)
			testutil.AssertStatus(t, rec, tc.wantCode)
			if got := testutil.ErrorCode(t, rec); got != tc.wantErr {
				t.Errorf("error code = %q, want %q", got, tc.wantErr)
			}
		})
	}
}

func TestRoutes_RateLimited(t *testing.T) {
	h := newTestHandler(t)
	r := register.Routes(h, ratelimit.New(ratelimit.Profile{Requests: 1, Window: time.Minute, Burst: 1}))

	send := func() int {
		rec := httptest.NewRecorder()
		req := testutil.JSONRequest(t, http.MethodPost, "/", `{}`)
		req.RemoteAddr = "203.0.113.9:5000"
		r.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := send(); code == http.StatusTooManyRequests {
		t.Fatalf("first request was rate limited")
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", code)
	}
}
