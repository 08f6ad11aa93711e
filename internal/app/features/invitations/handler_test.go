package invitations_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dalemusser/taskhub/internal/app/features/invitations"
	"github.com/dalemusser/taskhub/internal/app/services"
	accountservice "github.com/dalemusser/taskhub/internal/app/services/accounts"
	invitationservice "github.com/dalemusser/taskhub/internal/app/services/invitations"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/testutil"
	"github.com/dalemusser/taskhub/internal/testutil/apptest"
	"go.uber.org/zap"
)

type fixture struct {
	set    *services.Set
	router http.Handler
	admin  *auth.SessionUser
	mgr    *auth.SessionUser
	member *auth.SessionUser
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	set, _ := apptest.Services(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sess, err := set.Accounts.Register(ctx, accountservice.RegisterInput{
		Name: "Alice", Email: "alice@acme.test", Password: "password1", OrganizationName: "Acme",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	fx := testutil.NewFixtures(t, db)
	mona := fx.CreateUser(ctx, "Mona", "mona@acme.test", models.RoleManager, sess.Organization.ID)
	bob := fx.CreateUser(ctx, "Bob", "bob@acme.test", models.RoleMember, sess.Organization.ID)

	h := invitations.NewHandler(set.Invitations, zap.NewNop())
	return fixture{
		set:    set,
		router: invitations.Routes(h, nil),
		admin:  auth.FromUser(sess.User),
		mgr:    auth.FromUser(mona),
		member: auth.FromUser(bob),
	}
}

func (f fixture) do(t *testing.T, method, path string, body any, u *auth.SessionUser) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := testutil.JSONRequest(t, method, path, body)
	if u != nil {
		req = auth.WithTestUser(req, u)
	}
	f.router.ServeHTTP(rec, req)
	return rec
}

type issuedBody struct {
	models.Invitation
	AcceptURL string `json:"accept_url"`
}

func tokenFrom(t *testing.T, acceptURL string) string {
	t.Helper()
	u, err := url.Parse(acceptURL)
	if err != nil {
		t.Fatalf("parse accept url %q: %v", acceptURL, err)
	}
	tok := u.Query().Get("invite")
	if tok == "" {
		t.Fatalf("accept url %q has no token", acceptURL)
	}
	return tok
}

func TestIssueValidateRedeem(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodPost, "/", map[string]string{"email": "Carl@X.com", "role": "member"}, f.mgr)
	testutil.AssertStatus(t, rec, http.StatusCreated)
	var inv issuedBody
	testutil.DecodeJSON(t, rec, &inv)
	if inv.Email != "carl@x.com" || inv.Status != models.InvitePending {
		t.Errorf("issued invitation = %+v", inv.Invitation)
	}
	if strings.Contains(rec.Body.String(), `"token"`) {
		t.Error("raw token field leaked into the response body")
	}
	token := tokenFrom(t, inv.AcceptURL)

	rec = f.do(t, http.MethodPost, "/", map[string]string{"email": "carl@x.com", "role": "member"}, f.admin)
	testutil.AssertStatus(t, rec, http.StatusConflict)
	if code := testutil.ErrorCode(t, rec); code != "DUPLICATE_INVITATION" {
		t.Errorf("duplicate code = %q", code)
	}

	rec = f.do(t, http.MethodGet, "/validate/"+token, nil, nil)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var preview invitationservice.Preview
	testutil.DecodeJSON(t, rec, &preview)
	if preview.OrganizationName != "Acme" || preview.Role != models.RoleMember {
		t.Errorf("preview = %+v", preview)
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := f.set.Accounts.Register(ctx, accountservice.RegisterInput{
		Name: "Carl", Email: "carl@x.com", Password: "password1", InviteToken: token,
	}); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	rec = f.do(t, http.MethodGet, "/validate/"+token, nil, nil)
	testutil.AssertStatus(t, rec, http.StatusGone)
	if code := testutil.ErrorCode(t, rec); code != "INVALID_OR_EXPIRED_INVITATION" {
		t.Errorf("validate after redeem code = %q", code)
	}
}

func TestIssue_Denied(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodPost, "/", map[string]string{"email": "x@x.com", "role": "member"}, f.member)
	testutil.AssertStatus(t, rec, http.StatusForbidden)

	rec = f.do(t, http.MethodPost, "/", map[string]string{"email": "x@x.com", "role": "admin"}, f.mgr)
	testutil.AssertStatus(t, rec, http.StatusForbidden)

	rec = f.do(t, http.MethodPost, "/", map[string]string{"email": "x@x.com", "role": "member"}, nil)
	testutil.AssertStatus(t, rec, http.StatusUnauthorized)

	rec = f.do(t, http.MethodPost, "/", map[string]string{"email": "bob@acme.test", "role": "member"}, f.admin)
	testutil.AssertStatus(t, rec, http.StatusConflict)
	if code := testutil.ErrorCode(t, rec); code != "DUPLICATE_CREDENTIAL" {
		t.Errorf("registered email code = %q", code)
	}
}

func TestListCancelResend(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodPost, "/", map[string]string{"email": "dee@x.com", "role": "manager"}, f.admin)
	testutil.AssertStatus(t, rec, http.StatusCreated)
	var inv issuedBody
	testutil.DecodeJSON(t, rec, &inv)

	rec = f.do(t, http.MethodGet, "/", nil, f.mgr)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var list struct {
		Invitations []models.Invitation `json:"invitations"`
	}
	testutil.DecodeJSON(t, rec, &list)
	if len(list.Invitations) != 1 {
		t.Fatalf("pending = %d, want 1", len(list.Invitations))
	}

	rec = f.do(t, http.MethodPost, "/"+inv.ID.Hex()+"/resend", nil, f.mgr)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var resent issuedBody
	testutil.DecodeJSON(t, rec, &resent)
	if resent.ExpiresAt.Before(inv.ExpiresAt) {
		t.Errorf("resend moved expiry backwards: %v -> %v", inv.ExpiresAt, resent.ExpiresAt)
	}
	if resent.AcceptURL != inv.AcceptURL {
		t.Errorf("resend changed the link: %q -> %q", inv.AcceptURL, resent.AcceptURL)
	}

	rec = f.do(t, http.MethodDelete, "/"+inv.ID.Hex(), nil, f.member)
	testutil.AssertStatus(t, rec, http.StatusForbidden)

	rec = f.do(t, http.MethodDelete, "/"+inv.ID.Hex(), nil, f.mgr)
	testutil.AssertStatus(t, rec, http.StatusNoContent)

	rec = f.do(t, http.MethodDelete, "/"+inv.ID.Hex(), nil, f.mgr)
	testutil.AssertStatus(t, rec, http.StatusNotFound)

	rec = f.do(t, http.MethodGet, "/validate/"+tokenFrom(t, inv.AcceptURL), nil, nil)
	testutil.AssertStatus(t, rec, http.StatusGone)
}
