package tasks_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/taskhub/internal/app/features/tasks"
	accountservice "github.com/dalemusser/taskhub/internal/app/services/accounts"
	taskservice "github.com/dalemusser/taskhub/internal/app/services/tasks"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/testutil"
	"github.com/dalemusser/taskhub/internal/testutil/apptest"
	"go.uber.org/zap"
)

type fixture struct {
	router http.Handler
	admin  *auth.SessionUser
	bob    *auth.SessionUser
	carol  *auth.SessionUser
	gina   *auth.SessionUser
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	set, _ := apptest.Services(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	acme, err := set.Accounts.Register(ctx, accountservice.RegisterInput{
		Name: "Alice", Email: "alice@acme.test", Password: "password1", OrganizationName: "Acme",
	})
	if err != nil {
		t.Fatalf("Register acme: %v", err)
	}
	globex, err := set.Accounts.Register(ctx, accountservice.RegisterInput{
		Name: "Gina", Email: "gina@globex.test", Password: "password1", OrganizationName: "Globex",
	})
	if err != nil {
		t.Fatalf("Register globex: %v", err)
	}
	fx := testutil.NewFixtures(t, db)
	bob := fx.CreateUser(ctx, "Bob", "bob@acme.test", models.RoleMember, acme.Organization.ID)
	carol := fx.CreateUser(ctx, "Carol", "carol@acme.test", models.RoleMember, acme.Organization.ID)

	h := tasks.NewHandler(set.TaskService, zap.NewNop())
	return fixture{
		router: tasks.Routes(h),
		admin:  auth.FromUser(acme.User),
		bob:    auth.FromUser(bob),
		carol:  auth.FromUser(carol),
		gina:   auth.FromUser(globex.User),
	}
}

func (f fixture) do(t *testing.T, method, path string, body any, u *auth.SessionUser) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, testutil.AuthedRequest(t, method, path, body, u))
	return rec
}

func (f fixture) create(t *testing.T, body map[string]any) models.Task {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/", body, f.admin)
	testutil.AssertStatus(t, rec, http.StatusCreated)
	var task models.Task
	testutil.DecodeJSON(t, rec, &task)
	return task
}

func TestCreateAndGet(t *testing.T) {
	f := setup(t)

	task := f.create(t, map[string]any{
		"title": "Fix login", "due_date": "2030-01-15", "assignee_id": f.bob.ID.Hex(),
	})
	if task.Status != models.TaskTodo || task.Category != models.CategoryOther || task.Priority != models.PriorityMedium {
		t.Errorf("defaults not applied: %+v", task)
	}

	rec := f.do(t, http.MethodGet, "/"+task.ID.Hex(), nil, f.carol)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var view models.TaskView
	testutil.DecodeJSON(t, rec, &view)
	if view.AssigneeName != "Bob" || view.CreatorName != "Alice" {
		t.Errorf("view names = %q / %q, want Bob / Alice", view.AssigneeName, view.CreatorName)
	}

	rec = f.do(t, http.MethodGet, "/"+task.ID.Hex(), nil, f.gina)
	testutil.AssertStatus(t, rec, http.StatusNotFound)
	if code := testutil.ErrorCode(t, rec); code != "NOT_FOUND" {
		t.Errorf("foreign read code = %q, want NOT_FOUND", code)
	}
}

func TestCreate_RoleAndValidation(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodPost, "/", map[string]any{"title": "x", "due_date": "2030-01-01"}, f.bob)
	testutil.AssertStatus(t, rec, http.StatusForbidden)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing title", map[string]any{"due_date": "2030-01-01"}},
		{"bad date", map[string]any{"title": "x", "due_date": "next tuesday"}},
		{"bad category", map[string]any{"title": "x", "due_date": "2030-01-01", "category": "chore"}},
		{"foreign assignee", map[string]any{"title": "x", "due_date": "2030-01-01", "assignee_id": f.gina.ID.Hex()}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/", tc.body, f.admin)
			testutil.AssertStatus(t, rec, http.StatusUnprocessableEntity)
		})
	}
}

func TestStatus_AssignmentRule(t *testing.T) {
	f := setup(t)

	mine := f.create(t, map[string]any{"title": "Mine", "due_date": "2030-01-01", "assignee_id": f.bob.ID.Hex()})
	open := f.create(t, map[string]any{"title": "Open", "due_date": "2030-01-02"})
	carols := f.create(t, map[string]any{"title": "Carol's", "due_date": "2030-01-03", "assignee_id": f.carol.ID.Hex()})

	for _, task := range []models.Task{mine, open} {
		rec := f.do(t, http.MethodPatch, "/"+task.ID.Hex()+"/status", `{"status":"in_progress"}`, f.bob)
		testutil.AssertStatus(t, rec, http.StatusOK)
	}

	rec := f.do(t, http.MethodPatch, "/"+carols.ID.Hex()+"/status", `{"status":"completed"}`, f.bob)
	testutil.AssertStatus(t, rec, http.StatusForbidden)
	if code := testutil.ErrorCode(t, rec); code != "ROLE_DENIED" {
		t.Errorf("code = %q, want ROLE_DENIED", code)
	}

	rec = f.do(t, http.MethodPatch, "/"+mine.ID.Hex()+"/status", `{"status":"done"}`, f.bob)
	testutil.AssertStatus(t, rec, http.StatusUnprocessableEntity)
}

func TestUpdateAndDelete(t *testing.T) {
	f := setup(t)
	task := f.create(t, map[string]any{
		"title": "Write docs", "description": "first draft", "due_date": "2030-01-01", "assignee_id": f.bob.ID.Hex(),
	})

	rec := f.do(t, http.MethodPatch, "/"+task.ID.Hex(), `{"title":"Edit"}`, f.bob)
	testutil.AssertStatus(t, rec, http.StatusForbidden)

	rec = f.do(t, http.MethodPatch, "/"+task.ID.Hex(), `{"priority":"high","assignee_id":null}`, f.admin)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var got models.Task
	testutil.DecodeJSON(t, rec, &got)
	if got.Priority != models.PriorityHigh || got.AssigneeID != nil {
		t.Errorf("after patch: priority=%q assignee=%v", got.Priority, got.AssigneeID)
	}
	if got.Title != "Write docs" || got.Description == nil {
		t.Errorf("untouched fields changed: %+v", got)
	}

	rec = f.do(t, http.MethodDelete, "/"+task.ID.Hex(), nil, f.gina)
	testutil.AssertStatus(t, rec, http.StatusNotFound)

	rec = f.do(t, http.MethodDelete, "/"+task.ID.Hex(), nil, f.admin)
	testutil.AssertStatus(t, rec, http.StatusNoContent)

	rec = f.do(t, http.MethodGet, "/"+task.ID.Hex(), nil, f.admin)
	testutil.AssertStatus(t, rec, http.StatusNotFound)
}

func TestListFiltersAndStats(t *testing.T) {
	f := setup(t)
	f.create(t, map[string]any{"title": "A", "due_date": "2030-01-01", "category": "bug", "assignee_id": f.bob.ID.Hex()})
	f.create(t, map[string]any{"title": "B", "due_date": "2030-01-02", "category": "feature"})
	past := time.Now().UTC().Add(-48 * time.Hour).Format("2006-01-02")
	f.create(t, map[string]any{"title": "C", "due_date": past, "category": "bug"})

	rec := f.do(t, http.MethodGet, "/?category=bug", nil, f.carol)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var body struct {
		Tasks []models.TaskView `json:"tasks"`
	}
	testutil.DecodeJSON(t, rec, &body)
	if len(body.Tasks) != 2 {
		t.Errorf("category=bug returned %d tasks, want 2", len(body.Tasks))
	}

	rec = f.do(t, http.MethodGet, "/?assignee=me", nil, f.bob)
	testutil.AssertStatus(t, rec, http.StatusOK)
	body.Tasks = nil
	testutil.DecodeJSON(t, rec, &body)
	if len(body.Tasks) != 1 || body.Tasks[0].Title != "A" {
		t.Errorf("assignee=me returned %+v", body.Tasks)
	}

	rec = f.do(t, http.MethodGet, "/?status=archived", nil, f.bob)
	testutil.AssertStatus(t, rec, http.StatusUnprocessableEntity)

	rec = f.do(t, http.MethodGet, "/stats", nil, f.bob)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var stats taskservice.Stats
	testutil.DecodeJSON(t, rec, &stats)
	if stats.Total != 3 || stats.Overdue != 1 {
		t.Errorf("stats total=%d overdue=%d, want 3 and 1", stats.Total, stats.Overdue)
	}
	if stats.ByCategory[models.CategoryBug] != 2 || stats.ByCategory[models.CategoryDocumentation] != 0 {
		t.Errorf("by_category = %v", stats.ByCategory)
	}

	rec = f.do(t, http.MethodGet, "/stats", nil, f.gina)
	testutil.AssertStatus(t, rec, http.StatusOK)
	stats = taskservice.Stats{}
	testutil.DecodeJSON(t, rec, &stats)
	if stats.Total != 0 {
		t.Errorf("globex sees %d acme tasks", stats.Total)
	}
}
