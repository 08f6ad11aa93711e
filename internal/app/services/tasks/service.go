// Package taskservice implements the task lifecycle: creation, updates,
// status changes, listing and statistics, all scoped to the caller's
// organization.
package taskservice

import (
	"context"
	"strings"
	"time"

	taskstore "github.com/dalemusser/taskhub/internal/app/store/tasks"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/taskhub/internal/app/system/inputval"
	"github.com/dalemusser/taskhub/internal/app/system/normalize"
	"github.com/dalemusser/taskhub/internal/app/system/patch"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TaskStore is the subset of the task store the service uses.
type TaskStore interface {
	Create(ctx context.Context, t models.Task) (models.Task, error)
	GetInOrg(ctx context.Context, orgID, id primitive.ObjectID) (models.Task, error)
	GetViewInOrg(ctx context.Context, orgID, id primitive.ObjectID) (models.TaskView, error)
	List(ctx context.Context, orgID primitive.ObjectID, f taskstore.Filter) ([]models.TaskView, error)
	ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.Task, error)
	Update(ctx context.Context, orgID, id primitive.ObjectID, ch taskstore.Changes) (models.Task, error)
	SetStatus(ctx context.Context, orgID, id primitive.ObjectID, status string) (models.Task, error)
	Delete(ctx context.Context, orgID, id primitive.ObjectID) (int64, error)
}

// MemberStore resolves users within an organization.
type MemberStore interface {
	GetInOrg(ctx context.Context, orgID, id primitive.ObjectID) (models.User, error)
	ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.User, error)
}

type Service struct {
	Tasks TaskStore
	Users MemberStore
	Log   *zap.Logger

	// Now is the clock used for overdue counts.
	Now func() time.Time
}

func New(tasks TaskStore, users MemberStore, logger *zap.Logger) *Service {
	return &Service{Tasks: tasks, Users: users, Log: logger, Now: time.Now}
}

// Length limits shared by create and update.
const (
	titleRule       = "max=200"
	descriptionRule = "max=10000"
)

// CreateInput is the body of a create request.
type CreateInput struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	Category    string  `json:"category" validate:"task_category"`
	Priority    string  `json:"priority" validate:"task_priority"`
	DueDate     string  `json:"due_date" validate:"required"`
	AssigneeID  *string `json:"assignee_id"`
}

// UpdateInput is the body of a full update. Absent fields are untouched;
// description and assignee_id accept null to clear them.
type UpdateInput struct {
	Title       patch.Field[string] `json:"title"`
	Description patch.Field[string] `json:"description"`
	Category    patch.Field[string] `json:"category"`
	Priority    patch.Field[string] `json:"priority"`
	Status      patch.Field[string] `json:"status"`
	DueDate     patch.Field[string] `json:"due_date"`
	AssigneeID  patch.Field[string] `json:"assignee_id"`
}

// StatusInput is the body of a status change.
type StatusInput struct {
	Status string `json:"status" validate:"required,task_status"`
}

// ListInput carries the optional list filters. Assignee may be "me".
type ListInput struct {
	Status   string `json:"status" validate:"task_status"`
	Category string `json:"category" validate:"task_category"`
	Priority string `json:"priority" validate:"task_priority"`
	Assignee string `json:"assignee"`
}

// ParseDueDate accepts RFC 3339 timestamps and bare YYYY-MM-DD dates
// (midnight UTC).
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apperr.Validation("due_date must be an RFC 3339 timestamp or YYYY-MM-DD date")
}

func parseTaskID(id string) (primitive.ObjectID, error) {
	oid, ok := normalize.ObjectID(id)
	if !ok {
		return primitive.NilObjectID, apperr.ErrNotFound
	}
	return oid, nil
}

func cleanTitle(s string) (string, error) {
	t := normalize.Name(htmlsanitize.PlainText(s))
	if t == "" {
		return "", apperr.Validation("title is required")
	}
	return t, nil
}

// resolveAssignee checks that id names a member of orgID. Members of other
// organizations are reported the same way as unknown ids.
func (s *Service) resolveAssignee(ctx context.Context, orgID primitive.ObjectID, id string) (primitive.ObjectID, error) {
	oid, ok := normalize.ObjectID(id)
	if !ok {
		return primitive.NilObjectID, apperr.Validation("assignee_id is not a valid id")
	}
	if _, err := s.Users.GetInOrg(ctx, orgID, oid); err != nil {
		if apperr.CodeOf(apperr.Wrap(err)) == apperr.CodeNotFound {
			return primitive.NilObjectID, apperr.Validation("assignee_id must refer to a member of your organization")
		}
		return primitive.NilObjectID, apperr.Wrap(err)
	}
	return oid, nil
}

// Create adds a task to the caller's organization with status todo.
func (s *Service) Create(ctx context.Context, caller *auth.SessionUser, in CreateInput) (models.Task, error) {
	orgID, err := authz.Scope(caller)
	if err != nil {
		return models.Task{}, err
	}
	if err := authz.Authorize(caller, authz.OpCreateTask, authz.InOrg(orgID)); err != nil {
		return models.Task{}, err
	}
	if err := inputval.Struct(in); err != nil {
		return models.Task{}, err
	}

	title, err := cleanTitle(in.Title)
	if err != nil {
		return models.Task{}, err
	}
	due, err := ParseDueDate(in.DueDate)
	if err != nil {
		return models.Task{}, err
	}

	t := models.Task{
		Title:          title,
		Category:       in.Category,
		Priority:       in.Priority,
		Status:         models.TaskTodo,
		DueDate:        due,
		CreatorID:      caller.ID,
		OrganizationID: orgID,
	}
	if t.Category == "" {
		t.Category = models.CategoryOther
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if in.Description != nil {
		if d := htmlsanitize.Sanitize(*in.Description); d != "" {
			t.Description = &d
		}
	}
	if in.AssigneeID != nil && strings.TrimSpace(*in.AssigneeID) != "" {
		a, err := s.resolveAssignee(ctx, orgID, *in.AssigneeID)
		if err != nil {
			return models.Task{}, err
		}
		t.AssigneeID = &a
	}

	created, err := s.Tasks.Create(ctx, t)
	if err != nil {
		return models.Task{}, apperr.Wrap(err)
	}
	s.Log.Info("task created",
		zap.String("task_id", created.ID.Hex()),
		zap.String("org_id", orgID.Hex()),
		zap.String("user_id", caller.ID.Hex()))
	return created, nil
}

// Get returns one task with display names.
func (s *Service) Get(ctx context.Context, caller *auth.SessionUser, id string) (models.TaskView, error) {
	orgID, err := authz.Scope(caller)
	if err != nil {
		return models.TaskView{}, err
	}
	oid, err := parseTaskID(id)
	if err != nil {
		return models.TaskView{}, err
	}
	view, err := s.Tasks.GetViewInOrg(ctx, orgID, oid)
	if err != nil {
		return models.TaskView{}, apperr.Wrap(err)
	}
	if err := authz.Authorize(caller, authz.OpViewTasks, authz.InOrg(view.OrganizationID)); err != nil {
		return models.TaskView{}, err
	}
	return view, nil
}

// List returns the caller's organization's tasks by due date.
func (s *Service) List(ctx context.Context, caller *auth.SessionUser, in ListInput) ([]models.TaskView, error) {
	orgID, err := authz.Scope(caller)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(caller, authz.OpViewTasks, authz.InOrg(orgID)); err != nil {
		return nil, err
	}
	if err := inputval.Struct(in); err != nil {
		return nil, err
	}

	f := taskstore.Filter{Status: in.Status, Category: in.Category, Priority: in.Priority}
	switch a := strings.TrimSpace(in.Assignee); a {
	case "":
	case "me":
		me := caller.ID
		f.AssigneeID = &me
	default:
		oid, ok := normalize.ObjectID(a)
		if !ok {
			return nil, apperr.Validation(`assignee must be "me" or a user id`)
		}
		f.AssigneeID = &oid
	}

	out, err := s.Tasks.List(ctx, orgID, f)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return out, nil
}

// Update applies a manager's partial update. Organization and creator
// cannot be changed.
func (s *Service) Update(ctx context.Context, caller *auth.SessionUser, id string, in UpdateInput) (models.Task, error) {
	orgID, err := authz.Scope(caller)
	if err != nil {
		return models.Task{}, err
	}
	oid, err := parseTaskID(id)
	if err != nil {
		return models.Task{}, err
	}
	existing, err := s.Tasks.GetInOrg(ctx, orgID, oid)
	if err != nil {
		return models.Task{}, apperr.Wrap(err)
	}
	if err := authz.Authorize(caller, authz.OpUpdateTask, authz.InOrg(existing.OrganizationID)); err != nil {
		return models.Task{}, err
	}

	ch, err := s.changes(ctx, orgID, in)
	if err != nil {
		return models.Task{}, err
	}
	if ch.Empty() {
		return existing, nil
	}

	updated, err := s.Tasks.Update(ctx, orgID, oid, ch)
	if err != nil {
		return models.Task{}, apperr.Wrap(err)
	}
	return updated, nil
}

func (s *Service) changes(ctx context.Context, orgID primitive.ObjectID, in UpdateInput) (taskstore.Changes, error) {
	var ch taskstore.Changes
	notNull := func(name string, f patch.Field[string]) error {
		if f.Set && f.Null {
			return apperr.Validation(name + " cannot be null")
		}
		return nil
	}
	for name, f := range map[string]patch.Field[string]{
		"title": in.Title, "category": in.Category, "priority": in.Priority,
		"status": in.Status, "due_date": in.DueDate,
	} {
		if err := notNull(name, f); err != nil {
			return ch, err
		}
	}

	if in.Title.HasValue() {
		if err := inputval.Var("title", in.Title.Value, titleRule); err != nil {
			return ch, err
		}
		t, err := cleanTitle(in.Title.Value)
		if err != nil {
			return ch, err
		}
		ch.Title = patch.Of(t)
	}
	if in.Category.HasValue() {
		if !models.IsValidTaskCategory(in.Category.Value) {
			return ch, apperr.Validation("category must be one of " + strings.Join(models.TaskCategories, ", "))
		}
		ch.Category = in.Category
	}
	if in.Priority.HasValue() {
		if !models.IsValidTaskPriority(in.Priority.Value) {
			return ch, apperr.Validation("priority must be one of " + strings.Join(models.TaskPriorities, ", "))
		}
		ch.Priority = in.Priority
	}
	if in.Status.HasValue() {
		if !models.IsValidTaskStatus(in.Status.Value) {
			return ch, apperr.Validation("status must be one of " + strings.Join(models.TaskStatuses, ", "))
		}
		ch.Status = in.Status
	}
	if in.DueDate.HasValue() {
		due, err := ParseDueDate(in.DueDate.Value)
		if err != nil {
			return ch, err
		}
		ch.DueDate = patch.Of(due)
	}
	if in.Description.Set {
		d := ""
		if in.Description.HasValue() {
			if err := inputval.Var("description", in.Description.Value, descriptionRule); err != nil {
				return ch, err
			}
			d = htmlsanitize.Sanitize(in.Description.Value)
		}
		if d == "" {
			ch.Description = patch.Null[string]()
		} else {
			ch.Description = patch.Of(d)
		}
	}
	if in.AssigneeID.Set {
		if !in.AssigneeID.HasValue() || strings.TrimSpace(in.AssigneeID.Value) == "" {
			ch.AssigneeID = patch.Null[primitive.ObjectID]()
		} else {
			a, err := s.resolveAssignee(ctx, orgID, in.AssigneeID.Value)
			if err != nil {
				return ch, err
			}
			ch.AssigneeID = patch.Of(a)
		}
	}
	return ch, nil
}

// SetStatus changes only the status. Members may change tasks that are
// unassigned or assigned to them. Any status value is accepted, including
// moving back out of completed or expired.
func (s *Service) SetStatus(ctx context.Context, caller *auth.SessionUser, id string, in StatusInput) (models.Task, error) {
	orgID, err := authz.Scope(caller)
	if err != nil {
		return models.Task{}, err
	}
	oid, err := parseTaskID(id)
	if err != nil {
		return models.Task{}, err
	}
	existing, err := s.Tasks.GetInOrg(ctx, orgID, oid)
	if err != nil {
		return models.Task{}, apperr.Wrap(err)
	}
	target := authz.Target{OrganizationID: existing.OrganizationID, AssigneeID: existing.AssigneeID}
	if err := authz.Authorize(caller, authz.OpChangeTaskStatus, target); err != nil {
		return models.Task{}, err
	}
	if err := inputval.Struct(in); err != nil {
		return models.Task{}, err
	}

	updated, err := s.Tasks.SetStatus(ctx, orgID, oid, in.Status)
	if err != nil {
		return models.Task{}, apperr.Wrap(err)
	}
	s.Log.Info("task status changed",
		zap.String("task_id", oid.Hex()),
		zap.String("from", existing.Status),
		zap.String("to", in.Status),
		zap.String("user_id", caller.ID.Hex()))
	return updated, nil
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, caller *auth.SessionUser, id string) error {
	orgID, err := authz.Scope(caller)
	if err != nil {
		return err
	}
	oid, err := parseTaskID(id)
	if err != nil {
		return err
	}
	existing, err := s.Tasks.GetInOrg(ctx, orgID, oid)
	if err != nil {
		return apperr.Wrap(err)
	}
	if err := authz.Authorize(caller, authz.OpDeleteTask, authz.InOrg(existing.OrganizationID)); err != nil {
		return err
	}
	n, err := s.Tasks.Delete(ctx, orgID, oid)
	if err != nil {
		return apperr.Wrap(err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
