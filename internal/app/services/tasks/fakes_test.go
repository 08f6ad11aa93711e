package taskservice_test

import (
	"context"
	"sort"
	"sync"
	"time"

	taskstore "github.com/dalemusser/taskhub/internal/app/store/tasks"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeTasks struct {
	mu    sync.Mutex
	tasks map[primitive.ObjectID]models.Task
	users *fakeUsers
}

func newFakeTasks(users *fakeUsers) *fakeTasks {
	return &fakeTasks{tasks: map[primitive.ObjectID]models.Task{}, users: users}
}

func (f *fakeTasks) put(t models.Task) models.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	f.tasks[t.ID] = t
	return t
}

func (f *fakeTasks) get(id primitive.ObjectID) models.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[id]
}

func (f *fakeTasks) Create(_ context.Context, t models.Task) (models.Task, error) {
	t.ID = primitive.NewObjectID()
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	return f.put(t), nil
}

func (f *fakeTasks) GetInOrg(_ context.Context, orgID, id primitive.ObjectID) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return models.Task{}, mongo.ErrNoDocuments
	}
	return t, nil
}

func (f *fakeTasks) view(t models.Task) models.TaskView {
	v := models.TaskView{Task: t}
	if u, ok := f.users.byID(t.CreatorID); ok {
		v.CreatorName = u.FullName
	}
	if t.AssigneeID != nil {
		if u, ok := f.users.byID(*t.AssigneeID); ok {
			v.AssigneeName = u.FullName
		}
	}
	return v
}

func (f *fakeTasks) GetViewInOrg(ctx context.Context, orgID, id primitive.ObjectID) (models.TaskView, error) {
	t, err := f.GetInOrg(ctx, orgID, id)
	if err != nil {
		return models.TaskView{}, err
	}
	return f.view(t), nil
}

func (f *fakeTasks) List(ctx context.Context, orgID primitive.ObjectID, flt taskstore.Filter) ([]models.TaskView, error) {
	all, _ := f.ListByOrg(ctx, orgID)
	out := []models.TaskView{}
	for _, t := range all {
		if flt.Status != "" && t.Status != flt.Status {
			continue
		}
		if flt.Category != "" && t.Category != flt.Category {
			continue
		}
		if flt.Priority != "" && t.Priority != flt.Priority {
			continue
		}
		if flt.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *flt.AssigneeID) {
			continue
		}
		out = append(out, f.view(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (f *fakeTasks) ListByOrg(_ context.Context, orgID primitive.ObjectID) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Task{}
	for _, t := range f.tasks {
		if t.OrganizationID == orgID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasks) Update(ctx context.Context, orgID, id primitive.ObjectID, ch taskstore.Changes) (models.Task, error) {
	t, err := f.GetInOrg(ctx, orgID, id)
	if err != nil {
		return models.Task{}, err
	}
	if ch.Title.HasValue() {
		t.Title = ch.Title.Value
	}
	if ch.Category.HasValue() {
		t.Category = ch.Category.Value
	}
	if ch.Priority.HasValue() {
		t.Priority = ch.Priority.Value
	}
	if ch.Status.HasValue() {
		t.Status = ch.Status.Value
	}
	if ch.DueDate.HasValue() {
		t.DueDate = ch.DueDate.Value
	}
	if ch.Description.HasValue() {
		d := ch.Description.Value
		t.Description = &d
	} else if ch.Description.Set {
		t.Description = nil
	}
	if ch.AssigneeID.HasValue() {
		a := ch.AssigneeID.Value
		t.AssigneeID = &a
	} else if ch.AssigneeID.Set {
		t.AssigneeID = nil
	}
	return f.put(t), nil
}

func (f *fakeTasks) SetStatus(ctx context.Context, orgID, id primitive.ObjectID, status string) (models.Task, error) {
	t, err := f.GetInOrg(ctx, orgID, id)
	if err != nil {
		return models.Task{}, err
	}
	t.Status = status
	return f.put(t), nil
}

func (f *fakeTasks) Delete(ctx context.Context, orgID, id primitive.ObjectID) (int64, error) {
	if _, err := f.GetInOrg(ctx, orgID, id); err != nil {
		return 0, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
	return 1, nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[primitive.ObjectID]models.User{}}
}

func (f *fakeUsers) add(name, role string, orgID primitive.ObjectID) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := models.User{ID: primitive.NewObjectID(), FullName: name, Role: role, OrganizationID: orgID}
	f.users[u.ID] = u
	return u
}

func (f *fakeUsers) byID(id primitive.ObjectID) (models.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	return u, ok
}

func (f *fakeUsers) GetInOrg(_ context.Context, orgID, id primitive.ObjectID) (models.User, error) {
	u, ok := f.byID(id)
	if !ok || u.OrganizationID != orgID {
		return models.User{}, mongo.ErrNoDocuments
	}
	return u, nil
}

func (f *fakeUsers) ListByOrg(_ context.Context, orgID primitive.ObjectID) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.User{}
	for _, u := range f.users {
		if u.OrganizationID == orgID {
			out = append(out, u)
		}
	}
	return out, nil
}
