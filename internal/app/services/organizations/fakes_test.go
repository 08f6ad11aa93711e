package orgservice_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	organizationstore "github.com/dalemusser/taskhub/internal/app/store/organizations"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeOrgs struct {
	mu   sync.Mutex
	orgs map[primitive.ObjectID]models.Organization
}

func (f *fakeOrgs) GetByID(_ context.Context, id primitive.ObjectID) (models.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orgs[id]
	if !ok {
		return models.Organization{}, mongo.ErrNoDocuments
	}
	return o, nil
}

func (f *fakeOrgs) Update(_ context.Context, id primitive.ObjectID, ch organizationstore.Changes) (models.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orgs[id]
	if !ok {
		return models.Organization{}, mongo.ErrNoDocuments
	}
	if ch.Name.HasValue() {
		o.Name = ch.Name.Value
	}
	if ch.Description.HasValue() {
		d := ch.Description.Value
		o.Description = &d
	} else if ch.Description.Set {
		o.Description = nil
	}
	if ch.Theme.HasValue() {
		o.Settings.Theme = ch.Theme.Value
	}
	f.orgs[id] = o
	return o, nil
}

func (f *fakeOrgs) AddAdmins(_ context.Context, id primitive.ObjectID, n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.orgs[id]
	o.AdminCount += n
	f.orgs[id] = o
	return nil
}

func (f *fakeOrgs) ReleaseAdmin(_ context.Context, id primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orgs[id]
	if !ok || o.AdminCount <= 1 {
		return false, nil
	}
	o.AdminCount--
	f.orgs[id] = o
	return true, nil
}

func (f *fakeOrgs) adminCount(id primitive.ObjectID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orgs[id].AdminCount
}

type fakeUsers struct {
	mu      sync.Mutex
	users   map[primitive.ObjectID]models.User
	failDel bool
}

func (f *fakeUsers) add(name, role string, orgID primitive.ObjectID) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := models.User{ID: primitive.NewObjectID(), FullName: name, Role: role, OrganizationID: orgID}
	f.users[u.ID] = u
	return u
}

func (f *fakeUsers) has(id primitive.ObjectID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[id]
	return ok
}

func (f *fakeUsers) GetInOrg(_ context.Context, orgID, id primitive.ObjectID) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
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
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (f *fakeUsers) UpdateRole(_ context.Context, orgID, id primitive.ObjectID, from, role string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.OrganizationID != orgID || u.Role != from {
		return models.User{}, mongo.ErrNoDocuments
	}
	u.Role = role
	f.users[id] = u
	return u, nil
}

func (f *fakeUsers) admins(orgID primitive.ObjectID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, u := range f.users {
		if u.OrganizationID == orgID && u.Role == models.RoleAdmin {
			n++
		}
	}
	return n
}

func (f *fakeUsers) Delete(_ context.Context, orgID, id primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDel {
		return 0, errors.New("connection reset")
	}
	u, ok := f.users[id]
	if !ok || u.OrganizationID != orgID {
		return 0, nil
	}
	delete(f.users, id)
	return 1, nil
}

type unassignCall struct {
	org, user primitive.ObjectID
}

type fakeTasks struct {
	mu    sync.Mutex
	calls []unassignCall
}

func (f *fakeTasks) UnassignUser(_ context.Context, orgID, userID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, unassignCall{org: orgID, user: userID})
	return 2, nil
}
