package accountservice_test

import (
	"context"
	"errors"
	"sync"
	"time"

	userstore "github.com/dalemusser/taskhub/internal/app/store/users"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeUsers struct {
	mu        sync.Mutex
	users     map[primitive.ObjectID]models.User
	createErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[primitive.ObjectID]models.User{}}
}

func (f *fakeUsers) Create(_ context.Context, u models.User) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return models.User{}, f.createErr
	}
	for _, ex := range f.users {
		if ex.Email == u.Email {
			return models.User{}, userstore.ErrDuplicateEmail
		}
	}
	u.ID = primitive.NewObjectID()
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, mongo.ErrNoDocuments
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, mongo.ErrNoDocuments
}

func (f *fakeUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	return err == nil, nil
}

type fakeOrgs struct {
	mu      sync.Mutex
	orgs    map[primitive.ObjectID]models.Organization
	deletes int
}

func newFakeOrgs() *fakeOrgs {
	return &fakeOrgs{orgs: map[primitive.ObjectID]models.Organization{}}
}

func (f *fakeOrgs) add(name, code string) models.Organization {
	f.mu.Lock()
	defer f.mu.Unlock()
	org := models.Organization{ID: primitive.NewObjectID(), Name: name, JoinCode: code}
	f.orgs[org.ID] = org
	return org
}

func (f *fakeOrgs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orgs)
}

func (f *fakeOrgs) Create(_ context.Context, org models.Organization) (models.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	org.ID = primitive.NewObjectID()
	org.JoinCode = "NEW" + org.ID.Hex()[19:]
	f.orgs[org.ID] = org
	return org, nil
}

func (f *fakeOrgs) GetByID(_ context.Context, id primitive.ObjectID) (models.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	org, ok := f.orgs[id]
	if !ok {
		return models.Organization{}, mongo.ErrNoDocuments
	}
	return org, nil
}

func (f *fakeOrgs) GetByJoinCode(_ context.Context, code string) (models.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, org := range f.orgs {
		if org.JoinCode == code {
			return org, nil
		}
	}
	return models.Organization{}, mongo.ErrNoDocuments
}

func (f *fakeOrgs) AddAdmins(_ context.Context, id primitive.ObjectID, n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	org := f.orgs[id]
	org.AdminCount += n
	f.orgs[id] = org
	return nil
}

func (f *fakeOrgs) adminCount(id primitive.ObjectID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orgs[id].AdminCount
}

func (f *fakeOrgs) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	delete(f.orgs, id)
	return nil
}

// fakeRedeemer accepts a single token for a single email.
type fakeRedeemer struct {
	inv      models.Invitation
	accepted []primitive.ObjectID
}

func (f *fakeRedeemer) CheckRedemption(_ context.Context, token, email string) (models.Invitation, error) {
	if token != f.inv.Token || f.inv.Status != models.InvitePending {
		return models.Invitation{}, apperr.ErrInvalidInvitation
	}
	if email != f.inv.Email {
		return models.Invitation{}, apperr.ErrEmailMismatch
	}
	return f.inv, nil
}

func (f *fakeRedeemer) CompleteRedemption(_ context.Context, inv models.Invitation, userID primitive.ObjectID) error {
	f.inv.Status = models.InviteAccepted
	f.accepted = append(f.accepted, userID)
	return nil
}

type fakeSigner struct{}

func (fakeSigner) Issue(userID, orgID primitive.ObjectID, role string) (string, time.Time, error) {
	return "tok-" + userID.Hex(), time.Now().Add(time.Hour), nil
}

var errBoom = errors.New("boom")
