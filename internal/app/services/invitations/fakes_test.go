package invitationservice_test

import (
	"context"
	"sync"
	"time"

	invitationstore "github.com/dalemusser/taskhub/internal/app/store/invitations"
	"github.com/dalemusser/taskhub/internal/app/system/mailer"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeInvites mirrors the partial unique index on pending (email, org).
type fakeInvites struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Invitation
}

func newFakeInvites() *fakeInvites {
	return &fakeInvites{byID: map[primitive.ObjectID]models.Invitation{}}
}

func (f *fakeInvites) Create(_ context.Context, inv models.Invitation) (models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ex := range f.byID {
		if ex.Status == models.InvitePending && ex.Email == inv.Email && ex.OrganizationID == inv.OrganizationID {
			return models.Invitation{}, invitationstore.ErrDuplicateInvitation
		}
	}
	inv.ID = primitive.NewObjectID()
	inv.Status = models.InvitePending
	f.byID[inv.ID] = inv
	return inv, nil
}

func (f *fakeInvites) get(id primitive.ObjectID) models.Invitation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeInvites) GetByToken(_ context.Context, token string) (models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.byID {
		if inv.Token == token {
			return inv, nil
		}
	}
	return models.Invitation{}, mongo.ErrNoDocuments
}

func (f *fakeInvites) GetInOrg(_ context.Context, orgID, id primitive.ObjectID) (models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.byID[id]
	if !ok || inv.OrganizationID != orgID {
		return models.Invitation{}, mongo.ErrNoDocuments
	}
	return inv, nil
}

func (f *fakeInvites) ListPending(_ context.Context, orgID primitive.ObjectID) ([]models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Invitation{}
	for _, inv := range f.byID {
		if inv.OrganizationID == orgID && inv.Status == models.InvitePending {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeInvites) Accept(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.byID[id]
	if !ok || inv.Status != models.InvitePending {
		return false, nil
	}
	inv.Status = models.InviteAccepted
	inv.AcceptedAt = &at
	f.byID[id] = inv
	return true, nil
}

func (f *fakeInvites) Rearm(_ context.Context, orgID, id primitive.ObjectID, expiresAt time.Time) (models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.byID[id]
	if !ok || inv.OrganizationID != orgID || inv.Status != models.InvitePending {
		return models.Invitation{}, mongo.ErrNoDocuments
	}
	inv.ExpiresAt = expiresAt
	f.byID[id] = inv
	return inv, nil
}

func (f *fakeInvites) DeletePending(_ context.Context, orgID, id primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.byID[id]
	if !ok || inv.OrganizationID != orgID || inv.Status != models.InvitePending {
		return 0, nil
	}
	delete(f.byID, id)
	return 1, nil
}

type fakeUsers struct{ emails map[string]bool }

func (f *fakeUsers) EmailExists(_ context.Context, email string) (bool, error) {
	return f.emails[email], nil
}

type fakeOrgs struct{ orgs map[primitive.ObjectID]models.Organization }

func (f *fakeOrgs) GetByID(_ context.Context, id primitive.ObjectID) (models.Organization, error) {
	org, ok := f.orgs[id]
	if !ok {
		return models.Organization{}, mongo.ErrNoDocuments
	}
	return org, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (f *fakeNotifier) Dispatch(e mailer.Email) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, e)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
