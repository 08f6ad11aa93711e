// internal/app/store/invitations/invitationstore.go
package invitationstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/taskhub/internal/app/system/normalize"
	"github.com/dalemusser/taskhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateInvitation is returned when a pending invitation already
// exists for the same email and organization.
var ErrDuplicateInvitation = errors.New("a pending invitation for this email already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("invitations")}
}

// Create inserts a pending invitation. The caller supplies Token and ExpiresAt.
func (s *Store) Create(ctx context.Context, inv models.Invitation) (models.Invitation, error) {
	if inv.Token == "" || inv.OrganizationID.IsZero() {
		return models.Invitation{}, errors.New("invitation must have token and organization_id")
	}
	inv.ID = primitive.NewObjectID()
	inv.Email = normalize.Email(inv.Email)
	inv.Status = models.InvitePending
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	inv.AcceptedAt = nil

	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Invitation{}, ErrDuplicateInvitation
		}
		return models.Invitation{}, fmt.Errorf("insert invitation: %w", err)
	}
	return inv, nil
}

// GetByToken looks up an invitation by its secret token in any status.
func (s *Store) GetByToken(ctx context.Context, token string) (models.Invitation, error) {
	var inv models.Invitation
	if err := s.c.FindOne(ctx, bson.M{"token": token}).Decode(&inv); err != nil {
		return models.Invitation{}, err
	}
	return inv, nil
}

// GetInOrg loads an invitation that belongs to orgID.
func (s *Store) GetInOrg(ctx context.Context, orgID, id primitive.ObjectID) (models.Invitation, error) {
	var inv models.Invitation
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "organization_id": orgID}).Decode(&inv); err != nil {
		return models.Invitation{}, err
	}
	return inv, nil
}

// ListPending returns pending invitations for orgID, newest first.
// Entries past their expiry are included; callers decide how to show them.
func (s *Store) ListPending(ctx context.Context, orgID primitive.ObjectID) ([]models.Invitation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"organization_id": orgID, "status": models.InvitePending}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Invitation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Accept flips a pending invitation to accepted. It reports false when the
// invitation was no longer pending, which happens when a concurrent
// redemption won.
func (s *Store) Accept(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	at = at.UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.InvitePending},
		bson.M{"$set": bson.M{"status": models.InviteAccepted, "accepted_at": at}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// Rearm gives a pending invitation in orgID a new expiry. The token is kept.
func (s *Store) Rearm(ctx context.Context, orgID, id primitive.ObjectID, expiresAt time.Time) (models.Invitation, error) {
	var inv models.Invitation
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "organization_id": orgID, "status": models.InvitePending},
		bson.M{"$set": bson.M{"expires_at": expiresAt.UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&inv)
	if err != nil {
		return models.Invitation{}, err
	}
	return inv, nil
}

// DeletePending removes a pending invitation in orgID. Accepted invitations
// are kept as history and are not matched.
func (s *Store) DeletePending(ctx context.Context, orgID, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "organization_id": orgID, "status": models.InvitePending})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
