// internal/app/store/organizations/organizationstore.go
package organizationstore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dalemusser/taskhub/internal/app/system/normalize"
	"github.com/dalemusser/taskhub/internal/app/system/patch"
	"github.com/dalemusser/taskhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// JoinCodeLength is the number of characters in a generated join code.
const JoinCodeLength = 8

const (
	joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	joinCodeAttempts = 5
)

// ErrJoinCodeExhausted means every generated join code collided.
var ErrJoinCodeExhausted = errors.New("could not generate a unique join code")

type Store struct {
	c *mongo.Collection

	// newCode is swapped in tests to force collisions.
	newCode func() (string, error)
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("organizations"), newCode: GenerateJoinCode}
}

// GenerateJoinCode returns a random code drawn from an unambiguous
// upper-case alphabet.
func GenerateJoinCode() (string, error) {
	max := big.NewInt(int64(len(joinCodeAlphabet)))
	b := make([]byte, JoinCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// Create inserts org with a freshly generated join code, retrying on the
// rare code collision. Inside a transaction a duplicate key aborts the
// transaction, so codes are checked before the insert instead.
func (s *Store) Create(ctx context.Context, org models.Organization) (models.Organization, error) {
	inTxn := mongo.SessionFromContext(ctx) != nil
	now := time.Now().UTC()
	org.Name = normalize.Name(org.Name)
	if org.Settings.Theme == "" {
		org.Settings.Theme = models.ThemeLight
	}
	org.CreatedAt = now
	org.UpdatedAt = now

	for i := 0; i < joinCodeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return models.Organization{}, fmt.Errorf("join code: %w", err)
		}
		if inTxn {
			taken, err := s.c.CountDocuments(ctx, bson.M{"join_code": code}, options.Count().SetLimit(1))
			if err != nil {
				return models.Organization{}, fmt.Errorf("check join code: %w", err)
			}
			if taken > 0 {
				continue
			}
		}
		org.ID = primitive.NewObjectID()
		org.JoinCode = code
		_, err = s.c.InsertOne(ctx, org)
		if err == nil {
			return org, nil
		}
		if inTxn || !wafflemongo.IsDup(err) {
			return models.Organization{}, fmt.Errorf("insert organization: %w", err)
		}
	}
	return models.Organization{}, ErrJoinCodeExhausted
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error) {
	var org models.Organization
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&org)
	if err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// GetByJoinCode resolves a join code (case-insensitive). Returns
// mongo.ErrNoDocuments for unknown codes.
func (s *Store) GetByJoinCode(ctx context.Context, code string) (models.Organization, error) {
	var org models.Organization
	err := s.c.FindOne(ctx, bson.M{"join_code": normalize.JoinCode(code)}).Decode(&org)
	if err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// Changes is a partial update. Fields left unset are not touched.
type Changes struct {
	Name        patch.Field[string]
	Description patch.Field[string]
	Theme       patch.Field[string]
}

// Update applies ch to the organization and returns the stored result.
// The join code and creation time are never modified here.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, ch Changes) (models.Organization, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if ch.Name.HasValue() {
		set["name"] = normalize.Name(ch.Name.Value)
	}
	if ch.Description.HasValue() {
		set["description"] = ch.Description.Value
	} else if ch.Description.Set {
		unset["description"] = ""
	}
	if ch.Theme.HasValue() {
		set["settings.theme"] = ch.Theme.Value
	}

	upd := bson.M{"$set": set}
	if len(unset) > 0 {
		upd["$unset"] = unset
	}

	var org models.Organization
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, upd,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&org)
	if err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// AddAdmins adjusts the admin counter by n.
func (s *Store) AddAdmins(ctx context.Context, id primitive.ObjectID, n int64) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"admin_count": n}})
	return err
}

// ReleaseAdmin decrements the admin counter unless that would leave the
// organization without an admin. It reports false when nothing changed.
func (s *Store) ReleaseAdmin(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "admin_count": bson.M{"$gt": 1}},
		bson.M{"$inc": bson.M{"admin_count": -1}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// Delete removes an organization. Only registration compensation uses it.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
