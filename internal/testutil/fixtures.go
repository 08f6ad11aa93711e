package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures inserts test documents directly, bypassing the stores.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database.
func (f *Fixtures) DB() *mongo.Database { return f.db }

// CreateOrganization inserts an organization with a unique join code.
func (f *Fixtures) CreateOrganization(ctx context.Context, name string) models.Organization {
	f.t.Helper()
	now := time.Now().UTC()
	id := primitive.NewObjectID()
	org := models.Organization{
		ID:        id,
		Name:      name,
		JoinCode:  id.Hex()[16:],
		Settings:  models.OrgSettings{Theme: models.ThemeLight},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("organizations").InsertOne(ctx, org); err != nil {
		f.t.Fatalf("failed to create test organization: %v", err)
	}
	return org
}

// CreateUser inserts a user with no password. Admins are added to their
// organization's admin count.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string, orgID primitive.ObjectID) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:             primitive.NewObjectID(),
		FullName:       fullName,
		Email:          email,
		Role:           role,
		OrganizationID: orgID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	if role == models.RoleAdmin {
		_, err := f.db.Collection("organizations").UpdateOne(ctx,
			bson.M{"_id": orgID}, bson.M{"$inc": bson.M{"admin_count": 1}})
		if err != nil {
			f.t.Fatalf("failed to count test admin: %v", err)
		}
	}
	return u
}

// CreateTask inserts a task with the given status and due date.
func (f *Fixtures) CreateTask(ctx context.Context, title, status string, due time.Time, orgID, creatorID primitive.ObjectID, assignee *primitive.ObjectID) models.Task {
	f.t.Helper()
	now := time.Now().UTC()
	task := models.Task{
		ID:             primitive.NewObjectID(),
		Title:          title,
		Category:       models.CategoryOther,
		Priority:       models.PriorityMedium,
		Status:         status,
		DueDate:        due.UTC(),
		AssigneeID:     assignee,
		CreatorID:      creatorID,
		OrganizationID: orgID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := f.db.Collection("tasks").InsertOne(ctx, task); err != nil {
		f.t.Fatalf("failed to create test task: %v", err)
	}
	return task
}
