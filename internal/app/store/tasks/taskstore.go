// internal/app/store/tasks/taskstore.go
package taskstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/taskhub/internal/app/system/patch"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks")}
}

var (
	errBadStatus   = errors.New("invalid task status")
	errBadCategory = errors.New("invalid task category")
	errBadPriority = errors.New("invalid task priority")
)

// Create inserts t. Status defaults to todo; organization and creator must be set.
func (s *Store) Create(ctx context.Context, t models.Task) (models.Task, error) {
	if t.OrganizationID.IsZero() || t.CreatorID.IsZero() {
		return models.Task{}, errors.New("task must have organization_id and creator_id")
	}
	if t.Status == "" {
		t.Status = models.TaskTodo
	}
	if !models.IsValidTaskStatus(t.Status) {
		return models.Task{}, errBadStatus
	}
	if !models.IsValidTaskCategory(t.Category) {
		return models.Task{}, errBadCategory
	}
	if !models.IsValidTaskPriority(t.Priority) {
		return models.Task{}, errBadPriority
	}
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.DueDate = t.DueDate.UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// GetInOrg loads a task that belongs to orgID.
func (s *Store) GetInOrg(ctx context.Context, orgID, id primitive.ObjectID) (models.Task, error) {
	var t models.Task
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "organization_id": orgID}).Decode(&t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// Changes is a partial update. Description and AssigneeID may be cleared
// with an explicit null; the other fields ignore null.
type Changes struct {
	Title       patch.Field[string]
	Description patch.Field[string]
	Category    patch.Field[string]
	Priority    patch.Field[string]
	Status      patch.Field[string]
	DueDate     patch.Field[time.Time]
	AssigneeID  patch.Field[primitive.ObjectID]
}

// Empty reports whether ch changes nothing.
func (ch Changes) Empty() bool {
	return !ch.Title.Set && !ch.Description.Set && !ch.Category.Set &&
		!ch.Priority.Set && !ch.Status.Set && !ch.DueDate.Set && !ch.AssigneeID.Set
}

// Update applies ch to a task in orgID. organization_id and creator_id
// are never part of the update document.
func (s *Store) Update(ctx context.Context, orgID, id primitive.ObjectID, ch Changes) (models.Task, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if ch.Title.HasValue() {
		set["title"] = ch.Title.Value
	}
	if ch.Category.HasValue() {
		if !models.IsValidTaskCategory(ch.Category.Value) {
			return models.Task{}, errBadCategory
		}
		set["category"] = ch.Category.Value
	}
	if ch.Priority.HasValue() {
		if !models.IsValidTaskPriority(ch.Priority.Value) {
			return models.Task{}, errBadPriority
		}
		set["priority"] = ch.Priority.Value
	}
	if ch.Status.HasValue() {
		if !models.IsValidTaskStatus(ch.Status.Value) {
			return models.Task{}, errBadStatus
		}
		set["status"] = ch.Status.Value
	}
	if ch.DueDate.HasValue() {
		set["due_date"] = ch.DueDate.Value.UTC()
	}
	if ch.Description.HasValue() {
		set["description"] = ch.Description.Value
	} else if ch.Description.Set {
		unset["description"] = ""
	}
	if ch.AssigneeID.HasValue() {
		set["assignee_id"] = ch.AssigneeID.Value
	} else if ch.AssigneeID.Set {
		unset["assignee_id"] = ""
	}

	upd := bson.M{"$set": set}
	if len(unset) > 0 {
		upd["$unset"] = unset
	}
	return s.findAndUpdate(ctx, bson.M{"_id": id, "organization_id": orgID}, upd)
}

// SetStatus replaces only the status of a task in orgID.
func (s *Store) SetStatus(ctx context.Context, orgID, id primitive.ObjectID, status string) (models.Task, error) {
	if !models.IsValidTaskStatus(status) {
		return models.Task{}, errBadStatus
	}
	return s.findAndUpdate(ctx,
		bson.M{"_id": id, "organization_id": orgID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}})
}

func (s *Store) findAndUpdate(ctx context.Context, filter, upd bson.M) (models.Task, error) {
	var t models.Task
	err := s.c.FindOneAndUpdate(ctx, filter, upd,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&t)
	if err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// Delete removes a task in orgID. Returns the number deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, orgID, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "organization_id": orgID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ExpireOverdue flips every open task whose due date is before now to
// expired in one conditional write and returns how many changed. Running
// it twice with the same now changes nothing the second time.
func (s *Store) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{
			"due_date": bson.M{"$lt": now.UTC()},
			"status":   bson.M{"$in": models.OpenTaskStatuses},
		},
		bson.M{"$set": bson.M{"status": models.TaskExpired, "updated_at": now.UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// UnassignUser clears the assignee on every task in orgID assigned to userID.
func (s *Store) UnassignUser(ctx context.Context, orgID, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"organization_id": orgID, "assignee_id": userID},
		bson.M{
			"$unset": bson.M{"assignee_id": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ListByOrg returns every task in orgID without display names.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.Task, error) {
	cur, err := s.c.Find(ctx, bson.M{"organization_id": orgID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Task{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
