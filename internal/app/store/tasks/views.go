package taskstore

import (
	"context"

	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Filter narrows a task listing. Empty fields match everything.
type Filter struct {
	Status     string
	Category   string
	Priority   string
	AssigneeID *primitive.ObjectID
}

func (f Filter) match(orgID primitive.ObjectID) bson.M {
	m := bson.M{"organization_id": orgID}
	if f.Status != "" {
		m["status"] = f.Status
	}
	if f.Category != "" {
		m["category"] = f.Category
	}
	if f.Priority != "" {
		m["priority"] = f.Priority
	}
	if f.AssigneeID != nil {
		m["assignee_id"] = *f.AssigneeID
	}
	return m
}

// populate joins assignee and creator names onto each task.
func populate(match bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "assignee_id",
			"foreignField": "_id",
			"as":           "assignee",
		}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "creator_id",
			"foreignField": "_id",
			"as":           "creator",
		}}},
		bson.D{{Key: "$addFields", Value: bson.M{
			"assignee_name": bson.M{"$arrayElemAt": bson.A{"$assignee.full_name", 0}},
			"creator_name":  bson.M{"$arrayElemAt": bson.A{"$creator.full_name", 0}},
		}}},
		bson.D{{Key: "$project", Value: bson.M{"assignee": 0, "creator": 0}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "due_date", Value: 1},
			{Key: "_id", Value: 1},
		}}},
	}
}

// List returns tasks in orgID matching f, ordered by due date, with
// assignee and creator names populated.
func (s *Store) List(ctx context.Context, orgID primitive.ObjectID, f Filter) ([]models.TaskView, error) {
	return s.aggregate(ctx, populate(f.match(orgID)))
}

// GetViewInOrg loads one populated task from orgID.
func (s *Store) GetViewInOrg(ctx context.Context, orgID, id primitive.ObjectID) (models.TaskView, error) {
	out, err := s.aggregate(ctx, populate(bson.M{"_id": id, "organization_id": orgID}))
	if err != nil {
		return models.TaskView{}, err
	}
	if len(out) == 0 {
		return models.TaskView{}, mongo.ErrNoDocuments
	}
	return out[0], nil
}

func (s *Store) aggregate(ctx context.Context, pipe mongo.Pipeline) ([]models.TaskView, error) {
	cur, err := s.c.Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.TaskView{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
