package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/taskhub/internal/app/system/validators"
	"github.com/dalemusser/taskhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, want := range validators.Collections {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestEnsureAll_RejectsInvalidTaskStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	doc := bson.M{
		"_id":             primitive.NewObjectID(),
		"title":           "Fix login",
		"category":        "bug",
		"priority":        "high",
		"status":          "archived",
		"due_date":        time.Now().UTC(),
		"creator_id":      primitive.NewObjectID(),
		"organization_id": primitive.NewObjectID(),
	}
	if _, err := db.Collection("tasks").InsertOne(ctx, doc); err == nil {
		t.Error("expected insert with unknown status to fail validation")
	}

	doc["_id"] = primitive.NewObjectID()
	doc["status"] = "todo"
	if _, err := db.Collection("tasks").InsertOne(ctx, doc); err != nil {
		t.Errorf("valid task insert failed: %v", err)
	}
}
