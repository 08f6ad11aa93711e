// Package apptest builds the wired services for handler tests.
package apptest

import (
	"testing"

	"github.com/dalemusser/taskhub/internal/app/services"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/indexes"
	"github.com/dalemusser/taskhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TestTokenSecret signs identity tokens in handler tests.
const TestTokenSecret = "test-token-secret-0123456789abcdef"

// Services wires the real services over db with no mail delivery. Indexes
// are ensured first so uniqueness rules hold.
func Services(t *testing.T, db *mongo.Database) (*services.Set, *auth.TokenIssuer) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	auth.BcryptCost = bcrypt.MinCost
	tokens, err := auth.NewTokenIssuer(TestTokenSecret, 0)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	set := services.New(db, services.Options{
		Tokens:  tokens,
		BaseURL: "http://localhost:8080",
	}, zap.NewNop())
	return set, tokens
}

// SessionManager returns a non-secure cookie session manager.
func SessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only-0123", "test-session", "", 0, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return sm
}
