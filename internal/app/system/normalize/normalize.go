// Package normalize canonicalizes user input before it is compared or stored.
package normalize

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Email trims and lower-cases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses inner runs of spaces.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Role trims and lower-cases a role name.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// JoinCode trims and upper-cases an organization join code.
func JoinCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ObjectID parses a hex id from a path or body. The zero id is rejected.
func ObjectID(s string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	if err != nil || id.IsZero() {
		return primitive.NilObjectID, false
	}
	return id, true
}
