// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Themes an organization can select in its settings.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// IsValidTheme reports whether theme is a supported settings theme.
func IsValidTheme(theme string) bool {
	switch theme {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// OrgSettings holds per-organization preferences.
type OrgSettings struct {
	Theme string `bson:"theme" json:"theme"`
}

// Organization is the tenant boundary. JoinCode is generated at creation and
// never changes; anyone holding it can join as a member.
type Organization struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	JoinCode    string             `bson:"join_code" json:"join_code"`
	Description *string            `bson:"description,omitempty" json:"description,omitempty"`
	Settings    OrgSettings        `bson:"settings" json:"settings"`
	// AdminCount tracks members holding the admin role. Demotions and
	// removals decrement it with a guarded write so it never reaches zero.
	AdminCount int64     `bson:"admin_count" json:"-"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}
