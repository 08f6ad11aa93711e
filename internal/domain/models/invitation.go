// internal/domain/models/invitation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invitation statuses. Pending invitations past ExpiresAt are unusable even
// though their stored status does not change.
const (
	InvitePending  = "pending"
	InviteAccepted = "accepted"
	InviteExpired  = "expired"
)

// Invitation grants Role in OrganizationID to whoever registers with Email and Token.
type Invitation struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	Email          string             `bson:"email" json:"email"`
	Role           string             `bson:"role" json:"role"`
	OrganizationID primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	InvitedBy      primitive.ObjectID `bson:"invited_by" json:"invited_by"`
	Token          string             `bson:"token" json:"-"`
	Status         string             `bson:"status" json:"status"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	ExpiresAt      time.Time          `bson:"expires_at" json:"expires_at"`
	AcceptedAt     *time.Time         `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
}

// IsRedeemable reports whether the invitation is pending and unexpired at now.
func (inv Invitation) IsRedeemable(now time.Time) bool {
	return inv.Status == InvitePending && inv.ExpiresAt.After(now)
}
