// internal/app/system/authz/authz.go
package authz

import (
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Op names an action subject to access control.
type Op int

const (
	OpViewOrganization Op = iota
	OpUpdateOrganization
	OpListMembers
	OpChangeMemberRole
	OpRemoveMember
	OpViewTasks
	OpCreateTask
	OpUpdateTask
	OpDeleteTask
	OpChangeTaskStatus
	OpViewStats
	OpListInvitations
	OpCreateInvitation
	OpCancelInvitation
	OpResendInvitation
)

var opNames = map[Op]string{
	OpViewOrganization:   "view_organization",
	OpUpdateOrganization: "update_organization",
	OpListMembers:        "list_members",
	OpChangeMemberRole:   "change_member_role",
	OpRemoveMember:       "remove_member",
	OpViewTasks:          "view_tasks",
	OpCreateTask:         "create_task",
	OpUpdateTask:         "update_task",
	OpDeleteTask:         "delete_task",
	OpChangeTaskStatus:   "change_task_status",
	OpViewStats:          "view_stats",
	OpListInvitations:    "list_invitations",
	OpCreateInvitation:   "create_invitation",
	OpCancelInvitation:   "cancel_invitation",
	OpResendInvitation:   "resend_invitation",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "unknown"
}

// Target describes the resource an operation acts on. OrganizationID is
// always required; the other fields only matter for specific ops.
type Target struct {
	OrganizationID primitive.ObjectID
	// UserID is the member affected by a role change or removal.
	UserID primitive.ObjectID
	// AssigneeID is the task's current assignee (nil when unassigned).
	AssigneeID *primitive.ObjectID
	// Role is the role being granted by an invitation or role change.
	Role string
}

// InOrg is shorthand for a Target that only names the organization.
func InOrg(orgID primitive.ObjectID) Target { return Target{OrganizationID: orgID} }

// Authorize decides whether caller may perform op on target. Rules are
// evaluated in order: authenticated, same organization, role, then the
// op-specific constraints.
func Authorize(caller *auth.SessionUser, op Op, target Target) error {
	if caller == nil || caller.ID.IsZero() {
		return apperr.ErrUnauthenticated
	}
	if target.OrganizationID.IsZero() || target.OrganizationID != caller.OrganizationID {
		return apperr.ErrCrossTenant
	}

	switch op {
	case OpViewOrganization, OpListMembers, OpViewTasks, OpViewStats:
		return nil

	case OpUpdateOrganization, OpChangeMemberRole:
		return requireAdmin(caller)

	case OpRemoveMember:
		if err := requireAdmin(caller); err != nil {
			return err
		}
		if target.UserID == caller.ID {
			return apperr.ErrSelfRemoval
		}
		return nil

	case OpCreateTask, OpUpdateTask, OpDeleteTask,
		OpListInvitations, OpCancelInvitation, OpResendInvitation:
		return requireManager(caller)

	case OpCreateInvitation:
		if err := requireManager(caller); err != nil {
			return err
		}
		// Nobody can grant a role above their own.
		if models.RoleRank(target.Role) > models.RoleRank(caller.Role) {
			return apperr.New(apperr.CodeRoleDenied, "you cannot invite someone with a higher role than your own")
		}
		return nil

	case OpChangeTaskStatus:
		if IsManager(caller) {
			return nil
		}
		if caller.Role == models.RoleMember &&
			(target.AssigneeID == nil || *target.AssigneeID == caller.ID) {
			return nil
		}
		return apperr.New(apperr.CodeRoleDenied, "members can only update tasks assigned to them or unassigned")
	}

	return apperr.ErrRoleDenied
}

// Scope returns the organization id every query made on behalf of caller
// must filter on.
func Scope(caller *auth.SessionUser) (primitive.ObjectID, error) {
	if caller == nil || caller.ID.IsZero() || caller.OrganizationID.IsZero() {
		return primitive.NilObjectID, apperr.ErrUnauthenticated
	}
	return caller.OrganizationID, nil
}

// IsAdmin reports whether caller is an admin.
func IsAdmin(caller *auth.SessionUser) bool {
	return caller != nil && caller.Role == models.RoleAdmin
}

// IsManager reports whether caller is a manager or an admin.
func IsManager(caller *auth.SessionUser) bool {
	return caller != nil && (caller.Role == models.RoleAdmin || caller.Role == models.RoleManager)
}

func requireAdmin(caller *auth.SessionUser) error {
	if !IsAdmin(caller) {
		return apperr.New(apperr.CodeRoleDenied, "only admins can perform this action")
	}
	return nil
}

func requireManager(caller *auth.SessionUser) error {
	if !IsManager(caller) {
		return apperr.New(apperr.CodeRoleDenied, "only admins and managers can perform this action")
	}
	return nil
}
