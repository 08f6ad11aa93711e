// Package orgservice manages the caller's organization and its members.
package orgservice

import (
	"context"

	organizationstore "github.com/dalemusser/taskhub/internal/app/store/organizations"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/taskhub/internal/app/system/inputval"
	"github.com/dalemusser/taskhub/internal/app/system/normalize"
	"github.com/dalemusser/taskhub/internal/app/system/patch"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type OrgStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error)
	Update(ctx context.Context, id primitive.ObjectID, ch organizationstore.Changes) (models.Organization, error)
	AddAdmins(ctx context.Context, id primitive.ObjectID, n int64) error
	ReleaseAdmin(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type UserStore interface {
	GetInOrg(ctx context.Context, orgID, id primitive.ObjectID) (models.User, error)
	ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.User, error)
	UpdateRole(ctx context.Context, orgID, id primitive.ObjectID, from, role string) (models.User, error)
	Delete(ctx context.Context, orgID, id primitive.ObjectID) (int64, error)
}

// TaskUnassigner clears assignments held by a departing member.
type TaskUnassigner interface {
	UnassignUser(ctx context.Context, orgID, userID primitive.ObjectID) (int64, error)
}

type Service struct {
	Orgs  OrgStore
	Users UserStore
	Tasks TaskUnassigner
	Log   *zap.Logger
}

func New(orgs OrgStore, users UserStore, tasks TaskUnassigner, logger *zap.Logger) *Service {
	return &Service{Orgs: orgs, Users: users, Tasks: tasks, Log: logger}
}

// UpdateInput is a partial organization update.
type UpdateInput struct {
	Name        patch.Field[string] `json:"name"`
	Description patch.Field[string] `json:"description"`
	Settings    *SettingsInput      `json:"settings"`
}

// SettingsInput is the nested settings patch.
type SettingsInput struct {
	Theme patch.Field[string] `json:"theme"`
}

// RoleInput is the body of a role change.
type RoleInput struct {
	Role string `json:"role" validate:"required,role"`
}

// Get returns the caller's organization, including its join code.
func (s *Service) Get(ctx context.Context, caller *auth.SessionUser) (models.Organization, error) {
	orgID, err := authz.Scope(caller)
	if err != nil {
		return models.Organization{}, err
	}
	if err := authz.Authorize(caller, authz.OpViewOrganization, authz.InOrg(orgID)); err != nil {
		return models.Organization{}, err
	}
	org, err := s.Orgs.GetByID(ctx, orgID)
	if err != nil {
		return models.Organization{}, apperr.Wrap(err)
	}
	return org, nil
}

// Update changes name, description or theme. Admin only.
func (s *Service) Update(ctx context.Context, caller *auth.SessionUser, in UpdateInput) (models.Organization, error) {
	orgID, err := authz.Scope(caller)
	if err != nil {
		return models.Organization{}, err
	}
	if err := authz.Authorize(caller, authz.OpUpdateOrganization, authz.InOrg(orgID)); err != nil {
		return models.Organization{}, err
	}

	var ch organizationstore.Changes
	if in.Name.Set {
		name := ""
		if in.Name.HasValue() {
			name = normalize.Name(htmlsanitize.PlainText(in.Name.Value))
		}
		if name == "" {
			return models.Organization{}, apperr.Validation("name cannot be empty")
		}
		if len(name) > 100 {
			return models.Organization{}, apperr.Validation("name must be at most 100 characters")
		}
		ch.Name = patch.Of(name)
	}
	if in.Description.Set {
		d := ""
		if in.Description.HasValue() {
			d = htmlsanitize.Sanitize(in.Description.Value)
		}
		if d == "" {
			ch.Description = patch.Null[string]()
		} else {
			ch.Description = patch.Of(d)
		}
	}
	if in.Settings != nil && in.Settings.Theme.Set {
		if !in.Settings.Theme.HasValue() || !models.IsValidTheme(in.Settings.Theme.Value) {
			return models.Organization{}, apperr.Validation("settings.theme must be one of light, dark, system")
		}
		ch.Theme = in.Settings.Theme
	}

	org, err := s.Orgs.Update(ctx, orgID, ch)
	if err != nil {
		return models.Organization{}, apperr.Wrap(err)
	}
	s.Log.Info("organization updated",
		zap.String("org_id", orgID.Hex()),
		zap.String("user_id", caller.ID.Hex()))
	return org, nil
}

// ListMembers returns everyone in the caller's organization.
func (s *Service) ListMembers(ctx context.Context, caller *auth.SessionUser) ([]models.User, error) {
	orgID, err := authz.Scope(caller)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(caller, authz.OpListMembers, authz.InOrg(orgID)); err != nil {
		return nil, err
	}
	out, err := s.Users.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return out, nil
}

func (s *Service) loadMember(ctx context.Context, caller *auth.SessionUser, id string) (models.User, error) {
	orgID, err := authz.Scope(caller)
	if err != nil {
		return models.User{}, err
	}
	oid, ok := normalize.ObjectID(id)
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	u, err := s.Users.GetInOrg(ctx, orgID, oid)
	if err != nil {
		return models.User{}, apperr.Wrap(err)
	}
	return u, nil
}

// ChangeRole sets a member's role. Demoting the organization's only admin
// is refused.
func (s *Service) ChangeRole(ctx context.Context, caller *auth.SessionUser, id string, in RoleInput) (models.User, error) {
	in.Role = normalize.Role(in.Role)
	target, err := s.loadMember(ctx, caller, id)
	if err != nil {
		return models.User{}, err
	}
	if err := authz.Authorize(caller, authz.OpChangeMemberRole, authz.Target{
		OrganizationID: target.OrganizationID,
		UserID:         target.ID,
		Role:           in.Role,
	}); err != nil {
		return models.User{}, err
	}
	if err := inputval.Struct(in); err != nil {
		return models.User{}, err
	}
	if target.Role == in.Role {
		return target, nil
	}

	demoting := target.Role == models.RoleAdmin
	if demoting {
		if err := s.releaseAdmin(ctx, target.OrganizationID); err != nil {
			return models.User{}, err
		}
	}
	updated, err := s.Users.UpdateRole(ctx, target.OrganizationID, target.ID, target.Role, in.Role)
	if err != nil {
		if demoting {
			s.restoreAdmin(ctx, target.OrganizationID)
		}
		return models.User{}, apperr.Wrap(err)
	}
	if in.Role == models.RoleAdmin {
		if err := s.Orgs.AddAdmins(ctx, target.OrganizationID, 1); err != nil {
			s.Log.Error("failed to count promoted admin",
				zap.String("org_id", target.OrganizationID.Hex()), zap.Error(err))
		}
	}
	s.Log.Info("member role changed",
		zap.String("member_id", target.ID.Hex()),
		zap.String("from", target.Role),
		zap.String("to", in.Role),
		zap.String("user_id", caller.ID.Hex()))
	return updated, nil
}

// RemoveMember deletes another member and unassigns their tasks. Callers
// can never remove themselves.
func (s *Service) RemoveMember(ctx context.Context, caller *auth.SessionUser, id string) error {
	target, err := s.loadMember(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := authz.Authorize(caller, authz.OpRemoveMember, authz.Target{
		OrganizationID: target.OrganizationID,
		UserID:         target.ID,
	}); err != nil {
		return err
	}

	admin := target.Role == models.RoleAdmin
	if admin {
		if err := s.releaseAdmin(ctx, target.OrganizationID); err != nil {
			return err
		}
	}
	n, err := s.Users.Delete(ctx, target.OrganizationID, target.ID)
	if err != nil || n == 0 {
		if admin {
			s.restoreAdmin(ctx, target.OrganizationID)
		}
		if err != nil {
			return apperr.Wrap(err)
		}
		return apperr.ErrNotFound
	}
	unassigned, err := s.Tasks.UnassignUser(ctx, target.OrganizationID, target.ID)
	if err != nil {
		s.Log.Error("failed to unassign tasks of removed member",
			zap.String("member_id", target.ID.Hex()), zap.Error(err))
	}
	s.Log.Info("member removed",
		zap.String("member_id", target.ID.Hex()),
		zap.Int64("tasks_unassigned", unassigned),
		zap.String("user_id", caller.ID.Hex()))
	return nil
}

// releaseAdmin gives up one admin seat, refusing to release the last one.
func (s *Service) releaseAdmin(ctx context.Context, orgID primitive.ObjectID) error {
	ok, err := s.Orgs.ReleaseAdmin(ctx, orgID)
	if err != nil {
		return apperr.Wrap(err)
	}
	if !ok {
		return apperr.ErrLastAdmin
	}
	return nil
}

func (s *Service) restoreAdmin(ctx context.Context, orgID primitive.ObjectID) {
	if err := s.Orgs.AddAdmins(ctx, orgID, 1); err != nil {
		s.Log.Error("failed to restore admin count",
			zap.String("org_id", orgID.Hex()), zap.Error(err))
	}
}
