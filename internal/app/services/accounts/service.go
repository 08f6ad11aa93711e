// Package accountservice registers users, signs them in, and reports who
// the caller is.
package accountservice

import (
	"context"
	"errors"
	"strings"
	"time"

	userstore "github.com/dalemusser/taskhub/internal/app/store/users"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/taskhub/internal/app/system/inputval"
	"github.com/dalemusser/taskhub/internal/app/system/normalize"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type UserStore interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

type OrgStore interface {
	Create(ctx context.Context, org models.Organization) (models.Organization, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error)
	GetByJoinCode(ctx context.Context, code string) (models.Organization, error)
	AddAdmins(ctx context.Context, id primitive.ObjectID, n int64) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Redeemer is the invitation side of registration.
type Redeemer interface {
	CheckRedemption(ctx context.Context, token, email string) (models.Invitation, error)
	CompleteRedemption(ctx context.Context, inv models.Invitation, userID primitive.ObjectID) error
}

// TokenSigner issues identity tokens.
type TokenSigner interface {
	Issue(userID, orgID primitive.ObjectID, role string) (string, time.Time, error)
}

// TxRunner runs fn atomically where the store allows it.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	Users       UserStore
	Orgs        OrgStore
	Invitations Redeemer
	Tokens      TokenSigner
	Tx          TxRunner
	Log         *zap.Logger
}

func New(users UserStore, orgs OrgStore, invitations Redeemer, tokens TokenSigner, logger *zap.Logger) *Service {
	return &Service{
		Users:       users,
		Orgs:        orgs,
		Invitations: invitations,
		Tokens:      tokens,
		Tx:          func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) },
		Log:         logger,
	}
}

// RegisterInput is the registration body. Exactly one of OrganizationName,
// JoinCode and InviteToken must be set.
type RegisterInput struct {
	Name             string `json:"name" validate:"required,max=100"`
	Email            string `json:"email" validate:"required,email,max=254"`
	Password         string `json:"password" validate:"required,min=8,maxbytes=72"`
	OrganizationName string `json:"organization_name" validate:"omitempty,max=100"`
	JoinCode         string `json:"join_code" validate:"omitempty,max=32"`
	InviteToken      string `json:"invite_token" validate:"omitempty,max=128"`
}

// LoginInput is the sign-in body.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session is returned by register and login.
type Session struct {
	Token        string              `json:"token"`
	ExpiresAt    time.Time           `json:"expires_at"`
	User         models.User         `json:"user"`
	Organization models.Organization `json:"organization"`
}

// Profile describes the signed-in caller.
type Profile struct {
	User         models.User         `json:"user"`
	Organization models.Organization `json:"organization"`
}

var errBadCredentials = apperr.New(apperr.CodeUnauthenticated, "invalid email or password")

// Register creates an account. With an invite token the user joins the
// invitation's organization with its role; with a join code they join as
// a member; with an organization name they create it and become its admin.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Email = normalize.Email(in.Email)
	in.Name = normalize.Name(htmlsanitize.PlainText(in.Name))
	in.OrganizationName = normalize.Name(htmlsanitize.PlainText(in.OrganizationName))
	in.JoinCode = normalize.JoinCode(in.JoinCode)
	in.InviteToken = strings.TrimSpace(in.InviteToken)

	if err := inputval.Struct(in); err != nil {
		return Session{}, err
	}
	modes := 0
	for _, v := range []string{in.OrganizationName, in.JoinCode, in.InviteToken} {
		if v != "" {
			modes++
		}
	}
	if modes != 1 {
		return Session{}, apperr.Validation("provide exactly one of organization_name, join_code or invite_token")
	}

	exists, err := s.Users.EmailExists(ctx, in.Email)
	if err != nil {
		return Session{}, apperr.Wrap(err)
	}
	if exists {
		return Session{}, apperr.ErrDuplicateCredential
	}

	var (
		user models.User
		org  models.Organization
	)
	switch {
	case in.InviteToken != "":
		user, org, err = s.registerWithInvitation(ctx, in)
	case in.JoinCode != "":
		user, org, err = s.registerWithJoinCode(ctx, in)
	default:
		user, org, err = s.registerWithNewOrg(ctx, in)
	}
	if err != nil {
		return Session{}, err
	}

	s.Log.Info("user registered",
		zap.String("user_id", user.ID.Hex()),
		zap.String("org_id", org.ID.Hex()),
		zap.String("role", user.Role))
	return s.session(user, org)
}

func (s *Service) newUser(in RegisterInput, role string, orgID primitive.ObjectID) (models.User, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, apperr.Store(err)
	}
	return models.User{
		FullName:       in.Name,
		Email:          in.Email,
		PasswordHash:   hash,
		Role:           role,
		OrganizationID: orgID,
	}, nil
}

func (s *Service) createUser(ctx context.Context, u models.User) (models.User, error) {
	created, err := s.Users.Create(ctx, u)
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			return models.User{}, apperr.ErrDuplicateCredential
		}
		return models.User{}, apperr.Wrap(err)
	}
	return created, nil
}

// registerWithInvitation creates the user before accepting the invitation
// so a failed registration never consumes it.
func (s *Service) registerWithInvitation(ctx context.Context, in RegisterInput) (models.User, models.Organization, error) {
	inv, err := s.Invitations.CheckRedemption(ctx, in.InviteToken, in.Email)
	if err != nil {
		return models.User{}, models.Organization{}, err
	}
	org, err := s.Orgs.GetByID(ctx, inv.OrganizationID)
	if err != nil {
		if apperr.CodeOf(apperr.Wrap(err)) == apperr.CodeNotFound {
			return models.User{}, models.Organization{}, apperr.ErrInvalidInvitation
		}
		return models.User{}, models.Organization{}, apperr.Wrap(err)
	}
	u, err := s.newUser(in, inv.Role, org.ID)
	if err != nil {
		return models.User{}, models.Organization{}, err
	}
	user, err := s.createUser(ctx, u)
	if err != nil {
		return models.User{}, models.Organization{}, err
	}
	if user.Role == models.RoleAdmin {
		if err := s.Orgs.AddAdmins(ctx, org.ID, 1); err != nil {
			s.Log.Error("failed to count invited admin",
				zap.String("org_id", org.ID.Hex()), zap.Error(err))
		}
	}
	if err := s.Invitations.CompleteRedemption(ctx, inv, user.ID); err != nil {
		s.Log.Error("invitation acceptance failed after user creation",
			zap.String("invitation_id", inv.ID.Hex()),
			zap.String("user_id", user.ID.Hex()),
			zap.Error(err))
	}
	return user, org, nil
}

func (s *Service) registerWithJoinCode(ctx context.Context, in RegisterInput) (models.User, models.Organization, error) {
	org, err := s.Orgs.GetByJoinCode(ctx, in.JoinCode)
	if err != nil {
		if apperr.CodeOf(apperr.Wrap(err)) == apperr.CodeNotFound {
			return models.User{}, models.Organization{}, apperr.Validation("join_code does not match any organization")
		}
		return models.User{}, models.Organization{}, apperr.Wrap(err)
	}
	u, err := s.newUser(in, models.RoleMember, org.ID)
	if err != nil {
		return models.User{}, models.Organization{}, err
	}
	user, err := s.createUser(ctx, u)
	if err != nil {
		return models.User{}, models.Organization{}, err
	}
	return user, org, nil
}

// registerWithNewOrg writes the organization and its first admin together.
// Inside a transaction a failed user insert aborts both writes; without one
// the organization is removed again.
func (s *Service) registerWithNewOrg(ctx context.Context, in RegisterInput) (models.User, models.Organization, error) {
	var (
		user models.User
		org  models.Organization
	)
	err := s.Tx(ctx, func(ctx context.Context) error {
		var err error
		org, err = s.Orgs.Create(ctx, models.Organization{Name: in.OrganizationName, AdminCount: 1})
		if err != nil {
			return apperr.Wrap(err)
		}
		u, err := s.newUser(in, models.RoleAdmin, org.ID)
		if err == nil {
			user, err = s.createUser(ctx, u)
		}
		if err != nil {
			if mongo.SessionFromContext(ctx) == nil {
				s.removeOrg(ctx, org.ID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.User{}, models.Organization{}, apperr.Wrap(err)
	}
	return user, org, nil
}

func (s *Service) removeOrg(ctx context.Context, id primitive.ObjectID) {
	if err := s.Orgs.Delete(ctx, id); err != nil {
		s.Log.Error("failed to remove organization after user insert failed",
			zap.String("org_id", id.Hex()), zap.Error(err))
	}
}

// Login checks email and password and returns a fresh session. Unknown
// emails and wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	if err := inputval.Struct(in); err != nil {
		return Session{}, err
	}
	user, err := s.Users.GetByEmail(ctx, in.Email)
	if err != nil {
		if apperr.CodeOf(apperr.Wrap(err)) == apperr.CodeNotFound {
			return Session{}, errBadCredentials
		}
		return Session{}, apperr.Wrap(err)
	}
	if !auth.CheckPassword(user.PasswordHash, in.Password) {
		return Session{}, errBadCredentials
	}
	return s.sessionFor(ctx, user)
}

// LoginVerifiedEmail signs in an existing account whose email an external
// identity provider has verified.
func (s *Service) LoginVerifiedEmail(ctx context.Context, email string) (Session, error) {
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if apperr.CodeOf(apperr.Wrap(err)) == apperr.CodeNotFound {
			return Session{}, apperr.New(apperr.CodeUnauthenticated, "no account is registered for this email; register first")
		}
		return Session{}, apperr.Wrap(err)
	}
	return s.sessionFor(ctx, user)
}

func (s *Service) sessionFor(ctx context.Context, user models.User) (Session, error) {
	org, err := s.Orgs.GetByID(ctx, user.OrganizationID)
	if err != nil {
		return Session{}, apperr.Wrap(err)
	}
	s.Log.Info("user signed in", zap.String("user_id", user.ID.Hex()))
	return s.session(user, org)
}

func (s *Service) session(user models.User, org models.Organization) (Session, error) {
	tok, exp, err := s.Tokens.Issue(user.ID, user.OrganizationID, user.Role)
	if err != nil {
		return Session{}, apperr.Store(err)
	}
	return Session{Token: tok, ExpiresAt: exp, User: user, Organization: org}, nil
}

// Me returns the caller's stored record and organization.
func (s *Service) Me(ctx context.Context, caller *auth.SessionUser) (Profile, error) {
	if caller == nil || caller.ID.IsZero() {
		return Profile{}, apperr.ErrUnauthenticated
	}
	user, err := s.Users.GetByID(ctx, caller.ID)
	if err != nil {
		if apperr.CodeOf(apperr.Wrap(err)) == apperr.CodeNotFound {
			return Profile{}, apperr.ErrUnauthenticated
		}
		return Profile{}, apperr.Wrap(err)
	}
	org, err := s.Orgs.GetByID(ctx, user.OrganizationID)
	if err != nil {
		return Profile{}, apperr.Wrap(err)
	}
	return Profile{User: user, Organization: org}, nil
}
