// Package invitationservice issues, validates, redeems, cancels and
// resends organization invitations.
package invitationservice

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	invitationstore "github.com/dalemusser/taskhub/internal/app/store/invitations"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/inputval"
	"github.com/dalemusser/taskhub/internal/app/system/mailer"
	"github.com/dalemusser/taskhub/internal/app/system/normalize"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultExpiry is how long a new or resent invitation stays redeemable.
const DefaultExpiry = 7 * 24 * time.Hour

// TokenBytes is the amount of randomness in an invitation token.
const TokenBytes = 32

type InvitationStore interface {
	Create(ctx context.Context, inv models.Invitation) (models.Invitation, error)
	GetByToken(ctx context.Context, token string) (models.Invitation, error)
	GetInOrg(ctx context.Context, orgID, id primitive.ObjectID) (models.Invitation, error)
	ListPending(ctx context.Context, orgID primitive.ObjectID) ([]models.Invitation, error)
	Accept(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	Rearm(ctx context.Context, orgID, id primitive.ObjectID, expiresAt time.Time) (models.Invitation, error)
	DeletePending(ctx context.Context, orgID, id primitive.ObjectID) (int64, error)
}

type UserStore interface {
	EmailExists(ctx context.Context, email string) (bool, error)
}

type OrgStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error)
}

// Notifier delivers mail without blocking the caller.
type Notifier interface {
	Dispatch(e mailer.Email)
}

type Service struct {
	Invites  InvitationStore
	Users    UserStore
	Orgs     OrgStore
	Notify   Notifier
	Log      *zap.Logger
	BaseURL  string
	SiteName string
	Expiry   time.Duration

	Now      func() time.Time
	NewToken func() (string, error)
}

func New(invites InvitationStore, users UserStore, orgs OrgStore, notify Notifier, baseURL string, logger *zap.Logger) *Service {
	return &Service{
		Invites:  invites,
		Users:    users,
		Orgs:     orgs,
		Notify:   notify,
		Log:      logger,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		SiteName: "TaskHub",
		Expiry:   DefaultExpiry,
		Now:      time.Now,
		NewToken: func() (string, error) { return auth.RandomToken(TokenBytes) },
	}
}

// IssueInput is the body of an invitation request.
type IssueInput struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Role  string `json:"role" validate:"required,role"`
}

// Preview is what an unauthenticated visitor learns from a valid token.
type Preview struct {
	OrganizationName string    `json:"organization_name"`
	Role             string    `json:"role"`
	Email            string    `json:"email"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// AcceptURL is the registration link embedded in invitation emails.
func (s *Service) AcceptURL(token string) string {
	return s.BaseURL + "/register?invite=" + url.QueryEscape(token)
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, ok := normalize.ObjectID(id)
	if !ok {
		return primitive.NilObjectID, apperr.ErrNotFound
	}
	return oid, nil
}

// Issue creates a pending invitation and emails it. A pending invitation
// for the same email and organization, even a stale one, blocks a new one.
func (s *Service) Issue(ctx context.Context, caller *auth.SessionUser, in IssueInput) (models.Invitation, error) {
	orgID, err := authz.Scope(caller)
	if err != nil {
		return models.Invitation{}, err
	}
	in.Email = normalize.Email(in.Email)
	in.Role = normalize.Role(in.Role)
	// Unknown roles rank zero, so they pass here and fail validation.
	if err := authz.Authorize(caller, authz.OpCreateInvitation, authz.Target{OrganizationID: orgID, Role: in.Role}); err != nil {
		return models.Invitation{}, err
	}
	if err := inputval.Struct(in); err != nil {
		return models.Invitation{}, err
	}

	// Emails are unique across organizations; registration reports the
	// same conflict to anyone.
	exists, err := s.Users.EmailExists(ctx, in.Email)
	if err != nil {
		return models.Invitation{}, apperr.Wrap(err)
	}
	if exists {
		return models.Invitation{}, apperr.ErrDuplicateCredential
	}

	token, err := s.NewToken()
	if err != nil {
		return models.Invitation{}, apperr.Store(fmt.Errorf("invitation token: %w", err))
	}
	now := s.Now().UTC()
	inv, err := s.Invites.Create(ctx, models.Invitation{
		Email:          in.Email,
		Role:           in.Role,
		OrganizationID: orgID,
		InvitedBy:      caller.ID,
		Token:          token,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.Expiry),
	})
	if err != nil {
		if errors.Is(err, invitationstore.ErrDuplicateInvitation) {
			return models.Invitation{}, apperr.ErrDuplicateInvitation
		}
		return models.Invitation{}, apperr.Wrap(err)
	}

	s.Log.Info("invitation issued",
		zap.String("invitation_id", inv.ID.Hex()),
		zap.String("org_id", orgID.Hex()),
		zap.String("role", inv.Role),
		zap.String("invited_by", caller.ID.Hex()))
	s.send(ctx, caller, inv)
	return inv, nil
}

// send is best effort: the invitation already exists, so failures here
// are only logged.
func (s *Service) send(ctx context.Context, caller *auth.SessionUser, inv models.Invitation) {
	if s.Notify == nil {
		return
	}
	orgName := ""
	if org, err := s.Orgs.GetByID(ctx, inv.OrganizationID); err == nil {
		orgName = org.Name
	} else {
		s.Log.Warn("invitation email: organization lookup failed", zap.Error(err))
	}
	s.Notify.Dispatch(mailer.BuildInvitationEmail(inv.Email, mailer.InvitationEmailData{
		SiteName:         s.SiteName,
		OrganizationName: orgName,
		InviterName:      caller.Name,
		Role:             inv.Role,
		AcceptURL:        s.AcceptURL(inv.Token),
		ExpiresIn:        humanDuration(s.Expiry),
	}))
}

func humanDuration(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	switch {
	case days == 1:
		return "1 day"
	case days > 1:
		return fmt.Sprintf("%d days", days)
	}
	return d.String()
}

// Validate reports what a token grants without changing anything.
func (s *Service) Validate(ctx context.Context, token string) (Preview, error) {
	inv, err := s.lookup(ctx, token)
	if err != nil {
		return Preview{}, err
	}
	org, err := s.Orgs.GetByID(ctx, inv.OrganizationID)
	if err != nil {
		if apperr.CodeOf(apperr.Wrap(err)) == apperr.CodeNotFound {
			return Preview{}, apperr.ErrInvalidInvitation
		}
		return Preview{}, apperr.Wrap(err)
	}
	return Preview{
		OrganizationName: org.Name,
		Role:             inv.Role,
		Email:            inv.Email,
		ExpiresAt:        inv.ExpiresAt,
	}, nil
}

func (s *Service) lookup(ctx context.Context, token string) (models.Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Invitation{}, apperr.ErrInvalidInvitation
	}
	inv, err := s.Invites.GetByToken(ctx, token)
	if err != nil {
		if apperr.CodeOf(apperr.Wrap(err)) == apperr.CodeNotFound {
			return models.Invitation{}, apperr.ErrInvalidInvitation
		}
		return models.Invitation{}, apperr.Wrap(err)
	}
	if !inv.IsRedeemable(s.Now()) {
		return models.Invitation{}, apperr.ErrInvalidInvitation
	}
	return inv, nil
}

// CheckRedemption returns the invitation behind token if email may redeem
// it. Nothing is written; the invitation stays pending on every error.
func (s *Service) CheckRedemption(ctx context.Context, token, email string) (models.Invitation, error) {
	inv, err := s.lookup(ctx, token)
	if err != nil {
		return models.Invitation{}, err
	}
	if normalize.Email(email) != normalize.Email(inv.Email) {
		return models.Invitation{}, apperr.ErrEmailMismatch
	}
	return inv, nil
}

// CompleteRedemption marks inv accepted. It runs after the user record
// exists; losing a race to another redemption is logged, not returned,
// because the account has already been created.
func (s *Service) CompleteRedemption(ctx context.Context, inv models.Invitation, userID primitive.ObjectID) error {
	ok, err := s.Invites.Accept(ctx, inv.ID, s.Now())
	if err != nil {
		return apperr.Wrap(err)
	}
	if !ok {
		s.Log.Warn("invitation was no longer pending at acceptance",
			zap.String("invitation_id", inv.ID.Hex()),
			zap.String("user_id", userID.Hex()))
		return nil
	}
	s.Log.Info("invitation accepted",
		zap.String("invitation_id", inv.ID.Hex()),
		zap.String("user_id", userID.Hex()))
	return nil
}

// ListPending returns the organization's pending invitations.
func (s *Service) ListPending(ctx context.Context, caller *auth.SessionUser) ([]models.Invitation, error) {
	orgID, err := authz.Scope(caller)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(caller, authz.OpListInvitations, authz.InOrg(orgID)); err != nil {
		return nil, err
	}
	out, err := s.Invites.ListPending(ctx, orgID)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return out, nil
}

func (s *Service) loadPending(ctx context.Context, caller *auth.SessionUser, id string, op authz.Op) (models.Invitation, error) {
	orgID, err := authz.Scope(caller)
	if err != nil {
		return models.Invitation{}, err
	}
	oid, err := parseID(id)
	if err != nil {
		return models.Invitation{}, err
	}
	inv, err := s.Invites.GetInOrg(ctx, orgID, oid)
	if err != nil {
		return models.Invitation{}, apperr.Wrap(err)
	}
	if err := authz.Authorize(caller, op, authz.InOrg(inv.OrganizationID)); err != nil {
		return models.Invitation{}, err
	}
	if inv.Status != models.InvitePending {
		return models.Invitation{}, apperr.ErrNotFound
	}
	return inv, nil
}

// Cancel deletes a pending invitation.
func (s *Service) Cancel(ctx context.Context, caller *auth.SessionUser, id string) error {
	inv, err := s.loadPending(ctx, caller, id, authz.OpCancelInvitation)
	if err != nil {
		return err
	}
	n, err := s.Invites.DeletePending(ctx, inv.OrganizationID, inv.ID)
	if err != nil {
		return apperr.Wrap(err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	s.Log.Info("invitation cancelled",
		zap.String("invitation_id", inv.ID.Hex()),
		zap.String("user_id", caller.ID.Hex()))
	return nil
}

// Resend gives a pending invitation a fresh expiry window and emails the
// same token again.
func (s *Service) Resend(ctx context.Context, caller *auth.SessionUser, id string) (models.Invitation, error) {
	inv, err := s.loadPending(ctx, caller, id, authz.OpResendInvitation)
	if err != nil {
		return models.Invitation{}, err
	}
	rearmed, err := s.Invites.Rearm(ctx, inv.OrganizationID, inv.ID, s.Now().UTC().Add(s.Expiry))
	if err != nil {
		return models.Invitation{}, apperr.Wrap(err)
	}
	s.send(ctx, caller, rearmed)
	return rearmed, nil
}
