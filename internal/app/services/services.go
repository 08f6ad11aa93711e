// Package services assembles the application services over one database.
package services

import (
	"context"
	"time"

	accountservice "github.com/dalemusser/taskhub/internal/app/services/accounts"
	invitationservice "github.com/dalemusser/taskhub/internal/app/services/invitations"
	orgservice "github.com/dalemusser/taskhub/internal/app/services/organizations"
	taskservice "github.com/dalemusser/taskhub/internal/app/services/tasks"
	invitationstore "github.com/dalemusser/taskhub/internal/app/store/invitations"
	organizationstore "github.com/dalemusser/taskhub/internal/app/store/organizations"
	taskstore "github.com/dalemusser/taskhub/internal/app/store/tasks"
	userstore "github.com/dalemusser/taskhub/internal/app/store/users"
	"github.com/dalemusser/taskhub/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Options carries the settings services need beyond their stores.
type Options struct {
	// Client enables transactional registration; nil runs sequentially.
	Client       *mongo.Client
	Tokens       accountservice.TokenSigner
	Notify       invitationservice.Notifier
	BaseURL      string
	InviteExpiry time.Duration
}

// Set is every service plus the stores shared between them.
type Set struct {
	Users *userstore.Store
	Orgs  *organizationstore.Store
	Tasks *taskstore.Store

	Accounts      *accountservice.Service
	Organizations *orgservice.Service
	TaskService   *taskservice.Service
	Invitations   *invitationservice.Service
}

func New(db *mongo.Database, opts Options, logger *zap.Logger) *Set {
	users := userstore.New(db)
	orgs := organizationstore.New(db)
	tasks := taskstore.New(db)
	invites := invitationstore.New(db)

	inv := invitationservice.New(invites, users, orgs, opts.Notify, opts.BaseURL, logger)
	if opts.InviteExpiry > 0 {
		inv.Expiry = opts.InviteExpiry
	}

	acc := accountservice.New(users, orgs, inv, opts.Tokens, logger)
	if opts.Client != nil {
		client := opts.Client
		acc.Tx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return txn.Run(ctx, client, logger, fn)
		}
	}

	return &Set{
		Users:         users,
		Orgs:          orgs,
		Tasks:         tasks,
		Accounts:      acc,
		Organizations: orgservice.New(orgs, users, tasks, logger),
		TaskService:   taskservice.New(tasks, users, logger),
		Invitations:   inv,
	}
}
