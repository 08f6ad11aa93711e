// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	authgooglefeature "github.com/dalemusser/taskhub/internal/app/features/authgoogle"
	errorsfeature "github.com/dalemusser/taskhub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/taskhub/internal/app/features/health"
	invitationsfeature "github.com/dalemusser/taskhub/internal/app/features/invitations"
	loginfeature "github.com/dalemusser/taskhub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/taskhub/internal/app/features/logout"
	membersfeature "github.com/dalemusser/taskhub/internal/app/features/members"
	organizationsfeature "github.com/dalemusser/taskhub/internal/app/features/organizations"
	profilefeature "github.com/dalemusser/taskhub/internal/app/features/profile"
	registerfeature "github.com/dalemusser/taskhub/internal/app/features/register"
	tasksfeature "github.com/dalemusser/taskhub/internal/app/features/tasks"
	"github.com/dalemusser/taskhub/internal/app/services"
	"github.com/dalemusser/taskhub/internal/app/store/oauthstate"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/ratelimit"
	"github.com/dalemusser/taskhub/internal/app/system/requestlog"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed.
//
// TaskHub wires the services once over the shared database, installs
// request logging and caller resolution (bearer token or session cookie),
// and mounts the JSON feature routers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	tokens, err := auth.NewTokenIssuer(appCfg.TokenSecret, appCfg.TokenTTL)
	if err != nil {
		logger.Error("token issuer init failed", zap.Error(err))
		return nil, err
	}

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, tokens.TTL(), secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	set := services.New(deps.MongoDatabase, services.Options{
		Client:       deps.MongoClient,
		Tokens:       tokens,
		Notify:       deps.Mail,
		BaseURL:      appCfg.BaseURL,
		InviteExpiry: appCfg.InviteExpiry,
	}, logger)

	authn := &auth.Authenticator{Tokens: tokens, Sessions: sessionMgr, Users: set.Users, Log: logger}

	// One limiter per profile, shared by the routes it guards.
	authLimiter := ratelimit.New(ratelimit.Auth)
	publicLimiter := ratelimit.New(ratelimit.Public)

	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	r.Use(requestlog.Middleware(logger))

	// Global auth middleware: loads SessionUser into context if signed in.
	// Handlers read it via auth.CurrentUser(r).
	r.Use(authn.LoadUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Scheduler, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	registerHandler := registerfeature.NewHandler(set.Accounts, sessionMgr, logger)
	r.Mount("/auth/register", registerfeature.Routes(registerHandler, authLimiter))

	loginHandler := loginfeature.NewHandler(set.Accounts, sessionMgr, logger)
	r.Mount("/auth/login", loginfeature.Routes(loginHandler, authLimiter))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/auth/logout", logoutfeature.Routes(logoutHandler))

	googleHandler := authgooglefeature.NewHandler(set.Accounts, sessionMgr, oauthstate.New(deps.MongoDatabase),
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
	if googleHandler.IsConfigured() {
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler, authLimiter))
	}

	// Signed-in surfaces
	profileHandler := profilefeature.NewHandler(set.Accounts, logger)
	r.Mount("/me", profilefeature.Routes(profileHandler))

	membersHandler := membersfeature.NewHandler(set.Organizations, logger)
	r.Mount("/organization/members", membersfeature.Routes(membersHandler))

	orgHandler := organizationsfeature.NewHandler(set.Organizations, logger)
	r.Mount("/organization", organizationsfeature.Routes(orgHandler))

	tasksHandler := tasksfeature.NewHandler(set.TaskService, logger)
	r.Mount("/tasks", tasksfeature.Routes(tasksHandler))

	invitationsHandler := invitationsfeature.NewHandler(set.Invitations, logger)
	r.Mount("/invitations", invitationsfeature.Routes(invitationsHandler, publicLimiter))

	return r, nil
}
