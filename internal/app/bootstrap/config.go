// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	invitationservice "github.com/dalemusser/taskhub/internal/app/services/invitations"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const (
	devTokenSecret = "dev-only-token-secret-change-me-0123456789"
	devSessionKey  = "dev-only-change-me-please-0123456789ABCDEF"

	// minSecretLen is enforced for token_secret and session_key in prod.
	minSecretLen = 32
)

// appConfigKeys defines the configuration keys for TaskHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, token_secret, etc.
//   - Environment variables: TASKHUB_MONGO_URI, TASKHUB_TOKEN_SECRET, etc.
//   - Command-line flags: --mongo_uri, --token_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "taskhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Identity tokens
	{Name: "token_secret", Default: devTokenSecret, Desc: "Identity token signing secret (must be strong in production)"},
	{Name: "token_ttl", Default: "168h", Desc: "Identity token lifetime (e.g., 24h, 168h)"},

	// Session cookie
	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "taskhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank disables email)"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@taskhub.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "TaskHub", Desc: "From display name"},

	// Base URL for email links
	{Name: "base_url", Default: "http://localhost:8080", Desc: "Base URL for invitation links and OAuth callbacks"},

	// Timings
	{Name: "invite_expiry", Default: "168h", Desc: "Invitation lifetime (e.g., 72h, 168h)"},
	{Name: "sweep_interval", Default: "1h", Desc: "How often overdue tasks are marked expired"},
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document store calls"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for list queries and aggregations"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for multi-collection operations"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, TASKHUB_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "TASKHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		TokenSecret: appValues.String("token_secret"),
		TokenTTL:    appValues.Duration("token_ttl", auth.DefaultTokenTTL),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		BaseURL: appValues.String("base_url"),

		InviteExpiry:  appValues.Duration("invite_expiry", invitationservice.DefaultExpiry),
		SweepInterval: appValues.Duration("sweep_interval", time.Hour),

		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
		TimeoutLong:   appValues.Duration("timeout_long", timeouts.DefaultLong),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// TaskHub checks the MongoDB URI format, refuses the development secrets
// (or short ones) in prod, and requires positive durations.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must be set")
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)",
			appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}

	if coreCfg.Env == "prod" {
		if appCfg.TokenSecret == devTokenSecret || len(appCfg.TokenSecret) < minSecretLen {
			return fmt.Errorf("token_secret must be set to at least %d characters in prod", minSecretLen)
		}
		if appCfg.SessionKey == devSessionKey || len(appCfg.SessionKey) < minSecretLen {
			return fmt.Errorf("session_key must be set to at least %d characters in prod", minSecretLen)
		}
	} else if appCfg.TokenSecret == "" {
		return fmt.Errorf("token_secret must not be empty")
	}

	for name, d := range map[string]time.Duration{
		"token_ttl":      appCfg.TokenTTL,
		"invite_expiry":  appCfg.InviteExpiry,
		"sweep_interval": appCfg.SweepInterval,
		"timeout_short":  appCfg.TimeoutShort,
		"timeout_medium": appCfg.TimeoutMedium,
		"timeout_long":   appCfg.TimeoutLong,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration, got %s", name, d)
		}
	}

	if (appCfg.GoogleClientID == "") != (appCfg.GoogleClientSecret == "") {
		logger.Warn("Google sign-in needs both google_client_id and google_client_secret; it stays disabled")
	}

	return nil
}
