// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - Request body size limits
//   - Database connection timeouts
//
// AppConfig covers everything TaskHub-specific: the MongoDB connection,
// identity tokens and the browser session cookie, outgoing mail, the
// invitation and sweep timings, and optional Google sign-in.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Identity tokens
	TokenSecret string        // HS256 signing secret (must be strong in production)
	TokenTTL    time.Duration // Lifetime of an issued token

	// Session cookie for browser clients
	SessionKey    string // Secret key for signing session cookies
	SessionName   string // Cookie name (default: taskhub-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (blank disables mail)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string // From email address
	MailFromName string // From display name

	// Base URL for links in email (invitation accept links)
	BaseURL string // e.g., "https://taskhub.example" or "http://localhost:8080"

	InviteExpiry  time.Duration // How long a new or resent invitation stays redeemable
	SweepInterval time.Duration // How often overdue tasks are marked expired

	// Store call deadlines (see system/timeouts)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Google OAuth configuration (blank disables Google sign-in)
	GoogleClientID     string
	GoogleClientSecret string
}
