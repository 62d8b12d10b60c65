package vra

import (
	"context"
	"time"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NopLogger discards every log entry.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]interface{}) {}
func (NopLogger) Info(string, map[string]interface{})  {}
func (NopLogger) Warn(string, map[string]interface{})  {}
func (NopLogger) Error(string, map[string]interface{}) {}

// Level is the severity of a user notification.
type Level string

// Notification levels.
const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// Notifier surfaces messages to the user.
type Notifier interface {
	Notify(level Level, message, title string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(level Level, message, title string)

// Notify calls f.
func (f NotifierFunc) Notify(level Level, message, title string) {
	f(level, message, title)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

// Notify does nothing.
func (NopNotifier) Notify(Level, string, string) {}

// Confirmer asks the user to approve a destructive operation.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, prompt string) bool

// Confirm calls f.
func (f ConfirmerFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// AutoConfirm approves every prompt.
type AutoConfirm struct{}

// Confirm always returns true.
func (AutoConfirm) Confirm(context.Context, string) bool { return true }

// TokenPersister stores a session token between runs.
type TokenPersister interface {
	UpdateSessionToken(endpoint, token string, expiresAt time.Time) error
}

// Config represents client configuration for building a portal client.
//
// # Authentication precedence
//
//  1. AccessToken: if set, it is used directly as the session bearer token.
//  2. Username/Password/Tenant: a session token is requested from the
//     identity service when no AccessToken is present.
type Config struct {
	// Endpoint is the vRA host, with or without scheme.
	Endpoint string

	// Tenant, Username and Password are used to obtain a session token.
	Tenant   string
	Username string
	Password string

	// AccessToken is an existing session token.
	AccessToken string

	// TokenExpiresAt is the expiry of AccessToken, if known.
	TokenExpiresAt time.Time

	// UserAgent overrides the default user agent.
	UserAgent string

	// HTTPTimeout bounds every request.
	HTTPTimeout time.Duration

	// SkipTLSVerify disables certificate checks.
	SkipTLSVerify bool

	// Debug enables request and response logging.
	Debug bool

	// PageSize is the number of rows per listing page.
	PageSize int

	// BusinessGroupID restricts the catalog listing to one business group.
	BusinessGroupID string

	// TokenPersister receives every session token obtained or cleared.
	TokenPersister TokenPersister

	// Confirmer gates lifecycle actions. Nil approves every action.
	Confirmer Confirmer

	Logger       Logger
	Notifier     Notifier
	Cache        Cache
	Interceptors *InterceptorChain
}
