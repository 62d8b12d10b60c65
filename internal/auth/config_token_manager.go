package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrNoConfigPersister = errors.New("no config persister configured")
)

// ConfigPersister persists the session token between CLI invocations.
type ConfigPersister interface {
	UpdateSessionToken(endpoint, token string, expiresAt time.Time) error
}

// Credentials are used to request a fresh session token.
type Credentials struct {
	Tenant   string
	Username string
	Password string
}

// Complete reports whether every credential field is set.
func (c Credentials) Complete() bool {
	return c.Tenant != "" && c.Username != "" && c.Password != ""
}

// IssueFunc exchanges credentials for a session token.
type IssueFunc func(ctx context.Context, credentials Credentials) (*Token, error)

// ConfigTokenManager serves the session token, logs in again with stored
// credentials when it has expired, and persists every new token to config.
type ConfigTokenManager struct {
	store           *TokenStore
	issue           IssueFunc
	credentials     Credentials
	configPersister ConfigPersister
	endpoint        string
	mutex           sync.Mutex
}

// NewConfigTokenManager creates a config-persisting token manager.
func NewConfigTokenManager(issue IssueFunc, credentials Credentials, configPersister ConfigPersister, endpoint string, initialToken string, initialExpiry time.Time) *ConfigTokenManager {
	manager := &ConfigTokenManager{
		store:           NewTokenStore(),
		issue:           issue,
		credentials:     credentials,
		configPersister: configPersister,
		endpoint:        endpoint,
	}

	if initialToken != "" {
		manager.store.Set(&Token{AccessToken: initialToken, ExpiresAt: initialExpiry})
	}

	return manager
}

// GetToken returns a valid session token, logging in again if necessary.
// With neither a token nor credentials it returns an empty token so that
// anonymous calls such as the login itself can proceed.
func (m *ConfigTokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token.Valid() {
		return token.AccessToken, nil
	}

	if token == nil && !m.credentials.Complete() {
		return "", nil
	}

	err := m.RefreshToken(ctx)
	if err != nil {
		return "", err
	}

	return m.store.Get().AccessToken, nil
}

// RefreshToken obtains a new session token with the stored credentials.
func (m *ConfigTokenManager) RefreshToken(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if current := m.store.Get(); current.Valid() {
		return nil
	}

	if m.issue == nil || !m.credentials.Complete() {
		return ErrNoCredentials
	}

	token, err := m.issue(ctx, m.credentials)
	if err != nil {
		return fmt.Errorf("requesting session token: %w", err)
	}

	m.store.Set(token)

	persistErr := m.persistToken(token)
	if persistErr != nil && !errors.Is(persistErr, ErrNoConfigPersister) {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: failed to persist session token: %v\n", persistErr)
	}

	return nil
}

// SetToken manually sets the session token and persists it.
func (m *ConfigTokenManager) SetToken(token string, expiresAt time.Time) {
	if token == "" {
		m.store.Clear()
	} else {
		m.store.Set(&Token{AccessToken: token, ExpiresAt: expiresAt})
	}

	persistErr := m.persistToken(&Token{AccessToken: token, ExpiresAt: expiresAt})
	if persistErr != nil && !errors.Is(persistErr, ErrNoConfigPersister) {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: failed to persist session token: %v\n", persistErr)
	}
}

// GetTokenExpiry returns the current token's expiration time.
func (m *ConfigTokenManager) GetTokenExpiry() time.Time {
	token := m.store.Get()
	if token == nil {
		return time.Time{}
	}

	return token.ExpiresAt
}

func (m *ConfigTokenManager) persistToken(token *Token) error {
	if m.configPersister == nil {
		return ErrNoConfigPersister
	}

	err := m.configPersister.UpdateSessionToken(m.endpoint, token.AccessToken, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to update session token: %w", err)
	}

	return nil
}
