package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// expiryBuffer treats tokens about to expire as already expired.
const expiryBuffer = 30 * time.Second

// Static errors for err113 compliance.
var (
	ErrTokenExpired             = errors.New("session token expired")
	ErrStaticTokenCannotRefresh = errors.New("static token cannot be refreshed")
	ErrMalformedToken           = errors.New("malformed session token")
	ErrNoCredentials            = errors.New("no credentials to obtain a session token")
)

// TokenManager supplies the bearer credential for requests.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) error
	SetToken(token string, expiresAt time.Time)
}

// Token is a session token and its expiry.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Valid reports whether the token is usable for at least the expiry buffer.
func (t *Token) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	return time.Now().Add(expiryBuffer).Before(t.ExpiresAt)
}

// TokenStore holds the current token.
type TokenStore struct {
	mu    sync.RWMutex
	token *Token
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the stored token, or nil.
func (s *TokenStore) Get() *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// Set replaces the stored token.
func (s *TokenStore) Set(token *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
}

// Clear drops the stored token.
func (s *TokenStore) Clear() {
	s.Set(nil)
}

// StaticTokenManager serves a fixed token that cannot be refreshed.
type StaticTokenManager struct {
	store *TokenStore
}

// NewStaticTokenManager creates a token manager for an existing token.
func NewStaticTokenManager(token string, expiresAt time.Time) *StaticTokenManager {
	manager := &StaticTokenManager{store: NewTokenStore()}
	if token != "" {
		manager.SetToken(token, expiresAt)
	}

	return manager
}

// GetToken returns the token, or an empty string when none is set.
func (m *StaticTokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token == nil {
		return "", nil
	}

	if !token.Valid() {
		return "", ErrTokenExpired
	}

	return token.AccessToken, nil
}

// RefreshToken always fails.
func (m *StaticTokenManager) RefreshToken(ctx context.Context) error {
	return ErrStaticTokenCannotRefresh
}

// SetToken replaces the token.
func (m *StaticTokenManager) SetToken(token string, expiresAt time.Time) {
	if token == "" {
		m.store.Clear()

		return
	}

	m.store.Set(&Token{AccessToken: token, ExpiresAt: expiresAt})
}
