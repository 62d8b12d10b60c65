package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fivetwenty-io/vra/internal/auth"
	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/fivetwenty-io/vra/internal/registry"
	"github.com/fivetwenty-io/vra/pkg/vra"
)

// requestToken exchanges credentials for a session token. The call is sent
// without a bearer credential so it never recurses into the token manager.
func (c *Client) requestToken(ctx context.Context, credentials auth.Credentials) (*vra.Token, error) {
	call, err := c.registry.BuildRequest(constants.EndpointTokens, http.MethodPost, registry.Params{}, vra.TokenRequest{
		Tenant:   credentials.Tenant,
		Username: credentials.Username,
		Password: credentials.Password,
	})
	if err != nil {
		return nil, err
	}

	call.Anonymous = true

	var token vra.Token

	err = call.Decode(ctx, &token)
	if err != nil {
		return nil, fmt.Errorf("requesting session token: %w", err)
	}

	return &token, nil
}

func (c *Client) issueToken(ctx context.Context, credentials auth.Credentials) (*auth.Token, error) {
	token, err := c.requestToken(ctx, credentials)
	if err != nil {
		return nil, err
	}

	return &auth.Token{AccessToken: token.ID, ExpiresAt: token.Expires}, nil
}

// Login obtains a session token and makes it the client's credential.
func (c *Client) Login(ctx context.Context, tenant, username, password string) (*vra.Token, error) {
	token, err := c.requestToken(ctx, auth.Credentials{Tenant: tenant, Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	c.tokenManager.SetToken(token.ID, token.Expires)

	c.mu.Lock()
	c.tenant = tenant
	c.username = username
	c.mu.Unlock()

	c.logger.Info("Logged in", map[string]interface{}{
		"tenant":   tenant,
		"username": username,
	})

	return token, nil
}

func (c *Client) currentToken(ctx context.Context) (string, error) {
	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("getting session token: %w", err)
	}

	if token == "" {
		return "", ErrNotAuthenticated
	}

	return token, nil
}

func (c *Client) tokenCall(ctx context.Context, verb string) (*registry.Call, error) {
	token, err := c.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	return c.registry.BuildRequest(constants.EndpointTokensWithID, verb, registry.Params{
		Path: map[string]string{"tokenId": token},
	}, nil)
}

// Validate checks with the identity service that the session token is
// still accepted.
func (c *Client) Validate(ctx context.Context) error {
	call, err := c.tokenCall(ctx, http.MethodHead)
	if err != nil {
		return err
	}

	_, err = call.Send(ctx)
	if err != nil {
		return fmt.Errorf("validating session token: %w", err)
	}

	return nil
}

// Logout revokes the session token. The local session is cleared even when
// the server refuses the revocation.
func (c *Client) Logout(ctx context.Context) error {
	call, err := c.tokenCall(ctx, http.MethodDelete)
	if err != nil {
		return err
	}

	_, sendErr := call.Send(ctx)

	c.tokenManager.SetToken("", time.Time{})

	if sendErr != nil {
		return fmt.Errorf("revoking session token: %w", sendErr)
	}

	return nil
}

// Session returns the identity carried by the current session token.
func (c *Client) Session(ctx context.Context) (*auth.SessionInfo, error) {
	token, err := c.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	if info, parseErr := auth.ParseSessionToken(token); parseErr == nil {
		return info, nil
	}

	// Opaque tokens fall back to the configured identity.
	return &auth.SessionInfo{Tenant: c.Tenant(), Username: c.Username()}, nil
}

func (c *Client) adoptSession(token string) {
	info, err := auth.ParseSessionToken(token)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tenant == "" {
		c.tenant = info.Tenant
	}

	if c.username == "" {
		c.username = info.Username
	}
}

// DisplayName is the greeting name of the session user.
func (c *Client) DisplayName() string {
	return auth.DisplayName(c.Username())
}

// Subtenants lists the business groups the session user belongs to.
func (c *Client) Subtenants(ctx context.Context) ([]vra.Subtenant, error) {
	call, err := c.registry.BuildRequest(constants.EndpointSubtenants, http.MethodGet, registry.Params{
		Path: map[string]string{
			"tenantId": c.Tenant(),
			"userId":   c.Username(),
		},
	}, nil)
	if err != nil {
		return nil, err
	}

	var page vra.Page[vra.Subtenant]

	err = call.Decode(ctx, &page)
	if err != nil {
		return nil, fmt.Errorf("listing business groups: %w", err)
	}

	return page.Content, nil
}

// SetBusinessGroup selects the business group catalog listings are filtered by.
func (c *Client) SetBusinessGroup(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.businessGroupID = id
}
