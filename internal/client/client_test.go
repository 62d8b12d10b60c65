package client_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fivetwenty-io/vra/internal/client"
	"github.com/fivetwenty-io/vra/pkg/vra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTenant   = "vsphere.local"
	testUsername = "jane@corp.local"
	machineRel   = "{com.vmware.csp.iaas.blueprint.service@resource.action.request.Infrastructure.Machine.action."
)

func sessionToken() string {
	return base64.StdEncoding.EncodeToString([]byte("tenant:" + testTenant + ",username:" + testUsername + ",expiration:1700000000000,"))
}

type recordedCall struct {
	method string
	path   string
	query  string
	auth   string
	body   string
}

type notification struct {
	level   vra.Level
	message string
	title   string
}

// fakeVRA serves canned portal responses keyed by "METHOD path".
type fakeVRA struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]cannedResponse
	dynamic   map[string]func(body string) cannedResponse
	calls     []recordedCall
}

type cannedResponse struct {
	status int
	body   string
}

func newFakeVRA(t *testing.T) *fakeVRA {
	t.Helper()

	fake := &fakeVRA{
		responses: make(map[string]cannedResponse),
		dynamic:   make(map[string]func(body string) cannedResponse),
	}
	fake.Server = httptest.NewServer(http.HandlerFunc(fake.handle))
	t.Cleanup(fake.Close)

	return fake
}

func (f *fakeVRA) handle(writer http.ResponseWriter, request *http.Request) {
	body, _ := io.ReadAll(request.Body)

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{
		method: request.Method,
		path:   request.URL.Path,
		query:  request.URL.RawQuery,
		auth:   request.Header.Get("Authorization"),
		body:   string(body),
	})
	response, ok := f.responses[request.Method+" "+request.URL.Path]
	handler, dynamic := f.dynamic[request.Method+" "+request.URL.Path]
	f.mu.Unlock()

	if dynamic {
		response, ok = handler(string(body)), true
	}

	if !ok {
		writer.WriteHeader(http.StatusNotFound)
		_, _ = writer.Write([]byte(`{"errors":[{"code":10101,"message":"Not found."}]}`))

		return
	}

	status := response.status
	if status == 0 {
		status = http.StatusOK
	}

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_, _ = writer.Write([]byte(response.body))
}

func (f *fakeVRA) on(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.responses[method+" "+path] = cannedResponse{status: status, body: body}
}

func (f *fakeVRA) onFunc(method, path string, handler func(body string) cannedResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.dynamic[method+" "+path] = handler
}

func (f *fakeVRA) callsTo(method, path string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []recordedCall

	for _, call := range f.calls {
		if call.method == method && call.path == path {
			matched = append(matched, call)
		}
	}

	return matched
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []notification
}

func (n *recordingNotifier) Notify(level vra.Level, message, title string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.notes = append(n.notes, notification{level: level, message: message, title: title})
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]notification(nil), n.notes...)
}

type recordingPersister struct {
	mu     sync.Mutex
	tokens []string
}

func (p *recordingPersister) UpdateSessionToken(endpoint, token string, expiresAt time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tokens = append(p.tokens, token)

	return nil
}

func (p *recordingPersister) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.tokens...)
}

func newTestClient(t *testing.T, fake *fakeVRA, notifier vra.Notifier) *client.Client {
	t.Helper()

	c, err := client.New(context.Background(), &vra.Config{
		Endpoint:       fake.URL,
		AccessToken:    sessionToken(),
		TokenExpiresAt: time.Now().Add(time.Hour),
		Notifier:       notifier,
	})
	require.NoError(t, err)

	return c
}

func decodeBody(t *testing.T, body string) map[string]any {
	t.Helper()

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))

	return decoded
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("endpoint is required", func(t *testing.T) {
		t.Parallel()

		_, err := client.New(context.Background(), &vra.Config{})
		require.ErrorIs(t, err, client.ErrEndpointRequired)
	})

	t.Run("bare host gets https scheme", func(t *testing.T) {
		t.Parallel()

		c, err := client.New(context.Background(), &vra.Config{Endpoint: "vra.example.com/"})
		require.NoError(t, err)
		assert.Equal(t, "https://vra.example.com", c.BaseURL())
		assert.Equal(t, "https://vra.example.com", c.Registry().Server())
	})

	t.Run("registers every portal endpoint", func(t *testing.T) {
		t.Parallel()

		c, err := client.New(context.Background(), &vra.Config{Endpoint: "vra.example.com"})
		require.NoError(t, err)

		assert.Equal(t, []string{
			"costsUpfront",
			"entitledCatalogItems",
			"entitledCatalogRequest",
			"entitledCatalogRequestSchema",
			"entitledCatalogRequestTemplate",
			"requests",
			"requestsWithId",
			"resourceActionFormsRequest",
			"resourceActionFormsRequestValues",
			"resourceViews",
			"subtenantsWithTenantAndUser",
			"tokens",
			"tokensWithId",
		}, c.Registry().Endpoints())

		endpoint, ok := c.Registry().Endpoint("tokensWithId")
		require.True(t, ok)
		assert.Equal(t, []string{http.MethodDelete, http.MethodHead}, endpoint.Verbs())
	})

	t.Run("identity is read from the session token", func(t *testing.T) {
		t.Parallel()

		c, err := client.New(context.Background(), &vra.Config{Endpoint: "vra.example.com", AccessToken: sessionToken()})
		require.NoError(t, err)
		assert.Equal(t, testTenant, c.Tenant())
		assert.Equal(t, testUsername, c.Username())
		assert.Equal(t, "Jane", c.DisplayName())
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		c, err := client.New(context.Background(), &vra.Config{Endpoint: "vra.example.com", BusinessGroupID: "bg-1"})
		require.NoError(t, err)
		assert.Equal(t, 10, c.PageSize())
		assert.Equal(t, "bg-1", c.BusinessGroupID())
		assert.NotNil(t, c.Logger())
		assert.NotNil(t, c.Notifier())
		assert.NotNil(t, c.HTTPClient())
		assert.NotNil(t, c.GetTokenManager())
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestSession(t *testing.T) {
	t.Parallel()

	t.Run("login stores and persists the token", func(t *testing.T) {
		t.Parallel()

		fake := newFakeVRA(t)
		fake.on(http.MethodPost, "/identity/api/tokens", http.StatusOK,
			`{"id":"`+sessionToken()+`","expires":"2030-01-01T00:00:00Z","tenant":"vsphere.local"}`)
		fake.on(http.MethodHead, "/identity/api/tokens/"+sessionToken(), http.StatusNoContent, "")
		fake.on(http.MethodDelete, "/identity/api/tokens/"+sessionToken(), http.StatusNoContent, "")

		persister := &recordingPersister{}
		c, err := client.New(context.Background(), &vra.Config{Endpoint: fake.URL, TokenPersister: persister})
		require.NoError(t, err)

		token, err := c.Login(context.Background(), testTenant, testUsername, "secret")
		require.NoError(t, err)
		assert.Equal(t, sessionToken(), token.ID)
		assert.Equal(t, testUsername, c.Username())

		logins := fake.callsTo(http.MethodPost, "/identity/api/tokens")
		require.Len(t, logins, 1)
		assert.Empty(t, logins[0].auth)
		assert.Equal(t, map[string]any{
			"tenant":   testTenant,
			"username": testUsername,
			"password": "secret",
		}, decodeBody(t, logins[0].body))

		require.NoError(t, c.Validate(context.Background()))

		checks := fake.callsTo(http.MethodHead, "/identity/api/tokens/"+sessionToken())
		require.Len(t, checks, 1)
		assert.Equal(t, "Bearer "+sessionToken(), checks[0].auth)

		session, err := c.Session(context.Background())
		require.NoError(t, err)
		assert.Equal(t, testTenant, session.Tenant)

		require.NoError(t, c.Logout(context.Background()))
		assert.Len(t, fake.callsTo(http.MethodDelete, "/identity/api/tokens/"+sessionToken()), 1)
		assert.Equal(t, []string{sessionToken(), ""}, persister.all())

		require.ErrorIs(t, c.Validate(context.Background()), client.ErrNotAuthenticated)
	})

	t.Run("rejected login surfaces the server message", func(t *testing.T) {
		t.Parallel()

		fake := newFakeVRA(t)
		fake.on(http.MethodPost, "/identity/api/tokens", http.StatusBadRequest,
			`{"errors":[{"code":90135,"message":"Invalid username or password."}]}`)

		c, err := client.New(context.Background(), &vra.Config{Endpoint: fake.URL})
		require.NoError(t, err)

		_, err = c.Login(context.Background(), testTenant, testUsername, "wrong")
		require.Error(t, err)
		assert.Equal(t, "Invalid username or password.", vra.ErrorMessage(err))
	})

	t.Run("expired token is renewed with credentials", func(t *testing.T) {
		t.Parallel()

		fake := newFakeVRA(t)
		fake.on(http.MethodPost, "/identity/api/tokens", http.StatusOK,
			`{"id":"renewed","expires":"2030-01-01T00:00:00Z","tenant":"vsphere.local"}`)
		fake.on(http.MethodHead, "/identity/api/tokens/renewed", http.StatusNoContent, "")

		c, err := client.New(context.Background(), &vra.Config{
			Endpoint:       fake.URL,
			Tenant:         testTenant,
			Username:       testUsername,
			Password:       "secret",
			AccessToken:    "stale",
			TokenExpiresAt: time.Now().Add(-time.Hour),
		})
		require.NoError(t, err)

		require.NoError(t, c.Validate(context.Background()))
		assert.Len(t, fake.callsTo(http.MethodPost, "/identity/api/tokens"), 1)
	})

	t.Run("subtenants", func(t *testing.T) {
		t.Parallel()

		fake := newFakeVRA(t)
		fake.on(http.MethodGet, "/identity/api/tenants/vsphere.local/principals/jane@corp.local/subtenants", http.StatusOK,
			`{"content":[{"id":"bg-1","name":"Engineering"},{"id":"bg-2","name":"Finance"}],"metadata":{"size":20,"totalElements":2,"totalPages":1,"number":1}}`)

		c := newTestClient(t, fake, nil)

		groups, err := c.Subtenants(context.Background())
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, "Engineering", groups[0].Name)
		assert.Equal(t, "bg-2", groups[1].ID)
	})
}

func TestWaitForRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		state   string
		wantErr error
	}{
		{name: "successful", state: "SUCCESSFUL"},
		{name: "partially successful", state: "PARTIALLY_SUCCESSFUL"},
		{name: "failed", state: "FAILED", wantErr: client.ErrRequestFailed},
		{name: "rejected", state: "REJECTED", wantErr: client.ErrRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fake := newFakeVRA(t)
			fake.on(http.MethodGet, "/catalog-service/api/consumer/requests/req-1", http.StatusOK,
				`{"id":"req-1","requestNumber":42,"state":"`+tt.state+`"}`)

			c := newTestClient(t, fake, nil)

			request, err := c.WaitForRequest(context.Background(), "req-1", time.Millisecond)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			require.NotNil(t, request)
			assert.Equal(t, 42, request.RequestNumber)
		})
	}
}

func TestWaitForRequest_Cancelled(t *testing.T) {
	t.Parallel()

	fake := newFakeVRA(t)
	fake.on(http.MethodGet, "/catalog-service/api/consumer/requests/req-1", http.StatusOK,
		`{"id":"req-1","state":"IN_PROGRESS"}`)

	c := newTestClient(t, fake, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.WaitForRequest(ctx, "req-1", 10*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotEmpty(t, fake.callsTo(http.MethodGet, "/catalog-service/api/consumer/requests/req-1"))
}
