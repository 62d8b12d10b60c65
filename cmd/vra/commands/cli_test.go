package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fivetwenty-io/vra/cmd/vra/commands"
	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const (
	cliToken      = "tok-1"
	subtenantPath = "/identity/api/tenants/vsphere.local/principals/jdoe/subtenants"
)

// portal answers the calls the CLI makes and counts them.
type portal struct {
	*httptest.Server

	mu    sync.Mutex
	calls map[string]int
}

func newPortal(t *testing.T) *portal {
	t.Helper()

	p := &portal{calls: make(map[string]int)}
	p.Server = httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(p.Close)

	return p
}

func (p *portal) handle(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	p.mu.Lock()
	p.calls[key]++
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch key {
	case "POST /identity/api/tokens":
		_, _ = w.Write([]byte(`{"id":"` + cliToken + `","expires":"2099-01-01T00:00:00Z","tenant":"vsphere.local"}`))
	case "DELETE /identity/api/tokens/" + cliToken, "HEAD /identity/api/tokens/" + cliToken:
		w.WriteHeader(http.StatusNoContent)
	case "GET " + subtenantPath:
		_, _ = w.Write([]byte(`{"content":[` +
			`{"id":"bg-1","name":"Development","description":"Dev machines"},` +
			`{"id":"bg-2","name":"Production"}` +
			`],"metadata":{"size":10,"totalElements":2,"totalPages":1,"number":1,"offset":0}}`))
	case "GET /catalog-service/api/consumer/requests":
		_, _ = w.Write([]byte(`{"content":[` +
			`{"id":"req-2","requestNumber":42,"requestedItemName":"CentOS 7","stateName":"Successful","catalogItemRef":{"id":"cat-1"}},` +
			`{"id":"req-1","requestNumber":41,"requestedItemName":"Ubuntu","stateName":"In Progress","catalogItemRef":{"id":"cat-2"}}` +
			`],"metadata":{"size":10,"totalElements":2,"totalPages":1,"number":1,"offset":0}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[{"code":10101,"message":"Not found."}]}`))
	}
}

func (p *portal) count(method, path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.calls[method+" "+path]
}

// runCLI executes the vra command tree against configPath.
func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	var out, errOut bytes.Buffer

	root := commands.NewRootCommand("test", "none", "unknown")
	root.SetArgs(append([]string{"--config", configPath}, args...))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(bytes.NewReader(nil))

	err := root.ExecuteContext(context.Background())

	return out.String(), err
}

func readSavedConfig(t *testing.T, path string) commands.Config {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var config commands.Config
	require.NoError(t, yaml.Unmarshal(data, &config))

	return config
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestCLI_SessionLifecycle(t *testing.T) {
	server := newPortal(t)
	configPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("endpoint: "+server.URL+"\n"), 0o600))

	out, err := runCLI(t, configPath, "login", "--tenant", "vsphere.local", "--username", "jdoe", "--password", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome Jdoe! Logged in to "+server.URL+" as jdoe")

	saved := readSavedConfig(t, configPath)
	assert.Equal(t, server.URL, saved.Endpoint)
	assert.Equal(t, "vsphere.local", saved.Tenant)
	assert.Equal(t, "jdoe", saved.Username)
	assert.Equal(t, cliToken, saved.Token)
	require.NotNil(t, saved.TokenExpiresAt)
	assert.Equal(t, 2099, saved.TokenExpiresAt.Year())

	out, err = runCLI(t, configPath, "requests", "list", "--output", "json")
	require.NoError(t, err)

	var listed []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "CentOS 7", listed[0]["item"])
	assert.EqualValues(t, 42, listed[0]["number"])
	assert.Equal(t, "In Progress", listed[1]["status"])

	out, err = runCLI(t, configPath, "business-groups", "use", "production")
	require.NoError(t, err)
	assert.Equal(t, "Using business group Production (bg-2)\n", out)
	assert.Equal(t, "bg-2", readSavedConfig(t, configPath).BusinessGroupID)

	_, err = runCLI(t, configPath, "business-groups", "use", "staging")
	require.ErrorIs(t, err, constants.ErrBusinessGroupNotFound)

	out, err = runCLI(t, configPath, "config", "show", "--output", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "***")
	assert.Contains(t, out, "business_group_id: bg-2")
	assert.NotContains(t, out, cliToken)

	out, err = runCLI(t, configPath, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Logged out\n", out)
	assert.Equal(t, 1, server.count(http.MethodDelete, "/identity/api/tokens/"+cliToken))

	saved = readSavedConfig(t, configPath)
	assert.Empty(t, saved.Token)
	assert.Nil(t, saved.TokenExpiresAt)
	assert.Equal(t, "bg-2", saved.BusinessGroupID)

	_, err = runCLI(t, configPath, "requests", "list")
	require.ErrorIs(t, err, constants.ErrNotLoggedIn)

	out, err = runCLI(t, configPath, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Not logged in\n", out)
}

func TestCLI_ConfigSet(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yml")

	out, err := runCLI(t, configPath, "config", "set", "page_size", "25")
	require.NoError(t, err)
	assert.Equal(t, "Set page_size to 25\n", out)
	assert.Equal(t, 25, readSavedConfig(t, configPath).PageSize)

	_, err = runCLI(t, configPath, "config", "set", "password", "secret")
	require.ErrorIs(t, err, constants.ErrUnknownConfigKey)

	_, err = runCLI(t, configPath, "config", "show", "--output", "xml")
	require.ErrorIs(t, err, constants.ErrInvalidOutputFormat)
}

func TestCLI_LoginWithoutEndpoint(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yml")

	_, err := runCLI(t, configPath, "login", "--tenant", "vsphere.local", "--username", "jdoe", "--password", "secret")
	require.ErrorIs(t, err, constants.ErrNoEndpointConfigured)
}

func TestCLI_MachinesLeaseRejectsBadDate(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yml")

	_, err := runCLI(t, configPath, "machines", "lease", "dev-01", "01/05/2024")
	require.ErrorIs(t, err, constants.ErrInvalidLeaseDate)
}

func TestCLI_MachinesRunUnknownAction(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yml")

	_, err := runCLI(t, configPath, "machines", "run", "dev-01", "teleport")
	require.ErrorIs(t, err, constants.ErrActionNotAvailable)

	_, err = runCLI(t, configPath, "machines", "run", "dev-01", "change-lease")
	require.ErrorIs(t, err, constants.ErrActionNeedsInput)
}
