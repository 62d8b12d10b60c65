// Package registry maps logical endpoint names to vRA API paths and builds
// calls against them.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/fivetwenty-io/vra/internal/async"
	vrahttp "github.com/fivetwenty-io/vra/internal/http"
	"github.com/fivetwenty-io/vra/pkg/vra"
)

// Static errors for err113 compliance.
var (
	ErrServerNotRegistered = errors.New("no server registered")
	ErrTemplateConflict    = errors.New("endpoint already registered with a different path template")
	ErrVerbRegistered      = errors.New("verb already registered for endpoint")
	ErrEndpointNotFound    = errors.New("endpoint not found")
)

var pathParam = regexp.MustCompile(`\{(\w+)\}`)

// Doer performs a single HTTP exchange.
type Doer interface {
	Do(ctx context.Context, req *vrahttp.Request) (*vrahttp.Response, error)
}

// Endpoint is a named path template and the verbs it accepts.
type Endpoint struct {
	Name string
	Path string

	verbs map[string]struct{}
}

// Supports reports whether verb is registered for the endpoint.
func (e *Endpoint) Supports(verb string) bool {
	_, ok := e.verbs[strings.ToUpper(verb)]

	return ok
}

// Verbs returns the registered verbs in sorted order.
func (e *Endpoint) Verbs() []string {
	verbs := make([]string, 0, len(e.verbs))
	for verb := range e.verbs {
		verbs = append(verbs, verb)
	}

	sort.Strings(verbs)

	return verbs
}

// Params are the path and query inputs of a call.
type Params struct {
	// Path values replace {name} placeholders. Missing values become empty segments.
	Path  map[string]string
	Query *vra.QueryOptions
}

// Registry holds the endpoints of one vRA server.
type Registry struct {
	mu        sync.RWMutex
	server    string
	endpoints map[string]*Endpoint
	transport Doer
	logger    vra.Logger
}

// New creates an empty registry sending calls through transport.
func New(transport Doer, logger vra.Logger) *Registry {
	if logger == nil {
		logger = vra.NopLogger{}
	}

	return &Registry{
		endpoints: make(map[string]*Endpoint),
		transport: transport,
		logger:    logger,
	}
}

// SetServer sets the host every endpoint is resolved against. A bare host
// name is given the https scheme.
func (r *Registry) SetServer(host string) {
	host = strings.TrimSuffix(strings.TrimSpace(host), "/")
	if host != "" && !strings.Contains(host, "://") {
		host = "https://" + host
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.server = host
}

// Server returns the registered server URL.
func (r *Registry) Server() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.server
}

// RegisterEndpoint associates verb with the named endpoint, creating the
// endpoint when it is new. Failures are logged and returned.
func (r *Registry) RegisterEndpoint(name, pathTemplate, verb string) error {
	verb = strings.ToUpper(verb)

	r.mu.Lock()
	defer r.mu.Unlock()

	fields := map[string]interface{}{
		"endpoint": name,
		"path":     pathTemplate,
		"verb":     verb,
	}

	if r.server == "" {
		r.logger.Error("Cannot register endpoint before a server is set", fields)

		return fmt.Errorf("registering %s: %w", name, ErrServerNotRegistered)
	}

	endpoint, ok := r.endpoints[name]
	if !ok {
		endpoint = &Endpoint{Name: name, Path: pathTemplate, verbs: make(map[string]struct{})}
		r.endpoints[name] = endpoint
	}

	if endpoint.Path != pathTemplate {
		fields["registered_path"] = endpoint.Path
		r.logger.Error("Endpoint registered with a different path template", fields)

		return fmt.Errorf("registering %s: %w", name, ErrTemplateConflict)
	}

	if endpoint.Supports(verb) {
		r.logger.Error("Endpoint verb registered twice", fields)

		return fmt.Errorf("registering %s %s: %w", verb, name, ErrVerbRegistered)
	}

	endpoint.verbs[verb] = struct{}{}

	return nil
}

// Endpoint returns the named endpoint.
func (r *Registry) Endpoint(name string) (*Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	endpoint, ok := r.endpoints[name]

	return endpoint, ok
}

// Endpoints returns the registered endpoint names in sorted order.
func (r *Registry) Endpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// URL resolves the named endpoint against params without checking a verb.
func (r *Registry) URL(name string, params Params) (string, error) {
	r.mu.RLock()
	endpoint, ok := r.endpoints[name]
	server := r.server
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", ErrEndpointNotFound, name)
	}

	return server + expand(endpoint.Path, params), nil
}

// BuildRequest prepares a call of verb against the named endpoint.
func (r *Registry) BuildRequest(name, verb string, params Params, body any) (*Call, error) {
	verb = strings.ToUpper(verb)

	r.mu.RLock()
	endpoint, ok := r.endpoints[name]
	server := r.server
	r.mu.RUnlock()

	if !ok || !endpoint.Supports(verb) {
		return nil, fmt.Errorf("%w: %s %s", ErrEndpointNotFound, verb, name)
	}

	return &Call{
		transport: r.transport,
		Method:    verb,
		URL:       server + expand(endpoint.Path, params),
		Body:      body,
	}, nil
}

// Direct prepares a call against an absolute URL, such as a resource link.
func (r *Registry) Direct(verb, target string, body any) *Call {
	return &Call{
		transport: r.transport,
		Method:    strings.ToUpper(verb),
		URL:       target,
		Body:      body,
	}
}

func expand(template string, params Params) string {
	path := pathParam.ReplaceAllStringFunc(template, func(token string) string {
		value := params.Path[token[1:len(token)-1]]

		return url.PathEscape(value)
	})

	if query := params.Query.Encode(); query != "" {
		path += "?" + query
	}

	return path
}

// Call is a prepared request. It is not sent until Do, Send or Start.
type Call struct {
	transport Doer

	Method string
	URL    string
	Body   any
	// Anonymous calls are sent without the session credential.
	Anonymous bool
}

// Send performs the call and returns the raw response. Non-2xx responses
// are returned together with a *vra.ResponseError.
func (c *Call) Send(ctx context.Context) (*vrahttp.Response, error) {
	resp, err := c.transport.Do(ctx, &vrahttp.Request{
		Method:    c.Method,
		Path:      c.URL,
		Body:      c.Body,
		Anonymous: c.Anonymous,
	})
	if err != nil {
		return resp, fmt.Errorf("%s %s: %w", c.Method, c.URL, err)
	}

	return resp, nil
}

// Do performs the call and returns the response body.
func (c *Call) Do(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.Send(ctx)
	if err != nil {
		return nil, err
	}

	return json.RawMessage(resp.Body), nil
}

// Decode performs the call and unmarshals the response body into v.
func (c *Call) Decode(ctx context.Context, v any) error {
	body, err := c.Do(ctx)
	if err != nil {
		return err
	}

	if len(body) == 0 {
		return nil
	}

	err = json.Unmarshal(body, v)
	if err != nil {
		return fmt.Errorf("parsing %s response: %w", c.URL, err)
	}

	return nil
}

// Start performs the call in the background.
func (c *Call) Start(ctx context.Context) *async.Future[json.RawMessage] {
	return async.Go(ctx, c.Do)
}
