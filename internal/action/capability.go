// Package action discovers the lifecycle operations advertised by a
// resource's links and submits them.
package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/vra/internal/async"
	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/fivetwenty-io/vra/internal/registry"
	"github.com/fivetwenty-io/vra/pkg/vra"
	"github.com/mohae/deepcopy"
)

// Static errors for err113 compliance.
var (
	ErrConfirmationDeclined = errors.New("action request declined")
	ErrNoSubmitEndpoint     = errors.New("action has no submit endpoint")
	ErrNoForm               = errors.New("action has no request form")
	ErrUnexpectedStatus     = errors.New("unexpected action response status")
)

// Caller issues registry calls.
type Caller interface {
	BuildRequest(name, verb string, params registry.Params, body any) (*registry.Call, error)
	Direct(verb, target string, body any) *registry.Call
}

// Deps are the collaborators shared by the capabilities of one resource.
type Deps struct {
	Caller   Caller
	Notifier vra.Notifier
	// Confirmer gates every submission. A nil Confirmer declines everything.
	Confirmer vra.Confirmer
	Logger    vra.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = vra.NopNotifier{}
	}

	if d.Confirmer == nil {
		d.Confirmer = vra.ConfirmerFunc(func(context.Context, string) bool { return false })
	}

	if d.Logger == nil {
		d.Logger = vra.NopLogger{}
	}

	return d
}

// Outcome is the raw result of a submission.
type Outcome struct {
	StatusCode int
	Body       json.RawMessage
	Err        error
}

// Capability is one operation a resource exposes.
type Capability struct {
	kind        Kind
	resourceID  string
	actionID    string
	templateURL string
	submitURL   string
	deps        Deps
	template    *async.Future[vra.Template]
}

func newCapability(ctx context.Context, kind Kind, resourceID, actionID, templateURL string, deps Deps) *Capability {
	capability := &Capability{
		kind:        kind,
		resourceID:  resourceID,
		actionID:    actionID,
		templateURL: templateURL,
		deps:        deps,
	}

	capability.template = async.Go(ctx, capability.fetchTemplate)

	return capability
}

func (c *Capability) fetchTemplate(ctx context.Context) (vra.Template, error) {
	var template vra.Template

	err := c.deps.Caller.Direct(http.MethodGet, c.templateURL, nil).Decode(ctx, &template)
	if err != nil {
		c.deps.Logger.Warn("Failed to load action template", map[string]interface{}{
			"action":   c.kind.String(),
			"resource": c.resourceID,
			"error":    err.Error(),
		})

		return nil, fmt.Errorf("getting %s template: %w", c.kind, err)
	}

	return template, nil
}

// Kind returns the capability's kind.
func (c *Capability) Kind() Kind { return c.kind }

// Name returns the server-side action name.
func (c *Capability) Name() string { return c.kind.String() }

// ResourceID returns the owning resource.
func (c *Capability) ResourceID() string { return c.resourceID }

// ActionID returns the server-side action identifier.
func (c *Capability) ActionID() string { return c.actionID }

// TemplateURL returns the URL the request template is fetched from.
func (c *Capability) TemplateURL() string { return c.templateURL }

// SubmitURL returns the bound submit URL, or "" when none was advertised.
func (c *Capability) SubmitURL() string { return c.submitURL }

// HasForm reports whether the capability is form-backed.
func (c *Capability) HasForm() bool { return c.kind.HasForm() }

// SuccessMessage is the notification shown when a submission is accepted.
func (c *Capability) SuccessMessage() string { return c.kind.SuccessMessage() }

// Template waits for the request template.
func (c *Capability) Template(ctx context.Context) (vra.Template, error) {
	return c.template.Wait(ctx)
}

// CloneTemplate waits for the request template and returns a deep copy
// that may be modified before Execute.
func (c *Capability) CloneTemplate(ctx context.Context) (vra.Template, error) {
	template, err := c.Template(ctx)
	if err != nil {
		return nil, err
	}

	if template == nil {
		return vra.Template{}, nil
	}

	clone, _ := deepcopy.Copy(template).(vra.Template)

	return clone, nil
}

// Execute asks for confirmation and posts payload to the submit endpoint.
// A nil payload sends the request template if it has loaded, JSON null
// otherwise. done, when not nil, receives the outcome of every request that
// was sent.
func (c *Capability) Execute(ctx context.Context, payload any, done func(*Outcome)) error {
	if !c.deps.Confirmer.Confirm(ctx, c.kind.ConfirmationPrompt()) {
		return ErrConfirmationDeclined
	}

	if c.submitURL == "" {
		return fmt.Errorf("%s: %w", c.kind, ErrNoSubmitEndpoint)
	}

	body := payload
	if body == nil {
		if template, err := c.template.Peek(); err == nil && template != nil {
			body = template
		}
	}

	outcome := &Outcome{}

	resp, err := c.deps.Caller.Direct(http.MethodPost, c.submitURL, body).Send(ctx)
	if resp != nil {
		outcome.StatusCode = resp.StatusCode
		outcome.Body = resp.Body
	}

	if err == nil && outcome.StatusCode != http.StatusCreated {
		err = fmt.Errorf("%w: %d", ErrUnexpectedStatus, outcome.StatusCode)
		outcome.Err = vra.ParseResponseError(outcome.StatusCode, outcome.Body)
	} else {
		outcome.Err = err
	}

	if err != nil {
		c.deps.Notifier.Notify(vra.LevelDanger, vra.ErrorMessage(outcome.Err), constants.ErrorTitle)
	} else {
		c.deps.Notifier.Notify(vra.LevelSuccess, c.SuccessMessage(), "")
	}

	if done != nil {
		done(outcome)
	}

	if err != nil {
		return fmt.Errorf("submitting %s: %w", c.kind, err)
	}

	return nil
}

// FetchFormDefinition loads the editable form of a form-backed capability.
func (c *Capability) FetchFormDefinition(ctx context.Context) (*vra.Form, error) {
	if !c.HasForm() {
		return nil, fmt.Errorf("%s: %w", c.kind, ErrNoForm)
	}

	call, err := c.deps.Caller.BuildRequest(constants.EndpointResourceActionForms, http.MethodGet, registry.Params{
		Path: map[string]string{
			"resourceId":       c.resourceID,
			"resourceActionId": c.actionID,
		},
	}, nil)
	if err != nil {
		return nil, err
	}

	var form vra.Form

	err = call.Decode(ctx, &form)
	if err != nil {
		return nil, fmt.Errorf("getting %s form: %w", c.kind, err)
	}

	return &form, nil
}

type pagingInfo struct {
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

type permittedValuesRequest struct {
	DependencyValues vra.LiteralMap `json:"dependencyValues"`
	PagingInfo       pagingInfo     `json:"pagingInfo"`
	AssociateValue   any            `json:"associateValue"`
}

// FetchPermittedValues asks the server for the valid values of fieldID given
// the current form values. associate narrows the lookup, for example to the
// children of a snapshot. form is not modified.
func (c *Capability) FetchPermittedValues(
	ctx context.Context, fieldID string, form *vra.Form, associate any,
) (*vra.PermittedValues, error) {
	if !c.HasForm() {
		return nil, fmt.Errorf("%s: %w", c.kind, ErrNoForm)
	}

	var values vra.LiteralMap
	if form != nil {
		values = form.Values.Clone()
	}

	values.Entries = append(values.Entries, vra.Entry{Key: fieldID})

	call, err := c.deps.Caller.BuildRequest(constants.EndpointResourceActionFormValues, http.MethodPost, registry.Params{
		Path: map[string]string{
			"resourceId":       c.resourceID,
			"resourceActionId": c.actionID,
			"elementId":        fieldID,
		},
	}, permittedValuesRequest{
		DependencyValues: values,
		PagingInfo:       pagingInfo{Offset: 0, Count: constants.PermittedValuesPageSize},
		AssociateValue:   associate,
	})
	if err != nil {
		return nil, err
	}

	var permitted vra.PermittedValues

	err = call.Decode(ctx, &permitted)
	if err != nil {
		return nil, fmt.Errorf("getting permitted values of %s: %w", fieldID, err)
	}

	return &permitted, nil
}
