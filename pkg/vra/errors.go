package vra

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a single error reported by the vRA API.
type APIError struct {
	Code          int    `json:"code"                    yaml:"code"`
	Source        string `json:"source,omitempty"        yaml:"source,omitempty"`
	Message       string `json:"message"                 yaml:"message"`
	SystemMessage string `json:"systemMessage,omitempty" yaml:"system_message,omitempty"`
	MoreInfoURL   string `json:"moreInfoUrl,omitempty"   yaml:"more_info_url,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.SystemMessage != "" && e.SystemMessage != e.Message {
		return fmt.Sprintf("%s: %s (code: %d)", e.Message, e.SystemMessage, e.Code)
	}

	return fmt.Sprintf("%s (code: %d)", e.Message, e.Code)
}

// ResponseError represents a non-success response from the API.
type ResponseError struct {
	StatusCode int        `json:"-"`
	Errors     []APIError `json:"errors"`
	Body       []byte     `json:"-"`
}

// Error implements the error interface for ResponseError.
func (e *ResponseError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}

	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	return fmt.Sprintf("multiple errors: %v", e.Errors)
}

// FirstError returns the first error or nil.
func (e *ResponseError) FirstError() *APIError {
	if len(e.Errors) > 0 {
		return &e.Errors[0]
	}

	return nil
}

// Message returns the first user-facing message of the response.
func (e *ResponseError) Message() string {
	if first := e.FirstError(); first != nil && first.Message != "" {
		return first.Message
	}

	return http.StatusText(e.StatusCode)
}

// SystemMessage returns the first system message of the response.
func (e *ResponseError) SystemMessage() string {
	if first := e.FirstError(); first != nil && first.SystemMessage != "" {
		return first.SystemMessage
	}

	return e.Message()
}

// Static errors for err113 compliance.
var (
	ErrConfigRequired      = errors.New("config is required")
	ErrAPIEndpointRequired = errors.New("API endpoint is required")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrInvalidSessionToken = errors.New("invalid session token")
	ErrNoBlueprintID       = errors.New("catalog item has no blueprint binding")
	ErrTemplateNotReady    = errors.New("request template is not loaded")
	ErrSkipTLSOnlyInDev    = errors.New("skipping TLS verification is only allowed in development mode")
)

// ErrorMessage extracts the message a user should see for err.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	errResp := &ResponseError{}
	if errors.As(err, &errResp) {
		return errResp.Message()
	}

	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}

	return err.Error()
}

// StatusCode returns the HTTP status carried by err, or zero.
func StatusCode(err error) int {
	errResp := &ResponseError{}
	if errors.As(err, &errResp) {
		return errResp.StatusCode
	}

	return 0
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}

// ParseResponseError parses an error response from JSON.
func ParseResponseError(statusCode int, data []byte) *ResponseError {
	errResp := &ResponseError{StatusCode: statusCode, Body: data}

	if len(data) > 0 {
		var decoded struct {
			Errors []APIError `json:"errors"`
		}

		if err := json.Unmarshal(data, &decoded); err == nil {
			errResp.Errors = decoded.Errors
		}
	}

	return errResp
}
