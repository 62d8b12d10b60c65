package vra_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/fivetwenty-io/vra/pkg/vra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Not found. (code: 10101)", (&vra.APIError{Code: 10101, Message: "Not found."}).Error())
	assert.Equal(t, "Not found. (code: 10101)", (&vra.APIError{Code: 10101, Message: "Not found.", SystemMessage: "Not found."}).Error())
	assert.Equal(t,
		"Lease exceeds policy: max 30 days (code: 20116)",
		(&vra.APIError{Code: 20116, Message: "Lease exceeds policy", SystemMessage: "max 30 days"}).Error())
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestResponseError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        int
		body          string
		wantError     string
		wantMessage   string
		wantSystemMsg string
	}{
		{
			name:          "empty body",
			status:        http.StatusBadGateway,
			wantError:     "unexpected status 502",
			wantMessage:   "Bad Gateway",
			wantSystemMsg: "Bad Gateway",
		},
		{
			name:          "not json",
			status:        http.StatusInternalServerError,
			body:          "<html>oops</html>",
			wantError:     "unexpected status 500",
			wantMessage:   "Internal Server Error",
			wantSystemMsg: "Internal Server Error",
		},
		{
			name:          "single error",
			status:        http.StatusBadRequest,
			body:          `{"errors":[{"code":20116,"message":"Invalid lease","systemMessage":"Lease must be under 30 days"}]}`,
			wantError:     "Invalid lease: Lease must be under 30 days (code: 20116)",
			wantMessage:   "Invalid lease",
			wantSystemMsg: "Lease must be under 30 days",
		},
		{
			name:          "without system message",
			status:        http.StatusNotFound,
			body:          `{"errors":[{"code":10101,"message":"Not found."}]}`,
			wantError:     "Not found. (code: 10101)",
			wantMessage:   "Not found.",
			wantSystemMsg: "Not found.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := vra.ParseResponseError(tt.status, []byte(tt.body))
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, tt.wantError, err.Error())
			assert.Equal(t, tt.wantMessage, err.Message())
			assert.Equal(t, tt.wantSystemMsg, err.SystemMessage())
		})
	}
}

func TestResponseError_MultipleErrors(t *testing.T) {
	t.Parallel()

	err := vra.ParseResponseError(http.StatusBadRequest, []byte(`{"errors":[{"code":1,"message":"first"},{"code":2,"message":"second"}]}`))

	require.Len(t, err.Errors, 2)
	assert.Contains(t, err.Error(), "multiple errors")
	assert.Equal(t, "first", err.FirstError().Message)
	assert.Nil(t, (&vra.ResponseError{}).FirstError())
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	responseErr := vra.ParseResponseError(http.StatusForbidden, []byte(`{"errors":[{"code":3,"message":"Access denied"}]}`))

	assert.Empty(t, vra.ErrorMessage(nil))
	assert.Equal(t, "Access denied", vra.ErrorMessage(fmt.Errorf("GET /x: %w", responseErr)))
	assert.Equal(t, "Quota", vra.ErrorMessage(fmt.Errorf("wrapped: %w", &vra.APIError{Message: "Quota"})))
	assert.Equal(t, "plain failure", vra.ErrorMessage(errors.New("plain failure")))
}

func TestStatusHelpers(t *testing.T) {
	t.Parallel()

	notFound := fmt.Errorf("lookup: %w", vra.ParseResponseError(http.StatusNotFound, nil))
	unauthorized := vra.ParseResponseError(http.StatusUnauthorized, nil)
	forbidden := vra.ParseResponseError(http.StatusForbidden, nil)

	assert.Equal(t, http.StatusNotFound, vra.StatusCode(notFound))
	assert.True(t, vra.IsNotFound(notFound))
	assert.False(t, vra.IsNotFound(unauthorized))
	assert.True(t, vra.IsUnauthorized(unauthorized))
	assert.True(t, vra.IsForbidden(forbidden))
	assert.Equal(t, 0, vra.StatusCode(errors.New("network down")))
}
