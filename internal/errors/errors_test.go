package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFoundShape(t *testing.T) {
	err := NotFound("")

	assert.Equal(t, KindNotFound, err.Kind)
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus)
	assert.Equal(t, TitleNotFound, err.Title)
	assert.Equal(t, []string{MessageNotFound}, err.Errors)
}

func TestValidationKeepsEveryMessage(t *testing.T) {
	err := Validation([]string{"email is required", "username is required"}, nil)

	assert.Equal(t, TitleValidation, err.Title)
	assert.Len(t, err.Errors, 2)
	assert.Equal(t, "email is required", err.Message)
}

func TestUploadKeyedByField(t *testing.T) {
	err := Upload("trackFile", "File size cannot exceed 10MB.", nil)

	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	assert.Equal(t, map[string]string{"trackFile": "File size cannot exceed 10MB."}, err.Errors)
}

func TestWrapUnknownErrorIsInternal(t *testing.T) {
	err := Wrap(stderrors.New("boom"))

	require.NotNil(t, err)
	assert.Equal(t, KindInternal, err.Kind)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
	assert.Equal(t, TitleServer, err.Title)
	assert.Equal(t, "boom", err.Message)
	assert.True(t, strings.Contains(err.StackTrace(), "boom"))
}

func TestWrapKeepsServiceError(t *testing.T) {
	original := Forbidden("not yours")
	wrapped := fmt.Errorf("handler: %w", original)

	assert.Same(t, original, Wrap(wrapped))
	assert.True(t, IsKind(wrapped, KindForbidden))
	assert.Nil(t, Wrap(nil))
}

func TestStackTraceHasFrames(t *testing.T) {
	trace := Internal("exploded", nil).StackTrace()
	assert.Contains(t, trace, "exploded")
	assert.Contains(t, trace, ".go:")
}

func TestRateLimitDetails(t *testing.T) {
	err := RateLimitExceeded(5, "1s")
	assert.Equal(t, http.StatusTooManyRequests, err.HTTPStatus)
	assert.Equal(t, 5, err.Details["limit"])
}
