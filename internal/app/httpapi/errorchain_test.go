package httpapi

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundstack/soundstack/internal/app/storage"
	"github.com/soundstack/soundstack/internal/config"
	svcerrors "github.com/soundstack/soundstack/internal/errors"
	"github.com/soundstack/soundstack/internal/upload"
	"github.com/soundstack/soundstack/internal/validate"
	"github.com/soundstack/soundstack/pkg/logger"
)

func TestStagesPassThroughUnrelatedErrors(t *testing.T) {
	plain := stderrors.New("boom")
	assert.Same(t, plain, StorageStage(plain))
	assert.Same(t, plain, ValidationStage(plain))
	assert.Same(t, plain, UploadStage("trackFile")(plain))
}

func TestValidationStage(t *testing.T) {
	type input struct {
		Username string `json:"username" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
	}
	err := validate.Struct(input{Email: "bad"})
	var verrs validator.ValidationErrors
	require.True(t, stderrors.As(err, &verrs))

	se := svcerrors.GetServiceError(ValidationStage(err))
	require.NotNil(t, se)
	assert.Equal(t, http.StatusBadRequest, se.HTTPStatus)
	assert.Equal(t, "Validation error", se.Title)
	assert.Equal(t, []string{"username is required", "email must be a valid email"}, se.Errors)

	se = svcerrors.GetServiceError(ValidationStage(validate.Errors{"email must be unique"}))
	require.NotNil(t, se)
	assert.Equal(t, []string{"email must be unique"}, se.Errors)
}

func TestUploadStage(t *testing.T) {
	stage := UploadStage("trackFile")
	err := &upload.Error{Code: upload.CodeLimitUnexpectedFile, Field: "cover", Message: "Unexpected file field."}

	se := svcerrors.GetServiceError(stage(fmt.Errorf("receive: %w", err)))
	require.NotNil(t, se)
	assert.Equal(t, http.StatusBadRequest, se.HTTPStatus)
	assert.Equal(t, "File upload error", se.Title)
	assert.Equal(t, map[string]string{"trackFile": "Unexpected file field."}, se.Errors)
}

func TestNormalize(t *testing.T) {
	rs := NewResponder(config.ResolveSecurity("production"), "trackFile", logger.Discard())

	se := rs.Normalize(fmt.Errorf("song 1: %w", storage.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, se.HTTPStatus)
	assert.Equal(t, "Resource Not Found", se.Title)
	assert.Equal(t, []string{"The requested resource couldn't be found."}, se.Errors)
	assert.True(t, stderrors.Is(se, storage.ErrNotFound))

	se = rs.Normalize(fmt.Errorf("user: %w", storage.ErrConflict))
	assert.Equal(t, http.StatusConflict, se.HTTPStatus)

	se = rs.Normalize(stderrors.New("database exploded"))
	assert.Equal(t, http.StatusInternalServerError, se.HTTPStatus)
	assert.Equal(t, "Server Error", se.Title)
	assert.Equal(t, "database exploded", se.Message)

	forbidden := svcerrors.Forbidden("")
	assert.Same(t, forbidden, rs.Normalize(forbidden))
}
