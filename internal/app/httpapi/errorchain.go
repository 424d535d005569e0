package httpapi

import (
	stderrors "errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/soundstack/soundstack/internal/app/metrics"
	"github.com/soundstack/soundstack/internal/app/storage"
	"github.com/soundstack/soundstack/internal/config"
	svcerrors "github.com/soundstack/soundstack/internal/errors"
	"github.com/soundstack/soundstack/internal/httputil"
	"github.com/soundstack/soundstack/internal/upload"
	"github.com/soundstack/soundstack/internal/validate"
	"github.com/soundstack/soundstack/pkg/logger"
)

// Stage rewrites an error into a more specific one, or returns it unchanged.
// Stages never write responses.
type Stage func(err error) error

// envelope is the JSON body of every error response.
type envelope struct {
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Errors  interface{} `json:"errors,omitempty"`
	Stack   *string     `json:"stack"`
}

// Responder is the single place error responses are written. Every error,
// whether from a handler, a middleware or the router, passes through the
// stages in order and is then formatted once.
type Responder struct {
	stages   []Stage
	security config.Security
	log      *logger.Logger
}

// NewResponder builds the chain: storage sentinels, validation, upload.
// uploadField keys the upload error map.
func NewResponder(security config.Security, uploadField string, log *logger.Logger) *Responder {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	return &Responder{
		stages:   []Stage{StorageStage, ValidationStage, UploadStage(uploadField)},
		security: security,
		log:      log,
	}
}

// StorageStage maps storage sentinels onto not-found and conflict errors.
func StorageStage(err error) error {
	if svcerrors.GetServiceError(err) != nil {
		return err
	}
	switch {
	case stderrors.Is(err, storage.ErrNotFound):
		return svcerrors.NotFound("").WithCause(err)
	case stderrors.Is(err, storage.ErrConflict):
		return svcerrors.Conflict("Resource already exists", err)
	}
	return err
}

// ValidationStage turns field validation failures into a 400 with one
// message per failure.
func ValidationStage(err error) error {
	if svcerrors.GetServiceError(err) != nil {
		return err
	}
	var verrs validator.ValidationErrors
	var custom validate.Errors
	if stderrors.As(err, &verrs) || stderrors.As(err, &custom) {
		return svcerrors.Validation(validate.Messages(err), err)
	}
	return err
}

// UploadStage turns rejected uploads into a 400 keyed by field.
func UploadStage(field string) Stage {
	return func(err error) error {
		if svcerrors.GetServiceError(err) != nil {
			return err
		}
		ue, ok := upload.AsError(err)
		if !ok {
			return err
		}
		key := field
		if key == "" {
			key = ue.Field
		}
		return svcerrors.Upload(key, ue.Message, err)
	}
}

// Normalize runs err through every stage and returns the resulting
// ServiceError. Unrecognised errors become a 500.
func (rs *Responder) Normalize(err error) *svcerrors.ServiceError {
	for _, stage := range rs.stages {
		err = stage(err)
	}
	return svcerrors.Wrap(err)
}

// Respond writes the error envelope for err.
func (rs *Responder) Respond(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	se := rs.Normalize(err)

	status := se.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	title := se.Title
	if title == "" {
		title = svcerrors.TitleServer
	}

	body := envelope{Title: title, Message: se.Message, Errors: se.Errors}
	if rs.security.ExposeStackTraces {
		stack := se.StackTrace()
		body.Stack = &stack
	}

	entry := rs.log.WithContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
		"kind":   string(se.Kind),
	})
	if status >= http.StatusInternalServerError {
		entry.Error(title)
	} else {
		entry.Warn(title)
	}
	metrics.RecordError(string(se.Kind))

	httputil.WriteJSON(w, status, body)
}

// NotFound answers requests no route matched.
func (rs *Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	rs.Respond(w, r, svcerrors.NotFound(""))
}
