// Package validate runs struct-tag validation and renders one human-readable
// message per failed field.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator, configured to report json field names.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("notemail", func(fl validator.FieldLevel) bool {
			return !strings.Contains(fl.Field().String(), "@")
		})
		instance = v
	})
	return instance
}

// Errors is a list of field failures produced outside the validator, such
// as uniqueness checks.
type Errors []string

func (e Errors) Error() string {
	return strings.Join(e, "; ")
}

// Struct validates s. It returns nil or a validator.ValidationErrors.
func Struct(s interface{}) error {
	return Validator().Struct(s)
}

// Messages flattens a validation error into one message per failure. It
// returns nil for errors that are not validation errors.
func Messages(err error) []string {
	var custom Errors
	if errors.As(err, &custom) {
		return append([]string(nil), custom...)
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "url":
		return field + " must be a valid URL"
	case "notemail":
		return field + " cannot be an email"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
