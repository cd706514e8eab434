package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jenkinph/procedure-passport/store"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrUnknownIdentity = errors.New("unknown identity")
	ErrInvalidToken    = errors.New("invalid or expired token")
)

// APIError carries the HTTP status and a stable code for an error.
type APIError struct {
	Status int
	Code   string
	Err    error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *APIError) Unwrap() error { return e.Err }

// ToAPIError maps service and store errors to statuses.
func ToAPIError(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, ErrValidation):
		return &APIError{Status: fiber.StatusBadRequest, Code: "validation", Err: err}
	case errors.Is(err, ErrUnknownIdentity):
		return &APIError{Status: fiber.StatusUnauthorized, Code: "unknown_identity", Err: err}
	case errors.Is(err, ErrInvalidToken):
		return &APIError{Status: fiber.StatusUnauthorized, Code: "invalid_token", Err: err}
	case errors.Is(err, store.ErrNotFound):
		return &APIError{Status: fiber.StatusNotFound, Code: "not_found", Err: err}
	case errors.Is(err, store.ErrConflict):
		return &APIError{Status: fiber.StatusConflict, Code: "conflict", Err: err}
	default:
		return &APIError{Status: fiber.StatusInternalServerError, Code: "internal", Err: err}
	}
}

var validate = newValidator()

// newValidator reports fields by their form name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" && name != "-" {
			return name
		}
		return f.Name
	})
	return v
}

func invalid(field, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, msg)
}

// validateStruct runs the struct tags and reports every failing field.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(parts, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be an email address"
	case "max":
		return field + " is too long"
	default:
		return field + " is invalid"
	}
}
