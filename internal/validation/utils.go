package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/deppfellow/nginx-log-sink/internal/errs"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// Validatable is implemented by request types that validate themselves.
type Validatable interface {
	Validate() error
}

// CustomValidationError is a field problem struct tags cannot express.
type CustomValidationError struct {
	Field   string
	Message string
}

type CustomValidationErrors []CustomValidationError

func (c CustomValidationErrors) Error() string {
	return "Validation failed"
}

// BindAndValidate binds path, query and body into payload, then validates it.
// Both steps fail with a 400.
func BindAndValidate(c echo.Context, payload Validatable) error {
	if err := c.Bind(payload); err != nil {
		return errs.NewBadRequestError(bindErrorMessage(err), false, nil, nil, nil)
	}

	if msg, fieldErrors := validateStruct(payload); fieldErrors != nil {
		return errs.NewBadRequestError(msg, true, nil, fieldErrors, nil)
	}

	return nil
}

func bindErrorMessage(err error) string {
	var bindErr *echo.BindingError
	if errors.As(err, &bindErr) {
		return fmt.Sprintf("invalid value for %s", bindErr.Field)
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		if msg, ok := echoErr.Message.(string); ok && msg != "" {
			return msg
		}
	}
	return "Invalid request parameters"
}

func validateStruct(v Validatable) (string, []errs.FieldError) {
	if err := v.Validate(); err != nil {
		return extractValidationError(err)
	}
	return "", nil
}

func extractValidationError(err error) (string, []errs.FieldError) {
	var fieldErrors []errs.FieldError

	var custom CustomValidationErrors
	if errors.As(err, &custom) {
		for _, e := range custom {
			fieldErrors = append(fieldErrors, errs.FieldError{
				Field: e.Field,
				Error: e.Message,
			})
		}
		return "Validation failed", fieldErrors
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "Validation failed", []errs.FieldError{{Error: err.Error()}}
	}

	for _, fe := range validationErrors {
		fieldErrors = append(fieldErrors, errs.FieldError{
			Field: toSnakeCase(fe.Field()),
			Error: fieldMessage(fe),
		})
	}

	return "Validation failed", fieldErrors
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", fe.Param())
		}
		return fmt.Sprintf("must not exceed %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gtefield":
		return fmt.Sprintf("must be greater than or equal to %s", toSnakeCase(fe.Param()))
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "dive":
		return "some items are invalid"
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s: %s", fe.Tag(), fe.Param())
		}
		return fe.Tag()
	}
}

// toSnakeCase maps Go field names onto the query keys clients send,
// e.g. MinStatus -> min_status.
func toSnakeCase(s string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range s {
		isUpper := r >= 'A' && r <= 'Z'
		if isUpper {
			if prevLower {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		prevLower = !isUpper
		b.WriteRune(r)
	}
	return b.String()
}
