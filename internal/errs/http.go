package errs

import (
	"net/http"
)

// Codes used by the ingest endpoint. Callers key retries off the status,
// these only make logs and dashboards searchable.
const (
	CodeUnsupportedContentType = "UNSUPPORTED_CONTENT_TYPE"
	CodeUnrecognizedFormat     = "UNRECOGNIZED_FORMAT"
	CodeInvalidPubSubMessage   = "INVALID_PUBSUB_MESSAGE"
	CodePubSubProcessing       = "PUBSUB_PROCESSING_FAILED"
	CodeLogProcessing          = "LOG_PROCESSING_FAILED"
	CodeOverloaded             = "OVERLOADED"
	CodeStorageDisabled        = "STORAGE_DISABLED"
)

func NewUnauthorizedError(message string, override bool) *HTTPError {
	return &HTTPError{
		Code:     MakeUpperCaseWithUnderscores(http.StatusText(http.StatusUnauthorized)),
		Message:  message,
		Status:   http.StatusUnauthorized,
		Override: override,
	}
}

func NewForbiddenError(message string, override bool) *HTTPError {
	return &HTTPError{
		Code:     MakeUpperCaseWithUnderscores(http.StatusText(http.StatusForbidden)),
		Message:  message,
		Status:   http.StatusForbidden,
		Override: override,
	}
}

// NewBadRequestError creates a 400. A nil code defaults to "BAD_REQUEST".
func NewBadRequestError(message string, override bool, code *string, errors []FieldError, action *Action) *HTTPError {
	formattedCode := MakeUpperCaseWithUnderscores(http.StatusText(http.StatusBadRequest))
	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Code:     formattedCode,
		Message:  message,
		Status:   http.StatusBadRequest,
		Override: override,
		Errors:   errors,
		Action:   action,
	}
}

func NewNotFoundError(message string, override bool, code *string) *HTTPError {
	formattedCode := MakeUpperCaseWithUnderscores(http.StatusText(http.StatusNotFound))
	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Code:     formattedCode,
		Message:  message,
		Status:   http.StatusNotFound,
		Override: override,
	}
}

// NewInternalServerError is the generic 500; it never leaks the cause.
func NewInternalServerError() *HTTPError {
	return &HTTPError{
		Code:     MakeUpperCaseWithUnderscores(http.StatusText(http.StatusInternalServerError)),
		Message:  http.StatusText(http.StatusInternalServerError),
		Status:   http.StatusInternalServerError,
		Override: false,
	}
}

// NewProcessingError is a 500 with a fixed, client-safe message. Pub/Sub
// treats it as a nack and redelivers.
func NewProcessingError(code, message string) *HTTPError {
	return &HTTPError{
		Code:     code,
		Message:  message,
		Status:   http.StatusInternalServerError,
		Override: true,
		Action: &Action{
			Type:    ActionTypeRetry,
			Message: "The message can be redelivered",
		},
	}
}

func NewServiceUnavailableError(message string, code string) *HTTPError {
	return &HTTPError{
		Code:     code,
		Message:  message,
		Status:   http.StatusServiceUnavailable,
		Override: true,
	}
}

// ValidationError converts a generic validation error into a 400.
func ValidationError(err error) *HTTPError {
	return NewBadRequestError("Validation failed: "+err.Error(), false, nil, nil, nil)
}

// Code returns a pointer to a code constant, for the constructors above.
func Code(code string) *string {
	return &code
}
