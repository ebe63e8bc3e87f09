package errs

import "strings"

// FieldError represents a field-level validation error.
//
//	{ "field": "limit", "error": "must not exceed 500" }
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ActionType is a string-based enum describing what the client should do.
type ActionType string

const (
	// ActionTypeRetry tells the client the request is safe to resend.
	ActionTypeRetry ActionType = "retry"
)

// Action is an optional hint for the caller, e.g. retry after a storage
// outage.
type Action struct {
	Type    ActionType `json:"type"`
	Message string     `json:"message"`
	Value   string     `json:"value"`
}

// HTTPError is the error type every handler returns.
//
// Fields:
//   - Code: machine-friendly error code (e.g. "UNSUPPORTED_CONTENT_TYPE").
//   - Message: human-friendly message.
//   - Status: HTTP status code.
//   - Override: whether the message is safe to show verbatim.
//   - Errors: list of per-field errors (validation).
//   - Action: client instruction (optional).
type HTTPError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Status   int    `json:"status"`
	Override bool   `json:"override"`

	Errors []FieldError `json:"errors"`
	Action *Action      `json:"action"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Is matches any *HTTPError, regardless of code or status.
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}

// WithMessage returns a copy of the error with Message replaced.
func (e *HTTPError) WithMessage(message string) *HTTPError {
	return &HTTPError{
		Code:     e.Code,
		Message:  message,
		Status:   e.Status,
		Override: e.Override,
		Errors:   e.Errors,
		Action:   e.Action,
	}
}

// WithAction returns a copy of the error carrying the given client hint.
func (e *HTTPError) WithAction(action *Action) *HTTPError {
	cp := e.WithMessage(e.Message)
	cp.Action = action
	return cp
}

// MakeUpperCaseWithUnderscores converts "Bad Request" into "BAD_REQUEST".
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
