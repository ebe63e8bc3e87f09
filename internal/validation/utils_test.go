package validation

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deppfellow/nginx-log-sink/internal/errs"
	"github.com/deppfellow/nginx-log-sink/internal/model"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindQuery(t *testing.T, rawQuery string) (*model.AccessLogQuery, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/access-logs?"+rawQuery, nil)
	c := e.NewContext(req, httptest.NewRecorder())

	q := &model.AccessLogQuery{}
	return q, BindAndValidate(c, q)
}

func TestBindAndValidate_Query(t *testing.T) {
	q, err := bindQuery(t, "namespace=shop&min_status=500&max_status=599&limit=10&since=2024-01-02T03:04:05Z")
	require.NoError(t, err)

	assert.Equal(t, "shop", q.Namespace)
	assert.Equal(t, 500, q.MinStatus)
	assert.Equal(t, 599, q.MaxStatus)
	assert.Equal(t, 10, q.EffectiveLimit())
	assert.Equal(t, 2024, q.Since.Year())
}

func TestBindAndValidate_ValidationErrors(t *testing.T) {
	_, err := bindQuery(t, "limit=1000&source=kafka")
	require.Error(t, err)

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, "Validation failed", httpErr.Message)

	fields := map[string]string{}
	for _, fe := range httpErr.Errors {
		fields[fe.Field] = fe.Error
	}
	assert.Equal(t, "must not exceed 500", fields["limit"])
	assert.Equal(t, "must be one of: pubsub direct", fields["source"])
}

func TestBindAndValidate_StatusRange(t *testing.T) {
	_, err := bindQuery(t, "min_status=500&max_status=404")
	require.Error(t, err)

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	require.Len(t, httpErr.Errors, 1)
	assert.Equal(t, "max_status", httpErr.Errors[0].Field)
	assert.Equal(t, "must be greater than or equal to min_status", httpErr.Errors[0].Error)
}

func TestBindAndValidate_BindError(t *testing.T) {
	_, err := bindQuery(t, "limit=ten")
	require.Error(t, err)

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.NotEmpty(t, httpErr.Message)
}

func TestExtractValidationError_Custom(t *testing.T) {
	msg, fields := extractValidationError(CustomValidationErrors{{Field: "since", Message: "must be in the past"}})
	assert.Equal(t, "Validation failed", msg)
	assert.Equal(t, []errs.FieldError{{Field: "since", Error: "must be in the past"}}, fields)
}

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "min_status", toSnakeCase("MinStatus"))
	assert.Equal(t, "limit", toSnakeCase("Limit"))
	assert.Equal(t, "id", toSnakeCase("ID"))
}
