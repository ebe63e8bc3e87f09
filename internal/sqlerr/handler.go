package sqlerr

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/deppfellow/nginx-log-sink/internal/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrCode reports the Code of the first *Error in the chain, Other otherwise.
func ErrCode(err error) Code {
	var pgerr *Error
	if errors.As(err, &pgerr) {
		return pgerr.Code
	}
	return Other
}

// IsDataError reports whether err was caused by the values written rather
// than by the database being unavailable. Retrying such a write fails the
// same way every time.
func IsDataError(err error) bool {
	switch ErrCode(err) {
	case NotNullViolation, ForeignKeyViolation, UniqueViolation,
		CheckViolation, InvalidTextRep, DataException:
		return true
	}
	return false
}

// ConvertPgError converts a raw Postgres error into *Error.
func ConvertPgError(src *pgconn.PgError) *Error {
	return &Error{
		Code:           MapCode(src.Code),
		Severity:       MapSeverity(src.Severity),
		DatabaseCode:   src.Code,
		Message:        src.Message,
		SchemaName:     src.SchemaName,
		TableName:      src.TableName,
		ColumnName:     src.ColumnName,
		DataTypeName:   src.DataTypeName,
		ConstraintName: src.ConstraintName,
		driverErr:      src,
	}
}

// generateErrorCode builds <ENTITY>_<ACTION>, e.g. ACCESS_LOG_ALREADY_EXISTS.
func generateErrorCode(tableName string, errType Code) string {
	if tableName == "" {
		tableName = "RECORD"
	}

	domain := strings.ToUpper(singular(tableName))

	action := "ERROR"
	switch errType {
	case ForeignKeyViolation:
		action = "NOT_FOUND"
	case UniqueViolation:
		action = "ALREADY_EXISTS"
	case NotNullViolation:
		action = "REQUIRED"
	case CheckViolation, InvalidTextRep, DataException:
		action = "INVALID"
	}

	return fmt.Sprintf("%s_%s", domain, action)
}

func formatUserFriendlyMessage(sqlErr *Error) string {
	entityName := humanizeText(singular(sqlErr.TableName))
	if entityName == "" {
		entityName = "record"
	}

	switch sqlErr.Code {
	case UniqueViolation:
		return fmt.Sprintf("%s already stored", entityName)
	case NotNullViolation:
		fieldName := humanizeText(sqlErr.ColumnName)
		if fieldName == "" {
			fieldName = "field"
		}
		return fmt.Sprintf("The %s is required", fieldName)
	case CheckViolation, InvalidTextRep, DataException:
		fieldName := humanizeText(sqlErr.ColumnName)
		if fieldName != "" {
			return fmt.Sprintf("The %s value is not accepted", fieldName)
		}
		return "One or more values are not accepted"
	default:
		return "An error occurred while processing your request"
	}
}

func singular(table string) string {
	if strings.HasSuffix(table, "s") && len(table) > 1 {
		return table[:len(table)-1]
	}
	return table
}

// humanizeText converts "access_log" into "Access Log".
func humanizeText(text string) string {
	if text == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(text, "_", " "))
}

// HandleError converts a low-level database error into an *errs.HTTPError.
//
//   - *errs.HTTPError: returned unchanged
//   - constraint violations: 400 with a generated code
//   - connection failures and cancellations: 503, safe to retry
//   - no rows: 404
//   - anything else: 500
func HandleError(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		sqlErr := ConvertPgError(pgerr)
		errorCode := generateErrorCode(sqlErr.TableName, sqlErr.Code)
		userMessage := formatUserFriendlyMessage(sqlErr)

		switch sqlErr.Code {
		case UniqueViolation, ForeignKeyViolation, CheckViolation, InvalidTextRep, DataException:
			return errs.NewBadRequestError(userMessage, true, &errorCode, nil, nil)

		case NotNullViolation:
			fieldErrors := []errs.FieldError{
				{
					Field: strings.ToLower(sqlErr.ColumnName),
					Error: "is required",
				},
			}
			return errs.NewBadRequestError(userMessage, true, &errorCode, fieldErrors, nil)

		case ConnectionFailure, QueryCanceled:
			return errs.NewServiceUnavailableError("Storage temporarily unavailable", "STORAGE_UNAVAILABLE")

		default:
			return errs.NewInternalServerError()
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return errs.NewServiceUnavailableError("Storage temporarily unavailable", "STORAGE_UNAVAILABLE")
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return errs.NewNotFoundError("Access log not found", false, nil)
	}

	return errs.NewInternalServerError()
}
