// Package sqlerr turns PostgreSQL driver errors into the sink's HTTP errors.
//
// Storage failures during ingest must become 5xx so Pub/Sub redelivers,
// while constraint violations caused by the payload are the caller's
// fault and become 400s.
package sqlerr

import "fmt"

// Code is a coarse classification of SQLSTATE values.
type Code string

const (
	Other               Code = "other"
	NotNullViolation    Code = "not_null_violation"
	ForeignKeyViolation Code = "foreign_key_violation"
	UniqueViolation     Code = "unique_violation"
	CheckViolation      Code = "check_violation"
	InvalidTextRep      Code = "invalid_text_representation"
	DataException       Code = "data_exception"
	ConnectionFailure   Code = "connection_failure"
	QueryCanceled       Code = "query_canceled"
)

// Severity mirrors the Postgres severity levels.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityFatal   Severity = "FATAL"
	SeverityPanic   Severity = "PANIC"
	SeverityWarning Severity = "WARNING"
	SeverityNotice  Severity = "NOTICE"
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityLog     Severity = "LOG"
)

// Error is a normalised driver error.
type Error struct {
	Code           Code
	Severity       Severity
	DatabaseCode   string
	Message        string
	SchemaName     string
	TableName      string
	ColumnName     string
	DataTypeName   string
	ConstraintName string
	driverErr      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (SQLSTATE %s)", e.Severity, e.Message, e.DatabaseCode)
}

func (e *Error) Unwrap() error {
	return e.driverErr
}

// MapCode classifies a SQLSTATE.
func MapCode(sqlState string) Code {
	switch sqlState {
	case "23502":
		return NotNullViolation
	case "23503":
		return ForeignKeyViolation
	case "23505":
		return UniqueViolation
	case "23514":
		return CheckViolation
	case "22P02":
		return InvalidTextRep
	case "57014":
		return QueryCanceled
	}
	if len(sqlState) != 5 {
		return Other
	}
	switch sqlState[:2] {
	case "08":
		return ConnectionFailure
	case "22":
		// e.g. 22021 NUL in text, 22P05 \u0000 in jsonb
		return DataException
	}
	return Other
}

func MapSeverity(severity string) Severity {
	switch Severity(severity) {
	case SeverityError, SeverityFatal, SeverityPanic, SeverityWarning,
		SeverityNotice, SeverityDebug, SeverityInfo, SeverityLog:
		return Severity(severity)
	default:
		return SeverityError
	}
}
