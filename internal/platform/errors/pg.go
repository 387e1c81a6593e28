package errors

import (
	stderrs "errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes with a meaning of their own
const (
	sqlSerializationFailure = "40001"
	sqlDeadlock             = "40P01"
	sqlUniqueViolation      = "23505"
	sqlQueryCanceled        = "57014"
)

// codes by SQLSTATE, anything else from postgres is ErrorCodeDB
var sqlStateCodes = map[string]ErrorCode{
	sqlUniqueViolation: ErrorCodeDuplicateKey,
	"23503":            ErrorCodeInvalidArgument, // references a missing row
	"23502":            ErrorCodeValidation,
	"23514":            ErrorCodeValidation,
	"22001":            ErrorCodeInvalidArgument,
	"22P02":            ErrorCodeInvalidArgument,

	// contention that outlived the transaction replays
	sqlSerializationFailure: ErrorCodeConflict,
	sqlDeadlock:             ErrorCodeConflict,
	"55P03":                 ErrorCodeConflict,

	sqlQueryCanceled: ErrorCodeTimeout, // statement_timeout
	"25006":          ErrorCodeUnavailable,
	"57P01":          ErrorCodeUnavailable,
	"57P03":          ErrorCodeUnavailable,
}

// ExtractPgError finds the postgres error in err's chain
func ExtractPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	ok := stderrs.As(err, &pgErr)
	return pgErr, ok
}

// SQLState returns the SQLSTATE of err, empty when it is not a postgres error
func SQLState(err error) string {
	if pgErr, ok := ExtractPgError(err); ok {
		return pgErr.Code
	}
	return ""
}

// IsSerializationFailure reports a 40001, safe to replay the whole transaction
func IsSerializationFailure(err error) bool { return SQLState(err) == sqlSerializationFailure }

// IsDeadlock reports a 40P01, safe to replay the whole transaction
func IsDeadlock(err error) bool { return SQLState(err) == sqlDeadlock }

// IsDuplicateKey reports a unique violation
func IsDuplicateKey(err error) bool { return SQLState(err) == sqlUniqueViolation }

// DBErrorCode maps err to a code; ok is false when err is not from postgres
func DBErrorCode(err error) (ErrorCode, bool) {
	state := SQLState(err)
	if state == "" {
		return ErrorCodeUnknown, false
	}
	if c, ok := sqlStateCodes[state]; ok {
		return c, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps a database error with msg and the mapped code, nil stays nil.
// Errors that did not come from postgres, like a closed pool, are ErrorCodeDB too.
// When postgres names the column it becomes the field
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	out := Wrap(err, code, msg)
	if pgErr, ok := ExtractPgError(err); ok && pgErr.ColumnName != "" {
		out = WithField(out, pgErr.ColumnName)
	}
	return out
}
