package errors

import (
	stderrs "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes the ledger can hit
var codeBySQLState = map[string]ErrorCode{
	"23505": ErrorCodeDuplicateKey,    // unique_violation
	"23503": ErrorCodeInvalidArgument, // foreign_key_violation
	"23502": ErrorCodeInvalidArgument, // not_null_violation
	"23514": ErrorCodeInvalidArgument, // check_violation
	"22001": ErrorCodeInvalidArgument, // string_data_right_truncation
	"22P02": ErrorCodeInvalidArgument, // invalid_text_representation
	"40001": ErrorCodeConflict,        // serialization_failure
	"40P01": ErrorCodeConflict,        // deadlock_detected
	"55P03": ErrorCodeConflict,        // lock_not_available
	"25006": ErrorCodeUnavailable,     // read_only_sql_transaction
	"57P03": ErrorCodeUnavailable,     // cannot_connect_now
}

// SQLState is the SQLSTATE of the postgres error in err's chain, "" if none
func SQLState(err error) string {
	var pg *pgconn.PgError
	if stderrs.As(err, &pg) {
		return pg.Code
	}
	return ""
}

// FromPostgres wraps a database error with msg, classified by SQLSTATE.
// Errors that are not from postgres are DB errors. nil stays nil.
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := codeBySQLState[SQLState(err)]
	if !ok {
		code = ErrorCodeDB
	}
	e := Wrap(err, code, msg)
	var pg *pgconn.PgError
	if stderrs.As(err, &pg) && pg.ColumnName != "" {
		e = WithField(e, pg.ColumnName)
	}
	return e
}

// FromPostgresf is FromPostgres with a formatted message
func FromPostgresf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return FromPostgres(err, fmt.Sprintf(format, a...))
}
