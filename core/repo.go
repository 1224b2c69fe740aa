package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

var ErrNotFound = errors.New("core: record not found")

// ErrPermission is returned when the acting user is outside the scope
// required by the operation. The API layer maps it to 403.
var ErrPermission = errors.New("core: permission denied")

// ValidationError rejects a request before anything is written. Field is
// empty for request-level problems.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func Invalidf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// ConflictError rejects a request that overdraws what is left of something,
// carrying the remaining figure so the caller can correct and retry.
type ConflictError struct {
	Msg       string
	Remaining int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %d remaining", e.Msg, e.Remaining)
}

type Transaction interface {
	Conn
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Conn interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type UpdateOptions struct {
	Tx Transaction
}

type QueryOptions struct {
	ForUpdate bool
	Tx        Transaction
}
