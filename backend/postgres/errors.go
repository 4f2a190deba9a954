package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/frerich/pg-large-objects/data"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the server raises from the large-object functions.
const (
	codeUndefinedObject    = "42704" // unknown oid or descriptor
	codeDuplicateObject    = "42710" // lo_create collision
	codeWrongObjectState   = "55000" // descriptor not opened for writing
	codeInvalidParameter   = "22023" // seek before byte 0, bad open flags
	codeInvalidLODescrBase = "22P03" // invalid large-object descriptor
)

// mapError translates a server error into the client taxonomy, keeping the
// operation context and the server message. Context cancellation passes
// through untouched so callers can still match context.DeadlineExceeded.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("largeobjects: %s: %w", op, err)
	}

	var kind error
	switch pgErr.Code {
	case codeUndefinedObject, codeInvalidLODescrBase:
		kind = data.ErrNotFound
	case codeDuplicateObject:
		kind = data.ErrAlreadyExists
	case codeWrongObjectState:
		kind = data.ErrReadOnly
	case codeInvalidParameter:
		kind = data.ErrInvalidOffset
	default:
		return fmt.Errorf("largeobjects: %s: %w", op, err)
	}

	return fmt.Errorf("%w: %s: %s", kind, op, pgErr.Message)
}
