package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/frerich/pg-large-objects/data"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"unknown oid", codeUndefinedObject, data.ErrNotFound},
		{"invalid descriptor", codeInvalidLODescrBase, data.ErrNotFound},
		{"duplicate oid", codeDuplicateObject, data.ErrAlreadyExists},
		{"read-only descriptor", codeWrongObjectState, data.ErrReadOnly},
		{"negative seek", codeInvalidParameter, data.ErrInvalidOffset},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := mapError(&pgconn.PgError{Code: tc.code, Message: tc.name}, "lo_open")
			if !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestMapErrorPassesThroughCancellation(t *testing.T) {
	if err := mapError(context.Canceled, "loread"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if err := mapError(context.DeadlineExceeded, "loread"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestMapErrorUnknownCode(t *testing.T) {
	// Codes outside the taxonomy keep the original error intact so callers
	// can still inspect it.
	pgErr := &pgconn.PgError{Code: "40001", Message: "serialization failure"}
	err := mapError(pgErr, "lowrite")

	var got *pgconn.PgError
	if !errors.As(err, &got) || got.Code != "40001" {
		t.Errorf("Expected the original server error to be preserved, got %v", err)
	}
	if errors.Is(err, data.ErrNotFound) || errors.Is(err, data.ErrReadOnly) {
		t.Errorf("Unknown code must not map into the taxonomy: %v", err)
	}
}

func TestMapErrorNil(t *testing.T) {
	if err := mapError(nil, "lo_close"); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}
