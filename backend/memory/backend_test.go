package memory

import (
	"bytes"
	"errors"
	"testing"

	"github.com/frerich/pg-large-objects/backend"
	"github.com/frerich/pg-large-objects/data"
)

func TestPrimitives(t *testing.T) {
	ctx := t.Context()
	store := NewStore()

	sess, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	oid, err := sess.Create(ctx, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if oid < 16384 {
		t.Errorf("Expected an oid outside the reserved range, got %d", oid)
	}

	fd, err := sess.Open(ctx, oid, int32(data.AccessModeReadWrite))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := sess.Write(ctx, fd, []byte("hello")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	pos, err := sess.Seek(ctx, fd, 0, backend.SeekStart)
	if err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if pos != 0 {
		t.Errorf("Expected position 0, got %d", pos)
	}

	got, err := sess.Read(ctx, fd, 10)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Errorf("Expected %q, got %q", "hello", got)
	}

	pos, err = sess.Tell(ctx, fd)
	if err != nil {
		t.Fatalf("Tell failed: %v", err)
	}
	if pos != 5 {
		t.Errorf("Expected position 5, got %d", pos)
	}

	if err := sess.Truncate(ctx, fd, 2); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}

	if _, err := sess.Seek(ctx, fd, 0, backend.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	got, err = sess.Read(ctx, fd, 10)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, []byte("he")) {
		t.Errorf("Expected %q, got %q", "he", got)
	}

	if err := sess.Close(ctx, fd); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := sess.Close(ctx, fd); !errors.Is(err, data.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double close, got %v", err)
	}

	if err := sess.Unlink(ctx, oid); err != nil {
		t.Fatalf("Unlink failed: %v", err)
	}
	if err := sess.Unlink(ctx, oid); !errors.Is(err, data.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second unlink, got %v", err)
	}
}

func TestCreateDesiredOID(t *testing.T) {
	ctx := t.Context()
	store := NewStore()

	sess, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	oid, err := sess.Create(ctx, 4711)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if oid != 4711 {
		t.Errorf("Expected oid 4711, got %d", oid)
	}

	if _, err := sess.Create(ctx, 4711); !errors.Is(err, data.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}
}

func TestRollbackDiscardsCreations(t *testing.T) {
	ctx := t.Context()
	store := NewStore()

	sess, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	oid, err := sess.Create(ctx, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	fd, err := sess.Open(ctx, oid, int32(data.AccessModeWrite))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := sess.Write(ctx, fd, []byte("transient")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err := sess.Rollback(ctx); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	if store.Len() != 0 {
		t.Errorf("Expected no objects after rollback, got %d", store.Len())
	}
}

func TestCommitKeepsCreations(t *testing.T) {
	ctx := t.Context()
	store := NewStore()

	sess, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	if _, err := sess.Create(ctx, 0); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := sess.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if store.Len() != 1 {
		t.Errorf("Expected 1 object after commit, got %d", store.Len())
	}
}

func TestDescriptorsDoNotSurviveSessions(t *testing.T) {
	ctx := t.Context()
	store := NewStore()

	sess, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	oid, err := sess.Create(ctx, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	fd, err := sess.Open(ctx, oid, int32(data.AccessModeRead))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := sess.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if _, err := sess.Read(ctx, fd, 1); !errors.Is(err, data.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for descriptor past session end, got %v", err)
	}
}

func TestReadOnlyDescriptor(t *testing.T) {
	ctx := t.Context()
	store := NewStore()

	sess, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	oid, err := sess.Create(ctx, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	fd, err := sess.Open(ctx, oid, int32(data.AccessModeRead))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := sess.Write(ctx, fd, []byte("x")); !errors.Is(err, data.ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly, got %v", err)
	}
	if err := sess.Truncate(ctx, fd, 0); !errors.Is(err, data.ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly, got %v", err)
	}
}

func TestSparseWrite(t *testing.T) {
	ctx := t.Context()
	store := NewStore()

	sess, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	oid, err := sess.Create(ctx, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	fd, err := sess.Open(ctx, oid, int32(data.AccessModeReadWrite))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// Writing past the end zero-fills the gap.
	if _, err := sess.Seek(ctx, fd, 3, backend.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if err := sess.Write(ctx, fd, []byte("ab")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if _, err := sess.Seek(ctx, fd, 0, backend.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	got, err := sess.Read(ctx, fd, 10)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, []byte{0, 0, 0, 'a', 'b'}) {
		t.Errorf("Expected zero-filled gap, got %v", got)
	}
}
