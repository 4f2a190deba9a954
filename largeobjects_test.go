package largeobjects_test

import (
	"context"
	"testing"

	largeobjects "github.com/frerich/pg-large-objects"
	"github.com/frerich/pg-large-objects/backend"
	"github.com/frerich/pg-large-objects/backend/memory"
	"github.com/frerich/pg-large-objects/backend/sqlite"
)

// TestStoreFactory creates a new store instance for testing.
type TestStoreFactory func(t *testing.T) (backend.Store, error)

// GetTestStoreFactories returns all store implementations to test. The
// postgres backend needs a running server and is exercised separately.
func GetTestStoreFactories() map[string]TestStoreFactory {
	return map[string]TestStoreFactory{
		"memory": func(t *testing.T) (backend.Store, error) {
			return memory.NewStore(), nil
		},
		"sqlite": func(t *testing.T) (backend.Store, error) {
			store, err := sqlite.NewStore(":memory:")
			if err != nil {
				return nil, err
			}
			t.Cleanup(func() { store.Close() })
			return store, nil
		},
	}
}

// beginSession starts a session and registers a rollback cleanup so a failed
// test never leaks descriptors.
func beginSession(t *testing.T, store backend.Store) backend.Session {
	t.Helper()

	sess, err := store.Begin(t.Context())
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	t.Cleanup(func() { sess.Rollback(context.Background()) })
	return sess
}

// createObject creates an object holding content and returns its oid, going
// through a committed session of its own.
func createObject(t *testing.T, store backend.Store, content []byte) uint32 {
	t.Helper()
	ctx := t.Context()

	sess, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	h, err := largeobjects.Create(ctx, sess)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if len(content) > 0 {
		if err := h.Write(ctx, content); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	if err := h.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := sess.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	return h.OID()
}
