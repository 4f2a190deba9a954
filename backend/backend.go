// Package backend defines the primitive operations a large-object store has
// to provide. The core client in the root package is written entirely against
// these interfaces; implementations live in the subpackages (postgres for the
// real thing, sqlite for embedded use, memory for tests).
package backend

import "context"

// Seek anchors, matching os.SEEK_* and the values the PostgreSQL server-side
// lo_lseek64 function expects.
const (
	SeekStart   = 0
	SeekCurrent = 1
	SeekEnd     = 2
)

// Backend executes the primitive remote operations on large objects within
// one session. Descriptors returned by Open are only valid for the session
// that produced them; the backend owns all cursor state.
//
// Every operation either succeeds or returns exactly one of the error kinds
// from the data package, wrapped with the offending identifier. No operation
// retries internally.
type Backend interface {
	// Create allocates a new object. A desired id of 0 lets the backend
	// choose one. Returns data.ErrAlreadyExists on an id collision.
	Create(ctx context.Context, desired uint32) (uint32, error)

	// Unlink deletes the object and all its data, independent of open
	// descriptors. Returns data.ErrNotFound if the id does not exist; a
	// second unlink of the same id fails the same way.
	Unlink(ctx context.Context, oid uint32) error

	// Open attaches to an existing object with the given wire flags and
	// returns a session-scoped descriptor positioned at offset 0.
	Open(ctx context.Context, oid uint32, flags int32) (uint32, error)

	// Close releases a descriptor. Returns data.ErrNotFound if the
	// descriptor is already invalid.
	Close(ctx context.Context, fd uint32) error

	// Read transfers up to length bytes starting at the descriptor's cursor
	// and advances the cursor by the number of bytes returned. Returns a
	// short (possibly empty) slice at end-of-object without error.
	Read(ctx context.Context, fd uint32, length int) ([]byte, error)

	// Write stores p at the descriptor's cursor, overwriting in place and
	// extending the object if the write crosses end-of-object, then advances
	// the cursor by len(p). Returns data.ErrReadOnly if the descriptor was
	// not opened for writing.
	Write(ctx context.Context, fd uint32, p []byte) error

	// Seek moves the cursor and returns the new absolute position. Seeking
	// past end-of-object is permitted; a resulting position before byte 0
	// fails with data.ErrInvalidOffset.
	Seek(ctx context.Context, fd uint32, offset int64, whence int) (int64, error)

	// Tell reports the current absolute cursor position.
	Tell(ctx context.Context, fd uint32) (int64, error)

	// Truncate resizes the object to exactly size bytes, zero-filling on
	// extension. The cursor does not move.
	Truncate(ctx context.Context, fd uint32, size int64) error
}

// Session is a Backend bound to one transactional scope. All descriptors
// opened through it become invalid once the session ends; Rollback guarantees
// that objects created within the session do not become durable.
type Session interface {
	Backend

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store produces sessions. Import/export orchestration opens one fresh
// session per call and never reuses descriptors across sessions.
type Store interface {
	Begin(ctx context.Context) (Session, error)
}
