// Package sqlite implements the large-object backend contract on an embedded
// SQLite database. Object content lives in a single BLOB column; descriptor
// and cursor state is kept per session, and the session maps onto a real SQL
// transaction so a rolled-back import leaves no partial object behind.
//
// This implementation uses modernc.org/sqlite which works without CGO.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/frerich/pg-large-objects/backend"
	"github.com/frerich/pg-large-objects/data"
)

type Store struct {
	db *sql.DB
}

// NewStore creates a SQLite-backed large-object store. The dbPath can be
// ":memory:" for an in-memory database or a file path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases stable and serializes
	// writer transactions instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS lo_objects (
		oid INTEGER PRIMARY KEY,
		content BLOB NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Begin starts a transaction-scoped session.
func (s *Store) Begin(ctx context.Context) (backend.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &session{
		tx:     tx,
		fds:    make(map[uint32]*descriptor),
		nextFD: 1,
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type descriptor struct {
	oid   uint32
	pos   int64
	flags int32
}

type session struct {
	mu     sync.Mutex
	tx     *sql.Tx
	fds    map[uint32]*descriptor
	nextFD uint32
}

func (se *session) Commit(ctx context.Context) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	se.fds = make(map[uint32]*descriptor)
	return se.tx.Commit()
}

func (se *session) Rollback(ctx context.Context) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	se.fds = make(map[uint32]*descriptor)
	return se.tx.Rollback()
}

func (se *session) Create(ctx context.Context, desired uint32) (uint32, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	oid := desired
	if oid == 0 {
		// Low oids stay reserved, matching the server convention.
		err := se.tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(oid), 16383) + 1 FROM lo_objects").Scan(&oid)
		if err != nil {
			return 0, fmt.Errorf("failed to allocate oid: %w", err)
		}
	} else {
		var exists int
		err := se.tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM lo_objects WHERE oid = ?", oid).Scan(&exists)
		if err != nil {
			return 0, fmt.Errorf("failed to check oid: %w", err)
		}
		if exists > 0 {
			return 0, fmt.Errorf("%w: oid %d", data.ErrAlreadyExists, oid)
		}
	}

	_, err := se.tx.ExecContext(ctx,
		"INSERT INTO lo_objects (oid, content) VALUES (?, ?)", oid, []byte{})
	if err != nil {
		return 0, fmt.Errorf("failed to create object: %w", err)
	}

	return oid, nil
}

func (se *session) Unlink(ctx context.Context, oid uint32) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	res, err := se.tx.ExecContext(ctx, "DELETE FROM lo_objects WHERE oid = ?", oid)
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: oid %d", data.ErrNotFound, oid)
	}

	return nil
}

func (se *session) Open(ctx context.Context, oid uint32, flags int32) (uint32, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	if _, err := se.content(ctx, oid); err != nil {
		return 0, err
	}

	fd := se.nextFD
	se.nextFD++
	se.fds[fd] = &descriptor{oid: oid, flags: flags}
	return fd, nil
}

func (se *session) Close(ctx context.Context, fd uint32) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	if _, ok := se.fds[fd]; !ok {
		return fmt.Errorf("%w: descriptor %d", data.ErrNotFound, fd)
	}

	delete(se.fds, fd)
	return nil
}

func (se *session) Read(ctx context.Context, fd uint32, length int) ([]byte, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	d, content, err := se.lookup(ctx, fd)
	if err != nil {
		return nil, err
	}

	if d.pos >= int64(len(content)) || length == 0 {
		return []byte{}, nil
	}

	end := d.pos + int64(length)
	if end > int64(len(content)) {
		end = int64(len(content))
	}

	out := content[d.pos:end]
	d.pos = end
	return out, nil
}

func (se *session) Write(ctx context.Context, fd uint32, p []byte) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	d, content, err := se.lookup(ctx, fd)
	if err != nil {
		return err
	}

	if d.flags&int32(data.AccessModeWrite) == 0 {
		return fmt.Errorf("%w: descriptor %d", data.ErrReadOnly, fd)
	}

	end := d.pos + int64(len(p))
	if end > int64(len(content)) {
		grown := make([]byte, end)
		copy(grown, content)
		content = grown
	}
	copy(content[d.pos:end], p)

	if err := se.store(ctx, d.oid, content); err != nil {
		return err
	}

	d.pos = end
	return nil
}

func (se *session) Seek(ctx context.Context, fd uint32, offset int64, whence int) (int64, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	d, content, err := se.lookup(ctx, fd)
	if err != nil {
		return 0, err
	}

	var pos int64
	switch whence {
	case backend.SeekStart:
		pos = offset
	case backend.SeekCurrent:
		pos = d.pos + offset
	case backend.SeekEnd:
		pos = int64(len(content)) + offset
	default:
		return 0, fmt.Errorf("%w: whence %d", data.ErrInvalidOffset, whence)
	}

	if pos < 0 {
		return 0, fmt.Errorf("%w: position %d", data.ErrInvalidOffset, pos)
	}

	d.pos = pos
	return pos, nil
}

func (se *session) Tell(ctx context.Context, fd uint32) (int64, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	d, ok := se.fds[fd]
	if !ok {
		return 0, fmt.Errorf("%w: descriptor %d", data.ErrNotFound, fd)
	}

	// The object must still exist for the descriptor to be valid.
	if _, err := se.content(ctx, d.oid); err != nil {
		return 0, err
	}

	return d.pos, nil
}

func (se *session) Truncate(ctx context.Context, fd uint32, size int64) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	d, content, err := se.lookup(ctx, fd)
	if err != nil {
		return err
	}

	if d.flags&int32(data.AccessModeWrite) == 0 {
		return fmt.Errorf("%w: descriptor %d", data.ErrReadOnly, fd)
	}

	resized := make([]byte, size)
	copy(resized, content)

	return se.store(ctx, d.oid, resized)
}

func (se *session) lookup(ctx context.Context, fd uint32) (*descriptor, []byte, error) {
	d, ok := se.fds[fd]
	if !ok {
		return nil, nil, fmt.Errorf("%w: descriptor %d", data.ErrNotFound, fd)
	}

	content, err := se.content(ctx, d.oid)
	if err != nil {
		return nil, nil, err
	}

	return d, content, nil
}

func (se *session) content(ctx context.Context, oid uint32) ([]byte, error) {
	var content []byte
	err := se.tx.QueryRowContext(ctx,
		"SELECT content FROM lo_objects WHERE oid = ?", oid).Scan(&content)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: oid %d", data.ErrNotFound, oid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query object: %w", err)
	}

	return content, nil
}

func (se *session) store(ctx context.Context, oid uint32, content []byte) error {
	_, err := se.tx.ExecContext(ctx,
		"UPDATE lo_objects SET content = ? WHERE oid = ?", content, oid)
	if err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}
