package largeobjects

import (
	"context"
	"sync"

	"github.com/frerich/pg-large-objects/backend"
	"github.com/frerich/pg-large-objects/data"
	"github.com/frerich/pg-large-objects/log"
	"github.com/google/uuid"
)

// Upload accumulates an object from externally pushed chunks when no
// long-lived session can span the whole transfer, e.g. an upload pipeline
// delivering chunks across requests. Every chunk runs in its own fresh
// session: open, append, close, commit. A chunk that fails leaves the object
// at its previous committed length.
type Upload struct {
	mu sync.Mutex

	store backend.Store
	log   *log.Logger

	id         uuid.UUID
	oid        uint32
	bufferSize int
	written    int64
	closed     bool
}

// BeginUpload creates the target object in its own committed session and
// returns the upload state.
func BeginUpload(ctx context.Context, store backend.Store, opts ...TransferOption) (*Upload, error) {
	o := newDefaultTransferOptions()
	if err := o.apply(opts); err != nil {
		return nil, err
	}

	sess, err := store.Begin(ctx)
	if err != nil {
		return nil, err
	}

	oid, err := sess.Create(ctx, 0)
	if err != nil {
		sess.Rollback(context.WithoutCancel(ctx))
		return nil, err
	}

	if err := sess.Commit(ctx); err != nil {
		return nil, err
	}

	u := &Upload{
		store:      store,
		log:        o.Log.Named("upload"),
		id:         uuid.Must(uuid.NewV7()),
		oid:        oid,
		bufferSize: o.BufferSize,
	}

	u.log.Debug("BeginUpload: %s targets oid %d", u.id, oid)
	return u, nil
}

// ID returns the upload's identifier, useful for correlating log output
// across chunks.
func (u *Upload) ID() uuid.UUID {
	return u.id
}

// OID returns the id of the object being assembled.
func (u *Upload) OID() uint32 {
	return u.oid
}

// Written reports the number of bytes committed so far.
func (u *Upload) Written() int64 {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.written
}

// WriteChunk appends p to the object in a fresh session and commits it.
func (u *Upload) WriteChunk(ctx context.Context, p []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return data.ErrClosed
	}

	sess, err := u.store.Begin(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if err := sess.Rollback(context.WithoutCancel(ctx)); err != nil {
				u.log.Warn("WriteChunk: rollback failed for %s - %v", u.id, err)
			}
		}
	}()

	h, err := Open(ctx, sess, u.oid,
		WithMode(data.AccessModeWrite),
		WithBufferSize(u.bufferSize),
		WithLogger(u.log),
		WithAppend())
	if err != nil {
		return err
	}

	w := NewWriter(ctx, h)
	if _, err := w.Write(p); err != nil {
		w.Abort()
		return err
	}

	if err := w.Close(); err != nil {
		return err
	}

	if err := sess.Commit(ctx); err != nil {
		return err
	}
	committed = true

	u.written += int64(len(p))
	u.log.Debug("WriteChunk: %s appended %d bytes to oid %d (total %d)", u.id, len(p), u.oid, u.written)
	return nil
}

// Close completes the upload. The object stays in place; further chunks are
// rejected with data.ErrClosed.
func (u *Upload) Close(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return data.ErrClosed
	}

	u.closed = true
	u.log.Info("Close: upload %s complete, oid %d (%d bytes)", u.id, u.oid, u.written)
	return nil
}

// Abort terminates the upload and removes the partially assembled object in
// a final session.
func (u *Upload) Abort(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return data.ErrClosed
	}
	u.closed = true

	sess, err := u.store.Begin(ctx)
	if err != nil {
		return err
	}

	if err := Remove(ctx, sess, u.oid); err != nil {
		sess.Rollback(context.WithoutCancel(ctx))
		return err
	}

	if err := sess.Commit(ctx); err != nil {
		return err
	}

	u.log.Info("Abort: upload %s discarded oid %d", u.id, u.oid)
	return nil
}
