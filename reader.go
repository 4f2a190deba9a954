package largeobjects

import (
	"context"
	"io"
	"sync"

	"github.com/frerich/pg-large-objects/data"
)

// Reader turns a Handle into a lazy, forward-only, single-pass byte stream.
// Each pull issues one backend read of up to the handle's buffer size; the
// stream ends without error the first time a read comes back empty, at which
// point the handle is closed. Closing the reader early closes the handle
// without issuing further reads.
//
// The stream is not restartable; reading the object again requires a fresh
// Open.
type Reader struct {
	mu  sync.Mutex
	ctx context.Context

	h       *Handle
	pending []byte
	eof     bool
	closed  bool
	// Set once the handle has been released, either on exhaustion or by
	// Close, so the descriptor is never closed twice.
	released bool
}

// NewReader creates a streaming reader over the given handle. The reader
// takes ownership of the handle.
func NewReader(ctx context.Context, h *Handle) *Reader {
	return &Reader{
		ctx: ctx,
		h:   h,
	}
}

// Read reads up to len(p) bytes from the object at the current cursor.
// Implements io.Reader; returns io.EOF once the object is exhausted.
func (r *Reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, data.ErrClosed
	}

	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	default:
	}

	if len(r.pending) == 0 {
		if err := r.pull(); err != nil {
			return 0, err
		}
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// NextChunk pulls the next chunk of up to the handle's buffer size. Returns
// io.EOF once the object is exhausted; the handle is closed at that point.
func (r *Reader) NextChunk() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, data.ErrClosed
	}

	select {
	case <-r.ctx.Done():
		return nil, r.ctx.Err()
	default:
	}

	if len(r.pending) > 0 {
		chunk := r.pending
		r.pending = nil
		return chunk, nil
	}

	if err := r.pull(); err != nil {
		return nil, err
	}

	chunk := r.pending
	r.pending = nil
	return chunk, nil
}

// pull fetches the next chunk into pending. Must be called with the lock
// held and pending empty.
func (r *Reader) pull() error {
	if r.eof {
		return io.EOF
	}

	chunk, err := r.h.Read(r.ctx, r.h.bufferSize)
	if err != nil {
		return err
	}

	if len(chunk) == 0 {
		r.eof = true
		r.release()
		return io.EOF
	}

	r.h.log.Debug("Reader: pulled %d bytes from oid %d", len(chunk), r.h.oid)
	r.pending = chunk
	return nil
}

// Close terminates the stream and releases the handle's descriptor. Safe to
// call after exhaustion; a second Close returns data.ErrClosed.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return data.ErrClosed
	}

	r.closed = true
	if r.released {
		return nil
	}

	r.released = true
	return r.h.Close(context.WithoutCancel(r.ctx))
}

// release closes the handle once the stream is exhausted. A close failure
// here is logged, not surfaced: the consumer's read already succeeded and
// the session discards the descriptor at scope end anyway.
func (r *Reader) release() {
	if r.released {
		return
	}

	r.released = true
	if err := r.h.Close(context.WithoutCancel(r.ctx)); err != nil {
		r.h.log.Warn("Reader: failed to close descriptor %d - %v", r.h.fd, err)
	}
}
