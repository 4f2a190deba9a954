package largeobjects

import (
	"context"
	"sync"

	"github.com/frerich/pg-large-objects/data"
)

// Writer turns a Handle into a push-based byte sink. Each pushed chunk
// triggers one backend write; chunk sizes are whatever the caller pushes,
// not forced to the handle's buffer size. Close releases the descriptor on
// normal completion; Abort does the same on abrupt termination without
// requiring the close to succeed.
type Writer struct {
	mu  sync.Mutex
	ctx context.Context

	h      *Handle
	closed bool
}

// NewWriter creates a streaming writer over the given handle. The writer
// takes ownership of the handle.
func NewWriter(ctx context.Context, h *Handle) *Writer {
	return &Writer{
		ctx: ctx,
		h:   h,
	}
}

// Write stores p at the current cursor and advances it by len(p).
// Implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, data.ErrClosed
	}

	select {
	case <-w.ctx.Done():
		return 0, w.ctx.Err()
	default:
	}

	if err := w.h.Write(w.ctx, p); err != nil {
		return 0, err
	}

	w.h.log.Debug("Writer: wrote %d bytes to oid %d", len(p), w.h.oid)
	return len(p), nil
}

// Close completes the stream and releases the handle's descriptor.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return data.ErrClosed
	}

	w.closed = true
	return w.h.Close(context.WithoutCancel(w.ctx))
}

// Abort terminates the stream, attempting to release the descriptor so it
// does not leak for the rest of the session. The close is best-effort; a
// failure is logged and swallowed because the caller is already on an error
// path.
func (w *Writer) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	w.closed = true
	if err := w.h.Close(context.WithoutCancel(w.ctx)); err != nil {
		w.h.log.Warn("Writer: failed to close descriptor %d - %v", w.h.fd, err)
	}
}
