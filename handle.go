package largeobjects

import (
	"context"
	"fmt"

	"github.com/frerich/pg-large-objects/backend"
	"github.com/frerich/pg-large-objects/data"
	"github.com/frerich/pg-large-objects/log"
)

// Handle represents one opened large object. It owns a backend-side
// descriptor that is valid only for the lifetime of the session it was
// opened in; the backend owns all cursor state, so position and size queries
// always round-trip instead of mirroring the cursor client-side. A cached
// position would desynchronize as soon as another code path (e.g. a bulk
// query) touches the same descriptor.
//
// A Handle is not safe for concurrent use; there is a single logical cursor
// behind it and callers must serialize access themselves.
type Handle struct {
	backend backend.Backend
	log     *log.Logger

	oid        uint32
	fd         uint32
	mode       data.AccessMode
	bufferSize int
}

// Create allocates a new object with a backend-chosen id and opens it.
// Default mode is read-write, default buffer size 1 MiB.
func Create(ctx context.Context, b backend.Backend, opts ...Option) (*Handle, error) {
	o := newDefaultOptions(data.AccessModeReadWrite)
	if err := o.apply(opts); err != nil {
		return nil, err
	}

	flags, err := o.Mode.Flags()
	if err != nil {
		return nil, err
	}

	oid, err := b.Create(ctx, 0)
	if err != nil {
		return nil, err
	}

	o.Log.Debug("Create: allocated oid %d", oid)
	return open(ctx, b, oid, flags, o)
}

// Open attaches to an existing object. Default mode is read-only, default
// buffer size 1 MiB. Fails with data.ErrNotFound if no object with that id
// exists.
func Open(ctx context.Context, b backend.Backend, oid uint32, opts ...Option) (*Handle, error) {
	o := newDefaultOptions(data.AccessModeRead)
	if err := o.apply(opts); err != nil {
		return nil, err
	}

	if oid == 0 {
		return nil, fmt.Errorf("%w: oid must be positive", data.ErrNotFound)
	}

	flags, err := o.Mode.Flags()
	if err != nil {
		return nil, err
	}

	return open(ctx, b, oid, flags, o)
}

func open(ctx context.Context, b backend.Backend, oid uint32, flags int32, o *Options) (*Handle, error) {
	fd, err := b.Open(ctx, oid, flags)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		backend:    b,
		log:        o.Log,
		oid:        oid,
		fd:         fd,
		mode:       o.Mode,
		bufferSize: o.BufferSize,
	}

	h.log.Debug("Open: oid %d opened as descriptor %d (mode=%s)", oid, fd, o.Mode)

	if o.Append {
		if _, err := b.Seek(ctx, fd, 0, backend.SeekEnd); err != nil {
			// Release the descriptor; the handle never existed for the caller.
			errs := data.Errors{}
			errs.Add(err)
			errs.Add(b.Close(ctx, fd))
			return nil, errs.Errors()
		}
	}

	return h, nil
}

// Remove deletes the object and all its data, independent of any open
// handles. A second call on an already-removed id fails with
// data.ErrNotFound.
func Remove(ctx context.Context, b backend.Backend, oid uint32) error {
	if oid == 0 {
		return fmt.Errorf("%w: oid must be positive", data.ErrNotFound)
	}

	return b.Unlink(ctx, oid)
}

// OID returns the stable object id.
func (h *Handle) OID() uint32 {
	return h.oid
}

// Descriptor returns the backend-assigned descriptor. It is only valid
// within the session the handle was opened in.
func (h *Handle) Descriptor() uint32 {
	return h.fd
}

// Mode returns the access mode the handle was opened with.
func (h *Handle) Mode() data.AccessMode {
	return h.mode
}

// BufferSize returns the chunk size used by streaming operations.
func (h *Handle) BufferSize() int {
	return h.bufferSize
}

// Close releases the backend-side descriptor. Fails with data.ErrNotFound if
// the descriptor is already invalid, e.g. on a double close or after the
// object was removed while open.
func (h *Handle) Close(ctx context.Context) error {
	h.log.Debug("Close: closing descriptor %d (oid %d)", h.fd, h.oid)
	return h.backend.Close(ctx, h.fd)
}

// Read transfers up to length bytes starting at the current cursor and
// advances the cursor by the number of bytes returned. Returns a short
// (possibly empty) slice at end-of-object without error.
func (h *Handle) Read(ctx context.Context, length int) ([]byte, error) {
	if length < 0 {
		return nil, fmt.Errorf("largeobjects: negative read length %d", length)
	}

	// length 0 still round-trips so an invalid descriptor reports NotFound.
	return h.backend.Read(ctx, h.fd, length)
}

// Write stores p at the current cursor, overwriting existing bytes in place
// and extending the object if the write crosses end-of-object, then advances
// the cursor by len(p).
func (h *Handle) Write(ctx context.Context, p []byte) error {
	if !h.mode.CanWrite() {
		return fmt.Errorf("%w: oid %d opened %s", data.ErrReadOnly, h.oid, h.mode)
	}

	return h.backend.Write(ctx, h.fd, p)
}

// Seek moves the cursor and returns the new absolute position. Seeking past
// end-of-object is permitted; subsequent reads return empty until data is
// written there. A position before byte 0 fails with data.ErrInvalidOffset.
func (h *Handle) Seek(ctx context.Context, offset int64, whence int) (int64, error) {
	switch whence {
	case backend.SeekStart:
		if offset < 0 {
			return 0, fmt.Errorf("%w: offset %d from start", data.ErrInvalidOffset, offset)
		}
	case backend.SeekCurrent:
		// Any offset; the backend rejects a resulting negative position.
	case backend.SeekEnd:
		if offset > 0 {
			return 0, fmt.Errorf("%w: offset %d from end", data.ErrInvalidOffset, offset)
		}
	default:
		return 0, fmt.Errorf("%w: whence %d", data.ErrInvalidOffset, whence)
	}

	return h.backend.Seek(ctx, h.fd, offset, whence)
}

// Tell reports the current absolute cursor position.
func (h *Handle) Tell(ctx context.Context) (int64, error) {
	return h.backend.Tell(ctx, h.fd)
}

// Size reports the object's size in bytes. It is a derived query: tell,
// seek to end, seek back. The original position is restored before Size
// returns; if any sub-call fails the failure surfaces instead of a
// half-mutated position being hidden from the caller.
func (h *Handle) Size(ctx context.Context) (int64, error) {
	pos, err := h.backend.Tell(ctx, h.fd)
	if err != nil {
		return 0, err
	}

	size, err := h.backend.Seek(ctx, h.fd, 0, backend.SeekEnd)
	if err != nil {
		return 0, err
	}

	if _, err := h.backend.Seek(ctx, h.fd, pos, backend.SeekStart); err != nil {
		return 0, err
	}

	return size, nil
}

// Resize truncates or zero-extends the object to exactly size bytes. The
// cursor does not move.
func (h *Handle) Resize(ctx context.Context, size int64) error {
	if !h.mode.CanWrite() {
		return fmt.Errorf("%w: oid %d opened %s", data.ErrReadOnly, h.oid, h.mode)
	}
	if size < 0 {
		return fmt.Errorf("%w: size %d", data.ErrInvalidOffset, size)
	}

	return h.backend.Truncate(ctx, h.fd, size)
}
