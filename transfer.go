package largeobjects

import (
	"bytes"
	"context"
	"io"

	"github.com/frerich/pg-large-objects/backend"
	"github.com/frerich/pg-large-objects/data"
)

// Import streams src into a newly created object and returns its id. The
// whole call runs in one fresh session; any failure, including an expiring
// timeout, rolls the session back so no partially written object becomes
// durable.
//
// Data moves in TransferOptions.BufferSize pieces (default 64 KiB)
// regardless of how src yields bytes, bounding memory for arbitrarily large
// payloads.
func Import(ctx context.Context, store backend.Store, src io.Reader, opts ...TransferOption) (uint32, error) {
	o := newDefaultTransferOptions()
	if err := o.apply(opts); err != nil {
		return 0, err
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	sess, err := store.Begin(ctx)
	if err != nil {
		return 0, err
	}

	committed := false
	defer func() {
		if !committed {
			if err := sess.Rollback(context.WithoutCancel(ctx)); err != nil {
				o.Log.Warn("Import: rollback failed - %v", err)
			}
		}
	}()

	h, err := Create(ctx, sess,
		WithMode(data.AccessModeReadWrite),
		WithBufferSize(o.BufferSize),
		WithLogger(o.Log))
	if err != nil {
		return 0, err
	}

	oid := h.OID()
	o.Log.Debug("Import: streaming into oid %d (buffer=%d)", oid, o.BufferSize)

	w := NewWriter(ctx, h)

	// The bare-struct wrapper hides any WriteTo/ReadFrom fast path on src so
	// CopyBuffer actually moves data through buf in bounded pieces.
	buf := make([]byte, o.BufferSize)
	n, err := io.CopyBuffer(w, struct{ io.Reader }{src}, buf)
	if err != nil {
		w.Abort()
		return 0, err
	}

	if err := w.Close(); err != nil {
		return 0, err
	}

	if err := sess.Commit(ctx); err != nil {
		return 0, err
	}
	committed = true

	o.Log.Info("Import: oid %d complete (%d bytes)", oid, n)
	return oid, nil
}

// ImportBytes imports a single in-memory buffer. The buffer is re-chunked
// into TransferOptions.BufferSize pieces before being treated identically to
// a lazy byte stream.
func ImportBytes(ctx context.Context, store backend.Store, payload []byte, opts ...TransferOption) (uint32, error) {
	return Import(ctx, store, bytes.NewReader(payload), opts...)
}

// Export reads the whole object into memory and returns it. Fails with
// data.ErrNotFound if the object id does not exist, which is distinct from
// an existing-but-empty object returning an empty slice.
func Export(ctx context.Context, store backend.Store, oid uint32, opts ...TransferOption) ([]byte, error) {
	var buf bytes.Buffer
	if err := ExportTo(ctx, store, oid, &buf, opts...); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ExportTo streams the object into dst, moving data in
// TransferOptions.BufferSize pieces. Returns only a success signal; the
// payload goes to dst.
func ExportTo(ctx context.Context, store backend.Store, oid uint32, dst io.Writer, opts ...TransferOption) error {
	o := newDefaultTransferOptions()
	if err := o.apply(opts); err != nil {
		return err
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	sess, err := store.Begin(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if err := sess.Rollback(context.WithoutCancel(ctx)); err != nil {
				o.Log.Warn("Export: rollback failed - %v", err)
			}
		}
	}()

	h, err := Open(ctx, sess, oid,
		WithMode(data.AccessModeRead),
		WithBufferSize(o.BufferSize),
		WithLogger(o.Log))
	if err != nil {
		return err
	}

	o.Log.Debug("Export: streaming oid %d (buffer=%d)", oid, o.BufferSize)

	r := NewReader(ctx, h)

	errs := data.Errors{}
	n, err := io.Copy(dst, struct{ io.Reader }{r})
	errs.Add(err)
	if cerr := r.Close(); cerr != nil && cerr != data.ErrClosed && err == nil {
		errs.Add(cerr)
	}
	if err := errs.Errors(); err != nil {
		return err
	}

	if err := sess.Commit(ctx); err != nil {
		return err
	}
	committed = true

	o.Log.Info("Export: oid %d complete (%d bytes)", oid, n)
	return nil
}
