// Package s3 bridges large objects to S3-compatible buckets, streaming in
// both directions with bounded memory. A typical use is migrating
// attachments out of the database into object storage, or pulling a bucket
// key into a large object for transactional processing.
package s3

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"

	largeobjects "github.com/frerich/pg-large-objects"
	"github.com/frerich/pg-large-objects/backend"
	"github.com/frerich/pg-large-objects/data"
)

type CopyOptions struct {
	// BufferSize bounds the per-call payload size while streaming.
	BufferSize int

	// Put is passed through to the bucket upload when copying to S3.
	Put minio.PutObjectOptions

	// Get is passed through to the bucket download when copying from S3.
	Get minio.GetObjectOptions
}

type CopyOption func(*CopyOptions) error

func newDefaultCopyOptions() *CopyOptions {
	return &CopyOptions{
		BufferSize: largeobjects.DefaultTransferBufferSize,
	}
}

func WithBufferSize(size int) CopyOption {
	return func(opts *CopyOptions) error {
		if size <= 0 {
			return fmt.Errorf("s3: buffer size must be positive, got %d", size)
		}
		opts.BufferSize = size
		return nil
	}
}

func WithPutOptions(put minio.PutObjectOptions) CopyOption {
	return func(opts *CopyOptions) error {
		opts.Put = put
		return nil
	}
}

func WithGetOptions(get minio.GetObjectOptions) CopyOption {
	return func(opts *CopyOptions) error {
		opts.Get = get
		return nil
	}
}

// CopyToBucket streams the object with the given oid into bucket/key.
// The object is read inside one session; the upload never buffers the whole
// payload.
func CopyToBucket(ctx context.Context, store backend.Store, oid uint32, client *minio.Client, bucket, key string, opts ...CopyOption) (minio.UploadInfo, error) {
	o := newDefaultCopyOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return minio.UploadInfo{}, err
		}
	}

	sess, err := store.Begin(ctx)
	if err != nil {
		return minio.UploadInfo{}, err
	}

	committed := false
	defer func() {
		if !committed {
			sess.Rollback(context.WithoutCancel(ctx))
		}
	}()

	h, err := largeobjects.Open(ctx, sess, oid,
		largeobjects.WithMode(data.AccessModeRead),
		largeobjects.WithBufferSize(o.BufferSize))
	if err != nil {
		return minio.UploadInfo{}, err
	}

	size, err := h.Size(ctx)
	if err != nil {
		return minio.UploadInfo{}, err
	}

	r := largeobjects.NewReader(ctx, h)

	info, err := client.PutObject(ctx, bucket, key, r, size, o.Put)
	if cerr := r.Close(); cerr != nil && cerr != data.ErrClosed && err == nil {
		err = cerr
	}
	if err != nil {
		return minio.UploadInfo{}, err
	}

	if err := sess.Commit(ctx); err != nil {
		return minio.UploadInfo{}, err
	}
	committed = true

	return info, nil
}

// CopyFromBucket imports bucket/key into a new large object and returns its
// id. The import runs in one session; a failed download leaves no partial
// object behind.
func CopyFromBucket(ctx context.Context, store backend.Store, client *minio.Client, bucket, key string, opts ...CopyOption) (uint32, error) {
	o := newDefaultCopyOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return 0, err
		}
	}

	obj, err := client.GetObject(ctx, bucket, key, o.Get)
	if err != nil {
		return 0, err
	}
	defer obj.Close()

	return largeobjects.Import(ctx, store, obj,
		largeobjects.WithTransferBufferSize(o.BufferSize))
}
