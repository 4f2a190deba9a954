package largeobjects

import (
	"fmt"
	"time"

	"github.com/frerich/pg-large-objects/data"
	"github.com/frerich/pg-large-objects/log"
)

const (
	// DefaultBufferSize is the chunk size for streaming reads and writes on
	// a handle. The backend's own guidance caps efficient single-call
	// transfers at a few MiB.
	DefaultBufferSize = 1 << 20

	// DefaultTransferBufferSize is the chunk size used by import/export
	// orchestration.
	DefaultTransferBufferSize = 64 << 10
)

// Options configure how a handle is created or opened.
type Options struct {
	// Mode selects the access mode passed to the backend's open primitive.
	Mode data.AccessMode

	// BufferSize is the chunk size for streaming operations on the handle.
	BufferSize int

	// Append positions the cursor at end-of-object right after open instead
	// of offset 0. The backend ABI has no append flag, so this is a
	// client-side seek.
	Append bool

	// Log receives debug output for handle operations.
	Log *log.Logger
}

type Option func(*Options) error

func newDefaultOptions(mode data.AccessMode) *Options {
	return &Options{
		Mode:       mode,
		BufferSize: DefaultBufferSize,
		Log:        log.Discard(),
	}
}

func (o *Options) apply(opts []Option) error {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}

func WithMode(mode data.AccessMode) Option {
	return func(opts *Options) error {
		if _, err := mode.Flags(); err != nil {
			return err
		}
		opts.Mode = mode
		return nil
	}
}

func WithBufferSize(size int) Option {
	return func(opts *Options) error {
		if size <= 0 {
			return fmt.Errorf("largeobjects: buffer size must be positive, got %d", size)
		}
		opts.BufferSize = size
		return nil
	}
}

func WithAppend() Option {
	return func(opts *Options) error {
		opts.Append = true
		return nil
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(opts *Options) error {
		opts.Log = logger
		return nil
	}
}

// TransferOptions configure import/export orchestration and uploads.
type TransferOptions struct {
	// BufferSize bounds the per-call payload size while streaming.
	BufferSize int

	// Timeout bounds the whole import/export call. A timeout firing
	// mid-transfer aborts the enclosing scope, so no partial object
	// becomes durable.
	Timeout time.Duration

	// Log receives debug output for the transfer.
	Log *log.Logger
}

type TransferOption func(*TransferOptions) error

func newDefaultTransferOptions() *TransferOptions {
	return &TransferOptions{
		BufferSize: DefaultTransferBufferSize,
		Log:        log.Discard(),
	}
}

func (o *TransferOptions) apply(opts []TransferOption) error {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}

func WithTransferBufferSize(size int) TransferOption {
	return func(opts *TransferOptions) error {
		if size <= 0 {
			return fmt.Errorf("largeobjects: buffer size must be positive, got %d", size)
		}
		opts.BufferSize = size
		return nil
	}
}

func WithTimeout(timeout time.Duration) TransferOption {
	return func(opts *TransferOptions) error {
		opts.Timeout = timeout
		return nil
	}
}

func WithTransferLogger(logger *log.Logger) TransferOption {
	return func(opts *TransferOptions) error {
		opts.Log = logger
		return nil
	}
}
