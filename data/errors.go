package data

import (
	"errors"
	"sync"
)

// Standard errors that backend implementations should use. Every failing
// operation returns exactly one of these kinds, usually wrapped with the
// offending oid or descriptor via fmt.Errorf and %w.
var (
	// Object and descriptor resolution errors
	ErrNotFound      = errors.New("largeobjects: object or descriptor does not exist")
	ErrAlreadyExists = errors.New("largeobjects: object already exists")

	// I/O errors
	ErrReadOnly      = errors.New("largeobjects: descriptor not opened for writing")
	ErrInvalidOffset = errors.New("largeobjects: offset before start of object")
	ErrInvalidMode   = errors.New("largeobjects: invalid open mode")

	// Stream errors
	ErrClosed = errors.New("largeobjects: stream already closed")
)

type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Clear() {
	e.errors = make([]error, 0)
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
