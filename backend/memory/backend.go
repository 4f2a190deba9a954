// Package memory provides an in-memory large-object store. It mirrors the
// semantics of the postgres backend closely enough to back the test suite:
// per-descriptor cursors, session-scoped descriptors and rollback that
// discards objects created within the session.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/frerich/pg-large-objects/backend"
	"github.com/frerich/pg-large-objects/data"
	"github.com/tidwall/btree"
)

// Store holds all objects in an ordered in-memory map.
type Store struct {
	mu      sync.RWMutex
	objects *btree.Map[uint32, []byte]
	nextOID uint32
}

func NewStore() *Store {
	return &Store{
		objects: btree.NewMap[uint32, []byte](0),
		// Matches the server convention of keeping low oids reserved.
		nextOID: 16384,
	}
}

// Begin starts a new session. Sessions share the store's object space but
// own their descriptor table; descriptors never survive the session.
func (s *Store) Begin(ctx context.Context) (backend.Session, error) {
	return &session{
		store:  s,
		fds:    make(map[uint32]*descriptor),
		nextFD: 1,
	}, nil
}

// Len reports the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.objects.Len()
}

type descriptor struct {
	oid   uint32
	pos   int64
	flags int32
}

type session struct {
	mu     sync.Mutex
	store  *Store
	fds    map[uint32]*descriptor
	nextFD uint32

	// Objects created within this session; removed again on rollback so a
	// failed import leaves nothing behind.
	created []uint32
	done    bool
}

func (se *session) Commit(ctx context.Context) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	se.fds = make(map[uint32]*descriptor)
	se.created = nil
	se.done = true
	return nil
}

func (se *session) Rollback(ctx context.Context) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	se.store.mu.Lock()
	for _, oid := range se.created {
		se.store.objects.Delete(oid)
	}
	se.store.mu.Unlock()

	se.fds = make(map[uint32]*descriptor)
	se.created = nil
	se.done = true
	return nil
}

func (se *session) Create(ctx context.Context, desired uint32) (uint32, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	se.store.mu.Lock()
	defer se.store.mu.Unlock()

	oid := desired
	if oid == 0 {
		for {
			oid = se.store.nextOID
			se.store.nextOID++
			if _, exists := se.store.objects.Get(oid); !exists {
				break
			}
		}
	} else if _, exists := se.store.objects.Get(oid); exists {
		return 0, fmt.Errorf("%w: oid %d", data.ErrAlreadyExists, oid)
	}

	se.store.objects.Set(oid, []byte{})
	se.created = append(se.created, oid)
	return oid, nil
}

func (se *session) Unlink(ctx context.Context, oid uint32) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	se.store.mu.Lock()
	defer se.store.mu.Unlock()

	if _, deleted := se.store.objects.Delete(oid); !deleted {
		return fmt.Errorf("%w: oid %d", data.ErrNotFound, oid)
	}
	return nil
}

func (se *session) Open(ctx context.Context, oid uint32, flags int32) (uint32, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	se.store.mu.RLock()
	_, exists := se.store.objects.Get(oid)
	se.store.mu.RUnlock()

	if !exists {
		return 0, fmt.Errorf("%w: oid %d", data.ErrNotFound, oid)
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

	d, obj, err := se.lookup(fd)
	if err != nil {
		return nil, err
	}

	if d.pos >= int64(len(obj)) || length == 0 {
		return []byte{}, nil
	}

	end := d.pos + int64(length)
	if end > int64(len(obj)) {
		end = int64(len(obj))
	}

	out := make([]byte, end-d.pos)
	copy(out, obj[d.pos:end])
	d.pos = end
	return out, nil
}

func (se *session) Write(ctx context.Context, fd uint32, p []byte) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	d, obj, err := se.lookup(fd)
	if err != nil {
		return err
	}

	if d.flags&int32(data.AccessModeWrite) == 0 {
		return fmt.Errorf("%w: descriptor %d", data.ErrReadOnly, fd)
	}

	end := d.pos + int64(len(p))
	if end > int64(len(obj)) {
		grown := make([]byte, end)
		copy(grown, obj)
		obj = grown
	}
	copy(obj[d.pos:end], p)

	se.store.mu.Lock()
	se.store.objects.Set(d.oid, obj)
	se.store.mu.Unlock()

	d.pos = end
	return nil
}

func (se *session) Seek(ctx context.Context, fd uint32, offset int64, whence int) (int64, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	d, obj, err := se.lookup(fd)
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
		pos = int64(len(obj)) + offset
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

	d, _, err := se.lookup(fd)
	if err != nil {
		return 0, err
	}

	return d.pos, nil
}

func (se *session) Truncate(ctx context.Context, fd uint32, size int64) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	d, obj, err := se.lookup(fd)
	if err != nil {
		return err
	}

	if d.flags&int32(data.AccessModeWrite) == 0 {
		return fmt.Errorf("%w: descriptor %d", data.ErrReadOnly, fd)
	}

	resized := make([]byte, size)
	copy(resized, obj)

	se.store.mu.Lock()
	se.store.objects.Set(d.oid, resized)
	se.store.mu.Unlock()

	return nil
}

// lookup resolves a descriptor and the current content of its object.
// A descriptor whose object was unlinked reports ErrNotFound, same as an
// unknown descriptor.
func (se *session) lookup(fd uint32) (*descriptor, []byte, error) {
	d, ok := se.fds[fd]
	if !ok {
		return nil, nil, fmt.Errorf("%w: descriptor %d", data.ErrNotFound, fd)
	}

	se.store.mu.RLock()
	obj, exists := se.store.objects.Get(d.oid)
	se.store.mu.RUnlock()

	if !exists {
		return nil, nil, fmt.Errorf("%w: oid %d", data.ErrNotFound, d.oid)
	}

	return d, obj, nil
}
