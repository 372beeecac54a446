// Package memory implements storage.Store in process memory. It backs the
// "memory://" database URL and the handler tests.
package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type collection struct {
	docs  map[string]storage.Record
	order []string
}

// Store keeps documents in maps guarded by a single mutex.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	now         func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		collections: make(map[string]*collection),
		now:         time.Now,
	}
}

func (s *Store) coll(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]storage.Record)}
		s.collections[name] = c
	}
	return c
}

// Insert stores doc under a fresh UUID.
func (s *Store) Insert(_ context.Context, name string, doc []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	c := s.coll(name)
	c.docs[id] = storage.Record{ID: id, Doc: bytes.Clone(doc), CreatedAt: s.now()}
	c.order = append(c.order, id)
	return id, nil
}

// Get returns a copy of the document.
func (s *Store) Get(_ context.Context, name, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	rec, ok := c.docs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return bytes.Clone(rec.Doc), nil
}

// Replace overwrites an existing document.
func (s *Store) Replace(_ context.Context, name, id string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return storage.ErrNotFound
	}
	rec, ok := c.docs[id]
	if !ok {
		return storage.ErrNotFound
	}
	rec.Doc = bytes.Clone(doc)
	c.docs[id] = rec
	return nil
}

// Delete removes the document and returns what was stored.
func (s *Store) Delete(_ context.Context, name, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	rec, ok := c.docs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return rec.Doc, nil
}

// Scan returns the collection in insertion order.
func (s *Store) Scan(_ context.Context, name string) ([]storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return []storage.Record{}, nil
	}
	out := make([]storage.Record, 0, len(c.order))
	for _, id := range c.order {
		rec := c.docs[id]
		rec.Doc = bytes.Clone(rec.Doc)
		out = append(out, rec)
	}
	return out, nil
}

// Count returns the number of documents in the collection.
func (s *Store) Count(_ context.Context, name string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return 0, nil
	}
	return int64(len(c.docs)), nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }
