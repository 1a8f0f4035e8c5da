// Package blob keeps image bytes addressable through "blob:<id>" references
// for the lifetime of the process.
package blob

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/manash/ladmaker/pkg/models"
)

var ErrNotFound = errors.New("blob not found")

type Blob struct {
	MIMEType string
	Data     []byte
}

type Store struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

func NewStore() *Store {
	return &Store{blobs: make(map[string]Blob)}
}

// Put stores a copy of data and returns its reference. Releasing it is the
// caller's job.
func (s *Store) Put(mimeType string, data []byte) models.ImageRef {
	id := uuid.New().String()
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.blobs[id] = Blob{MIMEType: mimeType, Data: buf}
	s.mu.Unlock()

	return models.ImageRef(models.BlobScheme + id)
}

func (s *Store) Get(ref models.ImageRef) (Blob, error) {
	return s.GetByID(ref.BlobID())
}

func (s *Store) GetByID(id string) (Blob, error) {
	s.mu.RLock()
	b, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		return Blob{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return b, nil
}

// Release drops the blob behind ref. Remote references and unknown ids are ignored.
func (s *Store) Release(ref models.ImageRef) {
	if !ref.IsBlob() {
		return
	}
	s.mu.Lock()
	delete(s.blobs, ref.BlobID())
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
