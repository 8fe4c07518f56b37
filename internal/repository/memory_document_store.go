package repository

import (
	"context"
	"crypto/rand"
	"sort"
	"sync"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/oklog/ulid/v2"
)

// MemoryDocumentStore implements domain.DocumentStore in process memory.
// Used for tests and STORE_DRIVER=memory.
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]any
}

// NewMemoryDocumentStore creates an empty in-memory store
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[string]map[string]any)}
}

func (s *MemoryDocumentStore) Get(ctx context.Context, path string) (*domain.Document, error) {
	_, id, err := domain.SplitPath(path)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.docs[path]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}

	// Copy through the codec so callers never share maps with the store
	copied, err := domain.NormalizeFields(data)
	if err != nil {
		return nil, err
	}
	return &domain.Document{ID: id, Path: path, Data: copied}, nil
}

func (s *MemoryDocumentStore) Set(ctx context.Context, path string, fields map[string]any, merge bool) error {
	if _, _, err := domain.SplitPath(path); err != nil {
		return err
	}
	normalized, err := domain.NormalizeFields(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.docs[path]
	if !merge || !ok {
		s.docs[path] = normalized
		return nil
	}
	for k, v := range normalized {
		existing[k] = v
	}
	return nil
}

func (s *MemoryDocumentStore) Append(ctx context.Context, collectionPath string, doc any) (string, error) {
	if err := domain.ValidateCollectionPath(collectionPath); err != nil {
		return "", err
	}
	normalized, err := domain.NormalizeFields(doc)
	if err != nil {
		return "", err
	}

	id := newDocumentID()
	s.mu.Lock()
	s.docs[collectionPath+"/"+id] = normalized
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryDocumentStore) List(ctx context.Context, collectionPath string) ([]*domain.Document, error) {
	if err := domain.ValidateCollectionPath(collectionPath); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]*domain.Document, 0)
	for p, data := range s.docs {
		parent, id, err := domain.SplitPath(p)
		if err != nil || parent != collectionPath {
			continue
		}
		copied, err := domain.NormalizeFields(data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, &domain.Document{ID: id, Path: p, Data: copied})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// newDocumentID returns a time-ordered ULID
func newDocumentID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
