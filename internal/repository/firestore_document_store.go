package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/mansoorceksport/liftlog/internal/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreDocumentStore implements domain.DocumentStore on Cloud Firestore.
// Paths map one-to-one onto Firestore document and collection paths.
type FirestoreDocumentStore struct {
	client *firestore.Client
}

func NewFirestoreDocumentStore(client *firestore.Client) *FirestoreDocumentStore {
	return &FirestoreDocumentStore{client: client}
}

func (s *FirestoreDocumentStore) Get(ctx context.Context, path string) (*domain.Document, error) {
	ref, err := s.docRef(path)
	if err != nil {
		return nil, err
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document %s: %w", path, mapFirestoreError(err))
	}

	data, err := domain.NormalizeFields(snap.Data())
	if err != nil {
		return nil, err
	}
	return &domain.Document{ID: ref.ID, Path: path, Data: data}, nil
}

func (s *FirestoreDocumentStore) Set(ctx context.Context, path string, fields map[string]any, merge bool) error {
	ref, err := s.docRef(path)
	if err != nil {
		return err
	}
	normalized, err := domain.NormalizeFields(fields)
	if err != nil {
		return err
	}

	if !merge {
		if _, err := ref.Set(ctx, normalized); err != nil {
			return fmt.Errorf("failed to set document %s: %w", path, mapFirestoreError(err))
		}
		return nil
	}
	if len(normalized) == 0 {
		return nil
	}

	// Merge on top-level paths only: nested maps are replaced whole, like the other drivers
	paths := make([]firestore.FieldPath, 0, len(normalized))
	for k := range normalized {
		paths = append(paths, firestore.FieldPath{k})
	}
	if _, err := ref.Set(ctx, normalized, firestore.Merge(paths...)); err != nil {
		return fmt.Errorf("failed to merge document %s: %w", path, mapFirestoreError(err))
	}
	return nil
}

func (s *FirestoreDocumentStore) Append(ctx context.Context, collectionPath string, doc any) (string, error) {
	if err := domain.ValidateCollectionPath(collectionPath); err != nil {
		return "", err
	}
	normalized, err := domain.NormalizeFields(doc)
	if err != nil {
		return "", err
	}

	id := newDocumentID()
	if _, err := s.client.Collection(collectionPath).Doc(id).Create(ctx, normalized); err != nil {
		return "", fmt.Errorf("failed to append to %s: %w", collectionPath, mapFirestoreError(err))
	}
	return id, nil
}

func (s *FirestoreDocumentStore) List(ctx context.Context, collectionPath string) ([]*domain.Document, error) {
	if err := domain.ValidateCollectionPath(collectionPath); err != nil {
		return nil, err
	}

	snaps, err := s.client.Collection(collectionPath).OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collectionPath, mapFirestoreError(err))
	}

	docs := make([]*domain.Document, 0, len(snaps))
	for _, snap := range snaps {
		data, err := domain.NormalizeFields(snap.Data())
		if err != nil {
			return nil, err
		}
		docs = append(docs, &domain.Document{
			ID:   snap.Ref.ID,
			Path: collectionPath + "/" + snap.Ref.ID,
			Data: data,
		})
	}
	return docs, nil
}

func (s *FirestoreDocumentStore) docRef(path string) (*firestore.DocumentRef, error) {
	if _, _, err := domain.SplitPath(path); err != nil {
		return nil, err
	}
	ref := s.client.Doc(path)
	if ref == nil {
		return nil, fmt.Errorf("invalid document path %q: %w", path, domain.ErrInvalidInput)
	}
	return ref, nil
}

// mapFirestoreError flags transient gRPC failures as domain.ErrPersistenceUnavailable
func mapFirestoreError(err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}
	return err
}
