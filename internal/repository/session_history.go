package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/mansoorceksport/liftlog/internal/domain"
)

// DocumentSessionHistory implements domain.SessionHistoryRepository on
// users/{uid}/workout_sessions of any DocumentStore
type DocumentSessionHistory struct {
	store domain.DocumentStore
}

func NewDocumentSessionHistory(store domain.DocumentStore) *DocumentSessionHistory {
	return &DocumentSessionHistory{store: store}
}

// Append writes the record and returns the store-generated id
func (r *DocumentSessionHistory) Append(ctx context.Context, record *domain.SessionRecord) (string, error) {
	if record.UserID == "" {
		return "", fmt.Errorf("session record has no user: %w", domain.ErrInvalidInput)
	}
	id, err := r.store.Append(ctx, domain.SessionCollectionPath(record.UserID), record)
	if err != nil {
		return "", fmt.Errorf("failed to append session record: %w", err)
	}
	return id, nil
}

// ListByUser returns every finalized session of a user ordered by start time
func (r *DocumentSessionHistory) ListByUser(ctx context.Context, userID string) ([]*domain.SessionRecord, error) {
	docs, err := r.store.List(ctx, domain.SessionCollectionPath(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	records := make([]*domain.SessionRecord, 0, len(docs))
	for _, doc := range docs {
		var rec domain.SessionRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, err
		}
		rec.ID = doc.ID
		records = append(records, &rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartTime.Before(records[j].StartTime)
	})
	return records, nil
}
