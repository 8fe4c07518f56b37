package repository

import (
	"context"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
	log "github.com/sirupsen/logrus"
)

const sessionHistoryCacheTTL = 10 * time.Minute

// CachedSessionHistory wraps a SessionHistoryRepository with Redis caching
type CachedSessionHistory struct {
	inner domain.SessionHistoryRepository
	cache *RedisCacheRepository
}

// NewCachedSessionHistory creates a new cached session history repository
func NewCachedSessionHistory(inner domain.SessionHistoryRepository, cache *RedisCacheRepository) *CachedSessionHistory {
	return &CachedSessionHistory{
		inner: inner,
		cache: cache,
	}
}

// ListByUser serves from cache, falling back to the store
func (r *CachedSessionHistory) ListByUser(ctx context.Context, userID string) ([]*domain.SessionRecord, error) {
	key := SessionHistoryKey(userID)

	var records []*domain.SessionRecord
	if err := r.cache.Get(ctx, key, &records); err == nil {
		return records, nil
	}

	result, err := r.inner.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Store in cache (ignore cache errors)
	_ = r.cache.Set(ctx, key, result, sessionHistoryCacheTTL)

	return result, nil
}

// Append writes through and invalidates the user's progress caches
func (r *CachedSessionHistory) Append(ctx context.Context, record *domain.SessionRecord) (string, error) {
	id, err := r.inner.Append(ctx, record)
	if err != nil {
		return "", err
	}

	if err := r.cache.InvalidateUserProgress(ctx, record.UserID); err != nil {
		log.WithField("user_id", record.UserID).Warnf("failed to invalidate progress cache: %v", err)
	}
	return id, nil
}
