package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHistory struct {
	domain.SessionHistoryRepository
	lists int
}

func (c *countingHistory) ListByUser(ctx context.Context, userID string) ([]*domain.SessionRecord, error) {
	c.lists++
	return c.SessionHistoryRepository.ListByUser(ctx, userID)
}

func newTestCache(t *testing.T) (*RedisCacheRepository, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCacheRepository(client), mr
}

func TestCachedSessionHistory(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	inner := &countingHistory{SessionHistoryRepository: NewDocumentSessionHistory(NewMemoryDocumentStore())}
	repo := NewCachedSessionHistory(inner, cache)

	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	_, err := repo.Append(ctx, &domain.SessionRecord{UserID: "u1", StartTime: start, TotalVolume: 600})
	require.NoError(t, err)

	first, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.NotEmpty(t, first[0].ID)
	assert.True(t, mr.Exists(SessionHistoryKey("u1")))

	second, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, 1, inner.lists, "second read should be served from cache")

	_, err = repo.Append(ctx, &domain.SessionRecord{UserID: "u1", StartTime: start.Add(time.Hour), TotalVolume: 720})
	require.NoError(t, err)
	assert.False(t, mr.Exists(SessionHistoryKey("u1")), "append must invalidate the cached history")

	third, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, third, 2)
	assert.Equal(t, 2, inner.lists)
}

func TestRedisCacheMissAndInvalidate(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)

	var dest []string
	assert.ErrorIs(t, cache.Get(ctx, "progress:history:nobody", &dest), ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, SessionHistoryKey("u1"), []string{"a"}, time.Minute))
	require.NoError(t, cache.Set(ctx, PersonalRecordsKey("u1"), []string{"b"}, time.Minute))
	require.NoError(t, cache.Set(ctx, PersonalRecordsKey("u2"), []string{"c"}, time.Minute))

	require.NoError(t, cache.InvalidateUserProgress(ctx, "u1"))
	assert.False(t, mr.Exists(SessionHistoryKey("u1")))
	assert.False(t, mr.Exists(PersonalRecordsKey("u1")))
	assert.True(t, mr.Exists(PersonalRecordsKey("u2")))

	// Glob characters in an id only match that id
	for _, uid := range []string{"u*", "u?", "[u]2"} {
		require.NoError(t, cache.InvalidateUserProgress(ctx, uid))
	}
	assert.True(t, mr.Exists(PersonalRecordsKey("u2")))

	require.NoError(t, cache.Set(ctx, PersonalRecordsKey("u*"), []string{"d"}, time.Minute))
	require.NoError(t, cache.InvalidateUserProgress(ctx, "u*"))
	assert.False(t, mr.Exists(PersonalRecordsKey("u*")))
	assert.True(t, mr.Exists(PersonalRecordsKey("u2")))
}
