package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ErrCacheMiss = errors.New("cache miss")

const cacheInstrumentation = "github.com/mansoorceksport/liftlog/cache"

// RedisCacheRepository implements domain.CacheRepository using Redis.
// Values are stored as JSON.
type RedisCacheRepository struct {
	client redis.UniversalClient
	tracer trace.Tracer
}

// NewRedisCacheRepository creates a new Redis cache repository
func NewRedisCacheRepository(client redis.UniversalClient) *RedisCacheRepository {
	return &RedisCacheRepository{
		client: client,
		tracer: otel.Tracer(cacheInstrumentation),
	}
}

func (r *RedisCacheRepository) span(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "cache."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("db.system", "redis"))...),
	)
}

// Get decodes the cached value into dest. A missing key is ErrCacheMiss.
func (r *RedisCacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	ctx, span := r.span(ctx, "get", attribute.String("cache.key", key))
	defer span.End()

	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return ErrCacheMiss
	case err != nil:
		span.RecordError(err)
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	if err := json.Unmarshal(data, dest); err != nil {
		span.RecordError(err)
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

// Set stores value under key for ttl
func (r *RedisCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	ctx, span := r.span(ctx, "set",
		attribute.String("cache.key", key),
		attribute.Int64("cache.ttl_seconds", int64(ttl.Seconds())),
	)
	defer span.End()

	data, err := json.Marshal(value)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisCacheRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, span := r.span(ctx, "delete", attribute.Int("cache.key_count", len(keys)))
	defer span.End()

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// SessionHistoryKey is the cache key for a user's finalized sessions
func SessionHistoryKey(userID string) string { return domain.SessionHistoryCacheKey(userID) }

// PersonalRecordsKey is the cache key for a user's derived personal records
func PersonalRecordsKey(userID string) string { return domain.PersonalRecordsCacheKey(userID) }

// InvalidateUserProgress drops every progress read model of a user.
// Keys are named exactly; a user id is never used as a glob.
func (r *RedisCacheRepository) InvalidateUserProgress(ctx context.Context, userID string) error {
	return r.Delete(ctx, SessionHistoryKey(userID), PersonalRecordsKey(userID))
}
