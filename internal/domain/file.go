package domain

import (
	"context"
	"time"
)

// FileRepository defines the interface for file storage operations
type FileRepository interface {
	// Upload saves a file and returns its access URL
	Upload(ctx context.Context, file []byte, filename string, contentType string) (string, error)
}

// SessionArchive keeps an export copy of every finalized session.
type SessionArchive interface {
	Archive(ctx context.Context, record *SessionRecord) (string, error)
}

// CacheRepository is the generic key/value cache used for read models.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Progress read models are cached under "progress:<kind>:<userID>".
func SessionHistoryCacheKey(userID string) string  { return "progress:history:" + userID }
func PersonalRecordsCacheKey(userID string) string { return "progress:records:" + userID }
