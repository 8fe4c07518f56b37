package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseDocumentStore runs the DocumentStore contract against any driver.
func exerciseDocumentStore(t *testing.T, store domain.DocumentStore) {
	ctx := context.Background()

	t.Run("get missing document", func(t *testing.T) {
		_, err := store.Get(ctx, "users/nobody")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("merge keeps unrelated fields", func(t *testing.T) {
		path := "users/u1/activity/2024-03-04"
		require.NoError(t, store.Set(ctx, path, map[string]any{"steps": 100, "water": 3}, true))
		require.NoError(t, store.Set(ctx, path, map[string]any{"steps": 8547, "steps_progress": 85}, true))

		doc, err := store.Get(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "2024-03-04", doc.ID)
		steps, _ := doc.Number("steps")
		water, _ := doc.Number("water")
		assert.Equal(t, 8547.0, steps)
		assert.Equal(t, 3.0, water)
	})

	t.Run("merge replaces nested values whole", func(t *testing.T) {
		path := "users/u1/activity/2024-03-05"
		require.NoError(t, store.Set(ctx, path, map[string]any{
			"last_completed_workout": map[string]any{"day_number": 1, "day_name": "Push"},
		}, true))
		require.NoError(t, store.Set(ctx, path, map[string]any{
			"last_completed_workout": map[string]any{"day_number": 2},
		}, true))

		doc, err := store.Get(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"day_number": 2.0}, doc.Data["last_completed_workout"])
	})

	t.Run("merge null clears a field", func(t *testing.T) {
		path := "users/u1/activity/2024-03-06"
		require.NoError(t, store.Set(ctx, path, map[string]any{"weekly_workouts": 4, "steps": 10}, true))
		require.NoError(t, store.Set(ctx, path, map[string]any{"weekly_workouts": nil}, true))

		doc, err := store.Get(ctx, path)
		require.NoError(t, err)
		_, ok := doc.Number("weekly_workouts")
		assert.False(t, ok)
		steps, _ := doc.Number("steps")
		assert.Equal(t, 10.0, steps)
	})

	t.Run("set without merge replaces the document", func(t *testing.T) {
		path := "users/u2"
		require.NoError(t, store.Set(ctx, path, map[string]any{"a": 1, "b": 2}, true))
		require.NoError(t, store.Set(ctx, path, map[string]any{"c": "x"}, false))

		doc, err := store.Get(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"c": "x"}, doc.Data)
	})

	t.Run("append and list", func(t *testing.T) {
		coll := "users/u3/workout_sessions"
		start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

		first, err := store.Append(ctx, coll, domain.SessionRecord{UserID: "u3", StartTime: start, TotalVolume: 1320})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond) // ULIDs only order across milliseconds
		second, err := store.Append(ctx, coll, domain.SessionRecord{UserID: "u3", StartTime: start.Add(24 * time.Hour)})
		require.NoError(t, err)
		assert.NotEqual(t, first, second)

		docs, err := store.List(ctx, coll)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, first, docs[0].ID)
		assert.Equal(t, second, docs[1].ID)

		var rec domain.SessionRecord
		require.NoError(t, docs[0].DataTo(&rec))
		assert.Equal(t, 1320.0, rec.TotalVolume)
		assert.True(t, rec.StartTime.Equal(start))

		empty, err := store.List(ctx, "users/nobody/workout_sessions")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("invalid paths", func(t *testing.T) {
		_, err := store.Get(ctx, "users")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = store.Append(ctx, "users/u1", map[string]any{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestMemoryDocumentStore(t *testing.T) {
	exerciseDocumentStore(t, NewMemoryDocumentStore())
}

func TestMemoryDocumentStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDocumentStore()
	require.NoError(t, store.Set(ctx, "users/u1", map[string]any{"last_week_reset": "2024-03-04"}, true))

	doc, err := store.Get(ctx, "users/u1")
	require.NoError(t, err)
	doc.Data["last_week_reset"] = "tampered"

	again, err := store.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", again.String("last_week_reset"))
}

func TestSQLiteDocumentStore(t *testing.T) {
	store, err := OpenSQLiteDocumentStore(filepath.Join(t.TempDir(), "liftlog.db"))
	require.NoError(t, err)
	defer store.Close()

	exerciseDocumentStore(t, store)
}
