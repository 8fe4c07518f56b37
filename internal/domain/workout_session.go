package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("workout session not found")
)

const CompletionStatusCompleted = "completed"

// SessionRecord is the immutable summary written once when a session is finalized.
type SessionRecord struct {
	ID               string             `json:"id,omitempty" bson:"id,omitempty"`
	UserID           string             `json:"user_id" bson:"user_id"`
	RoutineID        string             `json:"routine_id" bson:"routine_id"`
	RoutineName      string             `json:"routine_name" bson:"routine_name"`
	WorkoutDayNumber int                `json:"workout_day_number" bson:"workout_day_number"`
	WorkoutDayName   string             `json:"workout_day_name" bson:"workout_day_name"`
	StartTime        time.Time          `json:"start_time" bson:"start_time"`
	EndTime          time.Time          `json:"end_time" bson:"end_time"`
	DurationMinutes  int                `json:"duration_minutes" bson:"duration_minutes"`
	TotalVolume      float64            `json:"total_volume" bson:"total_volume"` // Σ weight*reps over completed sets
	TotalSets        int                `json:"total_sets" bson:"total_sets"`
	TotalReps        int                `json:"total_reps" bson:"total_reps"`
	CompletionStatus string             `json:"completion_status" bson:"completion_status"`
	Exercises        []ExerciseProgress `json:"exercises" bson:"exercises"`
	CreatedAt        time.Time          `json:"created_at" bson:"created_at"`
}

// Clone returns a deep copy so callers can't reach into a finalized record.
func (r *SessionRecord) Clone() *SessionRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Exercises = make([]ExerciseProgress, len(r.Exercises))
	for i, ex := range r.Exercises {
		out.Exercises[i] = ex.Clone()
	}
	return &out
}

// SessionHistoryRepository stores finalized sessions, append-only.
type SessionHistoryRepository interface {
	Append(ctx context.Context, record *SessionRecord) (string, error)
	ListByUser(ctx context.Context, userID string) ([]*SessionRecord, error)
}
