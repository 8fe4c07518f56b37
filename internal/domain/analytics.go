package domain

import "time"

// PersonalRecord is the best-ever numbers for one exercise name.
type PersonalRecord struct {
	ExerciseName    string    `json:"exercise_name"`
	MaxWeight       float64   `json:"max_weight"` // kg, single set
	MaxWeightDate   time.Time `json:"max_weight_date"`
	MaxVolume       float64   `json:"max_volume"` // per session
	MaxVolumeDate   time.Time `json:"max_volume_date"`
	MaxReps         int       `json:"max_reps"` // single set
	MaxRepsDate     time.Time `json:"max_reps_date"`
	LifetimeVolume  float64   `json:"lifetime_volume"`
	TotalSessions   int       `json:"total_sessions"`
	History         []PRPoint `json:"history"`
	LastPerformedAt time.Time `json:"last_performed_at"`
}

// PRPoint is one session's contribution to a PersonalRecord.
type PRPoint struct {
	Date      time.Time `json:"date"`
	SessionID string    `json:"session_id"`
	MaxWeight float64   `json:"max_weight"`
	Volume    float64   `json:"volume"`
	MaxReps   int       `json:"max_reps"`
}

// FrequencyBucket counts sessions started on one calendar day.
type FrequencyBucket struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Weekday string `json:"weekday"`
	Count   int    `json:"count"`
}

// ProgressSummary is lifetime totals across all sessions.
type ProgressSummary struct {
	TotalWorkouts        int     `json:"total_workouts"`
	TotalVolume          float64 `json:"total_volume"`
	TotalDurationMinutes int     `json:"total_duration_minutes"`
	TotalSets            int     `json:"total_sets"`
	TotalReps            int     `json:"total_reps"`
}

// ProgressOverview bundles everything the progress screen needs in one call.
type ProgressOverview struct {
	Summary         ProgressSummary   `json:"summary"`
	PersonalRecords []PersonalRecord  `json:"personal_records"`
	Frequency       []FrequencyBucket `json:"frequency"`
	Today           *DailyActivity    `json:"today,omitempty"`
}
