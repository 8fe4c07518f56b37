package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultPlannedSets = 3
	DefaultRestSeconds = 60
	DefaultMuscleGroup = "unknown"
	DefaultEquipment   = "bodyweight"
)

// ExercisePrescription is one exercise of a workout day, as handed over by
// the program/template layer.
type ExercisePrescription struct {
	ExerciseID   string `json:"exercise_id"`
	ExerciseName string `json:"exercise_name"`
	MuscleGroup  string `json:"muscle_group"`
	Equipment    string `json:"equipment"`
	Sets         int    `json:"sets"`
	Reps         string `json:"reps"`      // advisory, e.g. "8-12"
	RestTime     *int   `json:"rest_time"` // seconds; nil means DefaultRestSeconds
	Notes        string `json:"notes"`
}

// WorkoutDay is the immutable prescription a session is started from.
type WorkoutDay struct {
	RoutineID   string                 `json:"routine_id"`
	RoutineName string                 `json:"routine_name"`
	DayNumber   int                    `json:"day_number"`
	DayName     string                 `json:"day_name"`
	Exercises   []ExercisePrescription `json:"exercises"`
}

// Validate checks the prescription can be turned into a session.
func (d WorkoutDay) Validate() error {
	if len(d.Exercises) == 0 {
		return fmt.Errorf("workout day has no exercises: %w", ErrInvalidInput)
	}
	if d.DayNumber < 0 {
		return fmt.Errorf("day number must not be negative: %w", ErrInvalidInput)
	}
	for i, ex := range d.Exercises {
		if ex.Sets < 0 {
			return fmt.Errorf("exercise %d: sets must not be negative: %w", i, ErrInvalidInput)
		}
		if ex.RestTime != nil && *ex.RestTime < 0 {
			return fmt.Errorf("exercise %d: rest time must not be negative: %w", i, ErrInvalidInput)
		}
	}
	return nil
}

// ExerciseProgress tracks one exercise of a live session.
type ExerciseProgress struct {
	ExerciseID         string      `json:"exercise_id" bson:"exercise_id"`
	ExerciseName       string      `json:"exercise_name" bson:"exercise_name"`
	MuscleGroup        string      `json:"muscle_group" bson:"muscle_group"`
	Equipment          string      `json:"equipment" bson:"equipment"`
	OrderIndex         int         `json:"order_index" bson:"order_index"`
	PlannedSets        int         `json:"planned_sets" bson:"planned_sets"`
	PlannedReps        string      `json:"planned_reps" bson:"planned_reps"`
	PlannedRestSeconds int         `json:"planned_rest_seconds" bson:"planned_rest_seconds"`
	Notes              string      `json:"notes" bson:"notes"`
	Sets               []SetLedger `json:"sets" bson:"sets"`
	Completed          bool        `json:"completed" bson:"completed"`
	Skipped            bool        `json:"skipped" bson:"skipped"`
	TotalVolume        float64     `json:"total_volume" bson:"total_volume"`
}

// NewExerciseProgress builds the progress entry and all of its sets up front.
func NewExerciseProgress(orderIndex int, p ExercisePrescription) ExerciseProgress {
	sets := p.Sets
	if sets <= 0 {
		sets = DefaultPlannedSets
	}
	rest := DefaultRestSeconds
	if p.RestTime != nil {
		rest = *p.RestTime
	}

	ep := ExerciseProgress{
		ExerciseID:         p.ExerciseID,
		ExerciseName:       p.ExerciseName,
		MuscleGroup:        p.MuscleGroup,
		Equipment:          p.Equipment,
		OrderIndex:         orderIndex,
		PlannedSets:        sets,
		PlannedReps:        p.Reps,
		PlannedRestSeconds: rest,
		Notes:              p.Notes,
		Sets:               make([]SetLedger, sets),
	}
	if ep.ExerciseID == "" {
		ep.ExerciseID = fmt.Sprintf("exercise-%d", orderIndex)
	}
	if ep.MuscleGroup == "" {
		ep.MuscleGroup = DefaultMuscleGroup
	}
	if ep.Equipment == "" {
		ep.Equipment = DefaultEquipment
	}

	target := parseTargetReps(p.Reps)
	for i := range ep.Sets {
		ep.Sets[i] = SetLedger{SetNumber: i + 1, TargetReps: target}
	}
	return ep
}

// NextSetIndex returns the 0-based index of the first uncompleted set, or -1.
func (e *ExerciseProgress) NextSetIndex() int {
	for i := range e.Sets {
		if !e.Sets[i].Completed {
			return i
		}
	}
	return -1
}

func (e *ExerciseProgress) AllSetsCompleted() bool {
	return e.NextSetIndex() == -1
}

// Totals sums volume, sets and reps over completed sets only.
func (e *ExerciseProgress) Totals() (volume float64, sets int, reps int) {
	for _, s := range e.Sets {
		if !s.Completed || s.Reps == nil {
			continue
		}
		volume += s.Volume()
		sets++
		reps += *s.Reps
	}
	return volume, sets, reps
}

// Clone returns a deep copy.
func (e ExerciseProgress) Clone() ExerciseProgress {
	out := e
	out.Sets = make([]SetLedger, len(e.Sets))
	for i, s := range e.Sets {
		out.Sets[i] = s.clone()
	}
	return out
}

// parseTargetReps takes the leading number of an advisory reps string ("8-12" -> 8).
func parseTargetReps(reps string) int {
	reps = strings.TrimSpace(reps)
	end := 0
	for end < len(reps) && reps[end] >= '0' && reps[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(reps[:end])
	if err != nil {
		return 0
	}
	return n
}
