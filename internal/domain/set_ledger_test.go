package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestSetLedgerComplete(t *testing.T) {
	at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		reps    int
		weight  float64
		wantErr error
	}{
		{name: "valid set", reps: 10, weight: 20},
		{name: "zero reps", reps: 0, weight: 20, wantErr: ErrInvalidInput},
		{name: "negative reps", reps: -3, weight: 20, wantErr: ErrInvalidInput},
		{name: "zero weight", reps: 10, weight: 0, wantErr: ErrInvalidInput},
		{name: "NaN weight", reps: 10, weight: math.NaN(), wantErr: ErrInvalidInput},
		{name: "infinite weight", reps: 10, weight: math.Inf(1), wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SetLedger{SetNumber: 1, TargetReps: 10}
			err := s.Complete(tt.reps, tt.weight, at)

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Complete() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if s.Completed || s.Reps != nil || s.Weight != nil || s.CompletedAt != nil {
					t.Errorf("rejected Complete() mutated the set: %+v", s)
				}
				return
			}
			if !s.Completed || *s.Reps != tt.reps || *s.Weight != tt.weight || !s.CompletedAt.Equal(at) {
				t.Errorf("Complete() left set as %+v", s)
			}
		})
	}
}

func TestSetLedgerCompleteOnlyOnce(t *testing.T) {
	first := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	s := SetLedger{SetNumber: 2}
	if err := s.Complete(8, 30, first); err != nil {
		t.Fatalf("first Complete() error = %v", err)
	}

	err := s.Complete(12, 50, first.Add(time.Minute))
	if !errors.Is(err, ErrInvalidSequence) {
		t.Fatalf("second Complete() error = %v, want %v", err, ErrInvalidSequence)
	}
	if *s.Reps != 8 || *s.Weight != 30 || !s.CompletedAt.Equal(first) {
		t.Errorf("second Complete() overwrote the set: %+v", s)
	}
}

func TestSetLedgerVolume(t *testing.T) {
	reps, weight := 10, 20.0
	if v := (SetLedger{Reps: &reps, Weight: &weight}).Volume(); v != 0 {
		t.Errorf("incomplete set volume = %v, want 0", v)
	}
	if v := (SetLedger{Reps: &reps, Weight: &weight, Completed: true}).Volume(); v != 200 {
		t.Errorf("completed set volume = %v, want 200", v)
	}
}

func TestNewExerciseProgressDefaults(t *testing.T) {
	ep := NewExerciseProgress(2, ExercisePrescription{ExerciseName: "Squat", Reps: "8-12"})

	if ep.PlannedSets != DefaultPlannedSets || len(ep.Sets) != DefaultPlannedSets {
		t.Fatalf("planned sets = %d with %d ledgers, want %d", ep.PlannedSets, len(ep.Sets), DefaultPlannedSets)
	}
	if ep.PlannedRestSeconds != DefaultRestSeconds {
		t.Errorf("rest = %d, want %d", ep.PlannedRestSeconds, DefaultRestSeconds)
	}
	if ep.ExerciseID != "exercise-2" || ep.MuscleGroup != DefaultMuscleGroup || ep.Equipment != DefaultEquipment {
		t.Errorf("identity defaults not applied: %+v", ep)
	}
	for i, s := range ep.Sets {
		if s.SetNumber != i+1 || s.TargetReps != 8 || s.Completed {
			t.Errorf("set %d = %+v", i, s)
		}
	}
}

func TestNewExerciseProgressExplicitZeroRest(t *testing.T) {
	zero := 0
	ep := NewExerciseProgress(0, ExercisePrescription{ExerciseID: "bench", Sets: 4, RestTime: &zero})

	if ep.PlannedSets != 4 || ep.PlannedRestSeconds != 0 {
		t.Errorf("got sets=%d rest=%d, want 4 and 0", ep.PlannedSets, ep.PlannedRestSeconds)
	}
}

func TestWorkoutDayValidate(t *testing.T) {
	neg := -5
	tests := []struct {
		name    string
		day     WorkoutDay
		wantErr bool
	}{
		{name: "no exercises", day: WorkoutDay{}, wantErr: true},
		{name: "negative sets", day: WorkoutDay{Exercises: []ExercisePrescription{{Sets: -1}}}, wantErr: true},
		{name: "negative rest", day: WorkoutDay{Exercises: []ExercisePrescription{{RestTime: &neg}}}, wantErr: true},
		{name: "ok", day: WorkoutDay{DayNumber: 1, Exercises: []ExercisePrescription{{ExerciseName: "Row"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.day.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Validate() error = %v, want ErrInvalidInput", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
		})
	}
}
