package domain

import (
	"fmt"
	"math"
	"time"
)

// SetLedger is one planned set and, once logged, what was actually performed.
type SetLedger struct {
	SetNumber   int        `json:"set_number" bson:"set_number"` // 1-based, never renumbered
	TargetReps  int        `json:"target_reps" bson:"target_reps"`
	Reps        *int       `json:"reps" bson:"reps"`
	Weight      *float64   `json:"weight" bson:"weight"`
	Completed   bool       `json:"completed" bson:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// Complete logs reps and weight and flips the set to completed. A set is
// written exactly once; reps and weight are always supplied together.
func (s *SetLedger) Complete(reps int, weight float64, at time.Time) error {
	if s.Completed {
		return fmt.Errorf("set %d already completed: %w", s.SetNumber, ErrInvalidSequence)
	}
	if reps <= 0 {
		return fmt.Errorf("reps must be positive, got %d: %w", reps, ErrInvalidInput)
	}
	if !(weight > 0) || math.IsInf(weight, 1) {
		return fmt.Errorf("weight must be positive, got %v: %w", weight, ErrInvalidInput)
	}

	s.Reps = &reps
	s.Weight = &weight
	s.Completed = true
	s.CompletedAt = &at
	return nil
}

// Volume = Weight * Reps for a completed set, 0 otherwise.
func (s SetLedger) Volume() float64 {
	if !s.Completed || s.Reps == nil || s.Weight == nil {
		return 0
	}
	return *s.Weight * float64(*s.Reps)
}

func (s SetLedger) clone() SetLedger {
	out := s
	if s.Reps != nil {
		r := *s.Reps
		out.Reps = &r
	}
	if s.Weight != nil {
		w := *s.Weight
		out.Weight = &w
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
