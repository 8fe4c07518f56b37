package service

import (
	"fmt"
	"math"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
)

type SessionState string

const (
	SessionInProgress    SessionState = "in_progress"
	SessionExerciseReady SessionState = "exercise_ready" // all sets of the current exercise logged, awaiting confirmation
	SessionAdvancing     SessionState = "advancing"
	SessionFinalizing    SessionState = "finalizing" // no exercise left, waiting for Finalize
	SessionFinalized     SessionState = "finalized"
)

type SetOutcome string

const (
	OutcomeRestStarted          SetOutcome = "rest_started"
	OutcomeExerciseSetsComplete SetOutcome = "exercise_sets_complete"
)

// SetResult reports what happened after a set was logged.
type SetResult struct {
	Outcome     SetOutcome              `json:"outcome"`
	RestSeconds int                     `json:"rest_seconds,omitempty"`
	Exercise    domain.ExerciseProgress `json:"exercise"`
}

// RunningTotals are sums over completed sets so far.
type RunningTotals struct {
	Volume float64 `json:"volume"`
	Sets   int     `json:"sets"`
	Reps   int     `json:"reps"`
}

// SessionSnapshot is a deep copy of a live session for display.
type SessionSnapshot struct {
	ID                   string                    `json:"id"`
	UserID               string                    `json:"user_id"`
	RoutineID            string                    `json:"routine_id"`
	RoutineName          string                    `json:"routine_name"`
	WorkoutDayNumber     int                       `json:"workout_day_number"`
	WorkoutDayName       string                    `json:"workout_day_name"`
	State                SessionState              `json:"state"`
	StartedAt            time.Time                 `json:"started_at"`
	CurrentExerciseIndex int                       `json:"current_exercise_index"`
	Exercises            []domain.ExerciseProgress `json:"exercises"`
	Progress             int                       `json:"progress"`
	Totals               RunningTotals             `json:"totals"`
	Timer                TimerSnapshot             `json:"timer"`
	Record               *domain.SessionRecord     `json:"record,omitempty"`
}

// SessionStateMachine drives one live workout from the first set to the
// finalized SessionRecord. It is not safe for concurrent use; callers
// serialise access (see WorkoutService).
type SessionStateMachine struct {
	id     string
	userID string
	day    domain.WorkoutDay
	clock  domain.Clock
	timer  *RestTimer

	state     SessionState
	startedAt time.Time
	exercises []domain.ExerciseProgress
	current   int
	record    *domain.SessionRecord
}

// NewSessionStateMachine starts a session at clock time. A nil timer gets a
// manually ticked one.
func NewSessionStateMachine(id, userID string, day domain.WorkoutDay, clock domain.Clock, timer *RestTimer) (*SessionStateMachine, error) {
	if err := day.Validate(); err != nil {
		return nil, err
	}
	if timer == nil {
		timer = NewRestTimer(clock, nil, nil)
	}

	exercises := make([]domain.ExerciseProgress, len(day.Exercises))
	for i, p := range day.Exercises {
		exercises[i] = domain.NewExerciseProgress(i, p)
	}

	return &SessionStateMachine{
		id:        id,
		userID:    userID,
		day:       day,
		clock:     clock,
		timer:     timer,
		state:     SessionInProgress,
		startedAt: clock.Now(),
		exercises: exercises,
	}, nil
}

func (m *SessionStateMachine) ID() string                { return m.id }
func (m *SessionStateMachine) UserID() string            { return m.userID }
func (m *SessionStateMachine) State() SessionState       { return m.state }
func (m *SessionStateMachine) CurrentExerciseIndex() int { return m.current }
func (m *SessionStateMachine) Timer() *RestTimer         { return m.timer }

// RecordSet logs one set of the current exercise. exerciseIndex and setIndex
// are 0-based. A rejected call leaves the session untouched.
func (m *SessionStateMachine) RecordSet(exerciseIndex, setIndex, reps int, weight float64) (*SetResult, error) {
	if m.state == SessionFinalized {
		return nil, domain.ErrAlreadyFinalized
	}
	if exerciseIndex < 0 || exerciseIndex >= len(m.exercises) {
		return nil, fmt.Errorf("exercise index %d out of range: %w", exerciseIndex, domain.ErrInvalidInput)
	}
	if m.state == SessionFinalizing || exerciseIndex != m.current {
		return nil, fmt.Errorf("exercise %d is not the current exercise: %w", exerciseIndex, domain.ErrInvalidSequence)
	}

	ex := &m.exercises[m.current]
	if setIndex < 0 || setIndex >= len(ex.Sets) {
		return nil, fmt.Errorf("set index %d out of range: %w", setIndex, domain.ErrInvalidInput)
	}
	if reps <= 0 {
		return nil, fmt.Errorf("reps must be positive, got %d: %w", reps, domain.ErrInvalidInput)
	}
	if !(weight > 0) || math.IsInf(weight, 1) {
		return nil, fmt.Errorf("weight must be positive, got %v: %w", weight, domain.ErrInvalidInput)
	}
	if next := ex.NextSetIndex(); next != setIndex {
		return nil, fmt.Errorf("set %d cannot be logged before set %d: %w", setIndex+1, next+1, domain.ErrInvalidSequence)
	}

	if err := ex.Sets[setIndex].Complete(reps, weight, m.clock.Now()); err != nil {
		return nil, err
	}

	if !ex.AllSetsCompleted() {
		if err := m.timer.Start(ex.PlannedRestSeconds); err != nil {
			return nil, err
		}
		return &SetResult{Outcome: OutcomeRestStarted, RestSeconds: ex.PlannedRestSeconds, Exercise: ex.Clone()}, nil
	}

	// A rest still running from the previous set is moot now.
	m.timer.Cancel()
	m.state = SessionExerciseReady
	return &SetResult{Outcome: OutcomeExerciseSetsComplete, Exercise: ex.Clone()}, nil
}

// ConfirmExerciseComplete marks the current exercise done once every set is logged.
func (m *SessionStateMachine) ConfirmExerciseComplete() error {
	if err := m.requireActiveExercise(); err != nil {
		return err
	}
	ex := &m.exercises[m.current]
	if !ex.AllSetsCompleted() {
		return fmt.Errorf("exercise %q has %d unlogged sets: %w", ex.ExerciseName, countOpenSets(ex), domain.ErrInvalidSequence)
	}

	ex.Completed = true
	m.advance()
	return nil
}

// SkipExercise abandons the current exercise, keeping any sets already logged.
func (m *SessionStateMachine) SkipExercise() error {
	if err := m.requireActiveExercise(); err != nil {
		return err
	}
	m.exercises[m.current].Skipped = true
	m.timer.Cancel()
	m.advance()
	return nil
}

// Finalize closes the session and returns its record. It may be called
// before every exercise is done; unfinished exercises keep what was logged.
func (m *SessionStateMachine) Finalize() (*domain.SessionRecord, error) {
	if m.state == SessionFinalized {
		return nil, domain.ErrAlreadyFinalized
	}
	m.timer.Cancel()

	end := m.clock.Now()
	duration := end.Sub(m.startedAt)
	if duration < 0 {
		duration = 0
	}

	record := &domain.SessionRecord{
		ID:               m.id,
		UserID:           m.userID,
		RoutineID:        m.day.RoutineID,
		RoutineName:      m.day.RoutineName,
		WorkoutDayNumber: m.day.DayNumber,
		WorkoutDayName:   m.day.DayName,
		StartTime:        m.startedAt,
		EndTime:          end,
		DurationMinutes:  int(math.Round(duration.Minutes())),
		CompletionStatus: domain.CompletionStatusCompleted,
		Exercises:        make([]domain.ExerciseProgress, len(m.exercises)),
		CreatedAt:        end,
	}
	for i := range m.exercises {
		volume, sets, reps := m.exercises[i].Totals()
		m.exercises[i].TotalVolume = volume
		record.TotalVolume += volume
		record.TotalSets += sets
		record.TotalReps += reps
		record.Exercises[i] = m.exercises[i].Clone()
	}

	m.record = record
	m.state = SessionFinalized
	return record.Clone(), nil
}

// Record returns the finalized record, nil before Finalize.
func (m *SessionStateMachine) Record() *domain.SessionRecord {
	return m.record.Clone()
}

func (m *SessionStateMachine) RunningTotals() RunningTotals {
	var t RunningTotals
	for i := range m.exercises {
		volume, sets, reps := m.exercises[i].Totals()
		t.Volume += volume
		t.Sets += sets
		t.Reps += reps
	}
	return t
}

// Progress is the percentage of the session done: finished exercises plus
// the logged fraction of the current one.
func (m *SessionStateMachine) Progress() int {
	total := len(m.exercises)
	if total == 0 {
		return 0
	}
	var done float64
	for i := range m.exercises {
		ex := &m.exercises[i]
		switch {
		case ex.Completed || ex.Skipped:
			done++
		case i == m.current && len(ex.Sets) > 0:
			_, sets, _ := ex.Totals()
			done += float64(sets) / float64(len(ex.Sets))
		}
	}
	return int(math.Round(done / float64(total) * 100))
}

func (m *SessionStateMachine) Snapshot() SessionSnapshot {
	exercises := make([]domain.ExerciseProgress, len(m.exercises))
	for i := range m.exercises {
		exercises[i] = m.exercises[i].Clone()
	}
	return SessionSnapshot{
		ID:                   m.id,
		UserID:               m.userID,
		RoutineID:            m.day.RoutineID,
		RoutineName:          m.day.RoutineName,
		WorkoutDayNumber:     m.day.DayNumber,
		WorkoutDayName:       m.day.DayName,
		State:                m.state,
		StartedAt:            m.startedAt,
		CurrentExerciseIndex: m.current,
		Exercises:            exercises,
		Progress:             m.Progress(),
		Totals:               m.RunningTotals(),
		Timer:                m.timer.Snapshot(),
		Record:               m.record.Clone(),
	}
}

func (m *SessionStateMachine) requireActiveExercise() error {
	switch m.state {
	case SessionFinalized:
		return domain.ErrAlreadyFinalized
	case SessionFinalizing:
		return fmt.Errorf("no exercise left: %w", domain.ErrInvalidSequence)
	}
	return nil
}

// advance moves the cursor forward; past the last exercise the session waits for Finalize.
func (m *SessionStateMachine) advance() {
	m.state = SessionAdvancing
	m.current++
	if m.current >= len(m.exercises) {
		m.current = len(m.exercises) - 1
		m.state = SessionFinalizing
		return
	}
	m.state = SessionInProgress
}

func countOpenSets(ex *domain.ExerciseProgress) int {
	n := 0
	for _, s := range ex.Sets {
		if !s.Completed {
			n++
		}
	}
	return n
}
