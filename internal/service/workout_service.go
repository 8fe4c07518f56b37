package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/oklog/ulid/v2"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const workoutInstrumentation = "github.com/mansoorceksport/liftlog/workout"

// WorkoutService keeps the live sessions of all users and turns finished
// ones into stored history plus weekly activity.
type WorkoutService struct {
	history    domain.SessionHistoryRepository
	aggregator *MetricsAggregator
	archive    domain.SessionArchive // optional
	clock      domain.Clock
	newTicker  TickerFactory

	mu       sync.Mutex
	sessions map[string]*liveSession

	tracer   trace.Tracer
	finished metric.Int64Counter
}

// liveSession serialises every operation on one session.
type liveSession struct {
	mu      sync.Mutex
	machine *SessionStateMachine

	persistedID string
	folded      bool
	closed      bool // finished or abandoned
}

func NewWorkoutService(
	history domain.SessionHistoryRepository,
	aggregator *MetricsAggregator,
	archive domain.SessionArchive,
	clock domain.Clock,
	newTicker TickerFactory,
) *WorkoutService {
	finished, err := otel.Meter(workoutInstrumentation).Int64Counter("liftlog.workout.sessions_finished",
		metric.WithDescription("Workout sessions finalized and stored"))
	if err != nil {
		log.Warnf("failed to create sessions counter: %v", err)
		finished = noop.Int64Counter{}
	}

	return &WorkoutService{
		history:    history,
		aggregator: aggregator,
		archive:    archive,
		clock:      clock,
		newTicker:  newTicker,
		sessions:   make(map[string]*liveSession),
		tracer:     otel.Tracer(workoutInstrumentation),
		finished:   finished,
	}
}

// generateULID creates a new ULID string
func generateULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Start opens a new live session from a workout-day prescription.
func (s *WorkoutService) Start(ctx context.Context, userID string, day domain.WorkoutDay) (*SessionSnapshot, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required: %w", domain.ErrInvalidInput)
	}

	id := generateULID()
	logger := log.WithFields(log.Fields{"user_id": userID, "session_id": id})
	timer := NewRestTimer(s.clock, s.newTicker, func() {
		logger.Debug("rest period finished")
	})

	machine, err := NewSessionStateMachine(id, userID, day, s.clock, timer)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[id] = &liveSession{machine: machine}
	s.mu.Unlock()

	logger.WithField("day", day.DayName).Info("workout session started")
	snap := machine.Snapshot()
	return &snap, nil
}

// Get returns a snapshot of a live session.
func (s *WorkoutService) Get(ctx context.Context, userID, sessionID string) (*SessionSnapshot, error) {
	var snap SessionSnapshot
	err := s.withSession(userID, sessionID, func(ls *liveSession) error {
		snap = ls.machine.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *WorkoutService) RecordSet(ctx context.Context, userID, sessionID string, exerciseIndex, setIndex, reps int, weight float64) (*SetResult, error) {
	var result *SetResult
	err := s.withSession(userID, sessionID, func(ls *liveSession) error {
		var err error
		result, err = ls.machine.RecordSet(exerciseIndex, setIndex, reps, weight)
		return err
	})
	return result, err
}

func (s *WorkoutService) ConfirmExercise(ctx context.Context, userID, sessionID string) (*SessionSnapshot, error) {
	return s.mutate(userID, sessionID, (*SessionStateMachine).ConfirmExerciseComplete)
}

func (s *WorkoutService) SkipExercise(ctx context.Context, userID, sessionID string) (*SessionSnapshot, error) {
	return s.mutate(userID, sessionID, (*SessionStateMachine).SkipExercise)
}

// Finish finalizes the session, stores it once and folds it into the weekly
// summary. When storing fails the session stays live with its finalized
// record so the call can be repeated.
func (s *WorkoutService) Finish(ctx context.Context, userID, sessionID string) (*domain.SessionRecord, error) {
	ctx, span := s.tracer.Start(ctx, "WorkoutService.Finish",
		trace.WithAttributes(attribute.String("user.id", userID), attribute.String("session.id", sessionID)))
	defer span.End()

	ls, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.closed {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
	}

	logger := log.WithFields(log.Fields{"user_id": userID, "session_id": sessionID})

	// 1. Finalize, or pick up the record of an earlier failed attempt
	record := ls.machine.Record()
	if record == nil {
		record, err = ls.machine.Finalize()
		if err != nil {
			return nil, err
		}
	}

	// 2. Append exactly once
	if ls.persistedID == "" {
		toStore := record.Clone()
		toStore.ID = ""
		id, err := s.history.Append(ctx, toStore)
		if err != nil {
			span.RecordError(err)
			logger.Errorf("failed to store finished session: %v", err)
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
		ls.persistedID = id
	}
	record.ID = ls.persistedID

	// 3. Weekly summary
	if !ls.folded {
		_, err := s.aggregator.RecordWorkoutCompletion(ctx, userID, domain.WorkoutCompletion{
			DayNumber:       record.WorkoutDayNumber,
			DayName:         record.WorkoutDayName,
			WorkoutName:     workoutName(record),
			DurationMinutes: record.DurationMinutes,
			CaloriesBurned:  domain.EstimateCaloriesBurned(record.TotalVolume),
			CompletedAt:     record.EndTime,
		})
		switch {
		case errors.Is(err, domain.ErrAlreadyCompletedToday):
			logger.Infof("day %d already counted today", record.WorkoutDayNumber)
		case err != nil:
			span.RecordError(err)
			logger.Errorf("failed to update weekly summary: %v", err)
			return nil, fmt.Errorf("failed to update weekly summary: %w", err)
		}
		ls.folded = true
	}

	// 4. Export copy, best effort
	if s.archive != nil {
		if key, err := s.archive.Archive(ctx, record); err != nil {
			logger.Warnf("failed to archive session: %v", err)
		} else {
			logger.WithField("key", key).Debug("session archived")
		}
	}

	ls.closed = true
	s.remove(sessionID)
	s.finished.Add(ctx, 1)
	logger.WithFields(log.Fields{
		"volume":   record.TotalVolume,
		"sets":     record.TotalSets,
		"duration": record.DurationMinutes,
	}).Info("workout session finished")
	return record, nil
}

// Abandon drops a live session without storing anything.
func (s *WorkoutService) Abandon(ctx context.Context, userID, sessionID string) error {
	err := s.withSession(userID, sessionID, func(ls *liveSession) error {
		ls.machine.Timer().Cancel()
		ls.closed = true
		return nil
	})
	if err != nil {
		return err
	}
	s.remove(sessionID)
	log.WithFields(log.Fields{"user_id": userID, "session_id": sessionID}).Info("workout session abandoned")
	return nil
}

// TimerAction is a rest timer control command.
type TimerAction string

const (
	TimerActionPause  TimerAction = "pause"
	TimerActionResume TimerAction = "resume"
	TimerActionSkip   TimerAction = "skip"
	TimerActionCancel TimerAction = "cancel"
)

// ControlRest applies a timer command to the session's rest timer.
func (s *WorkoutService) ControlRest(ctx context.Context, userID, sessionID string, action TimerAction) (*TimerSnapshot, error) {
	var apply func(*RestTimer)
	switch action {
	case TimerActionPause:
		apply = (*RestTimer).Pause
	case TimerActionResume:
		apply = (*RestTimer).Resume
	case TimerActionSkip:
		apply = (*RestTimer).Skip
	case TimerActionCancel:
		apply = (*RestTimer).Cancel
	default:
		return nil, fmt.Errorf("unknown timer action %q: %w", action, domain.ErrInvalidInput)
	}
	return s.onTimer(userID, sessionID, apply)
}

// AdjustRest adds deltaSeconds (may be negative) to the running rest period.
func (s *WorkoutService) AdjustRest(ctx context.Context, userID, sessionID string, deltaSeconds int) (*TimerSnapshot, error) {
	return s.onTimer(userID, sessionID, func(t *RestTimer) { t.Adjust(deltaSeconds) })
}

// Close cancels every live session's timer. Used on shutdown.
func (s *WorkoutService) Close() {
	s.mu.Lock()
	sessions := make([]*liveSession, 0, len(s.sessions))
	for _, ls := range s.sessions {
		sessions = append(sessions, ls)
	}
	s.mu.Unlock()

	for _, ls := range sessions {
		ls.mu.Lock()
		ls.machine.Timer().Cancel()
		ls.mu.Unlock()
	}
}

func (s *WorkoutService) onTimer(userID, sessionID string, apply func(*RestTimer)) (*TimerSnapshot, error) {
	var snap TimerSnapshot
	err := s.withSession(userID, sessionID, func(ls *liveSession) error {
		if ls.machine.State() == SessionFinalized {
			return domain.ErrAlreadyFinalized
		}
		apply(ls.machine.Timer())
		snap = ls.machine.Timer().Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *WorkoutService) mutate(userID, sessionID string, op func(*SessionStateMachine) error) (*SessionSnapshot, error) {
	var snap SessionSnapshot
	err := s.withSession(userID, sessionID, func(ls *liveSession) error {
		if err := op(ls.machine); err != nil {
			return err
		}
		snap = ls.machine.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *WorkoutService) withSession(userID, sessionID string, fn func(*liveSession) error) error {
	ls, err := s.lookup(userID, sessionID)
	if err != nil {
		return err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.closed {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	return fn(ls)
}

// lookup hides sessions of other users behind ErrSessionNotFound.
func (s *WorkoutService) lookup(userID, sessionID string) (*liveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.sessions[sessionID]
	if !ok || ls.machine.UserID() != userID {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	return ls, nil
}

func (s *WorkoutService) remove(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

func workoutName(record *domain.SessionRecord) string {
	if record.WorkoutDayName != "" {
		return record.WorkoutDayName
	}
	return record.RoutineName
}
