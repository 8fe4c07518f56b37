package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	activityInstrumentation = "github.com/mansoorceksport/liftlog/activity"

	// GoalWeeklyWorkouts is the goal name accepted by UpdateGoal for the weekly workout target.
	GoalWeeklyWorkouts = "weekly_workouts"

	// todayLookbackDays bounds how far Today searches for an earlier record.
	todayLookbackDays = 7
)

// MetricsAggregator owns the per-day activity documents and the rolling
// weekly summary stored on them. All writes for one user are serialised.
type MetricsAggregator struct {
	store domain.DocumentStore
	clock domain.Clock
	goals domain.GoalDefaults
	locks *keyedMutex

	memoMu     sync.Mutex
	checked    map[string]string // userID -> day already checked against the week marker
	checkedDay string

	tracer        trace.Tracer
	weekResets    metric.Int64Counter
	workoutsFolds metric.Int64Counter
}

func NewMetricsAggregator(store domain.DocumentStore, clock domain.Clock, goals domain.GoalDefaults) *MetricsAggregator {
	meter := otel.Meter(activityInstrumentation)
	weekResets, err := meter.Int64Counter("liftlog.activity.week_resets",
		metric.WithDescription("Weekly summaries reset on a week boundary"))
	if err != nil {
		log.Warnf("failed to create week reset counter: %v", err)
		weekResets = noop.Int64Counter{}
	}
	workoutFolds, err := meter.Int64Counter("liftlog.activity.workouts_recorded",
		metric.WithDescription("Finished workouts folded into the weekly summary"))
	if err != nil {
		log.Warnf("failed to create workout counter: %v", err)
		workoutFolds = noop.Int64Counter{}
	}

	return &MetricsAggregator{
		store:         store,
		clock:         clock,
		goals:         goals,
		locks:         newKeyedMutex(),
		checked:       make(map[string]string),
		tracer:        otel.Tracer(activityInstrumentation),
		weekResets:    weekResets,
		workoutsFolds: workoutFolds,
	}
}

// EnsureCurrentWeek clears the weekly summary when today falls in a week other
// than the one recorded on the user document. It reports whether a reset
// happened. Repeated calls for the same day are no-ops.
func (a *MetricsAggregator) EnsureCurrentWeek(ctx context.Context, userID string, today time.Time) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("user id is required: %w", domain.ErrInvalidInput)
	}
	unlock := a.locks.Lock(userID)
	defer unlock()
	return a.ensureCurrentWeekLocked(ctx, userID, today)
}

func (a *MetricsAggregator) ensureCurrentWeekLocked(ctx context.Context, userID string, today time.Time) (bool, error) {
	dayKey := domain.DateKey(today)
	a.memoMu.Lock()
	done := a.checked[userID] == dayKey
	a.memoMu.Unlock()
	if done {
		return false, nil
	}

	week := WeekIdentifier(today)
	userDoc, err := a.store.Get(ctx, domain.UserDocPath(userID))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("failed to read week marker: %w", err)
	}
	if userDoc.String(domain.FieldLastWeekReset) == week {
		a.markChecked(userID, dayKey)
		return false, nil
	}

	ctx, span := a.tracer.Start(ctx, "MetricsAggregator.ResetWeek",
		trace.WithAttributes(attribute.String("user.id", userID), attribute.String("week", week)))
	defer span.End()

	// Activity document before marker; a failed marker write means the reset runs again.
	fields := map[string]any{
		domain.FieldLastWeekReset: week,
		domain.FieldDate:          dayKey,
		domain.FieldUserID:        userID,
		domain.FieldUpdatedAt:     a.clock.Now(),
	}
	for _, f := range domain.WeeklyFields {
		fields[f] = nil
	}
	if err := a.store.Set(ctx, domain.ActivityDocPath(userID, today), fields, true); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to reset weekly summary: %w", err)
	}
	if err := a.store.Set(ctx, domain.UserDocPath(userID), map[string]any{domain.FieldLastWeekReset: week}, true); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to store week marker: %w", err)
	}

	a.markChecked(userID, dayKey)
	a.weekResets.Add(ctx, 1)
	log.WithFields(log.Fields{"user_id": userID, "week": week}).Info("weekly summary reset")
	return true, nil
}

// markChecked memoises the check for dayKey. Entries of other days can never
// match again, so a new day starts a fresh memo.
func (a *MetricsAggregator) markChecked(userID, dayKey string) {
	a.memoMu.Lock()
	defer a.memoMu.Unlock()
	if a.checkedDay != dayKey {
		a.checked = make(map[string]string)
		a.checkedDay = dayKey
	}
	a.checked[userID] = dayKey
}

// RecordDailyMetric stores today's value of one metric together with its goal
// and progress. Other fields of the day are left alone.
func (a *MetricsAggregator) RecordDailyMetric(ctx context.Context, userID string, field domain.MetricField, value float64) (*domain.DailyActivity, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required: %w", domain.ErrInvalidInput)
	}
	if _, err := domain.ParseMetricField(string(field)); err != nil {
		return nil, err
	}
	if err := field.ValidateValue(value); err != nil {
		return nil, err
	}

	unlock := a.locks.Lock(userID)
	defer unlock()

	now := a.clock.Now()
	if _, err := a.ensureCurrentWeekLocked(ctx, userID, now); err != nil {
		return nil, err
	}

	path := domain.ActivityDocPath(userID, now)
	doc, err := a.getOptional(ctx, path)
	if err != nil {
		return nil, err
	}

	goal, ok, err := a.carriedGoal(ctx, userID, now, doc, field.GoalKey())
	if err != nil {
		return nil, err
	}
	if !ok {
		goal = a.goals.For(field)
	}

	fields := a.stamp(userID, now, string(field))
	fields[string(field)] = value
	fields[field.GoalKey()] = goal
	fields[field.ProgressKey()] = domain.ProgressPercent(&value, &goal)
	if err := a.store.Set(ctx, path, fields, true); err != nil {
		return nil, fmt.Errorf("failed to record %s: %w", field, err)
	}

	return a.read(ctx, path)
}

// UpdateGoal changes today's goal for a metric (or GoalWeeklyWorkouts) and
// recomputes the metric's progress.
func (a *MetricsAggregator) UpdateGoal(ctx context.Context, userID string, name string, goal float64) (*domain.DailyActivity, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required: %w", domain.ErrInvalidInput)
	}

	var field domain.MetricField
	if name == GoalWeeklyWorkouts {
		if math.IsNaN(goal) || math.IsInf(goal, 0) || goal < 0 || goal != math.Trunc(goal) {
			return nil, fmt.Errorf("weekly workout goal must be a whole non-negative number: %w", domain.ErrInvalidInput)
		}
	} else {
		f, err := domain.ParseMetricField(name)
		if err != nil {
			return nil, err
		}
		if err := f.ValidateValue(goal); err != nil {
			return nil, err
		}
		field = f
	}

	unlock := a.locks.Lock(userID)
	defer unlock()

	now := a.clock.Now()
	if _, err := a.ensureCurrentWeekLocked(ctx, userID, now); err != nil {
		return nil, err
	}

	path := domain.ActivityDocPath(userID, now)
	fields := a.stamp(userID, now, "")
	if field == "" {
		fields[domain.FieldWeeklyWorkoutsGoal] = int(goal)
		fields[domain.FieldLastUpdatedField] = domain.FieldWeeklyWorkoutsGoal
	} else {
		doc, err := a.getOptional(ctx, path)
		if err != nil {
			return nil, err
		}
		fields[field.GoalKey()] = goal
		fields[domain.FieldLastUpdatedField] = field.GoalKey()
		if v, ok := doc.Number(string(field)); ok {
			fields[field.ProgressKey()] = domain.ProgressPercent(&v, &goal)
		} else {
			fields[field.ProgressKey()] = 0
		}
	}

	if err := a.store.Set(ctx, path, fields, true); err != nil {
		return nil, fmt.Errorf("failed to update goal %s: %w", name, err)
	}
	return a.read(ctx, path)
}

// RecordWorkoutCompletion folds a finished program day into the weekly
// summary. A day number already completed today is rejected with
// ErrAlreadyCompletedToday and nothing is written.
func (a *MetricsAggregator) RecordWorkoutCompletion(ctx context.Context, userID string, c domain.WorkoutCompletion) (*domain.DailyActivity, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required: %w", domain.ErrInvalidInput)
	}
	if c.DayNumber < 0 || c.DurationMinutes < 0 || c.CaloriesBurned < 0 {
		return nil, fmt.Errorf("day number, duration and calories must not be negative: %w", domain.ErrInvalidInput)
	}

	ctx, span := a.tracer.Start(ctx, "MetricsAggregator.RecordWorkoutCompletion",
		trace.WithAttributes(attribute.String("user.id", userID), attribute.Int("day.number", c.DayNumber)))
	defer span.End()

	unlock := a.locks.Lock(userID)
	defer unlock()

	now := a.clock.Now()
	if c.CompletedAt.IsZero() {
		c.CompletedAt = now
	}
	if _, err := a.ensureCurrentWeekLocked(ctx, userID, now); err != nil {
		span.RecordError(err)
		return nil, err
	}

	path := domain.ActivityDocPath(userID, now)
	doc, err := a.getOptional(ctx, path)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var current domain.DailyActivity
	if doc != nil {
		if err := doc.DataTo(&current); err != nil {
			return nil, err
		}
	}
	if current.HasCompletedDay(c.DayNumber) {
		return nil, fmt.Errorf("day %d: %w", c.DayNumber, domain.ErrAlreadyCompletedToday)
	}

	base, err := a.weeklyBase(ctx, userID, now, doc)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	weeklyGoal := a.goals.WeeklyWorkouts
	if g, ok, err := a.carriedGoal(ctx, userID, now, doc, domain.FieldWeeklyWorkoutsGoal); err != nil {
		span.RecordError(err)
		return nil, err
	} else if ok {
		weeklyGoal = int(math.Round(g))
	}

	fields := a.stamp(userID, now, domain.FieldWeeklyWorkouts)
	fields[domain.FieldWeeklyWorkouts] = base.workouts + 1
	fields[domain.FieldWeeklyTotalTime] = base.minutes + c.DurationMinutes
	fields[domain.FieldWeeklyCaloriesBurned] = base.calories + c.CaloriesBurned
	fields[domain.FieldWeeklyWorkoutsGoal] = weeklyGoal
	fields[domain.FieldCompletedWorkoutDays] = append(append([]int{}, current.CompletedWorkoutDays...), c.DayNumber)
	fields[domain.FieldLastCompletedWorkout] = domain.LastCompletedWorkout{
		DayNumber:   c.DayNumber,
		DayName:     c.DayName,
		WorkoutName: c.WorkoutName,
		CompletedAt: c.CompletedAt,
	}
	if err := a.store.Set(ctx, path, fields, true); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to record workout completion: %w", err)
	}

	a.workoutsFolds.Add(ctx, 1)
	return a.read(ctx, path)
}

// Today returns today's activity record, falling back to the most recent one
// from the previous week. ErrNotFound when there is none.
func (a *MetricsAggregator) Today(ctx context.Context, userID string) (*domain.DailyActivity, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required: %w", domain.ErrInvalidInput)
	}
	now := a.clock.Now()
	for i := 0; i <= todayLookbackDays; i++ {
		day := now.AddDate(0, 0, -i)
		doc, err := a.getOptional(ctx, domain.ActivityDocPath(userID, day))
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		var activity domain.DailyActivity
		if err := doc.DataTo(&activity); err != nil {
			return nil, err
		}
		return &activity, nil
	}
	return nil, fmt.Errorf("no activity in the last %d days: %w", todayLookbackDays, domain.ErrNotFound)
}

// carriedGoal resolves a goal from today's document, else from the most recent
// document of the lookback window. Goals outlive days and weeks.
func (a *MetricsAggregator) carriedGoal(ctx context.Context, userID string, today time.Time, todayDoc *domain.Document, key string) (float64, bool, error) {
	if g, ok := todayDoc.Number(key); ok {
		return g, true, nil
	}
	for i := 1; i <= todayLookbackDays; i++ {
		doc, err := a.getOptional(ctx, domain.ActivityDocPath(userID, today.AddDate(0, 0, -i)))
		if err != nil {
			return 0, false, err
		}
		if g, ok := doc.Number(key); ok {
			return g, true, nil
		}
	}
	return 0, false, nil
}

type weeklyTotals struct {
	workouts int
	minutes  int
	calories int
}

// weeklyBase finds the weekly totals to increment. Today's document wins when
// it carries the weekly fields (null after a reset counts as zero); otherwise
// the latest earlier document of the same week is carried over.
func (a *MetricsAggregator) weeklyBase(ctx context.Context, userID string, today time.Time, todayDoc *domain.Document) (weeklyTotals, error) {
	if hasWeeklyFields(todayDoc) {
		return totalsOf(todayDoc), nil
	}

	weekStart := WeekStart(today)
	for day := startOfDay(today).AddDate(0, 0, -1); !day.Before(weekStart); day = day.AddDate(0, 0, -1) {
		doc, err := a.getOptional(ctx, domain.ActivityDocPath(userID, day))
		if err != nil {
			return weeklyTotals{}, err
		}
		if hasWeeklyFields(doc) {
			return totalsOf(doc), nil
		}
	}
	return weeklyTotals{}, nil
}

func hasWeeklyFields(doc *domain.Document) bool {
	if doc == nil {
		return false
	}
	for _, f := range domain.WeeklyFields {
		if _, ok := doc.Data[f]; ok {
			return true
		}
	}
	return false
}

func totalsOf(doc *domain.Document) weeklyTotals {
	get := func(f string) int {
		v, _ := doc.Number(f)
		return int(math.Round(v))
	}
	return weeklyTotals{
		workouts: get(domain.FieldWeeklyWorkouts),
		minutes:  get(domain.FieldWeeklyTotalTime),
		calories: get(domain.FieldWeeklyCaloriesBurned),
	}
}

// stamp returns the bookkeeping fields every activity write carries.
func (a *MetricsAggregator) stamp(userID string, now time.Time, updatedField string) map[string]any {
	fields := map[string]any{
		domain.FieldDate:      domain.DateKey(now),
		domain.FieldUserID:    userID,
		domain.FieldUpdatedAt: now,
	}
	if updatedField != "" {
		fields[domain.FieldLastUpdatedField] = updatedField
	}
	return fields
}

// getOptional returns nil, nil for a missing document.
func (a *MetricsAggregator) getOptional(ctx context.Context, path string) (*domain.Document, error) {
	doc, err := a.store.Get(ctx, path)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return doc, nil
}

func (a *MetricsAggregator) read(ctx context.Context, path string) (*domain.DailyActivity, error) {
	doc, err := a.store.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var activity domain.DailyActivity
	if err := doc.DataTo(&activity); err != nil {
		return nil, err
	}
	return &activity, nil
}
