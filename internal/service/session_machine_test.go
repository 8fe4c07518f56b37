package service

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoExerciseDay() domain.WorkoutDay {
	return domain.WorkoutDay{
		RoutineID:   "r1",
		RoutineName: "Push Pull Legs",
		DayNumber:   1,
		DayName:     "Push",
		Exercises: []domain.ExercisePrescription{
			{ExerciseID: "bench", ExerciseName: "Bench Press", Sets: 3, Reps: "10", RestTime: intPtr(90)},
			{ExerciseID: "ohp", ExerciseName: "Overhead Press", Sets: 3, Reps: "8"},
		},
	}
}

func newTestMachine(t *testing.T, clock *fakeClock) *SessionStateMachine {
	t.Helper()
	m, err := NewSessionStateMachine("s1", "u1", twoExerciseDay(), clock, nil)
	require.NoError(t, err)
	return m
}

func TestSessionMachineExampleScenario(t *testing.T) {
	clock := newFakeClock(monday)
	m := newTestMachine(t, clock)

	for i := 0; i < 3; i++ {
		clock.Advance(2 * time.Minute)
		res, err := m.RecordSet(0, i, 10, 20)
		require.NoError(t, err)
		if i < 2 {
			assert.Equal(t, OutcomeRestStarted, res.Outcome)
			assert.Equal(t, 90, res.RestSeconds)
		} else {
			assert.Equal(t, OutcomeExerciseSetsComplete, res.Outcome)
		}
	}
	assert.Equal(t, SessionExerciseReady, m.State())
	require.NoError(t, m.ConfirmExerciseComplete())
	assert.Equal(t, 1, m.CurrentExerciseIndex())

	for i := 0; i < 3; i++ {
		clock.Advance(2 * time.Minute)
		_, err := m.RecordSet(1, i, 8, 30)
		require.NoError(t, err)
	}
	require.NoError(t, m.ConfirmExerciseComplete())
	assert.Equal(t, SessionFinalizing, m.State())
	assert.Equal(t, 100, m.Progress())

	clock.Advance(29*time.Minute + 40*time.Second)
	record, err := m.Finalize()
	require.NoError(t, err)

	assert.Equal(t, 6, record.TotalSets)
	assert.Equal(t, 54, record.TotalReps)
	assert.Equal(t, 1320.0, record.TotalVolume)
	assert.Equal(t, 600.0, record.Exercises[0].TotalVolume)
	assert.Equal(t, 720.0, record.Exercises[1].TotalVolume)
	assert.Equal(t, 42, record.DurationMinutes) // 41m40s rounds up
	assert.Equal(t, domain.CompletionStatusCompleted, record.CompletionStatus)
	assert.Equal(t, "s1", record.ID)
	assert.Equal(t, "u1", record.UserID)
	assert.Equal(t, 1, record.WorkoutDayNumber)
	assert.Equal(t, monday, record.StartTime)
	assert.Equal(t, clock.Now(), record.EndTime)
	assert.Equal(t, SessionFinalized, m.State())
}

func TestSessionMachineFinalizeOnce(t *testing.T) {
	clock := newFakeClock(monday)
	m := newTestMachine(t, clock)
	_, err := m.RecordSet(0, 0, 5, 100)
	require.NoError(t, err)

	first, err := m.Finalize()
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = m.Finalize()
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)

	// Mutating the returned copy does not reach the stored record
	first.TotalVolume = 0
	stored := m.Record()
	assert.Equal(t, 500.0, stored.TotalVolume)
	assert.Equal(t, first.EndTime, stored.EndTime)

	_, err = m.RecordSet(0, 1, 5, 100)
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
	assert.ErrorIs(t, m.ConfirmExerciseComplete(), domain.ErrAlreadyFinalized)
	assert.ErrorIs(t, m.SkipExercise(), domain.ErrAlreadyFinalized)
}

func TestSessionMachineRecordSetRejections(t *testing.T) {
	tests := []struct {
		name     string
		exercise int
		set      int
		reps     int
		weight   float64
		wantErr  error
	}{
		{"set out of order", 0, 1, 10, 20, domain.ErrInvalidSequence},
		{"not the current exercise", 1, 0, 10, 20, domain.ErrInvalidSequence},
		{"exercise out of range", 5, 0, 10, 20, domain.ErrInvalidInput},
		{"set out of range", 0, 3, 10, 20, domain.ErrInvalidInput},
		{"negative set index", 0, -1, 10, 20, domain.ErrInvalidInput},
		{"zero reps", 0, 0, 0, 20, domain.ErrInvalidInput},
		{"negative weight", 0, 0, 10, -5, domain.ErrInvalidInput},
		{"zero weight", 0, 0, 10, 0, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock(monday)
			m := newTestMachine(t, clock)
			before := m.Snapshot()

			_, err := m.RecordSet(tt.exercise, tt.set, tt.reps, tt.weight)
			assert.ErrorIs(t, err, tt.wantErr)

			after := m.Snapshot()
			assert.Equal(t, before.Exercises, after.Exercises)
			assert.Equal(t, before.State, after.State)
			assert.Equal(t, TimerIdle, after.Timer.State)
		})
	}
}

func TestSessionMachineSetCannotBeRecordedTwice(t *testing.T) {
	m := newTestMachine(t, newFakeClock(monday))
	_, err := m.RecordSet(0, 0, 10, 20)
	require.NoError(t, err)

	_, err = m.RecordSet(0, 0, 12, 25)
	assert.ErrorIs(t, err, domain.ErrInvalidSequence)
	assert.Equal(t, 10, *m.Snapshot().Exercises[0].Sets[0].Reps)
}

func TestSessionMachineConfirmRequiresAllSets(t *testing.T) {
	m := newTestMachine(t, newFakeClock(monday))
	_, err := m.RecordSet(0, 0, 10, 20)
	require.NoError(t, err)

	assert.ErrorIs(t, m.ConfirmExerciseComplete(), domain.ErrInvalidSequence)
	assert.Equal(t, 0, m.CurrentExerciseIndex())
	assert.Equal(t, SessionInProgress, m.State())
}

func TestSessionMachineSkipExercise(t *testing.T) {
	clock := newFakeClock(monday)
	m := newTestMachine(t, clock)

	_, err := m.RecordSet(0, 0, 10, 20)
	require.NoError(t, err)
	assert.Equal(t, TimerRunning, m.Timer().Snapshot().State)

	require.NoError(t, m.SkipExercise())
	assert.Equal(t, TimerCancelled, m.Timer().Snapshot().State)
	assert.Equal(t, 1, m.CurrentExerciseIndex())

	// Progress counts the skipped exercise as done
	assert.Equal(t, 50, m.Progress())

	require.NoError(t, m.SkipExercise())
	assert.Equal(t, SessionFinalizing, m.State())
	assert.ErrorIs(t, m.SkipExercise(), domain.ErrInvalidSequence)

	_, err = m.RecordSet(1, 0, 8, 30)
	assert.ErrorIs(t, err, domain.ErrInvalidSequence)

	// The set logged before skipping still counts
	record, err := m.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 200.0, record.TotalVolume)
	assert.Equal(t, 1, record.TotalSets)
	assert.True(t, record.Exercises[0].Skipped)
	assert.False(t, record.Exercises[0].Completed)
}

func TestSessionMachineFinishEarlyCancelsRest(t *testing.T) {
	clock := newFakeClock(monday)
	var fired atomic.Int32
	timer := NewRestTimer(clock, nil, func() { fired.Add(1) })
	m, err := NewSessionStateMachine("s1", "u1", twoExerciseDay(), clock, timer)
	require.NoError(t, err)

	_, err = m.RecordSet(0, 0, 10, 20)
	require.NoError(t, err)

	record, err := m.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 0, record.DurationMinutes)

	clock.Advance(5 * time.Minute)
	timer.Tick()
	assert.Equal(t, TimerCancelled, timer.Snapshot().State)
	assert.EqualValues(t, 0, fired.Load())
}

func TestSessionMachineDefaultsAndProgress(t *testing.T) {
	day := domain.WorkoutDay{
		DayNumber: 2,
		Exercises: []domain.ExercisePrescription{{ExerciseName: "Push Up"}},
	}
	m, err := NewSessionStateMachine("s2", "u1", day, newFakeClock(monday), nil)
	require.NoError(t, err)

	snap := m.Snapshot()
	require.Len(t, snap.Exercises, 1)
	assert.Len(t, snap.Exercises[0].Sets, domain.DefaultPlannedSets)
	assert.Equal(t, domain.DefaultRestSeconds, snap.Exercises[0].PlannedRestSeconds)
	assert.Equal(t, 0, snap.Progress)

	_, err = m.RecordSet(0, 0, 15, 1)
	require.NoError(t, err)
	assert.Equal(t, 33, m.Progress())
	assert.Equal(t, RunningTotals{Volume: 15, Sets: 1, Reps: 15}, m.RunningTotals())
}

func TestSessionMachineRejectsEmptyDay(t *testing.T) {
	_, err := NewSessionStateMachine("s", "u", domain.WorkoutDay{}, newFakeClock(monday), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSessionMachineSnapshotIsDeepCopy(t *testing.T) {
	m := newTestMachine(t, newFakeClock(monday))
	_, err := m.RecordSet(0, 0, 10, 20)
	require.NoError(t, err)

	snap := m.Snapshot()
	*snap.Exercises[0].Sets[0].Reps = 99
	snap.Exercises[0].Sets[1].Completed = true

	again := m.Snapshot()
	assert.Equal(t, 10, *again.Exercises[0].Sets[0].Reps)
	assert.False(t, again.Exercises[0].Sets[1].Completed)
}
