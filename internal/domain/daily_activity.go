package domain

import (
	"fmt"
	"math"
	"time"
)

// MetricField is a directly logged daily metric.
type MetricField string

const (
	MetricSteps         MetricField = "steps"
	MetricCalories      MetricField = "calories"
	MetricWater         MetricField = "water"
	MetricSleep         MetricField = "sleep"
	MetricWeight        MetricField = "weight"
	MetricActiveMinutes MetricField = "active_minutes"
)

// MetricFields lists every loggable field in display order.
var MetricFields = []MetricField{
	MetricSteps, MetricCalories, MetricWater, MetricSleep, MetricWeight, MetricActiveMinutes,
}

func ParseMetricField(s string) (MetricField, error) {
	for _, f := range MetricFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown metric field %q: %w", s, ErrInvalidInput)
}

func (f MetricField) GoalKey() string     { return string(f) + "_goal" }
func (f MetricField) ProgressKey() string { return string(f) + "_progress" }

// WholeNumber reports whether the field only takes integer values.
func (f MetricField) WholeNumber() bool {
	return f != MetricSleep && f != MetricWeight
}

// ValidateValue checks value is finite, not negative, and integral where required.
func (f MetricField) ValidateValue(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return fmt.Errorf("%s must be a non-negative number, got %v: %w", f, value, ErrInvalidInput)
	}
	if f.WholeNumber() && value != math.Trunc(value) {
		return fmt.Errorf("%s must be a whole number, got %v: %w", f, value, ErrInvalidInput)
	}
	return nil
}

// Activity document field names.
const (
	FieldDate                 = "date"
	FieldUserID               = "user_id"
	FieldWeeklyWorkouts       = "weekly_workouts"
	FieldWeeklyTotalTime      = "weekly_total_time"
	FieldWeeklyCaloriesBurned = "weekly_calories_burned"
	FieldWeeklyWorkoutsGoal   = "weekly_workouts_goal"
	FieldLastWeekReset        = "last_week_reset"
	FieldCompletedWorkoutDays = "completed_workout_days"
	FieldLastCompletedWorkout = "last_completed_workout"
	FieldLastUpdatedField     = "last_updated_field"
	FieldUpdatedAt            = "updated_at"
)

// WeeklyFields are cleared together on a week rollover.
var WeeklyFields = []string{FieldWeeklyWorkouts, FieldWeeklyTotalTime, FieldWeeklyCaloriesBurned}

// GoalDefaults are used whenever a day's document carries no goal of its own.
type GoalDefaults struct {
	Steps          float64 `yaml:"steps" json:"steps"`
	Calories       float64 `yaml:"calories" json:"calories"`
	Water          float64 `yaml:"water" json:"water"`
	Sleep          float64 `yaml:"sleep" json:"sleep"`
	Weight         float64 `yaml:"weight" json:"weight"`
	ActiveMinutes  float64 `yaml:"active_minutes" json:"active_minutes"`
	WeeklyWorkouts int     `yaml:"weekly_workouts" json:"weekly_workouts"`
}

func DefaultGoalDefaults() GoalDefaults {
	return GoalDefaults{
		Steps:          10000,
		Calories:       500,
		Water:          8,
		Sleep:          8,
		WeeklyWorkouts: 5,
	}
}

func (g GoalDefaults) For(f MetricField) float64 {
	switch f {
	case MetricSteps:
		return g.Steps
	case MetricCalories:
		return g.Calories
	case MetricWater:
		return g.Water
	case MetricSleep:
		return g.Sleep
	case MetricWeight:
		return g.Weight
	case MetricActiveMinutes:
		return g.ActiveMinutes
	}
	return 0
}

// ProgressPercent is clamp(round(value/goal*100), 0, 100); 0 if either side is missing or goal is 0.
func ProgressPercent(value, goal *float64) int {
	if value == nil || goal == nil || *goal == 0 {
		return 0
	}
	p := math.Round(*value / *goal * 100)
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}

// LastCompletedWorkout points at the most recent finished program day.
type LastCompletedWorkout struct {
	DayNumber   int       `json:"day_number"`
	DayName     string    `json:"day_name"`
	WorkoutName string    `json:"workout_name"`
	CompletedAt time.Time `json:"completed_at"`
}

// WorkoutCompletion is what a finished session contributes to the week.
type WorkoutCompletion struct {
	DayNumber       int       `json:"day_number"`
	DayName         string    `json:"day_name"`
	WorkoutName     string    `json:"workout_name"`
	DurationMinutes int       `json:"duration_minutes"`
	CaloriesBurned  int       `json:"calories_burned"`
	CompletedAt     time.Time `json:"completed_at"`
}

// EstimateCaloriesBurned is a rough estimate from lifted volume.
func EstimateCaloriesBurned(totalVolume float64) int {
	return int(math.Round(totalVolume * 0.5))
}

// DailyActivity is one user's activity document for one calendar day.
type DailyActivity struct {
	Date   string `json:"date"`
	UserID string `json:"user_id"`

	Steps         *float64 `json:"steps"`
	StepsGoal     *float64 `json:"steps_goal"`
	StepsProgress *int     `json:"steps_progress"`

	Calories         *float64 `json:"calories"`
	CaloriesGoal     *float64 `json:"calories_goal"`
	CaloriesProgress *int     `json:"calories_progress"`

	Water         *float64 `json:"water"`
	WaterGoal     *float64 `json:"water_goal"`
	WaterProgress *int     `json:"water_progress"`

	Sleep         *float64 `json:"sleep"`
	SleepGoal     *float64 `json:"sleep_goal"`
	SleepProgress *int     `json:"sleep_progress"`

	Weight         *float64 `json:"weight"`
	WeightGoal     *float64 `json:"weight_goal"`
	WeightProgress *int     `json:"weight_progress"`

	ActiveMinutes         *float64 `json:"active_minutes"`
	ActiveMinutesGoal     *float64 `json:"active_minutes_goal"`
	ActiveMinutesProgress *int     `json:"active_minutes_progress"`

	WeeklyWorkouts       *int   `json:"weekly_workouts"`
	WeeklyTotalTime      *int   `json:"weekly_total_time"` // minutes
	WeeklyCaloriesBurned *int   `json:"weekly_calories_burned"`
	WeeklyWorkoutsGoal   *int   `json:"weekly_workouts_goal"`
	LastWeekReset        string `json:"last_week_reset"`

	CompletedWorkoutDays []int                 `json:"completed_workout_days"`
	LastCompletedWorkout *LastCompletedWorkout `json:"last_completed_workout"`

	LastUpdatedField string     `json:"last_updated_field"`
	UpdatedAt        *time.Time `json:"updated_at"`
}

// HasCompletedDay reports whether dayNumber was already finished on this date.
func (a *DailyActivity) HasCompletedDay(dayNumber int) bool {
	for _, d := range a.CompletedWorkoutDays {
		if d == dayNumber {
			return true
		}
	}
	return false
}
