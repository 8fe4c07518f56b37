package domain

import (
	"errors"
	"math"
	"testing"
)

func floatPtr(f float64) *float64 {
	return &f
}

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		name  string
		value *float64
		goal  *float64
		want  int
	}{
		{name: "steps example", value: floatPtr(8547), goal: floatPtr(10000), want: 85},
		{name: "rounds half up", value: floatPtr(5), goal: floatPtr(8), want: 63},
		{name: "clamped at 100", value: floatPtr(12000), goal: floatPtr(10000), want: 100},
		{name: "zero goal", value: floatPtr(10), goal: floatPtr(0), want: 0},
		{name: "missing value", value: nil, goal: floatPtr(8), want: 0},
		{name: "missing goal", value: floatPtr(8), goal: nil, want: 0},
		{name: "negative goal clamps to 0", value: floatPtr(8), goal: floatPtr(-2), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProgressPercent(tt.value, tt.goal); got != tt.want {
				t.Errorf("ProgressPercent() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMetricFieldValidateValue(t *testing.T) {
	tests := []struct {
		field   MetricField
		value   float64
		wantErr bool
	}{
		{MetricSteps, 0, false},
		{MetricSteps, 8547, false},
		{MetricSteps, 10.5, true},
		{MetricWater, -1, true},
		{MetricSleep, 7.5, false},
		{MetricWeight, 72.3, false},
		{MetricCalories, math.NaN(), true},
		{MetricActiveMinutes, math.Inf(1), true},
	}

	for _, tt := range tests {
		err := tt.field.ValidateValue(tt.value)
		if tt.wantErr && !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s(%v): error = %v, want ErrInvalidInput", tt.field, tt.value, err)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("%s(%v): unexpected error %v", tt.field, tt.value, err)
		}
	}
}

func TestParseMetricField(t *testing.T) {
	f, err := ParseMetricField("active_minutes")
	if err != nil || f != MetricActiveMinutes {
		t.Fatalf("ParseMetricField() = %q, %v", f, err)
	}
	if _, err := ParseMetricField("heart_rate"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown field error = %v, want ErrInvalidInput", err)
	}
}

func TestSplitPath(t *testing.T) {
	parent, id, err := SplitPath("users/u1/activity/2024-03-04")
	if err != nil || parent != "users/u1/activity" || id != "2024-03-04" {
		t.Errorf("SplitPath() = %q, %q, %v", parent, id, err)
	}
	if _, _, err := SplitPath("users/u1/activity"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("collection path accepted as document: %v", err)
	}
	if err := ValidateCollectionPath("users//activity"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty segment accepted: %v", err)
	}
}
