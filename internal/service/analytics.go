package service

import (
	"sort"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
)

// DefaultFrequencyWindowDays is the trailing window used by WeeklyFrequency.
const DefaultFrequencyWindowDays = 7

// PersonalRecords derives per-exercise bests from finalized sessions. Only
// completed sets with both weight and reps count. Sessions are read in start
// order, so a tie keeps the earlier date.
func PersonalRecords(records []*domain.SessionRecord) []domain.PersonalRecord {
	byName := make(map[string]*domain.PersonalRecord)

	for _, rec := range sortedByStart(records) {
		for _, point := range sessionPoints(rec) {
			pr, ok := byName[point.name]
			if !ok {
				pr = &domain.PersonalRecord{ExerciseName: point.name, History: []domain.PRPoint{}}
				byName[point.name] = pr
			}

			if point.MaxWeight > pr.MaxWeight {
				pr.MaxWeight = point.MaxWeight
				pr.MaxWeightDate = point.Date
			}
			if point.Volume > pr.MaxVolume {
				pr.MaxVolume = point.Volume
				pr.MaxVolumeDate = point.Date
			}
			if point.MaxReps > pr.MaxReps {
				pr.MaxReps = point.MaxReps
				pr.MaxRepsDate = point.Date
			}
			pr.LifetimeVolume += point.Volume
			pr.TotalSessions++
			pr.History = append(pr.History, point.PRPoint)
			pr.LastPerformedAt = point.Date
		}
	}

	out := make([]domain.PersonalRecord, 0, len(byName))
	for _, pr := range byName {
		out = append(out, *pr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MaxWeight != out[j].MaxWeight {
			return out[i].MaxWeight > out[j].MaxWeight
		}
		return out[i].ExerciseName < out[j].ExerciseName
	})
	return out
}

type namedPoint struct {
	domain.PRPoint
	name string
}

// sessionPoints collapses one session into a point per exercise name, in
// first-appearance order.
func sessionPoints(rec *domain.SessionRecord) []namedPoint {
	var points []namedPoint
	index := make(map[string]int)

	for _, ex := range rec.Exercises {
		for _, set := range ex.Sets {
			if !set.Completed || set.Reps == nil || set.Weight == nil {
				continue
			}
			i, ok := index[ex.ExerciseName]
			if !ok {
				i = len(points)
				index[ex.ExerciseName] = i
				points = append(points, namedPoint{
					name:    ex.ExerciseName,
					PRPoint: domain.PRPoint{Date: rec.StartTime, SessionID: rec.ID},
				})
			}
			p := &points[i]
			if *set.Weight > p.MaxWeight {
				p.MaxWeight = *set.Weight
			}
			if *set.Reps > p.MaxReps {
				p.MaxReps = *set.Reps
			}
			p.Volume += set.Volume()
		}
	}
	return points
}

// WeeklyFrequency counts sessions per calendar day over the windowDays days
// ending on today, oldest first. Days without sessions are included.
func WeeklyFrequency(records []*domain.SessionRecord, today time.Time, windowDays int) []domain.FrequencyBucket {
	if windowDays <= 0 {
		windowDays = DefaultFrequencyWindowDays
	}

	first := startOfDay(today).AddDate(0, 0, -(windowDays - 1))
	buckets := make([]domain.FrequencyBucket, windowDays)
	index := make(map[string]int, windowDays)
	for i := range buckets {
		day := first.AddDate(0, 0, i)
		key := domain.DateKey(day)
		buckets[i] = domain.FrequencyBucket{Date: key, Weekday: day.Format("Mon")}
		index[key] = i
	}

	for _, rec := range records {
		if rec == nil {
			continue
		}
		if i, ok := index[domain.DateKey(rec.StartTime.In(today.Location()))]; ok {
			buckets[i].Count++
		}
	}
	return buckets
}

// Summary totals every session.
func Summary(records []*domain.SessionRecord) domain.ProgressSummary {
	var s domain.ProgressSummary
	for _, rec := range records {
		if rec == nil {
			continue
		}
		s.TotalWorkouts++
		s.TotalVolume += rec.TotalVolume
		s.TotalDurationMinutes += rec.DurationMinutes
		s.TotalSets += rec.TotalSets
		s.TotalReps += rec.TotalReps
	}
	return s
}

func sortedByStart(records []*domain.SessionRecord) []*domain.SessionRecord {
	out := make([]*domain.SessionRecord, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}
