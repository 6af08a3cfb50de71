// Package metrics derives training volume and goal progress from raw rows.
// Every function is pure; absent numeric fields count as zero.
package metrics

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"sort"
	"time"
)

// Volume is sets × reps × weight.
func Volume(sets, reps int, weight float64) float64 {
	return float64(sets) * float64(reps) * weight
}

// ExerciseVolume is the volume of one exercise line.
func ExerciseVolume(e domain.WorkoutExercise) float64 {
	return Volume(intOrZero(e.Sets), intOrZero(e.Reps), floatOrZero(e.Weight))
}

// WorkoutVolume sums the exercises whose workout_id matches w.
func WorkoutVolume(w domain.Workout, exercises []domain.WorkoutExercise) float64 {
	var total float64
	for _, e := range exercises {
		if e.WorkoutID != nil && *e.WorkoutID == w.ID {
			total += ExerciseVolume(e)
		}
	}
	return total
}

// TotalVolume sums every exercise, attached to a workout or not.
func TotalVolume(exercises []domain.WorkoutExercise) float64 {
	var total float64
	for _, e := range exercises {
		total += ExerciseVolume(e)
	}
	return total
}

// ProgressPercent returns achieved/goal as a percentage capped at 100.
// ok is false when no goal is configured (goal <= 0), which callers must show
// differently from 0%.
func ProgressPercent(achieved, goal float64) (pct float64, ok bool) {
	if !(goal > 0) {
		return 0, false
	}
	pct = achieved / goal * 100
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct, true
}

// GoalProgress is ProgressPercent for an optional goal.
func GoalProgress(achieved float64, goal *float64) (float64, bool) {
	if goal == nil {
		return 0, false
	}
	return ProgressPercent(achieved, *goal)
}

// GroupByWorkout maps workout id to its exercises. Exercises without a
// workout id are kept under "".
func GroupByWorkout(exercises []domain.WorkoutExercise) map[string][]domain.WorkoutExercise {
	groups := make(map[string][]domain.WorkoutExercise)
	for _, e := range exercises {
		key := e.WorkoutKey()
		groups[key] = append(groups[key], e)
	}
	return groups
}

// WorkoutSummary is the aggregate of one workout.
type WorkoutSummary struct {
	Workout       domain.Workout `json:"workout"`
	ExerciseCount int            `json:"exerciseCount"`
	Volume        float64        `json:"volume"`
	// NoData is set when the workout has no exercises at all, as opposed to
	// exercises that add up to zero volume.
	NoData bool `json:"noData"`
}

// SummarizeWorkouts returns one summary per workout, in input order.
func SummarizeWorkouts(workouts []domain.Workout, exercises []domain.WorkoutExercise) []WorkoutSummary {
	groups := GroupByWorkout(exercises)
	out := make([]WorkoutSummary, 0, len(workouts))
	for _, w := range workouts {
		group := groups[w.ID]
		out = append(out, WorkoutSummary{
			Workout:       w,
			ExerciseCount: len(group),
			Volume:        TotalVolume(group),
			NoData:        len(group) == 0,
		})
	}
	return out
}

// DayVolume is the volume logged on one calendar day.
type DayVolume struct {
	Day      string  `json:"day"` // YYYY-MM-DD
	Workouts int     `json:"workouts"`
	Volume   float64 `json:"volume"`
}

// VolumeByDay buckets workouts by the day of their display date and sums the
// volume of their exercises. Workouts without a parseable date are skipped.
// Days are returned in ascending order.
func VolumeByDay(workouts []domain.Workout, exercises []domain.WorkoutExercise) []DayVolume {
	groups := GroupByWorkout(exercises)
	byDay := make(map[string]*DayVolume)
	for _, w := range workouts {
		raw, ok := w.DisplayDate()
		if !ok {
			continue
		}
		t, ok := ParseTimestamp(raw)
		if !ok {
			continue
		}
		day := t.Format(time.DateOnly)
		d, ok := byDay[day]
		if !ok {
			d = &DayVolume{Day: day}
			byDay[day] = d
		}
		d.Workouts++
		d.Volume += TotalVolume(groups[w.ID])
	}

	out := make([]DayVolume, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseTimestamp accepts the timestamp and date formats the gateway returns.
// Date-only values are taken as UTC midnight.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
