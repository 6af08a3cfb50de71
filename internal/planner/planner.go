// Package planner is the weekly planner: per-day workout entries, body
// weight and notes for Monday to Sunday, with goals and a comparison against
// last week. The whole week is stored as one record in the key-value store.
package planner

import (
	"alcyxob/fitness-dashboard/internal/metrics"
	"alcyxob/fitness-dashboard/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrUnknownDay   = errors.New("unknown day")
	ErrInvalidEntry = errors.New("invalid entry")
)

// WeekDays lists the planner's days in order.
var WeekDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

const (
	DefaultGoalWorkouts      = 6
	DefaultGoalVolume        = 12000
	DefaultLastWeekWorkouts  = 4
	DefaultLastWeekAvgWeight = 170
)

// Entry is one planned exercise.
type Entry struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Sets   int     `json:"sets"`
	Reps   int     `json:"reps"`
}

type Day struct {
	Day        string   `json:"day"`
	BodyWeight *float64 `json:"bodyWeight"`
	Notes      string   `json:"notes"`
	Workouts   []Entry  `json:"workouts"`
}

// Week is the persisted planner record.
type Week struct {
	Days              []Day   `json:"days"`
	GoalWorkouts      float64 `json:"goalWorkouts"`
	GoalVolume        float64 `json:"goalVolume"`
	LastWeekWorkouts  int     `json:"lastWeekWorkouts"`
	LastWeekAvgWeight float64 `json:"lastWeekAvgWeight"`
}

// NewWeek returns an empty week with the default goals.
func NewWeek() Week {
	days := make([]Day, len(WeekDays))
	for i, d := range WeekDays {
		days[i] = Day{Day: d, Workouts: []Entry{}}
	}
	return Week{
		Days:              days,
		GoalWorkouts:      DefaultGoalWorkouts,
		GoalVolume:        DefaultGoalVolume,
		LastWeekWorkouts:  DefaultLastWeekWorkouts,
		LastWeekAvgWeight: DefaultLastWeekAvgWeight,
	}
}

// DayVolume sums weight × sets × reps over the day's entries.
func DayVolume(d Day) float64 {
	var total float64
	for _, e := range d.Workouts {
		total += metrics.Volume(e.Sets, e.Reps, e.Weight)
	}
	return total
}

type DaySummary struct {
	Day        string   `json:"day"`
	Workouts   int      `json:"workouts"`
	Volume     float64  `json:"volume"`
	BodyWeight *float64 `json:"bodyWeight"`
}

type Summary struct {
	TotalWorkouts   int          `json:"totalWorkouts"`
	TotalVolume     float64      `json:"totalVolume"`
	AvgBodyWeight   float64      `json:"avgBodyWeight"`
	WorkoutProgress float64      `json:"workoutProgress"`
	VolumeProgress  float64      `json:"volumeProgress"`
	WorkoutDelta    int          `json:"workoutDelta"`
	WeightDelta     float64      `json:"weightDelta"`
	GoalReached     bool         `json:"goalReached"`
	Days            []DaySummary `json:"days"`
}

// Summarize computes the week's totals. Progress is 0 when the matching goal
// is 0; the average body weight only counts days that have one.
func Summarize(w Week) Summary {
	s := Summary{Days: make([]DaySummary, 0, len(w.Days))}
	var weightSum float64
	var weighed int
	for _, d := range w.Days {
		vol := DayVolume(d)
		s.TotalWorkouts += len(d.Workouts)
		s.TotalVolume += vol
		if d.BodyWeight != nil {
			weightSum += *d.BodyWeight
			weighed++
		}
		s.Days = append(s.Days, DaySummary{Day: d.Day, Workouts: len(d.Workouts), Volume: vol, BodyWeight: d.BodyWeight})
	}
	if weighed > 0 {
		s.AvgBodyWeight = weightSum / float64(weighed)
	}
	s.WorkoutProgress, _ = metrics.ProgressPercent(float64(s.TotalWorkouts), w.GoalWorkouts)
	s.VolumeProgress, _ = metrics.ProgressPercent(s.TotalVolume, w.GoalVolume)
	s.WorkoutDelta = s.TotalWorkouts - w.LastWeekWorkouts
	s.WeightDelta = s.AvgBodyWeight - w.LastWeekAvgWeight
	s.GoalReached = float64(s.TotalWorkouts) >= w.GoalWorkouts
	return s
}

// DayIndex resolves a day name (case-insensitive) to its position.
func DayIndex(name string) (int, error) {
	for i, d := range WeekDays {
		if strings.EqualFold(d, strings.TrimSpace(name)) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownDay, name)
}

// Planner owns the week record.
type Planner struct {
	kv storage.Store

	mu   sync.Mutex
	week Week
}

func New(kv storage.Store) *Planner {
	return &Planner{kv: kv, week: NewWeek()}
}

// Load reads the stored week; a missing or unreadable record leaves a fresh
// week in place.
func (p *Planner) Load(ctx context.Context) error {
	if p.kv == nil {
		return nil
	}
	raw, ok, err := p.kv.Get(ctx, storage.KeyWeekPlan)
	if err != nil {
		return fmt.Errorf("read week plan: %w", err)
	}
	week := NewWeek()
	if ok {
		var stored Week
		if json.Unmarshal([]byte(raw), &stored) == nil && len(stored.Days) == len(WeekDays) {
			week = stored
			for i := range week.Days {
				if week.Days[i].Workouts == nil {
					week.Days[i].Workouts = []Entry{}
				}
			}
		}
	}
	p.mu.Lock()
	p.week = week
	p.mu.Unlock()
	return nil
}

// Week returns a deep copy of the current week.
func (p *Planner) Week() Week {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneWeek(p.week)
}

func cloneWeek(w Week) Week {
	out := w
	out.Days = make([]Day, len(w.Days))
	for i, d := range w.Days {
		d.Workouts = append([]Entry{}, d.Workouts...)
		out.Days[i] = d
	}
	return out
}

// update applies fn to a copy of the week and persists the result. The
// in-memory week only changes once the write succeeded.
func (p *Planner) update(ctx context.Context, fn func(w *Week) error) (Week, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := cloneWeek(p.week)
	if err := fn(&next); err != nil {
		return cloneWeek(p.week), err
	}
	if p.kv != nil {
		raw, err := json.Marshal(next)
		if err != nil {
			return cloneWeek(p.week), err
		}
		if err := p.kv.Set(ctx, storage.KeyWeekPlan, string(raw)); err != nil {
			return cloneWeek(p.week), fmt.Errorf("write week plan: %w", err)
		}
	}
	p.week = next
	return cloneWeek(next), nil
}

// AddEntry appends e to day, assigning it a fresh id.
func (p *Planner) AddEntry(ctx context.Context, day string, e Entry) (Entry, error) {
	idx, err := DayIndex(day)
	if err != nil {
		return Entry{}, err
	}
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return Entry{}, fmt.Errorf("%w: name is required", ErrInvalidEntry)
	}
	if e.Sets < 0 || e.Reps < 0 || e.Weight < 0 {
		return Entry{}, fmt.Errorf("%w: numbers cannot be negative", ErrInvalidEntry)
	}
	e.ID = uuid.NewString()
	_, err = p.update(ctx, func(w *Week) error {
		w.Days[idx].Workouts = append(w.Days[idx].Workouts, e)
		return nil
	})
	return e, err
}

// RemoveEntry deletes the entry with id from day. Unknown ids are ignored.
func (p *Planner) RemoveEntry(ctx context.Context, day, id string) (Week, error) {
	idx, err := DayIndex(day)
	if err != nil {
		return Week{}, err
	}
	return p.update(ctx, func(w *Week) error {
		kept := w.Days[idx].Workouts[:0]
		for _, e := range w.Days[idx].Workouts {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		w.Days[idx].Workouts = kept
		return nil
	})
}

// SetBodyWeight records (or with nil clears) the day's body weight.
func (p *Planner) SetBodyWeight(ctx context.Context, day string, weight *float64) (Week, error) {
	idx, err := DayIndex(day)
	if err != nil {
		return Week{}, err
	}
	return p.update(ctx, func(w *Week) error {
		w.Days[idx].BodyWeight = weight
		return nil
	})
}

func (p *Planner) SetNotes(ctx context.Context, day, notes string) (Week, error) {
	idx, err := DayIndex(day)
	if err != nil {
		return Week{}, err
	}
	return p.update(ctx, func(w *Week) error {
		w.Days[idx].Notes = notes
		return nil
	})
}

// Targets holds the goal and baseline fields; nil fields are unchanged.
type Targets struct {
	GoalWorkouts      *float64 `json:"goalWorkouts,omitempty"`
	GoalVolume        *float64 `json:"goalVolume,omitempty"`
	LastWeekWorkouts  *int     `json:"lastWeekWorkouts,omitempty"`
	LastWeekAvgWeight *float64 `json:"lastWeekAvgWeight,omitempty"`
}

func (p *Planner) SetTargets(ctx context.Context, t Targets) (Week, error) {
	return p.update(ctx, func(w *Week) error {
		if t.GoalWorkouts != nil {
			w.GoalWorkouts = *t.GoalWorkouts
		}
		if t.GoalVolume != nil {
			w.GoalVolume = *t.GoalVolume
		}
		if t.LastWeekWorkouts != nil {
			w.LastWeekWorkouts = *t.LastWeekWorkouts
		}
		if t.LastWeekAvgWeight != nil {
			w.LastWeekAvgWeight = *t.LastWeekAvgWeight
		}
		if w.GoalWorkouts < 0 || w.GoalVolume < 0 || w.LastWeekWorkouts < 0 || w.LastWeekAvgWeight < 0 {
			return fmt.Errorf("%w: targets cannot be negative", ErrInvalidEntry)
		}
		return nil
	})
}

// Reset clears the week back to defaults.
func (p *Planner) Reset(ctx context.Context) (Week, error) {
	return p.update(ctx, func(w *Week) error {
		*w = NewWeek()
		return nil
	})
}
