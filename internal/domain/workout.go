package domain

// Table names as exposed by the gateway.
const (
	TableProfiles         = "profiles"
	TableWorkouts         = "workouts"
	TableWorkoutExercises = "workout_exercises"
)

// Workout represents a single logged training session.
// Timestamps are kept as the raw strings returned by the gateway; parsing is a
// display concern.
type Workout struct {
	ID              string  `json:"id,omitempty" db:"id"`
	UserID          *string `json:"user_id,omitempty" db:"user_id"`
	Title           *string `json:"title,omitempty" db:"title"`
	Focus           *string `json:"focus,omitempty" db:"focus"`
	StartedAt       *string `json:"started_at,omitempty" db:"started_at"`
	Date            *string `json:"date,omitempty" db:"date"`
	CreatedAt       *string `json:"created_at,omitempty" db:"created_at"`
	DurationMinutes *int    `json:"duration_minutes,omitempty" db:"duration_minutes"`
}

// DisplayDate returns the first non-nil of started_at, date and created_at.
func (w *Workout) DisplayDate() (string, bool) {
	for _, v := range []*string{w.StartedAt, w.Date, w.CreatedAt} {
		if v != nil {
			return *v, true
		}
	}
	return "", false
}

// Label returns title, focus or created_at (in that order), or fallback when
// none of them is set.
func (w *Workout) Label(fallback string) string {
	for _, v := range []*string{w.Title, w.Focus, w.CreatedAt} {
		if v != nil {
			return *v
		}
	}
	return fallback
}

// WorkoutExercise is one exercise line belonging to a workout.
// Nil numeric fields count as zero when aggregating.
type WorkoutExercise struct {
	ID        string   `json:"id,omitempty" db:"id"`
	WorkoutID *string  `json:"workout_id,omitempty" db:"workout_id"`
	Name      *string  `json:"name,omitempty" db:"name"`
	Sets      *int     `json:"sets,omitempty" db:"sets"`
	Reps      *int     `json:"reps,omitempty" db:"reps"`
	Weight    *float64 `json:"weight,omitempty" db:"weight"`
}

// WorkoutKey returns the referenced workout id, or "" when the exercise is
// not attached to any workout.
func (e *WorkoutExercise) WorkoutKey() string {
	if e.WorkoutID == nil {
		return ""
	}
	return *e.WorkoutID
}
