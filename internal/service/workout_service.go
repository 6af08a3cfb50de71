package service

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/gateway"
	"alcyxob/fitness-dashboard/internal/observability"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// MsgWorkoutSaved is shown after a workout and its exercises were stored.
const MsgWorkoutSaved = "Workout saved."

// ErrValidation matches every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError is a form error shown to the user as is. No gateway call
// is made when one is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string        { return e.Message }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

var (
	errMissingDate      = &ValidationError{Message: "Please choose a workout date."}
	errMissingExercises = &ValidationError{Message: "Add at least one exercise."}
)

// PartialWriteError reports that the workout row was stored but its
// exercises were not. The workout is left in place.
type PartialWriteError struct {
	WorkoutID string
	Err       error
}

func (e *PartialWriteError) Error() string { return e.Err.Error() }
func (e *PartialWriteError) Unwrap() error { return e.Err }

// ExerciseInput is one row of the workout form.
type ExerciseInput struct {
	Name   string   `json:"name"`
	Sets   *int     `json:"sets"`
	Reps   *int     `json:"reps"`
	Weight *float64 `json:"weight"`
}

// CreateWorkoutInput is the workout form.
type CreateWorkoutInput struct {
	Title           string          `json:"title"`
	Focus           string          `json:"focus"`
	Date            string          `json:"date"`
	DurationMinutes *int            `json:"durationMinutes"`
	Exercises       []ExerciseInput `json:"exercises"`
}

type CreateWorkoutResult struct {
	WorkoutID string `json:"workoutId"`
	Exercises int    `json:"exercises"`
	Message   string `json:"message"`
}

// Refresher is told to reload workout data after a write.
type Refresher interface {
	Refresh()
}

type WorkoutService interface {
	CreateWorkout(ctx context.Context, sess *domain.Session, in CreateWorkoutInput) (*CreateWorkoutResult, error)
}

type workoutService struct {
	gw        gateway.Gateway
	refresher Refresher
}

// NewWorkoutService creates a WorkoutService. refresher may be nil.
func NewWorkoutService(gw gateway.Gateway, refresher Refresher) WorkoutService {
	return &workoutService{gw: gw, refresher: refresher}
}

type workoutRecord struct {
	UserID          string  `json:"user_id"`
	Title           *string `json:"title"`
	Focus           *string `json:"focus"`
	Date            string  `json:"date"`
	DurationMinutes *int    `json:"duration_minutes"`
}

type exerciseRecord struct {
	WorkoutID string   `json:"workout_id"`
	Name      string   `json:"name"`
	Sets      *int     `json:"sets"`
	Reps      *int     `json:"reps"`
	Weight    *float64 `json:"weight"`
}

// CreateWorkout inserts the workout, then its exercises. The two inserts are
// not atomic: when the second fails a *PartialWriteError is returned and the
// workout row stays. Data is refreshed after any write that stored a row.
func (s *workoutService) CreateWorkout(ctx context.Context, sess *domain.Session, in CreateWorkoutInput) (*CreateWorkoutResult, error) {
	// 1. Validate the form
	exercises := make([]ExerciseInput, 0, len(in.Exercises))
	for _, e := range in.Exercises {
		if strings.TrimSpace(e.Name) != "" {
			exercises = append(exercises, e)
		}
	}
	if strings.TrimSpace(in.Date) == "" {
		return nil, errMissingDate
	}
	if len(exercises) == 0 {
		return nil, errMissingExercises
	}
	if s.gw == nil {
		return nil, gateway.ErrNotConfigured
	}
	if sess == nil {
		return nil, gateway.ErrNotAuthenticated
	}

	// 2. Insert the workout and read back its id
	record := workoutRecord{
		UserID:          sess.User.ID,
		Title:           trimmedOrNil(in.Title),
		Focus:           trimmedOrNil(in.Focus),
		Date:            strings.TrimSpace(in.Date),
		DurationMinutes: positiveOrNil(in.DurationMinutes),
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := s.gw.Table(domain.TableWorkouts).InsertReturning(ctx, record, "id", &created); err != nil {
		observability.WorkoutsCreated.WithLabelValues("failed").Inc()
		return nil, err
	}
	if created.ID == "" {
		observability.WorkoutsCreated.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to save workout: %w", gateway.ErrEmptyResult)
	}

	// 3. Insert the exercises referencing it
	payload := make([]exerciseRecord, 0, len(exercises))
	for _, e := range exercises {
		payload = append(payload, exerciseRecord{
			WorkoutID: created.ID,
			Name:      strings.TrimSpace(e.Name),
			Sets:      positiveOrNil(e.Sets),
			Reps:      positiveOrNil(e.Reps),
			Weight:    positiveOrNil(e.Weight),
		})
	}
	if err := s.gw.Table(domain.TableWorkoutExercises).Insert(ctx, payload); err != nil {
		observability.WorkoutsCreated.WithLabelValues("partial").Inc()
		slog.ErrorContext(ctx, "Workout stored without its exercises", "workoutID", created.ID, "error", err)
		s.refresh()
		return nil, &PartialWriteError{WorkoutID: created.ID, Err: err}
	}

	observability.WorkoutsCreated.WithLabelValues("ok").Inc()
	s.refresh()
	return &CreateWorkoutResult{WorkoutID: created.ID, Exercises: len(payload), Message: MsgWorkoutSaved}, nil
}

func (s *workoutService) refresh() {
	if s.refresher != nil {
		s.refresher.Refresh()
	}
}

func trimmedOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// positiveOrNil mirrors the form: an empty or zero number field is sent as null.
func positiveOrNil[T int | float64](v *T) *T {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}
