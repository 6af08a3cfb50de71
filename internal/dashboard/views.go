package dashboard

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/loader"
	"alcyxob/fitness-dashboard/internal/metrics"
	"strconv"
)

// ConfigNotice is returned instead of any page when the gateway is not
// configured.
type ConfigNotice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func NewConfigNotice() ConfigNotice {
	return ConfigNotice{
		Title:   "Supabase config required",
		Message: "Add `NEXT_PUBLIC_SUPABASE_URL` and `NEXT_PUBLIC_SUPABASE_ANON_KEY` to `.env.local`, then sign in on the login page.",
	}
}

type StatCard struct {
	Title  string `json:"title"`
	Value  string `json:"value"`
	Helper string `json:"helper"`
}

// Section is one table on a page. Message is set instead of rows while
// loading, on error, or when there is nothing to show.
type Section[T any] struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Rows    []T    `json:"rows"`
}

func newSection[S, T any](st loader.State[S], noun string, build func(S) T) Section[T] {
	sec := Section[T]{Loading: st.Loading, Error: st.Error, Rows: []T{}}
	switch {
	case st.Error != "":
		sec.Message = st.Error
	case st.Loading:
		sec.Message = "Loading " + noun + "..."
	case len(st.Data) == 0:
		sec.Message = emptyMessage(noun)
	default:
		for _, row := range st.Data {
			sec.Rows = append(sec.Rows, build(row))
		}
	}
	return sec
}

func emptyMessage(noun string) string {
	if noun == "profiles" {
		return "No profiles found yet."
	}
	return "No " + noun + " logged yet."
}

type ProfileRow struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Handle  string `json:"handle"`
	Updated string `json:"updated"`
}

type WorkoutRow struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Label     string `json:"label"`
	Duration  string `json:"duration"`
	Exercises int    `json:"exercises"`
	Volume    string `json:"volume"`
}

type ExerciseRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Workout  string `json:"workout"`
	SetsReps string `json:"setsReps"`
	Load     string `json:"load"`
}

// DataChecks shows how many rows each loader holds.
type DataChecks struct {
	Profiles  string `json:"profiles"`
	Workouts  string `json:"workouts"`
	Exercises string `json:"exercises"`
}

type DashboardView struct {
	Cards       []StatCard           `json:"cards"`
	Profiles    Section[ProfileRow]  `json:"profiles"`
	Workouts    Section[WorkoutRow]  `json:"workouts"`
	Exercises   Section[ExerciseRow] `json:"exercises"`
	VolumeByDay []metrics.DayVolume  `json:"volumeByDay"`
	Checks      DataChecks           `json:"checks"`
	Settings    domain.UserSettings  `json:"settings"`
}

// BuildDashboard composes the dashboard page from the three loader states
// and the user's settings.
func BuildDashboard(
	profiles loader.State[domain.Profile],
	workouts loader.State[domain.Workout],
	exercises loader.State[domain.WorkoutExercise],
	settings domain.UserSettings,
) DashboardView {
	groups := metrics.GroupByWorkout(exercises.Data)
	byID := indexWorkouts(workouts.Data)

	v := DashboardView{Settings: settings}
	v.Cards = []StatCard{
		countCard("Total workouts", workouts.Loading, len(workouts.Data), workouts.Error, "Sessions logged in the platform."),
		countCard("Exercises logged", exercises.Loading, len(exercises.Data), exercises.Error, "Distinct exercise entries."),
		volumeCard(exercises),
		goalCard(len(workouts.Data), settings.WeeklyWorkoutGoal),
	}

	v.Profiles = newSection(profiles, "profiles", func(p domain.Profile) ProfileRow {
		return ProfileRow{
			ID:      p.ID,
			Name:    orDefault(p.FullName, "Unnamed"),
			Handle:  orDefault(p.Username, Placeholder),
			Updated: FormatDate(p.UpdatedAt),
		}
	})

	v.Workouts = newSection(workouts, "workouts", func(w domain.Workout) WorkoutRow {
		group := groups[w.ID]
		date, _ := w.DisplayDate()
		row := WorkoutRow{
			ID:        w.ID,
			Date:      FormatDate(nilIfEmpty(date)),
			Label:     firstOf(Placeholder, w.Title, w.Focus),
			Duration:  FormatDuration(w.DurationMinutes),
			Exercises: len(group),
			Volume:    Placeholder,
		}
		if len(group) > 0 {
			row.Volume = FormatNumber(metrics.TotalVolume(group))
		}
		return row
	})

	v.Exercises = newSection(exercises, "exercises", func(e domain.WorkoutExercise) ExerciseRow {
		label := Placeholder
		if e.WorkoutID != nil {
			if w, ok := byID[*e.WorkoutID]; ok {
				label = w.Label(Placeholder)
			}
		}
		return exerciseRow(e, label)
	})

	v.VolumeByDay = metrics.VolumeByDay(workouts.Data, exercises.Data)
	v.Checks = DataChecks{
		Profiles:  loadedCount(profiles.Loading, len(profiles.Data)),
		Workouts:  loadedCount(workouts.Loading, len(workouts.Data)),
		Exercises: loadedCount(exercises.Loading, len(exercises.Data)),
	}
	return v
}

type WorkoutsView struct {
	Workouts  Section[WorkoutRow]      `json:"workouts"`
	Exercises Section[ExerciseRow]     `json:"exercises"`
	Summaries []metrics.WorkoutSummary `json:"summaries"`
}

// BuildWorkoutsPage composes the workouts page. Unlike the dashboard, a
// workout whose exercises add up to zero shows the placeholder volume, and
// exercise rows fall back to "Workout" for unlabeled workouts.
func BuildWorkoutsPage(workouts loader.State[domain.Workout], exercises loader.State[domain.WorkoutExercise]) WorkoutsView {
	summaries := metrics.SummarizeWorkouts(workouts.Data, exercises.Data)
	byID := indexWorkouts(workouts.Data)
	bySummary := make(map[string]metrics.WorkoutSummary, len(summaries))
	for _, s := range summaries {
		bySummary[s.Workout.ID] = s
	}

	v := WorkoutsView{Summaries: summaries}
	v.Workouts = newSection(workouts, "workouts", func(w domain.Workout) WorkoutRow {
		s := bySummary[w.ID]
		date, _ := w.DisplayDate()
		row := WorkoutRow{
			ID:        w.ID,
			Date:      FormatDate(nilIfEmpty(date)),
			Label:     firstOf(Placeholder, w.Title, w.Focus),
			Duration:  FormatDuration(w.DurationMinutes),
			Exercises: s.ExerciseCount,
			Volume:    Placeholder,
		}
		if s.Volume != 0 {
			row.Volume = FormatNumber(s.Volume)
		}
		return row
	})
	v.Exercises = newSection(exercises, "exercises", func(e domain.WorkoutExercise) ExerciseRow {
		label := Placeholder
		if e.WorkoutID != nil {
			if w, ok := byID[*e.WorkoutID]; ok {
				label = w.Label("Workout")
			}
		}
		return exerciseRow(e, label)
	})
	return v
}

func exerciseRow(e domain.WorkoutExercise, workoutLabel string) ExerciseRow {
	return ExerciseRow{
		ID:       e.ID,
		Name:     orDefault(e.Name, "Unnamed"),
		Workout:  workoutLabel,
		SetsReps: strconv.Itoa(intOrZero(e.Sets)) + " x " + strconv.Itoa(intOrZero(e.Reps)),
		Load:     FormatLoad(e.Weight),
	}
}

func countCard(title string, loading bool, n int, errMsg, helper string) StatCard {
	c := StatCard{Title: title, Value: Placeholder, Helper: helper}
	if !loading {
		c.Value = FormatCount(n)
	}
	if errMsg != "" {
		c.Helper = errMsg
	}
	return c
}

func volumeCard(exercises loader.State[domain.WorkoutExercise]) StatCard {
	c := StatCard{Title: "Total volume", Value: Placeholder, Helper: "Calculated from sets x reps x load."}
	if !exercises.Loading {
		c.Value = FormatNumber(metrics.TotalVolume(exercises.Data))
	}
	if exercises.Error != "" {
		c.Helper = exercises.Error
	}
	return c
}

func goalCard(workouts int, goal *float64) StatCard {
	c := StatCard{Title: "Weekly goal", Value: "Set in settings", Helper: "Progress vs your configured weekly goal."}
	if pct, ok := metrics.GoalProgress(float64(workouts), goal); ok {
		c.Value = FormatNumber(pct) + "%"
	}
	return c
}

func loadedCount(loading bool, n int) string {
	if loading {
		return Pending
	}
	return strconv.Itoa(n)
}

func indexWorkouts(workouts []domain.Workout) map[string]domain.Workout {
	m := make(map[string]domain.Workout, len(workouts))
	for _, w := range workouts {
		m[w.ID] = w
	}
	return m
}

func firstOf(fallback string, values ...*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return fallback
}

func orDefault(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
