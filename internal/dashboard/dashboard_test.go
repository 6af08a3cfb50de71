package dashboard

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/gateway"
	"alcyxob/fitness-dashboard/internal/gateway/gatewaytest"
	"alcyxob/fitness-dashboard/internal/loader"
	"alcyxob/fitness-dashboard/internal/session"
	"alcyxob/fitness-dashboard/internal/settings"
	"alcyxob/fitness-dashboard/internal/storage"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string     { return &s }
func intp(i int) *int           { return &i }
func floatp(f float64) *float64 { return &f }

func loaded[T any](rows ...T) loader.State[T] {
	if rows == nil {
		rows = []T{}
	}
	return loader.State[T]{Data: rows}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "4,700", FormatNumber(4700))
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "1,234.6", FormatNumber(1234.56))
	assert.Equal(t, "66.7", FormatNumber(200.0/3))
	assert.Equal(t, "12,000", FormatCount(12000))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, Placeholder, FormatDate(nil))
	assert.Equal(t, Placeholder, FormatDate(strp("")))
	assert.Equal(t, Placeholder, FormatDate(strp("someday")))
	assert.Equal(t, "1/8/2024", FormatDate(strp("2024-01-08")))
	assert.Equal(t, "12/31/2023", FormatDate(strp("2023-12-31T23:10:00Z")))
}

func TestSmallFormatters(t *testing.T) {
	assert.Equal(t, Placeholder, FormatLoad(nil))
	assert.Equal(t, Placeholder, FormatLoad(floatp(0)))
	assert.Equal(t, "102.5", FormatLoad(floatp(102.5)))
	assert.Equal(t, "45 min", FormatDuration(intp(45)))
	assert.Equal(t, Placeholder, FormatDuration(nil))
	assert.Equal(t, "Monday", DayLabel("2024-01-08"))
	assert.Equal(t, "", DayLabel("2024-13-01"))
}

func TestEmptyDashboard(t *testing.T) {
	v := BuildDashboard(loaded[domain.Profile](), loaded[domain.Workout](), loaded[domain.WorkoutExercise](), domain.DefaultSettings())

	require.Len(t, v.Cards, 4)
	assert.Equal(t, "0", v.Cards[0].Value)
	assert.Equal(t, "0", v.Cards[1].Value)
	assert.Equal(t, "0", v.Cards[2].Value)
	assert.Equal(t, "Set in settings", v.Cards[3].Value)

	assert.Equal(t, "No profiles found yet.", v.Profiles.Message)
	assert.Equal(t, "No workouts logged yet.", v.Workouts.Message)
	assert.Equal(t, "No exercises logged yet.", v.Exercises.Message)
	assert.Empty(t, v.Workouts.Rows)
	assert.Equal(t, DataChecks{Profiles: "0", Workouts: "0", Exercises: "0"}, v.Checks)
}

func TestLoadingAndErrorStates(t *testing.T) {
	profiles := loader.State[domain.Profile]{Data: []domain.Profile{}, Loading: true}
	workouts := loader.State[domain.Workout]{Data: []domain.Workout{}, Error: "permission denied"}
	v := BuildDashboard(profiles, workouts, loader.State[domain.WorkoutExercise]{Loading: true}, domain.DefaultSettings())

	assert.Equal(t, "Loading profiles...", v.Profiles.Message)
	assert.Equal(t, "permission denied", v.Workouts.Message)
	assert.Equal(t, "permission denied", v.Cards[0].Helper)
	assert.Equal(t, Placeholder, v.Cards[1].Value)
	assert.Equal(t, Placeholder, v.Cards[2].Value)
	assert.Equal(t, Pending, v.Checks.Profiles)
}

func TestSingleWorkoutDashboard(t *testing.T) {
	workouts := loaded(domain.Workout{ID: "w1", Title: strp("Leg Day"), Date: strp("2024-01-08")})
	exercises := loaded(
		domain.WorkoutExercise{ID: "e1", WorkoutID: strp("w1"), Name: strp("Squat"), Sets: intp(4), Reps: intp(8), Weight: floatp(100)},
		domain.WorkoutExercise{ID: "e2", WorkoutID: strp("w1"), Name: strp("Lunge"), Sets: intp(3), Reps: intp(10), Weight: floatp(50)},
	)
	st := domain.DefaultSettings()
	st.WeeklyWorkoutGoal = floatp(4)

	v := BuildDashboard(loaded[domain.Profile](), workouts, exercises, st)
	assert.Equal(t, "4,700", v.Cards[2].Value)
	assert.Equal(t, "25%", v.Cards[3].Value)

	require.Len(t, v.Workouts.Rows, 1)
	row := v.Workouts.Rows[0]
	assert.Equal(t, "1/8/2024", row.Date)
	assert.Equal(t, "Leg Day", row.Label)
	assert.Equal(t, "4,700", row.Volume)
	assert.Equal(t, 2, row.Exercises)

	require.Len(t, v.Exercises.Rows, 2)
	assert.Equal(t, "Leg Day", v.Exercises.Rows[0].Workout)
	assert.Equal(t, "4 x 8", v.Exercises.Rows[0].SetsReps)
	assert.Equal(t, "100", v.Exercises.Rows[0].Load)

	require.Len(t, v.VolumeByDay, 1)
	assert.Equal(t, 4700.0, v.VolumeByDay[0].Volume)
}

func TestOrphanExercise(t *testing.T) {
	workouts := loaded(domain.Workout{ID: "w1", Focus: strp("Pull")})
	exercises := loaded(
		domain.WorkoutExercise{ID: "e1", WorkoutID: strp("w1"), Sets: intp(1), Reps: intp(10), Weight: floatp(10)},
		domain.WorkoutExercise{ID: "e2", WorkoutID: strp("missing"), Sets: intp(2), Reps: intp(5), Weight: floatp(20)},
		domain.WorkoutExercise{ID: "e3"},
	)

	v := BuildDashboard(loaded[domain.Profile](), workouts, exercises, domain.DefaultSettings())
	assert.Equal(t, "300", v.Cards[2].Value)
	assert.Equal(t, "Pull", v.Exercises.Rows[0].Workout)
	assert.Equal(t, Placeholder, v.Exercises.Rows[1].Workout)
	assert.Equal(t, Placeholder, v.Exercises.Rows[2].Workout)
	assert.Equal(t, "Unnamed", v.Exercises.Rows[2].Name)
	assert.Equal(t, "0 x 0", v.Exercises.Rows[2].SetsReps)
}

func TestWorkoutWithoutExercisesShowsPlaceholderVolume(t *testing.T) {
	workouts := loaded(domain.Workout{ID: "w1", CreatedAt: strp("2024-02-01T09:00:00Z")})
	v := BuildDashboard(loaded[domain.Profile](), workouts, loaded[domain.WorkoutExercise](), domain.DefaultSettings())
	assert.Equal(t, Placeholder, v.Workouts.Rows[0].Volume)
	assert.Equal(t, Placeholder, v.Workouts.Rows[0].Label)
	assert.Equal(t, "2/1/2024", v.Workouts.Rows[0].Date)
}

func TestProfilesRows(t *testing.T) {
	profiles := loaded(domain.Profile{ID: "p1"}, domain.Profile{ID: "p2", FullName: strp("Kim"), Username: strp("kim"), UpdatedAt: strp("2024-03-04T00:00:00Z")})
	v := BuildDashboard(profiles, loaded[domain.Workout](), loaded[domain.WorkoutExercise](), domain.DefaultSettings())
	assert.Equal(t, ProfileRow{ID: "p1", Name: "Unnamed", Handle: Placeholder, Updated: Placeholder}, v.Profiles.Rows[0])
	assert.Equal(t, ProfileRow{ID: "p2", Name: "Kim", Handle: "kim", Updated: "3/4/2024"}, v.Profiles.Rows[1])
}

func TestWorkoutsPage(t *testing.T) {
	workouts := loaded(
		domain.Workout{ID: "w1", CreatedAt: strp("2024-01-01T00:00:00Z")},
		domain.Workout{ID: "w2"},
	)
	exercises := loaded(
		domain.WorkoutExercise{ID: "e1", WorkoutID: strp("w1"), Sets: intp(0), Reps: intp(5), Weight: floatp(10)},
		domain.WorkoutExercise{ID: "e2", WorkoutID: strp("w2")},
	)
	v := BuildWorkoutsPage(workouts, exercises)

	assert.Equal(t, Placeholder, v.Workouts.Rows[0].Volume)
	assert.Equal(t, 1, v.Workouts.Rows[0].Exercises)
	assert.Equal(t, "2024-01-01T00:00:00Z", v.Exercises.Rows[0].Workout)
	assert.Equal(t, "Workout", v.Exercises.Rows[1].Workout)
	require.Len(t, v.Summaries, 2)
}

func TestConfigNotice(t *testing.T) {
	n := NewConfigNotice()
	assert.Equal(t, "Supabase config required", n.Title)
	assert.Contains(t, n.Message, ".env.local")
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestWorkspaceLoadsOnlyWhileSignedIn(t *testing.T) {
	gw := gatewaytest.New()
	_, err := gw.Store.Insert(context.Background(), domain.TableWorkouts, []map[string]any{{"id": "w1", "title": "Push"}})
	require.NoError(t, err)

	guard := session.NewGuard(gw)
	ws := NewWorkspace(gw, guard, settings.New(storage.NewMemoryStore()))
	defer ws.Close()
	ws.Start(context.Background())
	require.NoError(t, ws.Wait(waitCtx(t)))

	assert.False(t, guard.State().SignedIn())
	assert.Equal(t, 0, gw.Hooks(domain.TableWorkouts).Selects())
	assert.True(t, ws.Workouts.State().Loading)

	gw.FakeAuth.Emit(gateway.EventSignedIn, gatewaytest.NewSession("u1", "a@example.com"))
	require.NoError(t, ws.Wait(waitCtx(t)))
	assert.Equal(t, 1, gw.Hooks(domain.TableWorkouts).Selects())
	assert.Len(t, ws.Workouts.State().Data, 1)

	_, err = gw.Store.Insert(context.Background(), domain.TableWorkouts, []map[string]any{{"id": "w2", "title": "Pull"}})
	require.NoError(t, err)
	ws.Refresh()
	require.NoError(t, ws.Wait(waitCtx(t)))
	assert.Equal(t, 1, ws.RefreshToken())
	assert.Len(t, ws.Workouts.State().Data, 2)
	assert.Equal(t, 1, gw.Hooks(domain.TableProfiles).Selects(), "profiles ignore the refresh token")

	view := ws.Dashboard()
	assert.Equal(t, "2", view.Cards[0].Value)
}

func TestWorkspaceFollowsLatestSessionState(t *testing.T) {
	ctx := context.Background()
	gw := gatewaytest.New()
	_, err := gw.Store.Insert(ctx, domain.TableWorkouts, []map[string]any{{"id": "w1", "title": "Push"}})
	require.NoError(t, err)

	guard := session.NewGuard(gw)
	ws := NewWorkspace(gw, guard, settings.New(storage.NewMemoryStore()))
	defer ws.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ws.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			gw.FakeAuth.Emit(gateway.EventSignedIn, gatewaytest.NewSession("u1", "a@example.com"))
			gw.FakeAuth.Emit(gateway.EventSignedOut, nil)
		}
	}()
	wg.Wait()

	gw.FakeAuth.Emit(gateway.EventSignedIn, gatewaytest.NewSession("u1", "a@example.com"))
	require.NoError(t, ws.Wait(waitCtx(t)))
	require.True(t, guard.State().SignedIn())

	_, err = gw.Store.Insert(ctx, domain.TableWorkouts, []map[string]any{{"id": "w2", "title": "Pull"}})
	require.NoError(t, err)
	ws.Refresh()
	require.NoError(t, ws.Wait(waitCtx(t)))
	assert.Len(t, ws.Workouts.State().Data, 2)

	gw.FakeAuth.Emit(gateway.EventSignedOut, nil)
	require.NoError(t, ws.Wait(waitCtx(t)))
	selects := gw.Hooks(domain.TableWorkouts).Selects()
	ws.Refresh()
	require.NoError(t, ws.Wait(waitCtx(t)))
	assert.Equal(t, selects, gw.Hooks(domain.TableWorkouts).Selects(), "signed out workspace does not fetch")
}

func TestWorkspaceWithoutGateway(t *testing.T) {
	guard := session.NewGuard(nil)
	ws := NewWorkspace(nil, guard, settings.New(nil))
	defer ws.Close()
	ws.Start(context.Background())
	require.NoError(t, ws.Wait(waitCtx(t)))

	assert.False(t, guard.State().HasConfig)
	ws.Refresh()
	assert.True(t, ws.Workouts.State().Loading)
}
