// Package dashboard wires the session guard, the table loaders and the
// settings store together and composes page models from their state.
package dashboard

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/gateway"
	"alcyxob/fitness-dashboard/internal/loader"
	"alcyxob/fitness-dashboard/internal/session"
	"alcyxob/fitness-dashboard/internal/settings"
	"context"
	"sync"
)

// Workspace is the signed-in view of one gateway: its loaders are enabled
// only while the guard holds a session.
type Workspace struct {
	Guard     *session.Guard
	Settings  *settings.Store
	Profiles  *loader.Loader[domain.Profile]
	Workouts  *loader.Loader[domain.Workout]
	Exercises *loader.Loader[domain.WorkoutExercise]

	// syncMu orders loader updates: each one reads its inputs and applies
	// them while holding it, so the last update always carries the latest
	// guard state.
	syncMu sync.Mutex

	mu          sync.Mutex
	enabled     bool
	refresh     int
	unsubscribe func()
}

// NewWorkspace builds a workspace. gw may be nil when the gateway is not
// configured; the guard then reports HasConfig=false and nothing is fetched.
func NewWorkspace(gw gateway.Gateway, guard *session.Guard, st *settings.Store) *Workspace {
	return &Workspace{
		Guard:     guard,
		Settings:  st,
		Profiles:  loader.New[domain.Profile](gw, domain.TableProfiles),
		Workouts:  loader.New[domain.Workout](gw, domain.TableWorkouts),
		Exercises: loader.New[domain.WorkoutExercise](gw, domain.TableWorkoutExercises),
	}
}

// Start follows the guard and starts it.
func (w *Workspace) Start(ctx context.Context) {
	w.mu.Lock()
	if w.unsubscribe == nil {
		w.unsubscribe = w.Guard.Subscribe(func(session.State) {
			w.followGuard()
		})
	}
	w.mu.Unlock()
	w.Guard.Start(ctx)
	w.followGuard()
}

// followGuard enables the loaders while the guard holds a session. The
// state is read here, not taken from the notification, so a late caller
// cannot apply an older state over a newer one.
func (w *Workspace) followGuard() {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()

	enabled := w.Guard.State().SignedIn()
	w.mu.Lock()
	w.enabled = enabled
	refresh := w.refresh
	w.mu.Unlock()

	w.Profiles.Sync(enabled, 0)
	w.Workouts.Sync(enabled, refresh)
	w.Exercises.Sync(enabled, refresh)
}

// Refresh bumps the refresh token, refetching workouts and exercises.
func (w *Workspace) Refresh() {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()

	w.mu.Lock()
	w.refresh++
	enabled, refresh := w.enabled, w.refresh
	w.mu.Unlock()

	w.Workouts.Sync(enabled, refresh)
	w.Exercises.Sync(enabled, refresh)
}

// RefreshToken returns the current refresh token.
func (w *Workspace) RefreshToken() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.refresh
}

// Wait blocks until the guard has resolved and no loader has a fetch in
// flight.
func (w *Workspace) Wait(ctx context.Context) error {
	if err := w.Guard.Wait(ctx); err != nil {
		return err
	}
	if err := w.Profiles.Wait(ctx); err != nil {
		return err
	}
	if err := w.Workouts.Wait(ctx); err != nil {
		return err
	}
	return w.Exercises.Wait(ctx)
}

// Dashboard returns the dashboard page model.
func (w *Workspace) Dashboard() DashboardView {
	return BuildDashboard(w.Profiles.State(), w.Workouts.State(), w.Exercises.State(), w.Settings.Settings())
}

// WorkoutsPage returns the workouts page model.
func (w *Workspace) WorkoutsPage() WorkoutsView {
	return BuildWorkoutsPage(w.Workouts.State(), w.Exercises.State())
}

// Close stops following the guard and tears everything down.
func (w *Workspace) Close() {
	w.mu.Lock()
	if w.unsubscribe != nil {
		w.unsubscribe()
		w.unsubscribe = nil
	}
	w.mu.Unlock()

	w.Guard.Close()
	w.Profiles.Close()
	w.Workouts.Close()
	w.Exercises.Close()
}
