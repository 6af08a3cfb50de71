package api

import (
	"alcyxob/fitness-dashboard/internal/dashboard"
	"alcyxob/fitness-dashboard/internal/gateway"
	"alcyxob/fitness-dashboard/internal/service"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the pages backed by gateway data. All its routes
// run behind GuardMiddleware.
type DashboardHandler struct {
	workspace      *dashboard.Workspace
	workoutService service.WorkoutService
}

func NewDashboardHandler(ws *dashboard.Workspace, workoutService service.WorkoutService) *DashboardHandler {
	return &DashboardHandler{workspace: ws, workoutService: workoutService}
}

// PartialWriteResponse is returned when a workout was stored without its
// exercises.
type PartialWriteResponse struct {
	Error     string `json:"error"`
	WorkoutID string `json:"workoutId"`
}

// settle waits for in-flight fetches unless the caller asked for the current
// snapshot with ?wait=false. A cancelled wait still renders what is there.
func (h *DashboardHandler) settle(c *gin.Context) {
	if c.Query("wait") == "false" {
		return
	}
	if err := h.workspace.Wait(c.Request.Context()); err != nil {
		slog.DebugContext(c.Request.Context(), "Rendering before loaders settled", "error", err)
	}
}

// Dashboard godoc
// @Summary Dashboard page model
// @Router /dashboard [get]
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	h.settle(c)
	c.JSON(http.StatusOK, h.workspace.Dashboard())
}

// Workouts godoc
// @Summary Workouts page model
// @Router /workouts [get]
func (h *DashboardHandler) Workouts(c *gin.Context) {
	h.settle(c)
	c.JSON(http.StatusOK, h.workspace.WorkoutsPage())
}

// Profiles returns the raw profiles loader state.
func (h *DashboardHandler) Profiles(c *gin.Context) {
	h.settle(c)
	c.JSON(http.StatusOK, h.workspace.Profiles.State())
}

// Refresh bumps the refresh token so workouts and exercises are refetched.
func (h *DashboardHandler) Refresh(c *gin.Context) {
	h.workspace.Refresh()
	c.JSON(http.StatusAccepted, gin.H{"refresh": h.workspace.RefreshToken()})
}

// CreateWorkout godoc
// @Summary Log a workout with its exercises
// @Accept json
// @Produce json
// @Success 201 {object} service.CreateWorkoutResult
// @Failure 400 {object} gin.H "Validation error"
// @Failure 502 {object} PartialWriteResponse "Workout stored, exercises failed"
// @Router /workouts [post]
func (h *DashboardHandler) CreateWorkout(c *gin.Context) {
	var req service.CreateWorkoutInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess, err := getSessionFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get session from context")
		return
	}

	result, err := h.workoutService.CreateWorkout(c.Request.Context(), sess, req)
	if err != nil {
		_ = c.Error(err)
		var partial *service.PartialWriteError
		switch {
		case errors.Is(err, service.ErrValidation):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.As(err, &partial):
			c.AbortWithStatusJSON(http.StatusBadGateway, PartialWriteResponse{Error: err.Error(), WorkoutID: partial.WorkoutID})
		case errors.Is(err, gateway.ErrNotConfigured):
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, dashboard.NewConfigNotice())
		case errors.Is(err, gateway.ErrNotAuthenticated):
			abortWithError(c, http.StatusUnauthorized, err.Error())
		case errors.Is(err, gateway.ErrPermissionDenied):
			abortWithError(c, http.StatusForbidden, err.Error())
		default:
			msg := err.Error()
			if msg == "" {
				msg = "Failed to save workout."
			}
			abortWithError(c, http.StatusBadGateway, msg)
		}
		return
	}
	c.JSON(http.StatusCreated, result)
}
