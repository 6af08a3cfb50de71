package api

import (
	"alcyxob/fitness-dashboard/internal/config"
	"alcyxob/fitness-dashboard/internal/dashboard"
	"alcyxob/fitness-dashboard/internal/planner"
	"alcyxob/fitness-dashboard/internal/service"
	"alcyxob/fitness-dashboard/internal/settings"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the components the HTTP surface composes.
type Dependencies struct {
	Workspace      *dashboard.Workspace
	Settings       *settings.Store
	Theme          *settings.ThemeStore
	Planner        *planner.Planner
	AuthService    service.AuthService
	WorkoutService service.WorkoutService
	RateLimit      config.RateLimitConfig
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	guard := deps.Workspace.Guard

	authHandler := NewAuthHandler(deps.AuthService, guard)
	dashboardHandler := NewDashboardHandler(deps.Workspace, deps.WorkoutService)
	localHandler := NewLocalHandler(deps.Settings, deps.Theme, deps.Planner)

	router.Use(RequestContext())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// The guard's redirect target; it shows the auth panel state.
	router.GET(guard.RedirectTarget(), authHandler.Session)

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		authGroup.Use(RateLimit(deps.RateLimit.RPS, deps.RateLimit.Burst))
		{
			authGroup.GET("/session", authHandler.Session)
			authGroup.POST("/sign-in", authHandler.SignIn)
			authGroup.POST("/sign-up", authHandler.SignUp)
			authGroup.POST("/sign-out", authHandler.SignOut)
		}

		// --- Local state, available without a gateway ---
		apiV1.GET("/settings", localHandler.GetSettings)
		apiV1.PUT("/settings", localHandler.UpdateSettings)
		apiV1.GET("/theme", localHandler.GetTheme)
		apiV1.PUT("/theme", localHandler.SetTheme)

		plannerGroup := apiV1.Group("/planner")
		{
			plannerGroup.GET("", localHandler.GetPlanner)
			plannerGroup.PUT("/targets", localHandler.SetPlannerTargets)
			plannerGroup.POST("/reset", localHandler.ResetPlanner)
			plannerGroup.PUT("/days/:day", localHandler.UpdatePlannerDay)
			plannerGroup.POST("/days/:day/entries", localHandler.AddPlannerEntry)
			plannerGroup.DELETE("/days/:day/entries/:entryId", localHandler.RemovePlannerEntry)
		}
	}

	// --- Gateway-backed pages ---
	protected := apiV1.Group("")
	protected.Use(GuardMiddleware(guard))
	{
		protected.GET("/dashboard", dashboardHandler.Dashboard)
		protected.GET("/profiles", dashboardHandler.Profiles)
		protected.GET("/workouts", dashboardHandler.Workouts)
		protected.POST("/workouts", dashboardHandler.CreateWorkout)
		protected.POST("/refresh", dashboardHandler.Refresh)
	}
}
