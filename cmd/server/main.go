package main

import (
	"alcyxob/fitness-dashboard/internal/api"
	"alcyxob/fitness-dashboard/internal/config"
	"alcyxob/fitness-dashboard/internal/dashboard"
	"alcyxob/fitness-dashboard/internal/observability"
	"alcyxob/fitness-dashboard/internal/planner"
	"alcyxob/fitness-dashboard/internal/service"
	"alcyxob/fitness-dashboard/internal/session"
	"alcyxob/fitness-dashboard/internal/settings"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		slog.Error("FATAL", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// --- Environment files ---
	// Already exported variables win, then .env.local, then .env.
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("could not read %s: %w", file, err)
		}
	}

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	slog.SetDefault(observability.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format))
	slog.Info("Starting Fitness Dashboard...", "gatewayDriver", cfg.Gateway.Driver, "storageBackend", cfg.Storage.Backend)

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	// --- Local key-value store ---
	kv, err := openStorage(appCtx, cfg)
	if err != nil {
		return fmt.Errorf("could not open local storage: %w", err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			slog.Error("Failed to close local storage", "error", err)
		}
	}()

	// --- Gateway ---
	gw, err := openGateway(appCtx, cfg, kv)
	if err != nil {
		return fmt.Errorf("could not open gateway: %w", err)
	}
	gw = observability.InstrumentGateway(gw)
	if gw != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := gw.Close(ctx); err != nil {
				slog.Error("Failed to close gateway", "error", err)
			}
		}()
	}

	// --- Local state ---
	userSettings := settings.New(kv)
	if err := userSettings.Load(appCtx); err != nil {
		slog.Warn("Using default settings", "error", err)
	}
	theme := settings.NewThemeStore(kv)
	if err := theme.Load(appCtx); err != nil {
		slog.Warn("Using default theme", "error", err)
	}
	weekPlanner := planner.New(kv)
	if err := weekPlanner.Load(appCtx); err != nil {
		slog.Warn("Using an empty week plan", "error", err)
	}

	// --- Session guard and workspace ---
	guard := session.NewGuard(gw,
		session.WithRedirect(cfg.Server.LoginPath),
		session.WithNavigator(func(target string) {
			slog.Info("No session; sign in required", "redirect", target)
		}),
	)
	workspace := dashboard.NewWorkspace(gw, guard, userSettings)
	workspace.Start(appCtx)
	defer workspace.Close()

	// --- Initialize Gin Engine ---
	if observability.ParseLevel(cfg.Log.Level) != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, api.Dependencies{
		Workspace:      workspace,
		Settings:       userSettings,
		Theme:          theme,
		Planner:        weekPlanner,
		AuthService:    service.NewAuthService(gw),
		WorkoutService: service.NewWorkoutService(gw, workspace),
		RateLimit:      cfg.RateLimit,
	})

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("listen: %w", err)
	}
	slog.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server exiting.")
	return nil
}
