package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/dealradar/backend/internal/app"
	"github.com/dealradar/backend/internal/config"
	"github.com/dealradar/backend/internal/handler"
	"github.com/dealradar/backend/internal/service"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	dbURL := cfg.DatabaseURL
	if dbURL == "" {
		dbURL = "postgres://localhost:5432/dealradar?sslmode=disable"
	}

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = db.Close() }()

	repos := app.NewRepositories(db)

	// Services
	ruleService := service.NewAlertRuleService(repos.Rules, repos.Listings)
	watchlistService := service.NewWatchlistService(repos.Watchlist, repos.Listings)
	preferenceService := service.NewPreferenceService(repos.Prefs)
	notificationService := service.NewNotificationService(repos.Records, repos.Push, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)

	// The engine runs in-process when enabled; for split deployments set
	// ENGINE_ENABLED=false here and run the engine binary separately.
	eng := app.BuildEngine(cfg, repos, app.Options{}, logger)
	sched := app.BuildScheduler(cfg, eng, logger)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Handlers
	ruleHandler := handler.NewAlertRuleHandler(ruleService)
	watchlistHandler := handler.NewWatchlistHandler(watchlistService)
	preferenceHandler := handler.NewPreferenceHandler(preferenceService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	healthHandler := handler.NewHealthHandler(eng.Metrics(), sched)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Get("/api/health", healthHandler.Health)
	r.Get("/api/health/engine", healthHandler.EngineStatus)
	r.Get("/api/notifications/vapid-public-key", notificationHandler.GetVAPIDPublicKey)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(handler.AuthMiddleware)

		// Alert rules
		r.Get("/api/rules", ruleHandler.List)
		r.Post("/api/rules", ruleHandler.Create)
		r.Post("/api/rules/test", ruleHandler.Test)
		r.Get("/api/rules/{id}", ruleHandler.Get)
		r.Put("/api/rules/{id}", ruleHandler.Update)
		r.Delete("/api/rules/{id}", ruleHandler.Delete)
		r.Post("/api/rules/{id}/pause", ruleHandler.Pause)
		r.Post("/api/rules/{id}/resume", ruleHandler.Resume)

		// Watchlist
		r.Get("/api/watchlist", watchlistHandler.List)
		r.Post("/api/watchlist", watchlistHandler.Add)
		r.Delete("/api/watchlist/{id}", watchlistHandler.Remove)

		// Notification preferences and history
		r.Get("/api/notifications/preferences", preferenceHandler.Get)
		r.Put("/api/notifications/preferences", preferenceHandler.Update)
		r.Get("/api/notifications/history", notificationHandler.History)
		r.Post("/api/notifications/subscribe", notificationHandler.Subscribe)
		r.Delete("/api/notifications/unsubscribe", notificationHandler.Unsubscribe)
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		stopped := sched.Stop()
		<-stopped.Done()
		logger.Info("Scheduler stopped")

		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("Server shutdown error", slog.String("error", err.Error()))
		}
	}()

	log.Printf("Server starting on port %s", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("Server failed: %v", err)
	}
}
