// The engine binary runs only the periodic jobs, for deployments that keep
// the HTTP API and the job runner on separate instances. Advisory locks make
// it safe to run alongside an api instance that also has the engine enabled.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/dealradar/backend/internal/app"
	"github.com/dealradar/backend/internal/config"
	"github.com/dealradar/backend/internal/model"
)

func main() {
	runOnce := flag.String("once", "", "run one job and exit: rule-check, price-drop, daily-digest, weekly-digest")
	flag.Parse()

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
	eng := app.BuildEngine(cfg, repos, app.Options{}, logger)

	if *runOnce != "" {
		ctx := context.Background()
		switch *runOnce {
		case "rule-check":
			err = eng.RunRuleCheck(ctx)
		case "price-drop":
			err = eng.RunPriceDropCheck(ctx)
		case "daily-digest":
			err = eng.RunDigestFlush(ctx, model.CadenceDaily)
		case "weekly-digest":
			err = eng.RunDigestFlush(ctx, model.CadenceWeekly)
		default:
			log.Fatalf("Unknown job %q", *runOnce)
		}
		if err != nil {
			log.Fatalf("Job %s failed: %v", *runOnce, err)
		}
		return
	}

	sched := app.BuildScheduler(cfg, eng, logger)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	logger.Info("Engine started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down engine...")
	stopped := sched.Stop()
	<-stopped.Done()
	logger.Info("Engine stopped")
}
