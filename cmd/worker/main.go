// Worker runs the credential reaper standalone, for deployments that keep
// sweeps off the serving process. It needs only DATABASE_URL.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/EdouardYu/ZeroDay/internal/config"
	"github.com/EdouardYu/ZeroDay/internal/db"
	larepository "github.com/EdouardYu/ZeroDay/internal/loginattempt/repository"
	"github.com/EdouardYu/ZeroDay/internal/observability/metrics"
	"github.com/EdouardYu/ZeroDay/internal/reaper"
	tokenrepository "github.com/EdouardYu/ZeroDay/internal/token/repository"
	validationrepository "github.com/EdouardYu/ZeroDay/internal/validation/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	metrics.MustRegister()

	sweeper := reaper.New(
		tokenrepository.NewPostgresRepository(conn),
		validationrepository.NewPostgresRepository(conn),
		larepository.NewPostgresRepository(conn),
	)
	// Sweep once at startup so a rarely restarted worker still catches up.
	sweeper.Sweep(context.Background())
	if err := sweeper.Start(); err != nil {
		log.Fatalf("reaper: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	slog.Info("worker: shutting down")
	sweeper.Stop()
}
