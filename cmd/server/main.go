package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/EdouardYu/ZeroDay/internal/config"
	"github.com/EdouardYu/ZeroDay/internal/db"
	larepository "github.com/EdouardYu/ZeroDay/internal/loginattempt/repository"
	laservice "github.com/EdouardYu/ZeroDay/internal/loginattempt/service"
	"github.com/EdouardYu/ZeroDay/internal/notification"
	"github.com/EdouardYu/ZeroDay/internal/observability/metrics"
	"github.com/EdouardYu/ZeroDay/internal/platform/keylock"
	"github.com/EdouardYu/ZeroDay/internal/reaper"
	"github.com/EdouardYu/ZeroDay/internal/security"
	"github.com/EdouardYu/ZeroDay/internal/server"
	tokenrepository "github.com/EdouardYu/ZeroDay/internal/token/repository"
	tokenservice "github.com/EdouardYu/ZeroDay/internal/token/service"
	userrepository "github.com/EdouardYu/ZeroDay/internal/user/repository"
	userservice "github.com/EdouardYu/ZeroDay/internal/user/service"
	validationrepository "github.com/EdouardYu/ZeroDay/internal/validation/repository"
	validationservice "github.com/EdouardYu/ZeroDay/internal/validation/service"
)

// adminSchedule re-runs the administrator bootstrap every four hours.
const adminSchedule = "0 */4 * * *"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	key, err := security.ParseSigningKey(cfg.SigningKey)
	if err != nil {
		log.Fatalf("signing key: %v", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	userRepo := userrepository.NewPostgresRepository(conn)
	tokenRepo := tokenrepository.NewPostgresRepository(conn)
	codeRepo := validationrepository.NewPostgresRepository(conn)
	attemptRepo := larepository.NewPostgresRepository(conn)

	locks := keylock.NewRegistry()
	hasher := security.NewHasher(cfg.BcryptCost)

	tokens := tokenservice.NewService(tokenRepo, locks, key)
	codes := validationservice.NewService(codeRepo, locks, notification.LogSender{})
	throttle := laservice.NewService(attemptRepo, locks)
	users := userservice.NewService(userRepo, hasher, tokens, codes, throttle)

	metrics.MustRegister()

	sweeper := reaper.New(tokenRepo, codeRepo, attemptRepo)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("reaper: %v", err)
	}
	defer sweeper.Stop()

	bootstrap := cron.New()
	if cfg.AdminPassword != "" {
		ensureAdmin := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
				slog.Error("admin bootstrap failed", "error", err)
			}
		}
		ensureAdmin()
		if _, err := bootstrap.AddFunc(adminSchedule, ensureAdmin); err != nil {
			log.Fatalf("admin schedule: %v", err)
		}
		bootstrap.Start()
		defer bootstrap.Stop()
	} else {
		slog.Warn("ADMIN_PASSWORD not set, skipping administrator bootstrap")
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.New(users, throttle, tokens).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("http server stopped")
}
