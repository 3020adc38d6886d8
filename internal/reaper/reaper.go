// Package reaper runs the daily sweeps that purge disabled and expired
// credential rows. It only ever deletes rows already marked disabled or past
// their expiry, so it never races with live issuance.
package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/EdouardYu/ZeroDay/internal/observability/metrics"
)

// Retention windows. Validation codes are kept for a day past expiry so
// support can see what was recently sent; attempt records older than the
// block window carry no state worth keeping.
const (
	codeRetention    = 24 * time.Hour
	attemptRetention = 15 * time.Minute
)

// schedule is the cron spec each sweep runs on.
const schedule = "@daily"

// TokenStore deletes reapable token rows.
type TokenStore interface {
	DeleteDisabledOrExpired(ctx context.Context, before time.Time) (int64, error)
}

// CodeStore deletes reapable validation-code rows.
type CodeStore interface {
	DeleteDisabledOrExpired(ctx context.Context, before time.Time) (int64, error)
}

// AttemptStore deletes stale login-attempt rows.
type AttemptStore interface {
	DeleteByLastAttemptBefore(ctx context.Context, before time.Time) (int64, error)
}

// Reaper owns the cron schedule and the three sweeps.
type Reaper struct {
	cron     *cron.Cron
	tokens   TokenStore
	codes    CodeStore
	attempts AttemptStore
	now      func() time.Time
}

// New returns a reaper over the given stores. Call Start to begin sweeping.
func New(tokens TokenStore, codes CodeStore, attempts AttemptStore) *Reaper {
	return &Reaper{
		cron:     cron.New(),
		tokens:   tokens,
		codes:    codes,
		attempts: attempts,
		now:      time.Now,
	}
}

// Start schedules the daily sweep and starts the cron runner.
func (r *Reaper) Start() error {
	if _, err := r.cron.AddFunc(schedule, func() { r.Sweep(context.Background()) }); err != nil {
		return err
	}
	r.cron.Start()
	slog.Info("reaper started", "schedule", schedule)
	return nil
}

// Stop halts the cron runner and waits for a running sweep to finish.
func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
	slog.Info("reaper stopped")
}

// Sweep deletes reapable rows of all three entity types. A failing sweep is
// logged and does not abort the others; running Sweep twice in a row is a
// no-op the second time.
func (r *Reaper) Sweep(ctx context.Context) {
	now := r.now().UTC()

	if n, err := r.tokens.DeleteDisabledOrExpired(ctx, now); err != nil {
		slog.Error("token sweep failed", "error", err)
	} else if n > 0 {
		metrics.ReaperDeletionsTotal.WithLabelValues("token").Add(float64(n))
		slog.Info("reaped tokens", "deleted", n)
	}

	if n, err := r.codes.DeleteDisabledOrExpired(ctx, now.Add(-codeRetention)); err != nil {
		slog.Error("validation code sweep failed", "error", err)
	} else if n > 0 {
		metrics.ReaperDeletionsTotal.WithLabelValues("validation_code").Add(float64(n))
		slog.Info("reaped validation codes", "deleted", n)
	}

	if n, err := r.attempts.DeleteByLastAttemptBefore(ctx, now.Add(-attemptRetention)); err != nil {
		slog.Error("login attempt sweep failed", "error", err)
	} else if n > 0 {
		metrics.ReaperDeletionsTotal.WithLabelValues("login_attempt").Add(float64(n))
		slog.Info("reaped login attempts", "deleted", n)
	}
}
