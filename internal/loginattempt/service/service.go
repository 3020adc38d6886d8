// Package service enforces the per-(email, device) login throttle: five
// failed attempts block the pair for fifteen minutes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/EdouardYu/ZeroDay/internal/loginattempt/domain"
	"github.com/EdouardYu/ZeroDay/internal/observability/metrics"
	"github.com/EdouardYu/ZeroDay/internal/platform/keylock"
)

// ErrTooManyAttempts signals that the (email, device) pair is blocked. The
// HTTP layer maps it to 429; wrapped messages carry the remaining block time.
var ErrTooManyAttempts = errors.New("too many attempts")

const (
	// MaxAttempts is the number of failures that triggers a block.
	MaxAttempts = 5
	// BlockDuration is how long a pair stays blocked after the last failure.
	BlockDuration = 15 * time.Minute
)

// DeviceCookieName is the cookie carrying the client's device identifier.
const DeviceCookieName = "device_id"

const deviceCookieMaxAge = 365 * 24 * 60 * 60

// AttemptRepo is the minimal attempt repository needed by the service.
type AttemptRepo interface {
	Get(ctx context.Context, email, deviceID string) (*domain.Attempt, error)
	Upsert(ctx context.Context, a *domain.Attempt) error
	DeleteByPair(ctx context.Context, email, deviceID string) error
	ExistsByDeviceID(ctx context.Context, deviceID string) (bool, error)
}

// Service tracks failed sign-ins per (email, device) pair. The read-then-write
// sequence on a record is a critical section scoped to the pair, serialized
// through the lock registry to avoid lost updates.
type Service struct {
	repo  AttemptRepo
	locks *keylock.Registry
	now   func() time.Time
}

// NewService returns a throttle over the given repository.
func NewService(repo AttemptRepo, locks *keylock.Registry) *Service {
	return &Service{repo: repo, locks: locks, now: time.Now}
}

// Check gates a sign-in attempt for the pair, lazily creating its record.
// A blocked pair fails with ErrTooManyAttempts carrying the remaining block
// time; a pair whose block window has lapsed is reset and allowed through.
func (s *Service) Check(ctx context.Context, email, deviceID string) error {
	unlock := s.locks.Lock(pairKey(email, deviceID))
	defer unlock()

	now := s.now().UTC()
	a, err := s.repo.Get(ctx, email, deviceID)
	if err != nil {
		return err
	}
	if a == nil {
		a = &domain.Attempt{Email: email, DeviceID: deviceID, LastAttemptAt: now}
		return s.repo.Upsert(ctx, a)
	}
	if a.Attempts < MaxAttempts {
		return nil
	}

	blockedUntil := a.LastAttemptAt.Add(BlockDuration)
	if blockedUntil.After(now) {
		metrics.ThrottleBlocksTotal.Inc()
		remaining := blockedUntil.Sub(now).Round(time.Second)
		return fmt.Errorf("%w: try again in %s", ErrTooManyAttempts, remaining)
	}

	// The block window has lapsed; start over.
	a.Attempts = 0
	a.LastAttemptAt = now
	return s.repo.Upsert(ctx, a)
}

// RecordFailure increments the pair's failure counter. Reaching MaxAttempts
// fails with ErrTooManyAttempts in the same call; otherwise it returns the
// number of attempts remaining before the block.
func (s *Service) RecordFailure(ctx context.Context, email, deviceID string) (int, error) {
	unlock := s.locks.Lock(pairKey(email, deviceID))
	defer unlock()

	now := s.now().UTC()
	a, err := s.repo.Get(ctx, email, deviceID)
	if err != nil {
		return 0, err
	}
	if a == nil {
		a = &domain.Attempt{Email: email, DeviceID: deviceID}
	}
	a.Attempts++
	a.LastAttemptAt = now
	if err := s.repo.Upsert(ctx, a); err != nil {
		return 0, err
	}

	if a.Attempts >= MaxAttempts {
		metrics.ThrottleBlocksTotal.Inc()
		slog.Warn("login throttle engaged", "email", email, "device_id", deviceID)
		return 0, fmt.Errorf("%w: try again in %s", ErrTooManyAttempts, BlockDuration)
	}
	return MaxAttempts - a.Attempts, nil
}

// RecordSuccess deletes the pair's record so a later failure counts from 1.
func (s *Service) RecordSuccess(ctx context.Context, email, deviceID string) error {
	unlock := s.locks.Lock(pairKey(email, deviceID))
	defer unlock()
	return s.repo.DeleteByPair(ctx, email, deviceID)
}

// EnsureDeviceID returns the request's device id, minting one when absent.
// A new id is collision-checked against the store and handed back in an
// HttpOnly cookie valid for one year.
func (s *Service) EnsureDeviceID(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(DeviceCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	var id string
	for {
		id = uuid.NewString()
		exists, err := s.repo.ExistsByDeviceID(r.Context(), id)
		if err != nil {
			return "", err
		}
		if !exists {
			break
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     DeviceCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   deviceCookieMaxAge,
		HttpOnly: true,
	})
	return id, nil
}

func pairKey(email, deviceID string) string {
	return email + "\x00" + deviceID
}
