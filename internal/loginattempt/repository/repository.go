package repository

import (
	"context"
	"time"

	"github.com/EdouardYu/ZeroDay/internal/loginattempt/domain"
)

// Repository defines persistence for login-attempt records.
type Repository interface {
	// Get returns the record for the (email, device) pair, or nil if none.
	Get(ctx context.Context, email, deviceID string) (*domain.Attempt, error)
	// Upsert inserts the record or updates the existing row for its pair.
	Upsert(ctx context.Context, a *domain.Attempt) error
	DeleteByPair(ctx context.Context, email, deviceID string) error
	// ExistsByDeviceID reports whether any record references the device id.
	ExistsByDeviceID(ctx context.Context, deviceID string) (bool, error)
	// DeleteByLastAttemptBefore removes records last touched before the given
	// instant, returning the number of rows deleted.
	DeleteByLastAttemptBefore(ctx context.Context, before time.Time) (int64, error)
}
