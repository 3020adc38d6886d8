package repository

import (
	"context"
	"time"

	"github.com/EdouardYu/ZeroDay/internal/validation/domain"
)

// Repository defines persistence for validation codes.
type Repository interface {
	// GetByEmailAndCode returns the most recent code row matching the account
	// email and code value, enabled or not, or nil if none matches.
	GetByEmailAndCode(ctx context.Context, email, code string) (*domain.Code, error)
	Create(ctx context.Context, c *domain.Code) error
	Disable(ctx context.Context, id int64) error
	DisableAllByUser(ctx context.Context, userID int64) error
	// DeleteDisabledOrExpired removes codes that are disabled or expired
	// before the given instant, returning the number of rows deleted.
	DeleteDisabledOrExpired(ctx context.Context, before time.Time) (int64, error)
}
