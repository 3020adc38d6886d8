package repository

import (
	"context"
	"time"

	"github.com/EdouardYu/ZeroDay/internal/token/domain"
)

// Repository defines persistence for bearer tokens.
type Repository interface {
	GetEnabledByValue(ctx context.Context, value string) (*domain.Token, error)
	GetEnabledByUser(ctx context.Context, userID int64) (*domain.Token, error)
	Create(ctx context.Context, t *domain.Token) error
	Disable(ctx context.Context, id int64) error
	DisableAllByUser(ctx context.Context, userID int64) error
	// DeleteDisabledOrExpired removes tokens that are disabled or expired
	// before the given instant, returning the number of rows deleted.
	DeleteDisabledOrExpired(ctx context.Context, before time.Time) (int64, error)
}
