package repository

import (
	"context"

	"github.com/EdouardYu/ZeroDay/internal/user/domain"
)

// Repository defines persistence for user accounts.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id int64) error
}
