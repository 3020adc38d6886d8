package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/EdouardYu/ZeroDay/internal/validation/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a validation-code repository that uses the
// given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByEmailAndCode returns the most recent code row for the account with the
// given email and code value, or nil if none matches. Disabled rows are
// returned too so callers can tell a superseded code from an unknown one.
func (r *PostgresRepository) GetByEmailAndCode(ctx context.Context, email, code string) (*domain.Code, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT v.id, v.code, v.expired_at, v.enabled, v.user_id
		 FROM validation v
		 JOIN users u ON u.id = v.user_id
		 WHERE u.email = $1 AND v.code = $2
		 ORDER BY v.id DESC
		 LIMIT 1`, email, code)

	var c domain.Code
	err := row.Scan(&c.ID, &c.Code, &c.ExpiredAt, &c.Enabled, &c.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Create persists the code and assigns the generated id to c.ID.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Code) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO validation (code, expired_at, enabled, user_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		c.Code, c.ExpiredAt, c.Enabled, c.UserID,
	).Scan(&c.ID)
}

// Disable marks the code with the given id as disabled.
func (r *PostgresRepository) Disable(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE validation SET enabled = FALSE WHERE id = $1`, id)
	return err
}

// DisableAllByUser marks every code belonging to the user as disabled.
func (r *PostgresRepository) DisableAllByUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE validation SET enabled = FALSE WHERE user_id = $1`, userID)
	return err
}

// DeleteDisabledOrExpired removes codes that are disabled or expired before
// the given instant, returning the number of rows deleted.
func (r *PostgresRepository) DeleteDisabledOrExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM validation WHERE NOT enabled OR expired_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
