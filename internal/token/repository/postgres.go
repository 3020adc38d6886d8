package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/EdouardYu/ZeroDay/internal/token/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a token repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetEnabledByValue returns the enabled token with the given signed value, or
// nil if not found. It returns an error only for database failures.
func (r *PostgresRepository) GetEnabledByValue(ctx context.Context, value string) (*domain.Token, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, value, expired_at, enabled, user_id FROM jwt WHERE value = $1 AND enabled`, value)
	return scanToken(row)
}

// GetEnabledByUser returns the user's enabled token, or nil if none.
func (r *PostgresRepository) GetEnabledByUser(ctx context.Context, userID int64) (*domain.Token, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, value, expired_at, enabled, user_id FROM jwt WHERE user_id = $1 AND enabled`, userID)
	return scanToken(row)
}

// Create persists the token and assigns the generated id to t.ID.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Token) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO jwt (value, expired_at, enabled, user_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		t.Value, t.ExpiredAt, t.Enabled, t.UserID,
	).Scan(&t.ID)
}

// Disable marks the token with the given id as disabled.
func (r *PostgresRepository) Disable(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE jwt SET enabled = FALSE WHERE id = $1`, id)
	return err
}

// DisableAllByUser marks every token belonging to the user as disabled.
func (r *PostgresRepository) DisableAllByUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE jwt SET enabled = FALSE WHERE user_id = $1`, userID)
	return err
}

// DeleteDisabledOrExpired removes tokens that are disabled or expired before
// the given instant, returning the number of rows deleted.
func (r *PostgresRepository) DeleteDisabledOrExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM jwt WHERE NOT enabled OR expired_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanToken(row *sql.Row) (*domain.Token, error) {
	var t domain.Token
	err := row.Scan(&t.ID, &t.Value, &t.ExpiredAt, &t.Enabled, &t.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
