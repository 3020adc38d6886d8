package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/EdouardYu/ZeroDay/internal/loginattempt/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a login-attempt repository that uses the
// given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the record for the (email, device) pair, or nil if none.
func (r *PostgresRepository) Get(ctx context.Context, email, deviceID string) (*domain.Attempt, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, device_id, attempts, last_attempt_at
		 FROM login_attempt WHERE email = $1 AND device_id = $2`, email, deviceID)

	var a domain.Attempt
	err := row.Scan(&a.ID, &a.Email, &a.DeviceID, &a.Attempts, &a.LastAttemptAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// Upsert inserts the record or updates the counter and timestamp of the
// existing row for its (email, device) pair.
func (r *PostgresRepository) Upsert(ctx context.Context, a *domain.Attempt) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO login_attempt (email, device_id, attempts, last_attempt_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email, device_id)
		 DO UPDATE SET attempts = EXCLUDED.attempts, last_attempt_at = EXCLUDED.last_attempt_at
		 RETURNING id`,
		a.Email, a.DeviceID, a.Attempts, a.LastAttemptAt,
	).Scan(&a.ID)
}

// DeleteByPair removes the record for the (email, device) pair if present.
func (r *PostgresRepository) DeleteByPair(ctx context.Context, email, deviceID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM login_attempt WHERE email = $1 AND device_id = $2`, email, deviceID)
	return err
}

// ExistsByDeviceID reports whether any record references the device id.
func (r *PostgresRepository) ExistsByDeviceID(ctx context.Context, deviceID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM login_attempt WHERE device_id = $1)`, deviceID).Scan(&exists)
	return exists, err
}

// DeleteByLastAttemptBefore removes records last touched before the given
// instant, returning the number of rows deleted.
func (r *PostgresRepository) DeleteByLastAttemptBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM login_attempt WHERE last_attempt_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
