package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/circle/internal/models"
)

// UpdatePassword stores a new password hash and clears any pending reset token.
func (p *Postgres) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	q := `UPDATE users
	      SET password = $1, reset_password_token = '', reset_password_expire = NULL
	      WHERE id = $2`
	err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		ct, e := tx.Exec(ctx, q, hash, id)
		if e != nil {
			return e
		}
		if ct.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (p *Postgres) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expires time.Time) error {
	var exp *time.Time
	if tokenHash != "" {
		exp = &expires
	}
	q := `UPDATE users SET reset_password_token = $1, reset_password_expire = $2 WHERE id = $3`
	ct, err := p.pool.Exec(ctx, q, tokenHash, exp, id)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	if tokenHash == "" {
		return nil, ErrNotFound
	}
	q := `SELECT ` + userColumns + ` FROM users
	      WHERE reset_password_token = $1 AND reset_password_expire > $2`
	return scanUser(p.pool.QueryRow(ctx, q, tokenHash, now))
}
