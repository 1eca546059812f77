package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jason-s-yu/circle/internal/models"
)

const userColumns = `id, name, email, password, avatar_url, friends, requests,
	reset_password_token, reset_password_expire, created_at`

// scanUser reads one users row selected with userColumns.
func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var friends, requests []uuid.UUID
	var expire *time.Time
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Password, &u.AvatarURL,
		&friends, &requests,
		&u.ResetPasswordToken, &expire, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Friends = models.NewIDSet(friends...)
	u.Requests = models.NewIDSet(requests...)
	if expire != nil {
		u.ResetPasswordExpire = *expire
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (p *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	q := `INSERT INTO users (id, name, email, password, avatar_url, friends, requests, created_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			user.ID, user.Name, user.Email, user.Password, user.AvatarURL,
			user.Friends.Slice(), user.Requests.Slice(), user.CreatedAt,
		)
		return execErr
	})
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (p *Postgres) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(p.pool.QueryRow(ctx, q, id))
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(p.pool.QueryRow(ctx, q, email))
}

func (p *Postgres) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	q := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY name`
	return p.queryUsers(ctx, q, ids)
}

func (p *Postgres) SearchUsers(ctx context.Context, name string) ([]*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE name ILIKE '%' || $1 || '%' ORDER BY name`
	return p.queryUsers(ctx, q, escapeLike(name))
}

func (p *Postgres) queryUsers(ctx context.Context, q string, args ...any) ([]*models.User, error) {
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// escapeLike neutralises LIKE wildcards so the search is a plain substring match.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
