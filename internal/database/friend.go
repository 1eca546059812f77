package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/circle/internal/models"
)

// SaveUsers writes profile and relationship fields of every user in one transaction,
// so both halves of a symmetric friends edit land together or not at all. Rows are
// not locked between the caller's read and this write.
func (p *Postgres) SaveUsers(ctx context.Context, users ...*models.User) error {
	q := `
		UPDATE users
		SET name=$2, email=$3, avatar_url=$4, friends=$5, requests=$6
		WHERE id=$1
	`
	err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, u := range users {
			ct, err := tx.Exec(ctx, q,
				u.ID, u.Name, u.Email, u.AvatarURL,
				u.Friends.Slice(), u.Requests.Slice(),
			)
			if err != nil {
				return err
			}
			if ct.RowsAffected() == 0 {
				return fmt.Errorf("user %v: %w", u.ID, ErrNotFound)
			}
		}
		return nil
	})
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to save users: %w", err)
	}
	return nil
}

// DeleteUser hard deletes the user and everything that references it.
func (p *Postgres) DeleteUser(ctx context.Context, id uuid.UUID) error {
	err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE users
			SET friends = array_remove(friends, $1), requests = array_remove(requests, $1)
			WHERE $1 = ANY(friends) OR $1 = ANY(requests)
		`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE posts SET likes = array_remove(likes, $1) WHERE $1 = ANY(likes)
		`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE posts
			SET comments = COALESCE(
				(SELECT jsonb_agg(c) FROM jsonb_array_elements(comments) AS c WHERE c->>'user' <> $1),
				'[]'::jsonb)
			WHERE EXISTS (SELECT 1 FROM jsonb_array_elements(comments) AS c WHERE c->>'user' = $1)
		`, id.String()); err != nil {
			return err
		}

		// posts owned by the user go with it (ON DELETE CASCADE)
		ct, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete user %v: %w", id, err)
	}
	return nil
}
