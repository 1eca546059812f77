package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/circle/internal/models"
)

func (p *Postgres) GetPostsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Post, error) {
	q := `
		SELECT id, owner_id, caption, image_url, likes, comments, created_at
		FROM posts
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	rows, err := p.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		var post models.Post
		if err := rows.Scan(
			&post.ID, &post.OwnerID, &post.Caption, &post.ImageURL,
			&post.Likes, &post.Comments, &post.CreatedAt,
		); err != nil {
			return nil, err
		}
		posts = append(posts, &post)
	}
	return posts, rows.Err()
}

// InsertPost is used by seeding and tests; the API only reads posts.
func (p *Postgres) InsertPost(ctx context.Context, post *models.Post) error {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	if post.Likes == nil {
		post.Likes = []uuid.UUID{}
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	q := `
		INSERT INTO posts (id, owner_id, caption, image_url, likes, comments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := p.pool.Exec(ctx, q,
		post.ID, post.OwnerID, post.Caption, post.ImageURL,
		post.Likes, post.Comments, post.CreatedAt,
	)
	return err
}
