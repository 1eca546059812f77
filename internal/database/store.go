package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/circle/internal/models"
)

var (
	// ErrNotFound is returned when a referenced user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned when another user already holds the email.
	ErrEmailTaken = errors.New("email already exists")
)

// Store persists user records with their embedded relationship sets, and the
// posts read by the profile views.
//
// SaveUsers writes every given user or none of them on Postgres; on Mongo the
// writes are ordered but not atomic. No implementation locks records between
// a read and the following save, so two requests racing on the same user are
// last-write-wins.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUsersByIDs skips ids that do not exist.
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error)
	// SearchUsers matches name case-insensitively as a substring.
	SearchUsers(ctx context.Context, name string) ([]*models.User, error)
	// SaveUsers writes profile fields and relationship sets. Password and reset
	// fields are not touched.
	SaveUsers(ctx context.Context, users ...*models.User) error

	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	// SetResetToken stores a hashed reset token; an empty hash clears it.
	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expires time.Time) error
	GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)

	// DeleteUser removes the user, pulls its id from every other user's friends
	// and requests, deletes its posts and strips its likes and comments.
	DeleteUser(ctx context.Context, id uuid.UUID) error

	GetPostsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Post, error)

	Close()
}
