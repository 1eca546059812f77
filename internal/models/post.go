package models

import (
	"time"

	"github.com/google/uuid"
)

type Comment struct {
	UserID  uuid.UUID `json:"user"`
	Comment string    `json:"comment"`
}

type Post struct {
	ID        uuid.UUID   `json:"id"`
	OwnerID   uuid.UUID   `json:"owner"`
	Caption   string      `json:"caption"`
	ImageURL  string      `json:"image_url"`
	Likes     []uuid.UUID `json:"likes"`
	Comments  []Comment   `json:"comments"`
	CreatedAt time.Time   `json:"created_at"`
}
