package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	AvatarURL string    `json:"avatar_url"`

	// Friends is symmetric: if B is in A.Friends then A is in B.Friends.
	Friends IDSet `json:"friends"`
	// Requests holds the ids of users who sent this user a pending friend request.
	Requests IDSet `json:"requests"`

	ResetPasswordToken  string    `json:"-"`
	ResetPasswordExpire time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy so callers can mutate relationship sets without
// touching a shared record.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Friends = u.Friends.Clone()
	c.Requests = u.Requests.Clone()
	return &c
}
