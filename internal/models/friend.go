package models

import "github.com/google/uuid"

// RelationStatus describes how a viewer relates to another user's profile.
type RelationStatus struct {
	IsFriend    bool `json:"isFriend"`
	IsRequested bool `json:"isRequested"` // viewer has a pending request on the other user
}

// FriendEvent is pushed to connected clients when a relationship changes.
type FriendEvent struct {
	Type   string    `json:"type"` // 'friend_request', 'friend_accepted'
	FromID uuid.UUID `json:"from_id"`
	From   string    `json:"from,omitempty"`
}
