package models

import "github.com/google/uuid"

// Activity types recorded in the activity log.
const (
	ActivityUserRegistered         = "user_registered"
	ActivityUserDeleted            = "user_deleted"
	ActivityFriendRequestSent      = "friend_request_sent"
	ActivityFriendRequestCancelled = "friend_request_cancelled"
	ActivityFriendRequestAccepted  = "friend_request_accepted"
	ActivityFriendRequestDeclined  = "friend_request_declined"
)

// ActivityRecord is one entry on the activity queue, drained into Postgres by the historian.
type ActivityRecord struct {
	ID        uuid.UUID  `json:"id"`
	ActorID   uuid.UUID  `json:"actor_id"`
	TargetID  *uuid.UUID `json:"target_id,omitempty"`
	Type      string     `json:"type"`
	Timestamp int64      `json:"timestamp"` // epoch millis
}

// MailJob is queued for the external mail sender.
type MailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
