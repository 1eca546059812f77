// Package relationship implements the friend-request workflow over in-memory user
// records. It never touches storage: callers load the users, apply an operation and
// save whatever it mutated.
package relationship

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/jason-s-yu/circle/internal/models"
)

var (
	// ErrNotFound indicates a referenced user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidState indicates the pair is not in the state the operation expects.
	ErrInvalidState = errors.New("invalid relationship state")
)

// RequestStatus is the outcome of ToggleRequest.
type RequestStatus string

const (
	StatusSent           RequestStatus = "sent"
	StatusCancelled      RequestStatus = "cancelled"
	StatusAlreadyFriends RequestStatus = "already-friends"
)

// Message is the human readable form returned to clients.
func (s RequestStatus) Message() string {
	switch s {
	case StatusSent:
		return "Friend request sent"
	case StatusCancelled:
		return "Friend request cancelled"
	case StatusAlreadyFriends:
		return "Already friends"
	}
	return string(s)
}

// ToggleRequest sends a friend request from requester to target, or cancels it if
// one is already pending. Only target is mutated.
func ToggleRequest(requester, target *models.User) (RequestStatus, error) {
	if requester == nil || target == nil {
		return "", ErrNotFound
	}
	if requester.ID == target.ID {
		return "", fmt.Errorf("%w: cannot send a friend request to yourself", ErrInvalidState)
	}

	if requester.Friends.Has(target.ID) || target.Friends.Has(requester.ID) {
		return StatusAlreadyFriends, nil
	}

	if target.Requests.Remove(requester.ID) {
		return StatusCancelled, nil
	}

	target.Requests.Add(requester.ID)
	return StatusSent, nil
}

// AcceptRequest makes accepter and requester friends. The requester must have a
// pending request on accepter. Both users are mutated and must be saved together.
func AcceptRequest(accepter, requester *models.User) error {
	if accepter == nil || requester == nil {
		return ErrNotFound
	}
	if !accepter.Requests.Has(requester.ID) {
		return fmt.Errorf("%w: no pending friend request from %v", ErrInvalidState, requester.ID)
	}

	accepter.Requests.Remove(requester.ID)
	// a crossed request would otherwise leave a friend in the pending set
	requester.Requests.Remove(accepter.ID)

	accepter.Friends.Add(requester.ID)
	requester.Friends.Add(accepter.ID)
	return nil
}

// DeclineRequest drops requester's pending request on accepter, if any. It reports
// whether a request was removed.
func DeclineRequest(accepter, requester *models.User) (bool, error) {
	if accepter == nil || requester == nil {
		return false, ErrNotFound
	}
	return accepter.Requests.Remove(requester.ID), nil
}

// MutualFriends returns the friends a and b have in common.
func MutualFriends(a, b *models.User) models.IDSet {
	if a == nil || b == nil {
		return models.IDSet{}
	}
	return a.Friends.Intersect(b.Friends)
}

// Suggestions returns friends-of-friends of user who are neither user nor already
// friends, in random order. friends are the loaded records of user's friends; any
// record not actually in user.Friends is ignored.
func Suggestions(user *models.User, friends []*models.User) []uuid.UUID {
	if user == nil {
		return nil
	}

	seen := make(models.IDSet)
	var out []uuid.UUID
	for _, f := range friends {
		if f == nil || !user.Friends.Has(f.ID) {
			continue
		}
		for id := range f.Friends {
			if id == user.ID || user.Friends.Has(id) || seen.Has(id) {
				continue
			}
			seen.Add(id)
			out = append(out, id)
		}
	}

	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Status reports how viewer relates to other.
func Status(viewer, other *models.User) models.RelationStatus {
	if viewer == nil || other == nil {
		return models.RelationStatus{}
	}
	return models.RelationStatus{
		IsFriend:    other.Friends.Has(viewer.ID) || viewer.Friends.Has(other.ID),
		IsRequested: other.Requests.Has(viewer.ID),
	}
}
