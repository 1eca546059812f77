// Package friendship loads users from the store, runs relationship operations on
// them and persists the result. Cache invalidation, activity records and live
// notifications are best-effort and never fail an operation.
package friendship

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/circle/internal/cache"
	"github.com/jason-s-yu/circle/internal/database"
	"github.com/jason-s-yu/circle/internal/models"
	"github.com/jason-s-yu/circle/internal/relationship"
	"github.com/sirupsen/logrus"
)

// Event types pushed to connected clients.
const (
	EventFriendRequest  = "friend_request"
	EventFriendAccepted = "friend_accepted"
)

// Notifier delivers live events to a user. *notify.Hub satisfies it.
type Notifier interface {
	Notify(userID uuid.UUID, ev models.FriendEvent)
}

type Service struct {
	store    database.Store
	cache    *cache.Client
	notifier Notifier
	logger   *logrus.Logger
}

// NewService builds a Service. cache and notifier may be nil.
func NewService(store database.Store, c *cache.Client, notifier Notifier, logger *logrus.Logger) *Service {
	return &Service{store: store, cache: c, notifier: notifier, logger: logger}
}

func (s *Service) loadUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", relationship.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %v: %w", id, err)
	}
	return u, nil
}

func (s *Service) loadPair(ctx context.Context, a, b uuid.UUID) (*models.User, *models.User, error) {
	ua, err := s.loadUser(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	ub, err := s.loadUser(ctx, b)
	if err != nil {
		return nil, nil, err
	}
	return ua, ub, nil
}

// ToggleRequest sends or cancels requesterID's friend request to targetID.
func (s *Service) ToggleRequest(ctx context.Context, requesterID, targetID uuid.UUID) (relationship.RequestStatus, error) {
	requester, target, err := s.loadPair(ctx, requesterID, targetID)
	if err != nil {
		return "", err
	}

	status, err := relationship.ToggleRequest(requester, target)
	if err != nil {
		return "", err
	}

	switch status {
	case relationship.StatusSent:
		if err := s.store.SaveUsers(ctx, target); err != nil {
			return "", fmt.Errorf("failed to save friend request: %w", err)
		}
		s.RecordActivity(ctx, models.ActivityFriendRequestSent, requesterID, targetID)
		s.notify(targetID, models.FriendEvent{Type: EventFriendRequest, FromID: requesterID, From: requester.Name})
	case relationship.StatusCancelled:
		if err := s.store.SaveUsers(ctx, target); err != nil {
			return "", fmt.Errorf("failed to cancel friend request: %w", err)
		}
		s.RecordActivity(ctx, models.ActivityFriendRequestCancelled, requesterID, targetID)
	}
	return status, nil
}

// Accept makes accepterID and requesterID friends. Both records are saved together.
func (s *Service) Accept(ctx context.Context, accepterID, requesterID uuid.UUID) error {
	accepter, requester, err := s.loadPair(ctx, accepterID, requesterID)
	if err != nil {
		return err
	}

	if err := relationship.AcceptRequest(accepter, requester); err != nil {
		return err
	}
	if err := s.store.SaveUsers(ctx, accepter, requester); err != nil {
		return fmt.Errorf("failed to save friendship: %w", err)
	}

	if err := s.cache.InvalidateSuggestions(ctx, accepterID, requesterID); err != nil {
		s.logger.Warnf("failed to invalidate suggestions for %v/%v: %v", accepterID, requesterID, err)
	}
	s.RecordActivity(ctx, models.ActivityFriendRequestAccepted, accepterID, requesterID)
	s.notify(requesterID, models.FriendEvent{Type: EventFriendAccepted, FromID: accepterID, From: accepter.Name})
	return nil
}

// Decline drops requesterID's pending request on accepterID. It reports whether a
// request was pending.
func (s *Service) Decline(ctx context.Context, accepterID, requesterID uuid.UUID) (bool, error) {
	accepter, requester, err := s.loadPair(ctx, accepterID, requesterID)
	if err != nil {
		return false, err
	}

	removed, err := relationship.DeclineRequest(accepter, requester)
	if err != nil || !removed {
		return removed, err
	}
	if err := s.store.SaveUsers(ctx, accepter); err != nil {
		return false, fmt.Errorf("failed to decline friend request: %w", err)
	}
	s.RecordActivity(ctx, models.ActivityFriendRequestDeclined, accepterID, requesterID)
	return true, nil
}

// MutualFriends returns the users both a and b are friends with.
func (s *Service) MutualFriends(ctx context.Context, a, b uuid.UUID) ([]*models.User, error) {
	ua, ub, err := s.loadPair(ctx, a, b)
	if err != nil {
		return nil, err
	}
	return s.store.GetUsersByIDs(ctx, relationship.MutualFriends(ua, ub).Slice())
}

// Suggestions returns friends-of-friends of userID. A computed list is cached per
// user so repeated calls within the cache TTL return the same order. Cached ids
// that have since become friends are dropped on read.
func (s *Service) Suggestions(ctx context.Context, userID uuid.UUID) ([]*models.User, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids, ok, err := s.cache.GetSuggestions(ctx, userID)
	if err != nil {
		s.logger.Warnf("suggestion cache read failed for %v: %v", userID, err)
	}
	if ok {
		ids = withoutFriends(user, ids)
	} else {
		friends, err := s.store.GetUsersByIDs(ctx, user.Friends.Slice())
		if err != nil {
			return nil, fmt.Errorf("failed to load friends of %v: %w", userID, err)
		}
		ids = relationship.Suggestions(user, friends)
		if err := s.cache.SetSuggestions(ctx, userID, ids); err != nil {
			s.logger.Warnf("suggestion cache write failed for %v: %v", userID, err)
		}
	}

	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return orderByIDs(users, ids), nil
}

// withoutFriends drops user and user's current friends from ids.
func withoutFriends(user *models.User, ids []uuid.UUID) []uuid.UUID {
	out := ids[:0:0]
	for _, id := range ids {
		if id == user.ID || user.Friends.Has(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Friends lists the friends of userID.
func (s *Service) Friends(ctx context.Context, userID uuid.UUID) ([]*models.User, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.GetUsersByIDs(ctx, user.Friends.Slice())
}

// Requests lists the users with a pending request on userID.
func (s *Service) Requests(ctx context.Context, userID uuid.UUID) ([]*models.User, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.GetUsersByIDs(ctx, user.Requests.Slice())
}

// Profile loads otherID together with how viewerID relates to them.
func (s *Service) Profile(ctx context.Context, viewerID, otherID uuid.UUID) (*models.User, models.RelationStatus, error) {
	viewer, other, err := s.loadPair(ctx, viewerID, otherID)
	if err != nil {
		return nil, models.RelationStatus{}, err
	}
	return other, relationship.Status(viewer, other), nil
}

// RecordActivity queues an activity record for the historian. A uuid.Nil target
// is recorded without one.
func (s *Service) RecordActivity(ctx context.Context, typ string, actor, target uuid.UUID) {
	rec := models.ActivityRecord{
		ID:        uuid.New(),
		ActorID:   actor,
		Type:      typ,
		Timestamp: time.Now().UnixMilli(),
	}
	if target != uuid.Nil {
		rec.TargetID = &target
	}
	if err := s.cache.PublishActivity(ctx, rec); err != nil {
		s.logger.Warnf("failed to publish %s activity for %v: %v", typ, actor, err)
	}
}

func (s *Service) notify(userID uuid.UUID, ev models.FriendEvent) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(userID, ev)
}

// orderByIDs returns users in the order of ids, dropping ids with no user.
func orderByIDs(users []*models.User, ids []uuid.UUID) []*models.User {
	byID := make(map[uuid.UUID]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out
}
