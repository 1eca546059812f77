// internal/handlers/friend.go
package handlers

import (
	"net/http"
)

// ToggleRequestHandler sends the caller's friend request to {id}, or cancels it
// when one is already pending.
//
// Response payload: { "success": true, "message": "Friend request sent", "status": "sent" }
func (s *APIServer) ToggleRequestHandler(w http.ResponseWriter, r *http.Request) {
	target, ok := pathID(w, r)
	if !ok {
		return
	}
	status, err := s.friends.ToggleRequest(r.Context(), callerID(r), target)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": status.Message(), "status": status})
}

// AcceptRequestHandler accepts the pending request {id} sent to the caller.
func (s *APIServer) AcceptRequestHandler(w http.ResponseWriter, r *http.Request) {
	requester, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.friends.Accept(r.Context(), callerID(r), requester); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "Friend Request Accepted"})
}

// DeclineRequestHandler drops the pending request {id} sent to the caller. Declining
// a request that does not exist is not an error.
func (s *APIServer) DeclineRequestHandler(w http.ResponseWriter, r *http.Request) {
	requester, ok := pathID(w, r)
	if !ok {
		return
	}
	removed, err := s.friends.Decline(r.Context(), callerID(r), requester)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	msg := "Friend Request Declined"
	if !removed {
		msg = "No pending friend request"
	}
	writeJSON(w, http.StatusOK, envelope{"message": msg})
}

func (s *APIServer) FriendsHandler(w http.ResponseWriter, r *http.Request) {
	friends, err := s.friends.Friends(r.Context(), callerID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"friends": friends})
}

// OthersFriendsHandler lists the friends of the user given in ?name=<id>.
func (s *APIServer) OthersFriendsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "name")
	if !ok {
		return
	}
	friends, err := s.friends.Friends(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"allFriendsOfOthers": friends})
}

// MutualFriendsHandler lists the friends shared by the caller and ?name=<id>.
func (s *APIServer) MutualFriendsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "name")
	if !ok {
		return
	}
	mutual, err := s.friends.MutualFriends(r.Context(), callerID(r), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"mutualFriends": mutual})
}

func (s *APIServer) RequestsHandler(w http.ResponseWriter, r *http.Request) {
	requests, err := s.friends.Requests(r.Context(), callerID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"requests": requests})
}

func (s *APIServer) SuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.friends.Suggestions(r.Context(), callerID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"suggestions": suggestions})
}
