package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/circle/internal/auth"
	"github.com/jason-s-yu/circle/internal/database"
	"github.com/jason-s-yu/circle/internal/models"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
}

// RegisterHandler creates an account and signs the new user in.
//
// Request payload:
//
//	{ "name": "...", "email": "...", "password": "...", "avatar": "https://..." }
//
// Response payload:
//
//	{ "success": true, "user": {...}, "token": "{jwt}" }
func (s *APIServer) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Please enter name, email and password")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	user := &models.User{
		Name:      req.Name,
		Email:     req.Email,
		Password:  hash,
		AvatarURL: req.Avatar,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.friends.RecordActivity(r.Context(), models.ActivityUserRegistered, user.ID, uuid.Nil)

	s.signIn(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler checks the credentials and returns a token, also sent as the
// auth_token cookie.
func (s *APIServer) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Please enter email and password")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := auth.CheckPassword(req.Password, user.Password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warnf("password check failed for %v: %v", user.ID, err)
		}
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	s.signIn(w, http.StatusOK, user)
}

// signIn issues a token for user and writes it as cookie and body.
func (s *APIServer) signIn(w http.ResponseWriter, status int, user *models.User) {
	token, err := auth.CreateJWT(user.ID.String())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.setAuthCookie(w, token)
	writeJSON(w, status, envelope{"user": user, "token": token})
}

func (s *APIServer) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	writeJSON(w, http.StatusOK, envelope{"message": "Logged out"})
}

type updatePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (s *APIServer) UpdatePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if err := decodeJSON(r, &req); err != nil || req.OldPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "Please enter old and new password")
		return
	}

	user, err := s.store.GetUserByID(r.Context(), callerID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := auth.CheckPassword(req.OldPassword, user.Password); err != nil {
		writeError(w, http.StatusBadRequest, "Incorrect Old password")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.store.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "Password Updated"})
}

type updateProfileRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// UpdateProfileHandler changes any of name, email and avatar. Empty fields are kept.
func (s *APIServer) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	user, err := s.store.GetUserByID(r.Context(), callerID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if email := strings.TrimSpace(strings.ToLower(req.Email)); email != "" {
		user.Email = email
	}
	if req.Avatar != "" {
		user.AvatarURL = req.Avatar
	}

	if err := s.store.SaveUsers(r.Context(), user); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "Profile Updated", "user": user})
}

// DeleteMeHandler removes the caller's account, posts and every reference to it.
func (s *APIServer) DeleteMeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := s.store.GetUserByID(ctx, callerID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.store.DeleteUser(ctx, user.ID); err != nil {
		s.writeServiceError(w, err)
		return
	}

	// friends may have the deleted user cached as a suggestion source
	stale := append(user.Friends.Slice(), user.ID)
	if err := s.cache.InvalidateSuggestions(ctx, stale...); err != nil {
		s.logger.Warnf("failed to invalidate suggestions after deleting %v: %v", user.ID, err)
	}
	s.friends.RecordActivity(ctx, models.ActivityUserDeleted, user.ID, uuid.Nil)

	s.clearAuthCookie(w)
	writeJSON(w, http.StatusOK, envelope{"message": "Profile Deleted"})
}

// MeHandler returns the caller's profile and posts.
func (s *APIServer) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUserByID(r.Context(), callerID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	posts, err := s.store.GetPostsByOwner(r.Context(), user.ID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"user": user, "posts": posts})
}

func (s *APIServer) MyPostsHandler(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.GetPostsByOwner(r.Context(), callerID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"posts": posts})
}

func (s *APIServer) UserPostsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := s.store.GetUserByID(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	posts, err := s.store.GetPostsByOwner(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"posts": posts})
}

// UserProfileHandler returns another user's profile, posts and how the caller
// relates to them.
func (s *APIServer) UserProfileHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, rel, err := s.friends.Profile(r.Context(), callerID(r), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	posts, err := s.store.GetPostsByOwner(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"user":        user,
		"posts":       posts,
		"isFriend":    rel.IsFriend,
		"isRequested": rel.IsRequested,
	})
}

// SearchUsersHandler finds users by name, excluding the caller.
func (s *APIServer) SearchUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.SearchUsers(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	me := callerID(r)
	out := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u.ID != me {
			out = append(out, u)
		}
	}
	writeJSON(w, http.StatusOK, envelope{"users": out})
}
