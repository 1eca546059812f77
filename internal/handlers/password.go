// internal/handlers/password.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jason-s-yu/circle/internal/auth"
	"github.com/jason-s-yu/circle/internal/database"
	"github.com/jason-s-yu/circle/internal/models"
)

// ForgotPasswordHandler stores a hashed reset token for the account and queues a
// mail carrying the raw token in a reset link.
//
// Request payload: { "email": "someone@example.com" }
func (s *APIServer) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Please enter your email")
		return
	}

	ctx := r.Context()
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	raw, hash, expires, err := auth.NewResetToken(s.opts.ResetTokenTTL)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.store.SetResetToken(ctx, user.ID, hash, expires); err != nil {
		s.writeServiceError(w, err)
		return
	}

	link := fmt.Sprintf("%s/password/reset/%s", s.opts.PublicURL, raw)
	job := models.MailJob{
		To:      user.Email,
		Subject: "Password recovery",
		Body: fmt.Sprintf("Your reset password token is:\n\n%s\n\nIf you have not requested this email then please ignore it.",
			link),
	}
	if err := s.cache.QueueMail(ctx, job); err != nil {
		if clearErr := s.store.SetResetToken(ctx, user.ID, "", time.Time{}); clearErr != nil {
			s.logger.Errorf("failed to clear reset token for %v: %v", user.ID, clearErr)
		}
		s.logger.Errorf("failed to queue reset mail for %v: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to send reset email")
		return
	}

	writeJSON(w, http.StatusOK, envelope{"message": "Email sent to " + user.Email})
}

// ResetPasswordHandler sets a new password for the account owning {token} and
// signs the user in.
//
// Request payload: { "password": "..." }
func (s *APIServer) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Please enter a new password")
		return
	}

	ctx := r.Context()
	user, err := s.store.GetUserByResetToken(ctx, auth.HashResetToken(r.PathValue("token")), time.Now())
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "Reset password token is invalid or has expired")
		return
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.store.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.signIn(w, http.StatusOK, user)
}
