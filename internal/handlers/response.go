// internal/handlers/response.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jason-s-yu/circle/internal/database"
	"github.com/jason-s-yu/circle/internal/relationship"
)

// envelope is the JSON body of every API response: success, an optional message
// and the payload fields side by side.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	if body == nil {
		body = envelope{}
	}
	body["success"] = status < http.StatusBadRequest
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{"message": msg})
}

// writeServiceError maps store and relationship errors onto HTTP statuses.
func (s *APIServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, relationship.ErrNotFound), errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, relationship.ErrInvalidState):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrEmailTaken):
		writeError(w, http.StatusConflict, "User already exists")
	default:
		s.logger.Errorf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
