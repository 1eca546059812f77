package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/circle/internal/middleware"
)

// callerID returns the id RequireAuth stored on the request.
func callerID(r *http.Request) uuid.UUID {
	id, _ := middleware.UserIDFromContext(r.Context())
	return id
}

// pathID parses the {id} path segment, writing a 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return parseID(w, r.PathValue("id"))
}

// queryID parses a user id passed in a query parameter.
func queryID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	return parseID(w, r.URL.Query().Get(key))
}

func parseID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *APIServer) setAuthCookie(w http.ResponseWriter, token string) {
	c := &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	}
	if s.opts.TokenTTL > 0 {
		c.MaxAge = int(s.opts.TokenTTL.Seconds())
	}
	http.SetCookie(w, c)
}

func (s *APIServer) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
