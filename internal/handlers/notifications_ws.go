// internal/handlers/notifications_ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/circle/internal/auth"
	"github.com/jason-s-yu/circle/internal/database"
	"github.com/jason-s-yu/circle/internal/middleware"
)

// NotificationsWSHandler streams relationship events for the authenticated user.
// The token may come from the Authorization header or the auth_token cookie.
func (s *APIServer) NotificationsWSHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		s.logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if s.hub == nil {
		c.Close(NotificationsDisabled, "notifications are disabled")
		return
	}

	sub, err := auth.AuthenticateJWT(middleware.TokenFromRequest(r))
	if err != nil {
		c.Close(InvalidAuthTokenError, "invalid auth token")
		return
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		c.Close(InvalidUserIDError, "invalid user id in token")
		return
	}
	if _, err := s.store.GetUserByID(r.Context(), userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.Close(InvalidUserIDError, "user does not exist")
			return
		}
		s.logger.Errorf("notifications: failed to load user %v: %v", userID, err)
		c.Close(websocket.StatusInternalError, "failed to load user")
		return
	}

	conn := s.hub.Register(userID)
	defer s.hub.Unregister(conn)

	middleware.LogWebSocketConnect(s.logger, r.RemoteAddr, r.URL.Path)
	err = s.hub.Serve(r.Context(), c, conn)
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		err = nil
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	middleware.LogWebSocketDisconnect(s.logger, r.RemoteAddr, r.URL.Path, err)
	c.Close(websocket.StatusNormalClosure, "")
}
