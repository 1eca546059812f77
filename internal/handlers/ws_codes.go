// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the notification socket.
const (
	InvalidAuthTokenError = 3001 // Provided auth token was missing, invalid or expired.
	InvalidUserIDError    = 3002 // User ID derived from token was malformed or no longer exists.
	NotificationsDisabled = 3003 // The server runs without a notification hub.
)
