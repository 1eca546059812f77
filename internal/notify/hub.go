// internal/notify/hub.go
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/circle/internal/models"
	"github.com/sirupsen/logrus"
)

const outBufferSize = 16

// Conn is one websocket subscriber.
type Conn struct {
	UserID  uuid.UUID
	OutChan chan models.FriendEvent
}

// Hub fans relationship events out to the websocket connections of each user.
// A user may hold several connections.
type Hub struct {
	mu     sync.Mutex
	conns  map[uuid.UUID]map[*Conn]struct{}
	logger *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		conns:  make(map[uuid.UUID]map[*Conn]struct{}),
		logger: logger,
	}
}

// Register adds a subscriber for userID.
func (h *Hub) Register(userID uuid.UUID) *Conn {
	conn := &Conn{UserID: userID, OutChan: make(chan models.FriendEvent, outBufferSize)}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[userID]
	if !ok {
		set = make(map[*Conn]struct{})
		h.conns[userID] = set
	}
	set[conn] = struct{}{}
	return conn
}

// Unregister removes the subscriber and closes its channel. Safe to call twice.
func (h *Hub) Unregister(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[conn.UserID]
	if !ok {
		return
	}
	if _, ok := set[conn]; !ok {
		return
	}
	delete(set, conn)
	close(conn.OutChan)
	if len(set) == 0 {
		delete(h.conns, conn.UserID)
	}
}

// Notify delivers the event to every connection of userID. Slow subscribers drop events.
func (h *Hub) Notify(userID uuid.UUID, ev models.FriendEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns[userID] {
		select {
		case conn.OutChan <- ev:
		default:
			h.logger.Warnf("notify: dropping %s event for user %v, buffer full", ev.Type, userID)
		}
	}
}

// Connected reports how many connections userID currently holds.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[userID])
}

// Serve pumps events for conn onto c until the client goes away or ctx ends.
// Inbound messages are discarded.
func (h *Hub) Serve(ctx context.Context, c *websocket.Conn, conn *Conn) error {
	ctx = c.CloseRead(ctx)
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-conn.OutChan:
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warnf("notify: failed to marshal event for user %v: %v", conn.UserID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return err
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}
