package notify

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/circle/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToEveryConnection(t *testing.T) {
	h := NewHub(logrus.New())
	user := uuid.New()
	c1 := h.Register(user)
	c2 := h.Register(user)
	other := h.Register(uuid.New())

	ev := models.FriendEvent{Type: "friend_request", FromID: uuid.New()}
	h.Notify(user, ev)

	require.Len(t, c1.OutChan, 1)
	require.Len(t, c2.OutChan, 1)
	assert.Equal(t, ev, <-c1.OutChan)
	assert.Empty(t, other.OutChan)
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub(logrus.New())
	user := uuid.New()
	c := h.Register(user)

	for i := 0; i < outBufferSize+5; i++ {
		h.Notify(user, models.FriendEvent{Type: "friend_request"})
	}
	assert.Len(t, c.OutChan, outBufferSize)
}

func TestHubUnregister(t *testing.T) {
	h := NewHub(logrus.New())
	user := uuid.New()
	c := h.Register(user)
	assert.Equal(t, 1, h.Connected(user))

	h.Unregister(c)
	h.Unregister(c)
	assert.Equal(t, 0, h.Connected(user))

	_, ok := <-c.OutChan
	assert.False(t, ok, "channel should be closed")

	// no panic on a user without subscribers
	h.Notify(user, models.FriendEvent{Type: "friend_request"})
}

func TestNilHubNotify(t *testing.T) {
	var h *Hub
	h.Notify(uuid.New(), models.FriendEvent{})
}
