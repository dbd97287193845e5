package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, hub *Hub, userID uint) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, userID)
	}))
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return hub.Connections(userID) > 0 }, time.Second, 10*time.Millisecond)
	return conn
}

func TestHub_PublishReachesOnlyTargetUser(t *testing.T) {
	hub := NewHub()
	alice := dial(t, hub, 1)
	bob := dial(t, hub, 2)

	hub.Publish(1, Event{Type: "message", Payload: map[string]string{"content": "hi"}})

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got Event
	require.NoError(t, alice.ReadJSON(&got))
	assert.Equal(t, "message", got.Type)
	assert.Equal(t, map[string]any{"content": "hi"}, got.Payload)

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub := NewHub()
	conn := dial(t, hub, 7)
	assert.Equal(t, 1, hub.Connections(7))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connections(7) == 0 }, 2*time.Second, 10*time.Millisecond)

	// Publishing to a user with no connections is a no-op
	hub.Publish(7, Event{Type: "message"})
}
