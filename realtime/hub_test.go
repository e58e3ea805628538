package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastsToClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(Event{Type: "sync_folder", FolderID: "f1", Counts: map[string]int{"syncedPhotos": 3}})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, "sync_folder", ev.Type)
		assert.Equal(t, "f1", ev.FolderID)
		assert.Equal(t, 3, ev.Counts["syncedPhotos"])
		assert.NotZero(t, ev.Timestamp)
	}
}

func TestHubDropsClosedClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubStopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func httpHandler(hub *Hub) http.Handler {
	return http.HandlerFunc(hub.ServeWS)
}
