package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestHub(t *testing.T) (*Hub, *gws.Conn) {
	t.Helper()
	hub := NewHub(slog.Default())
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, slog.Default(), w, r)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return hub, conn
}

func readMessage(t *testing.T, conn *gws.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_WelcomeMessage(t *testing.T) {
	_, conn := dialTestHub(t)
	msg := readMessage(t, conn)
	assert.Equal(t, TypeConnection, msg.Type)
	assert.Equal(t, "connected", msg.Status)
}

func TestHub_PublishSeriesStatus(t *testing.T) {
	hub, conn := dialTestHub(t)
	readMessage(t, conn) // welcome

	// Registration races with the publish; wait for the client to land.
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	hub.PublishSeriesStatus("Federal Funds Rate", "fetched", "312 observations")

	msg := readMessage(t, conn)
	assert.Equal(t, TypeSeriesStatus, msg.Type)
	assert.Equal(t, "Federal Funds Rate", msg.Label)
	assert.Equal(t, "fetched", msg.Status)
	assert.Equal(t, "312 observations", msg.Detail)
	assert.NotEmpty(t, msg.Timestamp)
}

func TestHub_ClientCount(t *testing.T) {
	hub, conn := dialTestHub(t)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		time.Second, 10*time.Millisecond)
}
