package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeWs_EndToEnd(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, r.URL.Query().Get("recipient"))
		close(registered)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?recipient=a@x.com"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("client was not registered")
	}

	require.NoError(t, hub.Publish(context.Background(), "t", eventFor("b@x.com")))
	require.NoError(t, hub.Publish(context.Background(), "t", eventFor("a@x.com")))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, body, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)
	assert.Contains(t, string(body), `"recipient":"a@x.com"`)
}

func TestServeWs_UpgradeFailure(t *testing.T) {
	hub := NewHub()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()

	ServeWs(hub, w, req, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
