package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tradelog/journal-engine/internal/metrics"
)

// dialTestConn upgrades a real WebSocket pair and returns the
// server-side connection.
func dialTestConn(t *testing.T) (server, client *websocket.Conn, cleanup func()) {
	t.Helper()
	serverCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverCh <- conn
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	server = <-serverCh
	return server, client, func() {
		client.Close()
		server.Close()
		srv.Close()
	}
}

func TestBroadcast_DropsDeadClientAndGauge(t *testing.T) {
	hub := NewWSHub()
	dead, client, cleanup := dialTestConn(t)
	defer cleanup()

	before := testutil.ToFloat64(metrics.WebSocketClients)

	hub.mu.Lock()
	hub.clients[dead] = true
	hub.mu.Unlock()
	metrics.WebSocketClients.Inc()

	// Close both ends so the next write fails.
	client.Close()
	dead.Close()

	hub.broadcastToClients([]byte(`{"type":"trade_recorded"}`))

	hub.mu.RLock()
	_, present := hub.clients[dead]
	hub.mu.RUnlock()
	if present {
		t.Error("connection with a failed write should be removed")
	}
	if got := testutil.ToFloat64(metrics.WebSocketClients); got != before {
		t.Errorf("client gauge should return to %v after removal, got %v", before, got)
	}
}

func TestBroadcast_KeepsLiveClient(t *testing.T) {
	hub := NewWSHub()
	server, client, cleanup := dialTestConn(t)
	defer cleanup()

	hub.mu.Lock()
	hub.clients[server] = true
	hub.mu.Unlock()
	metrics.WebSocketClients.Inc()
	defer metrics.WebSocketClients.Dec()

	hub.broadcastToClients([]byte(`{"type":"grid_recorded"}`))

	_, msg, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != `{"type":"grid_recorded"}` {
		t.Errorf("unexpected message %q", msg)
	}

	hub.mu.RLock()
	_, present := hub.clients[server]
	hub.mu.RUnlock()
	if !present {
		t.Error("healthy connection should survive a broadcast")
	}
}
