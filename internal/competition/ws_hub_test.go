package competition

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestWSHub_BroadcastEvictsDeadClients(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	alive := dialWS(t, srv)
	defer alive.Close()
	dead := dialWS(t, srv)

	// Let both registrations land before killing one connection.
	time.Sleep(100 * time.Millisecond)
	dead.Close()

	// Repeated broadcasts hit the failed-write eviction path while the
	// per-connection ping goroutines read the client set concurrently.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			hub.Broadcast(WSMessage{Type: "phase_changed", Phase: "ongoing"})
			time.Sleep(5 * time.Millisecond)
		}
	}()

	alive.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := alive.ReadMessage(); err != nil {
		t.Fatalf("surviving client should keep receiving events: %v", err)
	}
	<-done
}
