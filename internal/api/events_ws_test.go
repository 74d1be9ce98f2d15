package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestSolveEventsWebSocket(t *testing.T) {
	s := newTestServer()
	srv := httptest.NewServer(http.HandlerFunc(s.SolveByIDHandler))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/solves/abc/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the handler a moment to register the subscription.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.Broker.Publish("abc", Event{Type: "solve.completed", Data: map[string]any{"routes": float64(1)}})
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		var evt Event
		if err := conn.ReadJSON(&evt); err == nil {
			if evt.Type != "solve.completed" {
				t.Fatalf("event = %+v", evt)
			}
			return
		}
	}
	t.Fatal("never received the published event")
}
