// Package main runs a demo WebSocket client for solve events: it subscribes
// to a pre-picked solve id, posts a small solve request under that id, and
// prints the pipeline events as they arrive.
package main

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)
	solveID := uuid.New().String()
	log.Printf("Solve ID: %s", solveID)

	// Subscribe first so no event is missed.
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/solves/" + solveID + "/events/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var evt struct {
				Type string         `json:"type"`
				Data map[string]any `json:"data"`
			}
			if err := c.ReadJSON(&evt); err != nil {
				return
			}
			log.Printf("WS <- %s: %v", evt.Type, evt.Data)
		}
	}()

	body := []byte(`{
        "orders": [
            {"id": "o1", "tracking_id": "t1", "address": "1 Main St", "lat": 40.7128, "lng": -74.0060, "weight": 5},
            {"id": "o2", "tracking_id": "t2", "address": "2 Main St", "lat": 40.7306, "lng": -73.9866, "weight": 3}
        ],
        "vehicles": [{"id": "v1", "identifier": "van-1", "max_weight": 100, "max_volume": 100}],
        "config": {"depot": {"lat": 40.72, "lng": -74.0}, "objective": "BALANCED"}
    }`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/solve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Solve-Id", solveID)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("solve status: %s", resp.Status)

	// Wait briefly to drain remaining events.
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
