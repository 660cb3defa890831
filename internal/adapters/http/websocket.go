package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/samirrijal/wanderplan/internal/core/ports"
	"github.com/samirrijal/wanderplan/internal/pkg/metrics"
)

// wsMessage is sent from client to follow or stop following a run.
type wsMessage struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe"
	RunID  string `json:"runId"`
}

// WebSocketHandler relays the stage transitions of planning runs to the
// client. A run can be followed from the start with /ws?run=<id>, or with
// {"action":"subscribe","runId":"..."} messages. Events published before the
// subscription are replayed, so a client may connect after POSTing a plan.
func WebSocketHandler(events RunEvents) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		log := slog.Default().With("remote_addr", c.RemoteAddr().String())
		log.Debug("ws client connected")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var mu sync.Mutex
		subs := make(map[string]func()) // run id -> cancel

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		subscribe := func(runID string) {
			if _, err := uuid.Parse(runID); err != nil {
				_ = writeJSON(map[string]string{"error": "runId must be a UUID"})
				return
			}
			if _, exists := subs[runID]; exists {
				_ = writeJSON(map[string]string{"status": "already subscribed", "runId": runID})
				return
			}
			stop, err := events.SubscribeRun(ctx, runID, func(ev ports.RunEvent) {
				_ = writeJSON(ev)
			})
			if err != nil {
				log.Warn("ws subscribe failed", "run_id", runID, "error", err)
				_ = writeJSON(map[string]string{"error": "subscribe failed"})
				return
			}
			subs[runID] = stop
			_ = writeJSON(map[string]string{"status": "subscribed", "runId": runID})
		}

		if runID := c.Query("run"); runID != "" {
			subscribe(runID)
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "subscribe":
				subscribe(m.RunID)
			case "unsubscribe":
				if stop, exists := subs[m.RunID]; exists {
					stop()
					delete(subs, m.RunID)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "runId": m.RunID})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + m.RunID})
				}
			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, stop := range subs {
			stop()
		}
		log.Debug("ws client disconnected", "subscriptions", len(subs))
	}
}
