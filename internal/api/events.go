package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// wsUpgrader accepts any origin: the API is already CORS-open and stream
// credentials ride in the query string.
var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// streamEvents pushes debate progress over Server-Sent Events. One stream
// carries every task's events; clients filter on data.task_id.
func (s *Server) streamEvents(c echo.Context) error {
	// Subscribe before the response headers go out: once the client sees
	// the 200 it may immediately submit work and expect its events here.
	sub := s.bus.Subscribe()
	defer sub.Close()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev.Data)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to marshal event for SSE stream")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			w.Flush()
		case <-ticker.C:
			// Comment line keeps proxies from idling the connection out.
			fmt.Fprint(w, ": heartbeat\n\n")
			w.Flush()
		}
	}
}

// streamEventsWS pushes the same events over a WebSocket. Each frame is one
// JSON event envelope.
func (s *Server) streamEventsWS(c echo.Context) error {
	sub := s.bus.Subscribe()
	defer sub.Close()

	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Drain inbound frames so close and ping/pong control handling works.
	// The stream is one-way; payloads from the client are ignored.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return nil
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}
