package live

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// conn is one WebSocket subscriber of a feed.
type conn struct {
	id    string
	hub   *Hub
	feed  *feed
	ws    *websocket.Conn
	scope *reactive.Scope
	send  chan []byte

	dropOnce sync.Once
}

func (h *Hub) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Feeds())
}

func (h *Hub) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	f, ok := h.lookup(chi.URLParam(r, "name"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	data := f.snapshot()
	if data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Hub) handleStream(w http.ResponseWriter, r *http.Request) {
	f, ok := h.lookup(chi.URLParam(r, "name"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "feed", f.name, "error", err)
		return
	}

	c := &conn{
		id:    uuid.NewString(),
		hub:   h,
		feed:  f,
		ws:    ws,
		scope: reactive.NewScope(h.scope),
		send:  make(chan []byte, h.config.SendBuffer),
	}
	h.conns.Add(1)
	h.metrics.opened()
	h.logger.Info("live connection opened", "conn", c.id, "feed", f.name)

	f.subscribe(c.enqueue, c.scope)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writeLoop()
	}()

	c.readLoop()
	c.scope.Cancel()
	<-done

	h.conns.Add(-1)
	h.metrics.closed()
	h.logger.Info("live connection closed", "conn", c.id, "feed", f.name)
}

// enqueue hands a snapshot to the writer. A connection whose buffer is full
// has fallen behind and is dropped.
func (c *conn) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		c.dropOnce.Do(func() {
			c.hub.metrics.drop(c.feed.name)
			c.hub.logger.Warn("live connection too slow, dropping", "conn", c.id, "feed", c.feed.name)
			go c.scope.Cancel()
		})
	}
}

// readLoop discards client messages until the connection fails or closes.
func (c *conn) readLoop() {
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.logger.Debug("live connection read error", "conn", c.id, "error", err)
			}
			return
		}
	}
}

// writeLoop owns every write on the socket and closes it on exit.
func (c *conn) writeLoop() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	timeout := c.hub.config.WriteTimeout
	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(timeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.hub.logger.Debug("live write failed", "conn", c.id, "error", err)
				c.scope.Cancel()
				return
			}
			c.hub.metrics.delivered(c.feed.name)
			c.hub.logger.Debug("sent snapshot", "conn", c.id, "feed", c.feed.name, "bytes", len(data))

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(timeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.scope.Cancel()
				return
			}

		case <-c.scope.Done():
			c.ws.SetWriteDeadline(time.Now().Add(timeout))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
