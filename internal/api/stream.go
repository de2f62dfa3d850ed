package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"nodedesk/pkg/settings"
)

const (
	writeWait    = 5 * time.Second
	clientBuffer = 8
)

// StreamMessage is one frame on the settings stream.
type StreamMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// StreamHub pushes the settings state to websocket clients after every
// accepted transition. Updates published faster than the hub can fan them
// out collapse to the latest state.
type StreamHub struct {
	upgrader websocket.Upgrader
	snapshot func() settings.State
	log      *slog.Logger

	clients    map[uuid.UUID]*streamClient
	register   chan *streamClient
	unregister chan *streamClient
	done       chan struct{}

	pendingMu sync.Mutex
	pending   *settings.State
	notify    chan struct{}
}

type streamClient struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// NewStreamHub creates a hub. snapshot provides the state sent on connect;
// origins decides which browser pages may open the stream.
func NewStreamHub(snapshot func() settings.State, origins *OriginPolicy, logger *slog.Logger) *StreamHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.CheckRequest,
		},
		snapshot:   snapshot,
		log:        logger,
		clients:    make(map[uuid.UUID]*streamClient),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		done:       make(chan struct{}),
		notify:     make(chan struct{}, 1),
	}
}

// Run serves the hub until ctx ends, then disconnects every client.
func (h *StreamHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for id, c := range h.clients {
				delete(h.clients, id)
				close(c.send)
			}
			return

		case c := <-h.register:
			h.clients[c.id] = c
			h.log.Debug("Stream: client connected", "client", c.id, "clients", len(h.clients))
			// Registered first, so any later transition is broadcast after
			// this snapshot.
			data, err := encodeState(h.snapshot())
			if err != nil {
				h.log.Error("Stream: failed to encode state", "error", err)
				continue
			}
			c.send <- data

		case c := <-h.unregister:
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.send)
				h.log.Debug("Stream: client disconnected", "client", c.id, "clients", len(h.clients))
			}

		case <-h.notify:
			h.pendingMu.Lock()
			st := h.pending
			h.pending = nil
			h.pendingMu.Unlock()
			if st == nil {
				continue
			}
			data, err := encodeState(*st)
			if err != nil {
				h.log.Error("Stream: failed to encode state", "error", err)
				continue
			}
			for id, c := range h.clients {
				select {
				case c.send <- data:
				default:
					h.log.Warn("Stream: dropping slow client", "client", id)
					delete(h.clients, id)
					close(c.send)
				}
			}
		}
	}
}

// Publish queues st for every client, replacing any state not yet sent. It
// never blocks, so it is safe to call from a store subscriber.
func (h *StreamHub) Publish(st settings.State) {
	h.pendingMu.Lock()
	h.pending = &st
	h.pendingMu.Unlock()
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// HandleWS upgrades the connection and streams state updates to it.
func (h *StreamHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Stream: upgrade failed", "error", err)
		return
	}

	c := &streamClient{id: uuid.New(), conn: conn, send: make(chan []byte, clientBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	c.readPump(h)
}

func (c *streamClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump discards client frames until the connection closes.
func (c *streamClient) readPump(h *StreamHub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func encodeState(st settings.State) ([]byte, error) {
	return json.Marshal(StreamMessage{Type: "settings", Data: st})
}
