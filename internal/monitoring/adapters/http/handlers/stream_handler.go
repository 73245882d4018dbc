package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamMessage is the envelope pushed to live subscribers
type StreamMessage struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// StreamHub fans newly created alerts out to connected WebSocket clients.
// It implements the rule engine's broadcaster interface. Slow clients are
// dropped rather than allowed to stall the hub.
type StreamHub struct {
	clients    map[*streamClient]bool
	register   chan *streamClient
	unregister chan *streamClient
	broadcast  chan []byte
	done       chan struct{}
	logger     logger.Logger
	mu         sync.RWMutex
}

// NewStreamHub creates a new alert stream hub
func NewStreamHub(logger logger.Logger) *StreamHub {
	return &StreamHub{
		clients:    make(map[*streamClient]bool),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes hub events until Close is called
func (h *StreamHub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Close stops the hub loop and disconnects all clients
func (h *StreamHub) Close() {
	close(h.done)
}

// BroadcastAlert pushes an alert to all connected clients
func (h *StreamHub) BroadcastAlert(alert *model.Alert) {
	h.push("alert.created", alert)
}

func (h *StreamHub) push(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to serialize stream payload", "event", event, "error", err)
		return
	}

	message, err := json.Marshal(StreamMessage{
		Event:     event,
		Data:      data,
		Timestamp: time.Now(),
	})
	if err != nil {
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("Stream backlog full, dropping message", "event", event)
	}
}

// ServeHTTP upgrades the connection and attaches it to the hub
func (h *StreamHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := &streamClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

// readPump discards inbound frames; the stream is one-way. It exists to
// notice client disconnects and keep pong handling alive.
func (h *StreamHub) readPump(client *streamClient) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
		client.conn.Close()
	}()

	client.conn.SetReadLimit(4096)
	client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHub) writePump(client *streamClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
