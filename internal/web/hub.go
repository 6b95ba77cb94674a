package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// WSHub manages WebSocket connections and broadcasts state events.
type WSHub struct {
	clients map[*wsClient]struct{}
	mu      sync.Mutex
	logger  *slog.Logger

	broadcast chan interface{}
	done      chan struct{}
	stopOnce  sync.Once
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub(logger *slog.Logger) *WSHub {
	return &WSHub{
		clients:   make(map[*wsClient]struct{}),
		logger:    logger,
		broadcast: make(chan interface{}, 64),
		done:      make(chan struct{}),
	}
}

// Run drains the broadcast channel until Stop is called.
func (h *WSHub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Error("ws marshal", "err", err)
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Slow client; drop it rather than block the hub.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop shuts down the hub and closes all clients.
func (h *WSHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast queues a message for all connected clients.
func (h *WSHub) Broadcast(msg interface{}) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Debug("ws broadcast queue full, dropping")
	}
}

// ServeHTTP upgrades the connection and streams broadcasts to it.
func (h *WSHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Debug("ws accept", "err", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 16)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("ws client connected", "total", total)

	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			close(client.send)
		}
		total := len(h.clients)
		h.mu.Unlock()
		h.logger.Debug("ws client disconnected", "total", total)
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	// Incoming messages are ignored; reading only surfaces closes.
	readCtx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		for {
			if _, _, err := conn.Read(readCtx); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-readCtx.Done():
			return
		case data, ok := <-client.send:
			if !ok {
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(readCtx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, data)
			cancelWrite()
			if err != nil {
				return
			}
		}
	}
}
