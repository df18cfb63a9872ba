package main

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"watch-trade-lab/internal/observability"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	// wsSendBuffer absorbs bursts of loops from a single match run.
	// Clients that fall further behind are disconnected.
	wsSendBuffer = 256
)

// loopHub broadcasts discovered loops to WebSocket subscribers.
type loopHub struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan loopDTO
	done chan struct{}
}

func newLoopHub(logger *log.Logger) *loopHub {
	return &loopHub{
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// handleSubscribe upgrades the connection and registers the subscriber.
func (h *loopHub) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan loopDTO, wsSendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	observability.DefaultMetrics.WSClientsConnected.Inc()

	go h.writeLoop(client)
	go h.readLoop(client)
}

// broadcast sends a loop to all subscribers. Clients with a full send
// buffer are dropped.
func (h *loopHub) broadcast(loop loopDTO) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- loop:
		default:
			h.removeLocked(client)
		}
	}
}

// writeLoop serializes all writes to the connection.
func (h *loopHub) writeLoop(client *wsClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case loop := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteJSON(loop); err != nil {
				h.remove(client)
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(client)
				return
			}
		case <-client.done:
			return
		}
	}
}

// readLoop drains the connection so close and ping control frames are
// processed. Subscribers are not expected to send data.
func (h *loopHub) readLoop(client *wsClient) {
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			h.remove(client)
			return
		}
	}
}

func (h *loopHub) remove(client *wsClient) {
	h.mu.Lock()
	h.removeLocked(client)
	h.mu.Unlock()
}

func (h *loopHub) removeLocked(client *wsClient) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.done)
	client.conn.Close()
	observability.DefaultMetrics.WSClientsConnected.Dec()
}

// closeAll disconnects every subscriber during shutdown.
func (h *loopHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(wsWriteTimeout))
		h.removeLocked(client)
	}
}
