// Package gateway pushes fired signals to WebSocket subscribers. It is a
// reduced hub: clients connect at /ws and receive every dispatched signal as
// JSON; slow clients are dropped rather than buffered without bound.
package gateway

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"whale-trap-scanner/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Signals are broadcast-only; any origin may subscribe.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub manages WebSocket clients and fans fired signals out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	broadcast chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]bool),
		broadcast: make(chan []byte, 64),
	}
}

// Broadcast queues a signal for fan-out. Non-blocking: if the hub is backed
// up the signal is dropped (subscribers are observers, not consumers).
func (h *Hub) Broadcast(sig *model.Signal) {
	select {
	case h.broadcast <- sig.JSON():
	default:
		log.Printf("[gateway] broadcast queue full, dropping signal for %s", sig.Symbol)
	}
}

// Run fans queued signals out to connected clients until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client: drop it rather than block the hub.
					go h.remove(c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ServeWS upgrades an HTTP request to a WebSocket subscription.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] upgrade failed: %v", err)
		return
	}

	c := newClient(h, conn)
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	log.Printf("[gateway] client connected (%d total)", h.ClientCount())
	go c.writePump()
	go c.readPump()
}

// Serve runs an HTTP server exposing /ws until ctx is cancelled.
func (h *Hub) Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[gateway] serving websocket on %s/ws", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[gateway] server error: %v", err)
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}
