package ws

import (
	"sync"

	"gold_mining/internal/logger"
	"gold_mining/internal/service"
)

// Hub fans committed player updates out to the sockets watching that
// player. A wallet may be open in several tabs.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.Address]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.Address] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.Address]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.Send)
	if len(set) == 0 {
		delete(h.clients, c.Address)
	}
}

// Notify implements service.Notifier. It never blocks; a client whose
// buffer is full misses the update and catches up on the next one.
func (h *Hub) Notify(address string, view *service.PlayerView) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.clients[address]
	if len(set) == 0 {
		return
	}

	msg, err := encode(MsgStatus, view)
	if err != nil {
		logger.Error("ws: encode status", "address", address, "error", err)
		return
	}
	for c := range set {
		select {
		case c.Send <- msg:
		default:
			logger.Warn("ws: send buffer full, dropping status", "address", address)
		}
	}
}

// Connections returns the number of open sockets for address.
func (h *Hub) Connections(address string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[address])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for addr, set := range h.clients {
		for c := range set {
			close(c.Send)
		}
		delete(h.clients, addr)
	}
}
