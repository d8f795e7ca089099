package services

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub routes events to websocket clients by connection id.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{clients: make(map[string]*Client), log: log}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Infof("[Hub] client %s connected as %s (total=%d)", c.id, c.identity.UserID, n)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
	}
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Infof("[Hub] client %s disconnected (total=%d)", c.id, n)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify never blocks; a recipient whose buffer is full misses the event.
func (h *Hub) Notify(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Errorf("[Hub] marshal %s: %v", ev.Kind, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range ev.Recipients {
		c, ok := h.clients[id]
		if !ok {
			continue
		}
		if !c.trySend(data) {
			h.log.Warnf("[Hub] dropped %s for client %s", ev.Kind, id)
		}
	}
}
