// internal/websocket/hub.go
package websocket

import (
	"encoding/json"
	"sync"

	"resonate-service/internal/domain/session"

	"go.uber.org/zap"
)

// Hub fans notices out to every connected UI client of an account. The
// eviction and capacity notices ride this channel; there is no server-push
// enforcement, the validator remains the authority.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // account id -> clients
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.clients[c.accountID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.clients[c.accountID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.clients[c.accountID]
	if set == nil {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.accountID)
	}
}

// Notify pushes a notice to every client of the account. Slow clients are
// skipped rather than blocking the caller.
func (h *Hub) Notify(accountID string, n session.Notice) {
	payload, err := json.Marshal(n)
	if err != nil {
		h.logger.Error("failed to marshal notice", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[accountID] {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("dropping notice for slow websocket client",
				zap.String("account_id", accountID))
		}
	}
}

// ClientCount reports connected clients for an account (admin stats).
func (h *Hub) ClientCount(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[accountID])
}
