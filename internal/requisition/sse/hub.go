package sse

import (
	"encoding/json"
	"sync"

	"github.com/bitfantasy/requisition/internal/requisition/entity"
	"github.com/bitfantasy/requisition/internal/requisition/workflow"
	"go.uber.org/zap"
)

// Event represents a Server-Sent Event
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client is one open event stream.
type Client struct {
	ID     string
	Actor  entity.Actor
	Events chan Event
}

// Hub fans request events out to connected clients. Each client only
// receives events for requests its actor can see.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.logger.Debug("SSE client registered",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.Actor.ID),
		zap.Int("total", len(h.clients)))
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		h.logger.Debug("SSE client unregistered",
			zap.String("client_id", clientID),
			zap.Int("total", len(h.clients)))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type requestEvent struct {
	ID            string        `json:"id"`
	RequestNumber string        `json:"request_number"`
	From          entity.Status `json:"from,omitempty"`
	Status        entity.Status `json:"status"`
	ActorID       string        `json:"actor_id"`
	ActorRole     entity.Role   `json:"actor_role"`
}

// RequestChanged publishes a request_update event. from is empty for newly created requests.
func (h *Hub) RequestChanged(pr *entity.PurchaseRequest, from entity.Status, actor entity.Actor) {
	data, err := json.Marshal(requestEvent{
		ID:            pr.ID,
		RequestNumber: pr.RequestNumber,
		From:          from,
		Status:        pr.Status,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
	})
	if err != nil {
		h.logger.Error("SSE marshal failed", zap.Error(err))
		return
	}
	event := Event{EventType: "request_update", Data: string(data)}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !workflow.CanView(client.Actor, pr) && client.Actor.ID != pr.RequesterID {
			continue
		}
		select {
		case client.Events <- event:
		default:
			h.logger.Warn("SSE client buffer full, skipping event", zap.String("client_id", client.ID))
		}
	}
}
