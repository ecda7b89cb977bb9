package services

import (
	"sync"
)

// SubmissionEvent is pushed to SSE clients on every submission transition.
type SubmissionEvent struct {
	ID           uint     `json:"id"`
	ProjectID    uint     `json:"project_id"`
	UserID       uint     `json:"user_id"`
	Status       string   `json:"status"`
	TriageStatus string   `json:"triage_status"`
	ReviewState  string   `json:"review_state"`
	AIScore      *float64 `json:"ai_score,omitempty"`
}

// SSEHub fans submission events out to connected clients. Delivery is best effort.
type SSEHub struct {
	clients map[string]chan SubmissionEvent
	mu      sync.RWMutex
}

func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]chan SubmissionEvent),
	}
}

// Subscribe registers a client and returns its event channel.
func (h *SSEHub) Subscribe(clientID string) <-chan SubmissionEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan SubmissionEvent, 100)
	h.clients[clientID] = ch
	return ch
}

func (h *SSEHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
	}
}

// Publish never blocks; a client whose buffer is full misses the event.
func (h *SSEHub) Publish(event SubmissionEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var globalSSEHub *SSEHub
var sseHubOnce sync.Once

// GetSSEHub returns the process-wide hub.
func GetSSEHub() *SSEHub {
	sseHubOnce.Do(func() {
		globalSSEHub = NewSSEHub()
	})
	return globalSSEHub
}
