package sse

import (
	"context"
	"sync"

	"ms-events/internal/models"
)

const clientBuffer = 10

// CheckInHub fans check-ins out to the live attendance views of an event.
type CheckInHub struct {
	mu      sync.RWMutex
	clients map[string][]chan models.CheckIn
}

func NewCheckInHub() *CheckInHub {
	return &CheckInHub{clients: make(map[string][]chan models.CheckIn)}
}

// Subscribe registers a client for eventID. The channel is closed once ctx is done.
func (h *CheckInHub) Subscribe(ctx context.Context, eventID string) <-chan models.CheckIn {
	clientChan := make(chan models.CheckIn, clientBuffer)

	h.mu.Lock()
	h.clients[eventID] = append(h.clients[eventID], clientChan)
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(eventID, clientChan)
	}()

	return clientChan
}

// Broadcast delivers a check-in to every subscriber of its event. Slow clients
// with a full buffer miss the message.
func (h *CheckInHub) Broadcast(checkIn models.CheckIn) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, clientChan := range h.clients[checkIn.EventID] {
		select {
		case clientChan <- checkIn:
		default:
		}
	}
}

func (h *CheckInHub) remove(eventID string, clientChan chan models.CheckIn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[eventID]
	for i, ch := range clients {
		if ch == clientChan {
			h.clients[eventID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(h.clients[eventID]) == 0 {
		delete(h.clients, eventID)
	}
}

func (h *CheckInHub) ClientCount(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[eventID])
}
