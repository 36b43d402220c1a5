package main

import (
	"sync"
)

// Hub fans encoded frames out to the connected stream clients.  Each client
// has a single frame mailbox so a slow client skips frames rather than
// holding up the scheduler
type Hub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
	sent    uint64
	skipped uint64
}

// NewHub returns an empty hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[chan []byte]struct{}),
	}
}

// Subscribe registers a client, the returned function unregisters it
func (h *Hub) Subscribe() (<-chan []byte, func()) {

	ch := make(chan []byte, 1)

	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}
}

// Publish delivers the frame to every client, replacing any frame a client
// has not yet taken
func (h *Hub) Publish(frame []byte) {

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.clients {
		select {
		case ch <- frame:
			h.sent++
			continue
		default:
		}

		// mailbox full so drop the old frame
		select {
		case <-ch:
			h.skipped++
		default:
		}

		select {
		case ch <- frame:
			h.sent++
		default:
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// HubStats are the frame delivery counters
type HubStats struct {
	Clients int    `json:"clients"`
	Sent    uint64 `json:"sent"`
	Skipped uint64 `json:"skipped"`
}

// Stats returns the delivery counters
func (h *Hub) Stats() HubStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	return HubStats{
		Clients: len(h.clients),
		Sent:    h.sent,
		Skipped: h.skipped,
	}
}
