package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/saransh1220/notification-service/internal/modules/notification/domain"
)

// delivery is one encoded event plus the recipient it concerns.
type delivery struct {
	recipient string
	payload   []byte
}

// Hub maintains the set of active clients and pushes committed notification
// events to them. A client with a recipient filter only sees that recipient's events.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Encoded events waiting to be pushed.
	deliveries chan delivery

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Channel to signal termination
	stop     chan struct{}
	stopOnce sync.Once
}

var _ domain.EventSink = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		deliveries: make(chan delivery),
		register:   make(chan *Client),
		unregister: make(chan *Client),

		clients: make(map[*Client]bool),
		stop:    make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			log.Printf("[WebSocket Hub] Client registered: %v (recipient: %q)", client.addr(), client.recipient)
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("[WebSocket Hub] Client unregistered: %v", client.addr())
			}
		case d := <-h.deliveries:
			for client := range h.clients {
				if !client.wants(d.recipient) {
					continue
				}
				select {
				case client.send <- d.payload:
				default:
					// slow consumer
					close(client.send)
					delete(h.clients, client)
				}
			}
		case <-h.stop:
			log.Println("[WebSocket Hub] Stopping hub")
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return
		}
	}
}

// Publish encodes event and hands it to the hub loop. It returns early when
// the hub is stopped or ctx is done.
func (h *Hub) Publish(ctx context.Context, topic string, event domain.Event) error {
	payload, err := json.Marshal(struct {
		Topic string `json:"topic"`
		domain.Event
	}{Topic: topic, Event: event})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	select {
	case h.deliveries <- delivery{recipient: event.Recipient, payload: payload}:
		return nil
	case <-h.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}
