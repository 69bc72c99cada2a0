package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeSubscribed  MessageType = "subscribed"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
	MessageTypeError       MessageType = "error"

	EventTicketCreated MessageType = "ticket.created"
	EventTicketUpdated MessageType = "ticket.updated"
	EventMailboxSynced MessageType = "mailbox.synced"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      MessageType `json:"type"`
	CompanyID uint        `json:"company_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	SentAt    string      `json:"sent_at,omitempty"`
}

// TicketPayload is sent with ticket.created and ticket.updated
type TicketPayload struct {
	TicketID     uint   `json:"ticket_id"`
	TicketNumber string `json:"ticket_number"`
	Subject      string `json:"subject"`
	Status       string `json:"status"`
	EmailID      uint   `json:"email_id"`
	MailboxID    uint   `json:"mailbox_id"`
}

// MailboxSyncedPayload is sent with mailbox.synced
type MailboxSyncedPayload struct {
	MailboxID      uint   `json:"mailbox_id"`
	ProcessedCount int    `json:"processed_count"`
	NewTickets     int    `json:"new_tickets"`
	UpdatedTickets int    `json:"updated_tickets"`
	SyncedAt       string `json:"synced_at"`
}

// Hub maintains the set of active clients and broadcasts company events
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Company subscriptions: companyID -> set of clients
	subscriptions map[uint]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest
	broadcast   chan *broadcastMessage
	done        chan struct{}
	stopOnce    sync.Once

	mu     sync.RWMutex
	logger *slog.Logger
}

type subscriptionRequest struct {
	client    *Client
	companyID uint
}

type broadcastMessage struct {
	companyID uint
	message   []byte
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[uint]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		subscribe:     make(chan *subscriptionRequest),
		unsubscribe:   make(chan *subscriptionRequest),
		broadcast:     make(chan *broadcastMessage, 256),
		done:          make(chan struct{}),
		logger:        logger,
	}
}

// Run starts the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
			}
			h.clients = make(map[*Client]bool)
			h.subscriptions = make(map[uint]map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.debug("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				for companyID, subscribers := range h.subscriptions {
					delete(subscribers, client)
					if len(subscribers) == 0 {
						delete(h.subscriptions, companyID)
					}
				}
			}
			h.mu.Unlock()
			h.debug("client unregistered")

		case req := <-h.subscribe:
			h.mu.Lock()
			if h.subscriptions[req.companyID] == nil {
				h.subscriptions[req.companyID] = make(map[*Client]bool)
			}
			h.subscriptions[req.companyID][req.client] = true
			h.mu.Unlock()
			h.debug("client subscribed to company", slog.Uint64("company_id", uint64(req.companyID)))

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if subscribers, ok := h.subscriptions[req.companyID]; ok {
				delete(subscribers, req.client)
				if len(subscribers) == 0 {
					delete(h.subscriptions, req.companyID)
				}
			}
			h.mu.Unlock()
			h.debug("client unsubscribed from company", slog.Uint64("company_id", uint64(req.companyID)))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.subscriptions[msg.companyID] {
				select {
				case client.send <- msg.message:
				default:
					// Client buffer full, skip
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Stop ends Run and closes every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribe subscribes a client to a company's events
func (h *Hub) Subscribe(client *Client, companyID uint) {
	select {
	case h.subscribe <- &subscriptionRequest{client: client, companyID: companyID}:
	case <-h.done:
	}
}

// Unsubscribe unsubscribes a client from a company's events
func (h *Hub) Unsubscribe(client *Client, companyID uint) {
	select {
	case h.unsubscribe <- &subscriptionRequest{client: client, companyID: companyID}:
	case <-h.done:
	}
}

// Subscribers returns how many clients follow a company
func (h *Hub) Subscribers(companyID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[companyID])
}

// Publish broadcasts an event to the company's subscribers. It never blocks;
// events are dropped when the broadcast queue is full.
func (h *Hub) Publish(companyID uint, event MessageType, payload interface{}) {
	data, err := json.Marshal(WSMessage{
		Type:      event,
		CompanyID: companyID,
		Data:      payload,
		SentAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to marshal broadcast message", slog.Any("error", err))
		}
		return
	}

	select {
	case h.broadcast <- &broadcastMessage{companyID: companyID, message: data}:
	default:
		if h.logger != nil {
			h.logger.Warn("broadcast queue full, dropping event",
				slog.String("event", string(event)),
				slog.Uint64("company_id", uint64(companyID)))
		}
	}
}

func (h *Hub) debug(msg string, attrs ...any) {
	if h.logger != nil {
		h.logger.Debug(msg, attrs...)
	}
}
