package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Dashboards only send subscribe, unsubscribe and ping frames.
	maxMessageSize = 512

	// Events queued per connection before new ones are dropped.
	sendBuffer = 64

	// Companies one dashboard connection may follow.
	maxSubscriptions = 16
)

// Client is one dashboard connection following the events of a set of
// companies.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	companies map[uint]struct{}
	logger    *slog.Logger
}

// NewClient creates a Client for an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		companies: make(map[uint]struct{}),
		logger:    logger,
	}
}

// Serve registers the client, follows companyID when non-zero and pumps
// frames until the connection closes.
func (c *Client) Serve(companyID uint) {
	c.hub.Register(c)
	if companyID != 0 {
		c.follow(companyID)
	}
	go c.writeLoop()
	c.readLoop()
}

func (c *Client) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		c.debug("dashboard disconnected", slog.Int("companies", len(c.companies)))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) && c.logger != nil {
				c.logger.Warn("dashboard socket closed unexpectedly", slog.Any("error", err))
			}
			return
		}
		c.handleMessage(frame)
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub stopped or dropped us
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage applies one dashboard frame. Subscription changes are
// acknowledged so the dashboard knows when events start flowing.
func (c *Client) handleMessage(frame []byte) {
	var msg WSMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		c.sendError("invalid message format")
		return
	}

	switch msg.Type {
	case MessageTypePing:
		c.enqueue(WSMessage{Type: MessageTypePong})

	case MessageTypeSubscribe:
		if msg.CompanyID == 0 {
			c.sendError("company_id is required")
			return
		}
		if _, ok := c.companies[msg.CompanyID]; !ok && len(c.companies) >= maxSubscriptions {
			c.sendError("too many subscriptions")
			return
		}
		c.follow(msg.CompanyID)
		c.enqueue(WSMessage{Type: MessageTypeSubscribed, CompanyID: msg.CompanyID})

	case MessageTypeUnsubscribe:
		if msg.CompanyID == 0 {
			c.sendError("company_id is required")
			return
		}
		delete(c.companies, msg.CompanyID)
		c.hub.Unsubscribe(c, msg.CompanyID)

	default:
		c.sendError("unknown message type")
	}
}

func (c *Client) follow(companyID uint) {
	c.companies[companyID] = struct{}{}
	c.hub.Subscribe(c, companyID)
}

func (c *Client) sendError(reason string) {
	c.enqueue(WSMessage{Type: MessageTypeError, Error: reason})
}

// enqueue queues a control reply without blocking the read loop.
func (c *Client) enqueue(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		c.debug("dashboard send buffer full", slog.String("type", string(msg.Type)))
	}
}

func (c *Client) debug(msg string, attrs ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, attrs...)
	}
}
