package websocket

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/maverick16108/atlas/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Capacity of the hub's internal channels.
	hubBuffer = 256

	// SendBuffer is the capacity clients should give their Send channel.
	SendBuffer = 64
)

// Hub keeps the client registry, grouped in one room per auction. Only the
// Run goroutine touches the registry and closes client Send channels.
type Hub struct {
	rooms      map[string]map[*Client]bool
	outbound   chan *Message
	register   chan *Client
	unregister chan *Client

	// InboundMessages is consumed by module handlers (e.g. the auction ws handler)
	InboundMessages chan *ClientMessage
}

// Client is one websocket connection watching one auction.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	// Send is written by the hub only once the client is registered.
	Send      chan []byte
	AuctionID string
	// UserID is the bidder identity, empty for anonymous watchers.
	UserID string
	ID     string
}

// Message is an outbound frame for one auction room. A non-empty UserID
// restricts delivery to that user's connections, a non-nil Client to that
// single connection.
type Message struct {
	AuctionID string
	UserID    string
	Client    *Client
	Data      []byte
}

// ClientMessage wraps an inbound frame with the client it came from.
type ClientMessage struct {
	Client *Client
	Data   []byte
}

func NewHub() *Hub {
	return &Hub{
		rooms:           make(map[string]map[*Client]bool),
		outbound:        make(chan *Message, hubBuffer),
		register:        make(chan *Client, hubBuffer),
		unregister:      make(chan *Client, hubBuffer),
		InboundMessages: make(chan *ClientMessage, hubBuffer),
	}
}

// Run owns the registry until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	log.Info("Websocket Hub started")
	for {
		// registrations first, so a client sees every message queued after it registered
		select {
		case client := <-h.register:
			h.add(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			log.Info("WebSocket Hub shutting down due to context cancellation")
			return
		case client := <-h.register:
			h.add(client)
		case client := <-h.unregister:
			h.remove(client, "unregistered")
		case msg := <-h.outbound:
			h.deliver(msg)
		}
	}
}

func (h *Hub) add(client *Client) {
	room, ok := h.rooms[client.AuctionID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[client.AuctionID] = room
	}
	room[client] = true
	log.Info("Client registered",
		zap.String("clientID", client.ID),
		zap.String("auctionID", client.AuctionID),
		zap.String("userID", client.UserID),
		zap.Int("room_clients", len(room)),
	)
}

func (h *Hub) remove(client *Client, reason string) {
	room, ok := h.rooms[client.AuctionID]
	if !ok || !room[client] {
		return
	}
	delete(room, client)
	close(client.Send)
	if len(room) == 0 {
		delete(h.rooms, client.AuctionID)
	}
	log.Info("Client removed",
		zap.String("clientID", client.ID),
		zap.String("auctionID", client.AuctionID),
		zap.String("reason", reason),
	)
}

func (h *Hub) deliver(msg *Message) {
	room := h.rooms[msg.AuctionID]
	if msg.Client != nil {
		if room[msg.Client] {
			h.push(msg.Client, msg.Data)
		}
		return
	}
	log.Debug("Broadcasting message to auction", zap.String("auctionID", msg.AuctionID), zap.Int("clients", len(room)))
	for client := range room {
		if msg.UserID != "" && client.UserID != msg.UserID {
			continue
		}
		h.push(client, msg.Data)
	}
}

// push drops clients that cannot keep up.
func (h *Hub) push(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.remove(client, "send buffer full")
	}
}

// RegisterClient queues client for registration. The connection is closed
// when the hub is saturated.
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	default:
		log.Error("Register channel is full, client registration failed",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
		_ = client.Conn.Close()
	}
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	default:
		log.Error("Unregister channel is full, client unregistration failed",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
	}
}

// BroadcastToAuction sends data to every client watching auctionID.
func (h *Hub) BroadcastToAuction(auctionID string, data []byte) {
	h.enqueue(&Message{AuctionID: auctionID, Data: data})
}

// SendToUser sends data only to userID's connections in the auction room.
func (h *Hub) SendToUser(auctionID, userID string, data []byte) {
	h.enqueue(&Message{AuctionID: auctionID, UserID: userID, Data: data})
}

// SendToClient sends data to one registered connection.
func (h *Hub) SendToClient(client *Client, data []byte) {
	h.enqueue(&Message{AuctionID: client.AuctionID, Client: client, Data: data})
}

func (h *Hub) enqueue(msg *Message) {
	select {
	case h.outbound <- msg:
	default:
		log.Error("Outbound channel is full, message dropped", zap.String("auctionID", msg.AuctionID))
	}
}

// ReadPump forwards frames from the connection to InboundMessages until the
// peer goes away or ctx is cancelled.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
		log.Info("ReadPump stopped for client", zap.String("clientID", c.ID), zap.String("auctionID", c.AuctionID))
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		if ctx.Err() != nil {
			return
		}

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("WebSocket read error", zap.String("clientID", c.ID), zap.Error(err))
			}
			return
		}

		select {
		case c.Hub.InboundMessages <- &ClientMessage{Client: c, Data: message}:
		default:
			log.Error("Hub InboundMessages channel is full, dropping message",
				zap.String("clientID", c.ID),
				zap.String("auctionID", c.AuctionID),
			)
		}
	}
}

// WritePump writes one frame per queued message and pings the peer. It is
// the only writer of the connection.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return

		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// closed by the hub
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error("Failed to write message to client", zap.String("clientID", c.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("Ping failed, closing client", zap.String("clientID", c.ID), zap.Error(err))
				return
			}
		}
	}
}
