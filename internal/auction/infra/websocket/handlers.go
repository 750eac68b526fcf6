package websocket

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/application"
	"github.com/maverick16108/atlas/internal/shared/logger"
	"github.com/maverick16108/atlas/internal/shared/websocket"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionWSHandler handles the ws inbound msgs wich are specific for auction module (remember is a bounded context)
type AuctionWSHandler struct {
	auctionService application.AuctionService // application layer dependency
	hub            *websocket.Hub             // shared hub dependency to send msgs
}

// NewAuctionWSHandler creates a new instance of AuctionWSHandler
func NewAuctionWSHandler(auctionService application.AuctionService, hub *websocket.Hub) *AuctionWSHandler {
	return &AuctionWSHandler{
		auctionService: auctionService,
		hub:            hub,
	}
}

// RegisterRoutes mounts GET /ws/auctions/:id. The bidder identity comes from
// the user_id query parameter; without it the connection only watches.
func (h *AuctionWSHandler) RegisterRoutes(ctx context.Context, app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/auctions/:id", fiberws.New(func(conn *fiberws.Conn) {
		h.serve(ctx, conn)
	}))
}

func (h *AuctionWSHandler) serve(ctx context.Context, conn *fiberws.Conn) {
	auctionID, err := uuid.Parse(conn.Params("id"))
	if err != nil {
		_ = conn.WriteMessage(fiberws.CloseMessage, fiberws.FormatCloseMessage(fiberws.CloseUnsupportedData, "invalid auction id"))
		_ = conn.Close()
		return
	}

	client := &websocket.Client{
		Hub:       h.hub,
		Conn:      conn,
		Send:      make(chan []byte, websocket.SendBuffer),
		AuctionID: auctionID.String(),
		UserID:    conn.Query("user_id"),
		ID:        uuid.NewString(),
	}

	// queued before registration, so the hub cannot have closed Send yet
	var first any
	if state, err := h.auctionService.GetAuctionState(ctx, auctionID); err == nil {
		first = ServerInitialStateMessage{
			BaseMessage: BaseMessage{Type: MessageTypeServerInitialState},
			Payload:     state,
		}
	} else {
		first = errorMessage(err)
	}
	if data, err := encode(first); err == nil {
		client.Send <- data
	}
	h.hub.RegisterClient(client)

	// the fiber handler must not return while the connection is in use
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

// ListenForMessages starts a go routine that listen the Hub inbound channel for messages and proccess every one of them
func (h *AuctionWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("AuctionWSHandler started listening for inbound messages from hub")
	for {
		select {
		case <-ctx.Done():
			log.Info("AuctionWSHandler stopped listening for inbound messages from hub")
			return
		case msg := <-h.hub.InboundMessages:
			go h.processMessage(ctx, msg.Client, msg.Data)
		}
	}
}

// processMesssage dispatch the message by this type
func (h *AuctionWSHandler) processMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var baseMsg BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		h.sendErrorMessage(client, "invalid message format", "")
		return
	}
	switch baseMsg.Type {
	case MessageTypeClientBid:
		h.handleClientBidMessage(ctx, client, data)
	default:
		h.sendErrorMessage(client, "unknown message type", "")
	}
}

func (h *AuctionWSHandler) handleClientBidMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var bidMsg ClientBidMessage
	if err := json.Unmarshal(data, &bidMsg); err != nil {
		h.sendErrorMessage(client, "invalid bid message format", "")
		return
	}

	if bidMsg.Payload.AuctionID.String() != client.AuctionID {
		h.sendErrorMessage(client, "auction ID mismatch", "")
		return
	}
	bidderID, err := uuid.Parse(client.UserID)
	if err != nil {
		h.sendErrorMessage(client, "connection has no bidder identity", "")
		return
	}

	bid, err := h.auctionService.PlaceBid(ctx, application.PlaceBidDTO{
		AuctionID: bidMsg.Payload.AuctionID,
		BidderID:  bidderID,
		Amount:    bidMsg.Payload.Amount,
		BarCount:  bidMsg.Payload.BarCount,
	})
	if err != nil {
		h.sendErrorToClient(client, err)
		return
	}

	// the room learns about the bid through the BidPlaced event
	accepted := ServerBidAcceptedMessage{BaseMessage: BaseMessage{Type: MessageTypeServerBidAccepted}}
	accepted.Payload.BidID = bid.ID
	accepted.Payload.AuctionID = bid.AuctionID
	accepted.Payload.Amount = bid.Amount
	accepted.Payload.BarCount = bid.BarCount
	h.sendToClient(client, accepted)
}

func (h *AuctionWSHandler) sendErrorToClient(client *websocket.Client, err error) {
	h.sendToClient(client, errorMessage(err))
}

func (h *AuctionWSHandler) sendErrorMessage(client *websocket.Client, message, code string) {
	h.sendToClient(client, newErrorMessage(message, code))
}

// errorMessage hides infrastructure errors behind "internal error".
func errorMessage(err error) ServerErrorMessage {
	code := application.ErrorCode(err)
	if code == "" {
		return newErrorMessage("internal error", "")
	}
	return newErrorMessage(err.Error(), code)
}

func newErrorMessage(message, code string) ServerErrorMessage {
	msg := ServerErrorMessage{BaseMessage: BaseMessage{Type: MessageTypeServerError}}
	msg.Payload.Error = message
	msg.Payload.Code = code
	return msg
}

func (h *AuctionWSHandler) sendToClient(client *websocket.Client, msg any) {
	data, err := encode(msg)
	if err != nil {
		return
	}
	h.hub.SendToClient(client, data)
}

func encode(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("failed to marshal ws message", zap.Error(err))
	}
	return data, err
}
