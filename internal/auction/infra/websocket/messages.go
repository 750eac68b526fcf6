package websocket

import (
	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/application"
	"github.com/shopspring/decimal"
)

// MessageType defines ws type message
type MessageType string

const (
	MessageTypeClientBid          MessageType = "client_bid"           // client msg to make a bid
	MessageTypeServerBidAccepted  MessageType = "server_bid_accepted"  // server msg confirming the sender's bid
	MessageTypeServerEvent        MessageType = "server_event"         // server msg carrying a domain event
	MessageTypeServerError        MessageType = "server_error"         // server msg indicating error
	MessageTypeServerInitialState MessageType = "server_initial_state" // server msg with auction state on connect
)

// BaseMessage is base struct for all the WS messages, includes a Type field for identify the message type
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ClientBidMessage is DTO for a bid message sent by the client. The bidder
// is the identity the connection was opened with.
type ClientBidMessage struct {
	BaseMessage
	Payload struct {
		AuctionID uuid.UUID       `json:"auction_id"`
		Amount    decimal.Decimal `json:"amount"`
		BarCount  int             `json:"bar_count"`
	} `json:"payload"`
}

type ServerBidAcceptedMessage struct {
	BaseMessage
	Payload struct {
		BidID     uuid.UUID       `json:"bid_id"`
		AuctionID uuid.UUID       `json:"auction_id"`
		Amount    decimal.Decimal `json:"amount"`
		BarCount  int             `json:"bar_count"`
	} `json:"payload"`
}

// ServerEventMessage wraps any domain event; Event holds its name.
type ServerEventMessage struct {
	BaseMessage
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Error string `json:"error"`
		Code  string `json:"code,omitempty"`
	} `json:"payload"`
}

// ServerInitialStateMessage is the auction state sent to a client right after it connects.
type ServerInitialStateMessage struct {
	BaseMessage
	Payload *application.AuctionStateDTO `json:"payload"`
}
