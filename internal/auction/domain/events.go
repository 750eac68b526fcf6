package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventName identifies a domain event on the wire (websocket type, kafka header)
type EventName string

const (
	EventStatusChanged       EventName = "status_changed"
	EventBidPlaced           EventName = "bid_placed"
	EventOfferPlaced         EventName = "offer_placed"
	EventAuctionSettled      EventName = "auction_settled"
	EventParticipantOutcome  EventName = "participant_outcome"
	EventAuctionStartingSoon EventName = "auction_starting_soon"
)

// Event is implemented by every payload the core emits.
type Event interface {
	Name() EventName
	AuctionKey() uuid.UUID
}

type StatusChanged struct {
	AuctionID    uuid.UUID     `json:"auction_id"`
	From         AuctionStatus `json:"from"`
	To           AuctionStatus `json:"to"`
	GPBStartedAt *time.Time    `json:"gpb_started_at,omitempty"`
	Automatic    bool          `json:"automatic"`
	Reason       string        `json:"reason,omitempty"`
	At           time.Time     `json:"at"`
}

func (StatusChanged) Name() EventName         { return EventStatusChanged }
func (e StatusChanged) AuctionKey() uuid.UUID { return e.AuctionID }

type BidPlaced struct {
	AuctionID uuid.UUID       `json:"auction_id"`
	BidID     uuid.UUID       `json:"bid_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	BarCount  int             `json:"bar_count"`
	IsGPB     bool            `json:"is_gpb"`
	CreatedAt time.Time       `json:"created_at"`
}

func (BidPlaced) Name() EventName         { return EventBidPlaced }
func (e BidPlaced) AuctionKey() uuid.UUID { return e.AuctionID }

type OfferPlaced struct {
	AuctionID uuid.UUID       `json:"auction_id"`
	OfferID   uuid.UUID       `json:"offer_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	Volume    decimal.Decimal `json:"volume"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

func (OfferPlaced) Name() EventName         { return EventOfferPlaced }
func (e OfferPlaced) AuctionKey() uuid.UUID { return e.AuctionID }

// AuctionSettled is the final clearing computed after completion.
type AuctionSettled struct {
	AuctionID      uuid.UUID `json:"auction_id"`
	BarCount       int       `json:"bar_count"`
	GPBTaken       int       `json:"gpb_taken"`
	RegularAwarded int       `json:"regular_awarded"`
	Winners        int       `json:"winners"`
	At             time.Time `json:"at"`
}

func (AuctionSettled) Name() EventName         { return EventAuctionSettled }
func (e AuctionSettled) AuctionKey() uuid.UUID { return e.AuctionID }

// ParticipantOutcome tells one bidder how the auction ended for them.
type ParticipantOutcome struct {
	AuctionID    uuid.UUID `json:"auction_id"`
	AuctionTitle string    `json:"auction_title"`
	BidderID     uuid.UUID `json:"bidder_id"`
	Status       string    `json:"status"`
	WonBars      int       `json:"won_bars"`
}

func (ParticipantOutcome) Name() EventName         { return EventParticipantOutcome }
func (e ParticipantOutcome) AuctionKey() uuid.UUID { return e.AuctionID }

type AuctionStartingSoon struct {
	AuctionID uuid.UUID `json:"auction_id"`
	Title     string    `json:"title"`
	StartAt   time.Time `json:"start_at"`
}

func (AuctionStartingSoon) Name() EventName         { return EventAuctionStartingSoon }
func (e AuctionStartingSoon) AuctionKey() uuid.UUID { return e.AuctionID }
