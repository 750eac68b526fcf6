package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is a priced request for a number of bars. Bids are never edited or retracted.
type Bid struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal // price per unit
	BarCount  int
	IsGPB     bool // bidder's GPB flag at admission time
	CreatedAt time.Time
}

// NewBid creates a new Bid instance
func NewBid(id, auctionID, bidderID uuid.UUID, amount decimal.Decimal, barCount int, isGPB bool, createdAt time.Time) *Bid {
	return &Bid{
		ID:        id,
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		BarCount:  barCount,
		IsGPB:     isGPB,
		CreatedAt: createdAt,
	}
}

// InitialOffer is an indicative pre-auction offer, read by the commission only.
type InitialOffer struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Volume    decimal.Decimal
	Price     decimal.Decimal
	Comment   string
	CreatedAt time.Time
}

// NewInitialOffer creates a new InitialOffer instance
func NewInitialOffer(id, auctionID, bidderID uuid.UUID, volume, price decimal.Decimal, comment string, createdAt time.Time) *InitialOffer {
	return &InitialOffer{
		ID:        id,
		AuctionID: auctionID,
		BidderID:  bidderID,
		Volume:    volume,
		Price:     price,
		Comment:   comment,
		CreatedAt: createdAt,
	}
}
