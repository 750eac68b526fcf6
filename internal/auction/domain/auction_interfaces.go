package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuctionRepository is the auction side of the store. Status is only ever
// written through CompareAndSetStatus.
type AuctionRepository interface {
	Create(ctx context.Context, auction *Auction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Auction, error)
	// GetByIDForUpdate locks the row for the rest of the surrounding transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Auction, error)
	ListByStatus(ctx context.Context, status AuctionStatus) ([]*Auction, error)
	// CompareAndSetStatus writes `to` (and patch) only if the stored status
	// still equals `from`. It reports false when another writer got there first.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to AuctionStatus, patch StatusPatch) (bool, error)
	ListStartingBetween(ctx context.Context, statuses []AuctionStatus, from, to time.Time) ([]*Auction, error)
}

type BidRepository interface {
	Save(ctx context.Context, bid *Bid) error
	// GetBidsByAuctionID returns a consistent snapshot; order is not guaranteed.
	GetBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error)
}

type OfferRepository interface {
	Save(ctx context.Context, offer *InitialOffer) error
	GetOffersByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*InitialOffer, error)
}

type ParticipantRepository interface {
	IsParticipant(ctx context.Context, auctionID, userID uuid.UUID) (bool, error)
	HasParticipants(ctx context.Context, auctionID uuid.UUID) (bool, error)
	SetParticipants(ctx context.Context, auctionID uuid.UUID, userIDs []uuid.UUID) error
}

// Transactor runs fn inside one store transaction. Repositories called with
// the ctx handed to fn take part in it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher is the notifier boundary. Implementations must not block.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

type Clock interface {
	Now() time.Time
}

// TickLocker keeps lifecycle sweeps from overlapping across processes.
type TickLocker interface {
	// TryLock returns a release func when the lock was taken, nil otherwise.
	TryLock(ctx context.Context) (release func(), ok bool, err error)
}

// ReminderLedger remembers which auctions already got their start reminder.
type ReminderLedger interface {
	// MarkReminded reports true the first time it is called for an auction.
	MarkReminded(ctx context.Context, auctionID uuid.UUID) (bool, error)
}
