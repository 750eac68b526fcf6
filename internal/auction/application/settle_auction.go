package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/allocation"
	"github.com/maverick16108/atlas/internal/auction/domain"
	"go.uber.org/zap"
)

// SettleAuctionUseCase computes the final clearing of a completed auction and
// tells every bidder how it ended. It is best effort: failures are logged.
type SettleAuctionUseCase struct {
	auctions  domain.AuctionRepository
	bids      domain.BidRepository
	clock     domain.Clock
	publisher domain.EventPublisher
}

func NewSettleAuctionUseCase(auctions domain.AuctionRepository,
	bids domain.BidRepository,
	clock domain.Clock,
	publisher domain.EventPublisher) *SettleAuctionUseCase {

	return &SettleAuctionUseCase{
		auctions:  auctions,
		bids:      bids,
		clock:     clock,
		publisher: publisher,
	}
}

// Execute returns the settled result, or nil when the auction could not be settled.
func (uc *SettleAuctionUseCase) Execute(ctx context.Context, auctionID uuid.UUID) *allocation.Result {
	auction, err := uc.auctions.GetByID(ctx, auctionID)
	if err != nil {
		log.Error("SettleAuctionUseCase: failed to reload auction", zap.String("auctionID", auctionID.String()), zap.Error(err))
		return nil
	}
	if auction.Status != domain.StatusCompleted {
		log.Warn("SettleAuctionUseCase: auction left completed before settlement",
			zap.String("auctionID", auctionID.String()),
			zap.String("status", string(auction.Status)),
		)
		return nil
	}

	// snapshot taken after completed is confirmed
	bids, err := uc.bids.GetBidsByAuctionID(ctx, auctionID)
	if err != nil {
		log.Error("SettleAuctionUseCase: failed to read bids", zap.String("auctionID", auctionID.String()), zap.Error(err))
		return nil
	}
	if err := allocation.Validate(auction.BarCount, bids); err != nil {
		log.Error("SettleAuctionUseCase: bid snapshot rejected", zap.String("auctionID", auctionID.String()), zap.Error(err))
		return nil
	}

	result := allocation.Allocate(auction.BarCount, bids)
	uc.publisher.Publish(ctx, domain.AuctionSettled{
		AuctionID:      auction.ID,
		BarCount:       auction.BarCount,
		GPBTaken:       result.GPBTaken,
		RegularAwarded: result.RegularAwarded,
		Winners:        result.Winners(),
		At:             uc.clock.Now(),
	})
	for _, p := range result.Participants {
		uc.publisher.Publish(ctx, domain.ParticipantOutcome{
			AuctionID:    auction.ID,
			AuctionTitle: auction.Title,
			BidderID:     p.BidderID,
			Status:       string(p.Status),
			WonBars:      p.WonBars,
		})
	}

	log.Info("Auction settled",
		zap.String("auctionID", auction.ID.String()),
		zap.Int("gpbTaken", result.GPBTaken),
		zap.Int("regularAwarded", result.RegularAwarded),
		zap.Int("participants", len(result.Participants)),
	)
	return result
}
