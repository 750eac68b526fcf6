package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/domain"
	"go.uber.org/zap"
)

// ChangeStatusDTO is the operator's manual status override.
type ChangeStatusDTO struct {
	AuctionID uuid.UUID
	To        domain.AuctionStatus
	Reason    string
}

// ChangeStatusUseCase applies manual status changes through the same CAS as
// the poller, under the end_at and GPB window guards.
type ChangeStatusUseCase struct {
	auctions  domain.AuctionRepository
	clock     domain.Clock
	publisher domain.EventPublisher
	settler   *SettleAuctionUseCase
}

func NewChangeStatusUseCase(auctions domain.AuctionRepository,
	clock domain.Clock,
	publisher domain.EventPublisher,
	settler *SettleAuctionUseCase) *ChangeStatusUseCase {

	return &ChangeStatusUseCase{
		auctions:  auctions,
		clock:     clock,
		publisher: publisher,
		settler:   settler,
	}
}

func (uc *ChangeStatusUseCase) Execute(ctx context.Context, cmd ChangeStatusDTO) (*domain.Auction, error) {
	auction, err := uc.auctions.GetByID(ctx, cmd.AuctionID)
	if err != nil {
		return nil, fmt.Errorf("change status use case: %w", err)
	}

	now := uc.clock.Now()
	transition, patch, err := auction.PlanManualTransition(cmd.To, now)
	if err != nil {
		return nil, fmt.Errorf("change status use case: auction %s: %w", auction.ID, err)
	}
	if transition.From == transition.To && patch.GPBStartedAt == nil {
		return auction, nil
	}

	swapped, err := uc.auctions.CompareAndSetStatus(ctx, auction.ID, transition.From, transition.To, patch)
	if err != nil {
		log.Error("ChangeStatusUseCase: status write failed",
			zap.String("auctionID", auction.ID.String()),
			zap.Stringer("transition", transition),
			zap.Error(err),
		)
		return nil, fmt.Errorf("change status use case: auction %s %s: %w", auction.ID, transition, err)
	}
	if !swapped {
		return nil, fmt.Errorf("change status use case: auction %s %s: %w", auction.ID, transition, domain.ErrConcurrentTransitionLost)
	}
	auction.Apply(transition, patch, now)

	log.Info("Auction status changed manually",
		zap.String("auctionID", auction.ID.String()),
		zap.Stringer("transition", transition),
		zap.String("reason", cmd.Reason),
	)
	uc.publisher.Publish(ctx, domain.StatusChanged{
		AuctionID:    auction.ID,
		From:         transition.From,
		To:           transition.To,
		GPBStartedAt: patch.GPBStartedAt,
		Reason:       cmd.Reason,
		At:           now,
	})

	if transition.To == domain.StatusCompleted && uc.settler != nil {
		uc.settler.Execute(ctx, auction.ID)
	}
	return auction, nil
}
