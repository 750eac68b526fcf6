package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/domain"
	userdomain "github.com/maverick16108/atlas/internal/user/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SubmitOfferDTO struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Volume    decimal.Decimal
	Price     decimal.Decimal
	Comment   string
}

// SubmitOfferUseCase records an indicative offer while the auction collects them.
type SubmitOfferUseCase struct {
	auctions     domain.AuctionRepository
	offers       domain.OfferRepository
	participants domain.ParticipantRepository
	users        userdomain.UserRepository
	clock        domain.Clock
	publisher    domain.EventPublisher
}

func NewSubmitOfferUseCase(auctions domain.AuctionRepository,
	offers domain.OfferRepository,
	participants domain.ParticipantRepository,
	users userdomain.UserRepository,
	clock domain.Clock,
	publisher domain.EventPublisher) *SubmitOfferUseCase {

	return &SubmitOfferUseCase{
		auctions:     auctions,
		offers:       offers,
		participants: participants,
		users:        users,
		clock:        clock,
		publisher:    publisher,
	}
}

func (uc *SubmitOfferUseCase) Execute(ctx context.Context, cmd SubmitOfferDTO) (*domain.InitialOffer, error) {
	auction, err := uc.auctions.GetByID(ctx, cmd.AuctionID)
	if err != nil {
		return nil, fmt.Errorf("submit offer use case: %w", err)
	}
	if _, err := uc.users.GetByID(ctx, cmd.BidderID); err != nil {
		return nil, fmt.Errorf("submit offer use case: %w", err)
	}
	if err := checkEligible(ctx, uc.participants, auction, cmd.BidderID); err != nil {
		return nil, fmt.Errorf("submit offer use case: %w", err)
	}
	if err := auction.CheckOffer(cmd.Volume, cmd.Price, cmd.Comment); err != nil {
		return nil, fmt.Errorf("submit offer use case: %w", err)
	}

	offer := domain.NewInitialOffer(uuid.New(), auction.ID, cmd.BidderID, cmd.Volume, cmd.Price, cmd.Comment, uc.clock.Now())
	if err := uc.offers.Save(ctx, offer); err != nil {
		log.Error("SubmitOfferUseCase: Failed to save offer",
			zap.String("auctionID", auction.ID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("submit offer use case: save offer: %w", err)
	}

	uc.publisher.Publish(ctx, domain.OfferPlaced{
		AuctionID: auction.ID,
		OfferID:   offer.ID,
		BidderID:  offer.BidderID,
		Volume:    offer.Volume,
		Price:     offer.Price,
		CreatedAt: offer.CreatedAt,
	})
	return offer, nil
}
