package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateAuctionDTO carries operator input. Nil fields keep the defaults.
type CreateAuctionDTO struct {
	Title       string
	Description string
	StartAt     *time.Time
	EndAt       *time.Time
	GPBMinutes  *int
	BarCount    *int
	BarWeight   *decimal.Decimal
	MinPrice    *decimal.Decimal
	InviteAll   bool
}

type CreateAuctionUseCase struct {
	auctions domain.AuctionRepository
	clock    domain.Clock
}

func NewCreateAuctionUseCase(auctions domain.AuctionRepository, clock domain.Clock) *CreateAuctionUseCase {
	return &CreateAuctionUseCase{auctions: auctions, clock: clock}
}

// Execute stores a new draft auction.
func (uc *CreateAuctionUseCase) Execute(ctx context.Context, cmd CreateAuctionDTO) (*domain.Auction, error) {
	auction := domain.NewAuction(uuid.New(), cmd.Title, cmd.StartAt, cmd.EndAt, uc.clock.Now())
	auction.Description = cmd.Description
	auction.InviteAll = cmd.InviteAll
	if cmd.GPBMinutes != nil {
		auction.GPBMinutes = *cmd.GPBMinutes
	}
	if cmd.BarCount != nil {
		auction.BarCount = *cmd.BarCount
	}
	if cmd.BarWeight != nil {
		auction.BarWeight = *cmd.BarWeight
	}
	if cmd.MinPrice != nil {
		auction.MinPrice = decimal.NewNullDecimal(*cmd.MinPrice)
	}

	if err := auction.Validate(); err != nil {
		return nil, fmt.Errorf("create auction use case: %w", err)
	}
	if err := uc.auctions.Create(ctx, auction); err != nil {
		log.Error("CreateAuctionUseCase: Failed to create auction", zap.Error(err))
		return nil, fmt.Errorf("create auction use case: %w", err)
	}

	log.Info("Auction created", zap.String("auctionID", auction.ID.String()), zap.String("title", auction.Title))
	return auction, nil
}

// SetParticipantsUseCase replaces the invite list of an auction.
type SetParticipantsUseCase struct {
	tx           domain.Transactor
	auctions     domain.AuctionRepository
	participants domain.ParticipantRepository
}

func NewSetParticipantsUseCase(tx domain.Transactor, auctions domain.AuctionRepository, participants domain.ParticipantRepository) *SetParticipantsUseCase {
	return &SetParticipantsUseCase{tx: tx, auctions: auctions, participants: participants}
}

func (uc *SetParticipantsUseCase) Execute(ctx context.Context, auctionID uuid.UUID, userIDs []uuid.UUID) error {
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := uc.auctions.GetByIDForUpdate(ctx, auctionID); err != nil {
			return err
		}
		return uc.participants.SetParticipants(ctx, auctionID, userIDs)
	})
	if err != nil {
		return fmt.Errorf("set participants use case: auction %s: %w", auctionID, err)
	}
	log.Info("Auction participants replaced", zap.String("auctionID", auctionID.String()), zap.Int("count", len(userIDs)))
	return nil
}
