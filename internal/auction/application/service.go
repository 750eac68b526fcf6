package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/domain"
)

// AuctionService defines application interface layer of auction module
// exposes uses cases to external layer, aka infra
type AuctionService interface {
	CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*domain.Auction, error)
	SetParticipants(ctx context.Context, auctionID uuid.UUID, userIDs []uuid.UUID) error
	GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error)
	ChangeStatus(ctx context.Context, cmd ChangeStatusDTO) (*domain.Auction, error)

	// PlaceBid admits a bid, returns the created bid or the rejection reason
	PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error)
	SubmitOffer(ctx context.Context, cmd SubmitOfferDTO) (*domain.InitialOffer, error)

	// ListBids returns the bid book in priority order, each row with its allocation
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]BidRowDTO, error)
	GetAllocation(ctx context.Context, auctionID uuid.UUID) (*AllocationDTO, error)
	GetParticipantView(ctx context.Context, auctionID, userID uuid.UUID) (*ParticipantViewDTO, error)
	ListOffers(ctx context.Context, auctionID uuid.UUID) ([]*domain.InitialOffer, error)
}

// UseCases groups the use cases the service delegates to.
type UseCases struct {
	CreateAuction   *CreateAuctionUseCase
	SetParticipants *SetParticipantsUseCase
	ChangeStatus    *ChangeStatusUseCase
	PlaceBid        *PlaceBidUseCase
	SubmitOffer     *SubmitOfferUseCase
	GetAuctionState *GetAuctionStateUseCase
}

// concret implementation of AuctionService (struct)
type auctionService struct {
	uc UseCases
}

func NewAuctionService(uc UseCases) AuctionService {
	return &auctionService{uc: uc}
}

func (as *auctionService) CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*domain.Auction, error) {
	return as.uc.CreateAuction.Execute(ctx, cmd)
}

func (as *auctionService) SetParticipants(ctx context.Context, auctionID uuid.UUID, userIDs []uuid.UUID) error {
	return as.uc.SetParticipants.Execute(ctx, auctionID, userIDs)
}

func (as *auctionService) GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error) {
	return as.uc.GetAuctionState.Execute(ctx, auctionID)
}

func (as *auctionService) ChangeStatus(ctx context.Context, cmd ChangeStatusDTO) (*domain.Auction, error) {
	return as.uc.ChangeStatus.Execute(ctx, cmd)
}

// PlaceBid implements AuctionService.
func (as *auctionService) PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error) {
	return as.uc.PlaceBid.Execute(ctx, cmd)
}

func (as *auctionService) SubmitOffer(ctx context.Context, cmd SubmitOfferDTO) (*domain.InitialOffer, error) {
	return as.uc.SubmitOffer.Execute(ctx, cmd)
}

func (as *auctionService) ListBids(ctx context.Context, auctionID uuid.UUID) ([]BidRowDTO, error) {
	dto, _, err := as.uc.GetAuctionState.Allocation(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return dto.Bids, nil
}

func (as *auctionService) GetAllocation(ctx context.Context, auctionID uuid.UUID) (*AllocationDTO, error) {
	dto, _, err := as.uc.GetAuctionState.Allocation(ctx, auctionID)
	return dto, err
}

func (as *auctionService) GetParticipantView(ctx context.Context, auctionID, userID uuid.UUID) (*ParticipantViewDTO, error) {
	return as.uc.GetAuctionState.ParticipantView(ctx, auctionID, userID)
}

func (as *auctionService) ListOffers(ctx context.Context, auctionID uuid.UUID) ([]*domain.InitialOffer, error) {
	return as.uc.GetAuctionState.Offers(ctx, auctionID)
}
