package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/allocation"
	"github.com/maverick16108/atlas/internal/auction/domain"
	"github.com/shopspring/decimal"
)

// AuctionStateDTO is the output DTO for exposing auction state to the UI/WS
type AuctionStateDTO struct {
	AuctionID    uuid.UUID        `json:"auction_id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Status       string           `json:"status"`
	StartAt      *time.Time       `json:"start_at,omitempty"`
	EndAt        *time.Time       `json:"end_at,omitempty"`
	GPBStartedAt *time.Time       `json:"gpb_started_at,omitempty"`
	GPBDeadline  *time.Time       `json:"gpb_deadline,omitempty"`
	GPBMinutes   int              `json:"gpb_minutes"`
	BarCount     int              `json:"bar_count"`
	BarWeight    decimal.Decimal  `json:"bar_weight"`
	MinPrice     *decimal.Decimal `json:"min_price,omitempty"`
	FloorPrice   *decimal.Decimal `json:"floor_price,omitempty"`
	IsOpen       bool             `json:"is_open"`
}

// BidRowDTO is one line of the bid book.
type BidRowDTO struct {
	BidID     uuid.UUID         `json:"bid_id"`
	BidderID  uuid.UUID         `json:"bidder_id"`
	Amount    decimal.Decimal   `json:"amount"`
	BarCount  int               `json:"bar_count"`
	IsGPB     bool              `json:"is_gpb"`
	CreatedAt time.Time         `json:"created_at"`
	Fulfilled int               `json:"fulfilled"`
	GPBUsed   int               `json:"gpb_used"`
	Status    allocation.Status `json:"status"`
}

// AllocationDTO is the whole clearing as of the last committed bid.
type AllocationDTO struct {
	AuctionID      uuid.UUID                      `json:"auction_id"`
	Capacity       int                            `json:"capacity"`
	GPBTaken       int                            `json:"gpb_taken"`
	RegularAwarded int                            `json:"regular_awarded"`
	Bids           []BidRowDTO                    `json:"bids"`
	Participants   []allocation.ParticipantResult `json:"participants"`
}

// ParticipantViewDTO is what one bidder sees of their own standing.
type ParticipantViewDTO struct {
	AuctionID uuid.UUID         `json:"auction_id"`
	BidderID  uuid.UUID         `json:"bidder_id"`
	Status    allocation.Status `json:"status"`
	WonBars   int               `json:"won_bars"`
	Bids      []BidRowDTO       `json:"bids"`
}

// GetAuctionStateUseCase serves the read side: auction state, bid book and allocation.
type GetAuctionStateUseCase struct {
	auctions     domain.AuctionRepository
	bids         domain.BidRepository
	offers       domain.OfferRepository
	participants domain.ParticipantRepository
}

// NewGetAuctionStateUseCase creates a new instance of GetAuctionStateUseCase.
func NewGetAuctionStateUseCase(auctions domain.AuctionRepository,
	bids domain.BidRepository,
	offers domain.OfferRepository,
	participants domain.ParticipantRepository) *GetAuctionStateUseCase {

	return &GetAuctionStateUseCase{
		auctions:     auctions,
		bids:         bids,
		offers:       offers,
		participants: participants,
	}
}

func (uc *GetAuctionStateUseCase) Execute(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error) {
	auction, err := uc.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	restricted, err := uc.participants.HasParticipants(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get auction state: %w", err)
	}

	dto := &AuctionStateDTO{
		AuctionID:    auction.ID,
		Title:        auction.Title,
		Description:  auction.Description,
		Status:       string(auction.Status),
		StartAt:      auction.StartAt,
		EndAt:        auction.EndAt,
		GPBStartedAt: auction.GPBStartedAt,
		GPBMinutes:   auction.GPBMinutes,
		BarCount:     auction.BarCount,
		BarWeight:    auction.BarWeight,
		IsOpen:       auction.IsOpen(restricted),
	}
	if deadline, ok := auction.GPBDeadline(); ok {
		dto.GPBDeadline = &deadline
	}
	if auction.MinPrice.Valid {
		minPrice := auction.MinPrice.Decimal
		dto.MinPrice = &minPrice
	}
	if floor, ok := auction.FloorPrice(); ok {
		dto.FloorPrice = &floor
	}
	return dto, nil
}

// Allocation recomputes the clearing from a fresh bid snapshot.
func (uc *GetAuctionStateUseCase) Allocation(ctx context.Context, auctionID uuid.UUID) (*AllocationDTO, *allocation.Result, error) {
	auction, err := uc.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return nil, nil, err
	}
	bids, err := uc.bids.GetBidsByAuctionID(ctx, auctionID)
	if err != nil {
		return nil, nil, fmt.Errorf("get allocation: read bids: %w", err)
	}
	if err := allocation.Validate(auction.BarCount, bids); err != nil {
		return nil, nil, fmt.Errorf("get allocation: %w", err)
	}

	result := allocation.Allocate(auction.BarCount, bids)
	dto := &AllocationDTO{
		AuctionID:      auction.ID,
		Capacity:       result.Capacity,
		GPBTaken:       result.GPBTaken,
		RegularAwarded: result.RegularAwarded,
		Bids:           bidRows(result.Bids),
		Participants:   result.Participants,
	}
	return dto, result, nil
}

// ParticipantView narrows the allocation to one bidder.
func (uc *GetAuctionStateUseCase) ParticipantView(ctx context.Context, auctionID, userID uuid.UUID) (*ParticipantViewDTO, error) {
	_, result, err := uc.Allocation(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	view := &ParticipantViewDTO{
		AuctionID: auctionID,
		BidderID:  userID,
		Status:    allocation.StatusLosing,
		Bids:      make([]BidRowDTO, 0),
	}
	if p, ok := result.Participant(userID); ok {
		view.Status = p.Status
		view.WonBars = p.WonBars
	}
	for _, row := range bidRows(result.Bids) {
		if row.BidderID == userID {
			view.Bids = append(view.Bids, row)
		}
	}
	return view, nil
}

// Offers lists the initial offers of an auction, newest first.
func (uc *GetAuctionStateUseCase) Offers(ctx context.Context, auctionID uuid.UUID) ([]*domain.InitialOffer, error) {
	if _, err := uc.auctions.GetByID(ctx, auctionID); err != nil {
		return nil, err
	}
	return uc.offers.GetOffersByAuctionID(ctx, auctionID)
}

func bidRows(allocs []allocation.BidAllocation) []BidRowDTO {
	rows := make([]BidRowDTO, 0, len(allocs))
	for _, a := range allocs {
		rows = append(rows, BidRowDTO{
			BidID:     a.Bid.ID,
			BidderID:  a.Bid.BidderID,
			Amount:    a.Bid.Amount,
			BarCount:  a.Bid.BarCount,
			IsGPB:     a.Bid.IsGPB,
			CreatedAt: a.Bid.CreatedAt,
			Fulfilled: a.Fulfilled,
			GPBUsed:   a.GPBUsed,
			Status:    a.Status,
		})
	}
	return rows
}
