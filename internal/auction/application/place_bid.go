package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/domain"
	"github.com/maverick16108/atlas/internal/shared/logger"
	userdomain "github.com/maverick16108/atlas/internal/user/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// ReasonGPBRightExercised tags the status change caused by a GPB bid.
const ReasonGPBRightExercised = "gpb_right_exercised"

// PlaceBidDTO is DTO input for PlaceBid useCase, contains the necesary data to make a bid
type PlaceBidDTO struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
	BarCount  int
}

// PlaceBidUseCase admits a bid into an auction. The guard, the insert and the
// gpb_right -> commission switch share one transaction holding the auction row.
type PlaceBidUseCase struct {
	tx           domain.Transactor
	auctions     domain.AuctionRepository
	bids         domain.BidRepository
	participants domain.ParticipantRepository
	users        userdomain.UserRepository
	clock        domain.Clock
	publisher    domain.EventPublisher
}

// NewPlaceBidUseCase creates a new instace of PlaceBidUseCase struct, it receives dependency through injection
func NewPlaceBidUseCase(tx domain.Transactor,
	auctions domain.AuctionRepository,
	bids domain.BidRepository,
	participants domain.ParticipantRepository,
	users userdomain.UserRepository,
	clock domain.Clock,
	publisher domain.EventPublisher) *PlaceBidUseCase {

	return &PlaceBidUseCase{
		tx:           tx,
		auctions:     auctions,
		bids:         bids,
		participants: participants,
		users:        users,
		clock:        clock,
		publisher:    publisher,
	}
}

func (uc *PlaceBidUseCase) Execute(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error) {
	log.Info("Executing PlaceBidUseCase",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidderID", cmd.BidderID.String()),
		zap.String("amount", cmd.Amount.String()),
		zap.Int("barCount", cmd.BarCount),
	)

	var (
		bid    *domain.Bid
		events []domain.Event
	)
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		auction, err := uc.auctions.GetByIDForUpdate(ctx, cmd.AuctionID)
		if err != nil {
			return err
		}
		bidder, err := uc.users.GetByID(ctx, cmd.BidderID)
		if err != nil {
			return err
		}
		if err := checkEligible(ctx, uc.participants, auction, bidder.ID); err != nil {
			return err
		}

		now := uc.clock.Now()
		if err := auction.CheckBid(bidder.IsGPB, cmd.Amount, cmd.BarCount, now); err != nil {
			return err
		}

		bid = domain.NewBid(uuid.New(), auction.ID, bidder.ID, cmd.Amount, cmd.BarCount, bidder.IsGPB, now)
		if err := uc.bids.Save(ctx, bid); err != nil {
			log.Error("PlaceBidUseCase: Failed to save new bid",
				zap.String("auctionID", cmd.AuctionID.String()),
				zap.String("bidID", bid.ID.String()),
				zap.Error(err),
			)
			return err
		}
		events = append(events, domain.BidPlaced{
			AuctionID: auction.ID,
			BidID:     bid.ID,
			BidderID:  bid.BidderID,
			Amount:    bid.Amount,
			BarCount:  bid.BarCount,
			IsGPB:     bid.IsGPB,
			CreatedAt: bid.CreatedAt,
		})

		if !auction.ExercisesGPBRight(bid) {
			return nil
		}
		swapped, err := uc.auctions.CompareAndSetStatus(ctx, auction.ID, domain.StatusGPBRight, domain.StatusCommission, domain.StatusPatch{UpdatedAt: now})
		if err != nil {
			return err
		}
		if !swapped {
			return domain.ErrConcurrentTransitionLost
		}
		events = append(events, domain.StatusChanged{
			AuctionID:    auction.ID,
			From:         domain.StatusGPBRight,
			To:           domain.StatusCommission,
			GPBStartedAt: auction.GPBStartedAt,
			Reason:       ReasonGPBRightExercised,
			At:           now,
		})
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			log.Error("PlaceBidUseCase: bid admission failed",
				zap.String("auctionID", cmd.AuctionID.String()),
				zap.String("bidderID", cmd.BidderID.String()),
				zap.Error(err),
			)
		}
		return nil, fmt.Errorf("place bid use case: bid failed for auction %s: %w", cmd.AuctionID, err)
	}

	// events only leave after commit
	for _, e := range events {
		uc.publisher.Publish(ctx, e)
	}
	return bid, nil
}

// checkEligible passes invited participants, and anyone when the auction is open.
func checkEligible(ctx context.Context, participants domain.ParticipantRepository, auction *domain.Auction, userID uuid.UUID) error {
	invited, err := participants.IsParticipant(ctx, auction.ID, userID)
	if err != nil {
		return err
	}
	if invited {
		return nil
	}
	restricted, err := participants.HasParticipants(ctx, auction.ID)
	if err != nil {
		return err
	}
	if auction.IsOpen(restricted) {
		return nil
	}
	return domain.ErrNotEligible
}

var businessErrors = []error{
	domain.ErrAuctionNotFound,
	domain.ErrNotEligible,
	domain.ErrWrongPhase,
	domain.ErrGpbForbiddenInActivePhase,
	domain.ErrNotGpbPhase,
	domain.ErrWindowClosed,
	domain.ErrBelowFloor,
	domain.ErrExceedsCapacity,
	domain.ErrInvalidInput,
	domain.ErrInvalidStatus,
	domain.ErrConcurrentTransitionLost,
	userdomain.ErrUserNotFound,
}

// isBusinessError tells rejections apart from infrastructure failures, which get logged.
func isBusinessError(err error) bool {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ErrorCode is the stable machine-readable name of a rejection, empty for
// infrastructure failures.
func ErrorCode(err error) string {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return errorCodes[target]
		}
	}
	return ""
}

var errorCodes = map[error]string{
	domain.ErrAuctionNotFound:           "auction_not_found",
	domain.ErrNotEligible:               "not_eligible",
	domain.ErrWrongPhase:                "wrong_phase",
	domain.ErrGpbForbiddenInActivePhase: "gpb_forbidden_in_active_phase",
	domain.ErrNotGpbPhase:               "not_gpb_phase",
	domain.ErrWindowClosed:              "window_closed",
	domain.ErrBelowFloor:                "below_floor",
	domain.ErrExceedsCapacity:           "exceeds_capacity",
	domain.ErrInvalidInput:              "invalid_input",
	domain.ErrInvalidStatus:             "invalid_status",
	domain.ErrConcurrentTransitionLost:  "concurrent_transition_lost",
	userdomain.ErrUserNotFound:          "user_not_found",
}
