package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/application"
	"github.com/maverick16108/atlas/internal/auction/domain"
	"github.com/maverick16108/atlas/internal/shared/logger"
	userdomain "github.com/maverick16108/atlas/internal/user/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

var validate = validator.New()

// UserHeader carries the caller's user id.
const UserHeader = "X-User-ID"

// AuctionHandler exposes the auction service over REST.
type AuctionHandler struct {
	auctionService application.AuctionService
}

func NewAuctionHandler(auctionService application.AuctionService) *AuctionHandler {
	return &AuctionHandler{auctionService: auctionService}
}

// RegisterRoutes mounts the handler under /api/auctions.
func (h *AuctionHandler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/auctions")
	api.Post("/", h.createAuction)
	api.Get("/:id", h.getAuction)
	api.Patch("/:id/status", h.changeStatus)
	api.Put("/:id/participants", h.setParticipants)
	api.Post("/:id/bids", h.placeBid)
	api.Get("/:id/bids", h.listBids)
	api.Post("/:id/offers", h.submitOffer)
	api.Get("/:id/offers", h.listOffers)
	api.Get("/:id/allocation", h.getAllocation)
	api.Get("/:id/me", h.getParticipantView)
}

type createAuctionRequest struct {
	Title       string           `json:"title" validate:"required,max=255"`
	Description string           `json:"description" validate:"max=4000"`
	StartAt     *time.Time       `json:"start_at"`
	EndAt       *time.Time       `json:"end_at"`
	GPBMinutes  *int             `json:"gpb_minutes" validate:"omitempty,gte=1"`
	BarCount    *int             `json:"bar_count" validate:"omitempty,gte=0"`
	BarWeight   *decimal.Decimal `json:"bar_weight"`
	MinPrice    *decimal.Decimal `json:"min_price"`
	InviteAll   bool             `json:"invite_all"`
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

type participantsRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" validate:"dive,required"`
}

type placeBidRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	BarCount int             `json:"bar_count" validate:"required,min=1"`
}

type submitOfferRequest struct {
	Volume  decimal.Decimal `json:"volume"`
	Price   decimal.Decimal `json:"price"`
	Comment string          `json:"comment" validate:"max=1000"`
}

type bidResponse struct {
	ID        uuid.UUID       `json:"id"`
	AuctionID uuid.UUID       `json:"auction_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	BarCount  int             `json:"bar_count"`
	IsGPB     bool            `json:"is_gpb"`
	CreatedAt time.Time       `json:"created_at"`
}

type offerResponse struct {
	ID        uuid.UUID       `json:"id"`
	AuctionID uuid.UUID       `json:"auction_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	Volume    decimal.Decimal `json:"volume"`
	Price     decimal.Decimal `json:"price"`
	Comment   string          `json:"comment"`
	CreatedAt time.Time       `json:"created_at"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *AuctionHandler) createAuction(c *fiber.Ctx) error {
	var req createAuctionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	auction, err := h.auctionService.CreateAuction(c.UserContext(), application.CreateAuctionDTO{
		Title:       req.Title,
		Description: req.Description,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		GPBMinutes:  req.GPBMinutes,
		BarCount:    req.BarCount,
		BarWeight:   req.BarWeight,
		MinPrice:    req.MinPrice,
		InviteAll:   req.InviteAll,
	})
	if err != nil {
		return writeError(c, err)
	}
	state, err := h.auctionService.GetAuctionState(c.UserContext(), auction.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(state)
}

func (h *AuctionHandler) getAuction(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return err
	}
	state, err := h.auctionService.GetAuctionState(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(state)
}

func (h *AuctionHandler) changeStatus(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return err
	}
	var req changeStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		return writeError(c, err)
	}
	if _, err := h.auctionService.ChangeStatus(c.UserContext(), application.ChangeStatusDTO{AuctionID: id, To: status, Reason: req.Reason}); err != nil {
		return writeError(c, err)
	}
	state, err := h.auctionService.GetAuctionState(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(state)
}

func (h *AuctionHandler) setParticipants(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return err
	}
	var req participantsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.auctionService.SetParticipants(c.UserContext(), id, req.UserIDs); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuctionHandler) placeBid(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return err
	}
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req placeBidRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	bid, err := h.auctionService.PlaceBid(c.UserContext(), application.PlaceBidDTO{
		AuctionID: id,
		BidderID:  userID,
		Amount:    req.Amount,
		BarCount:  req.BarCount,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(bidResponse{
		ID:        bid.ID,
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		BarCount:  bid.BarCount,
		IsGPB:     bid.IsGPB,
		CreatedAt: bid.CreatedAt,
	})
}

func (h *AuctionHandler) listBids(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return err
	}
	rows, err := h.auctionService.ListBids(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(rows)
}

func (h *AuctionHandler) submitOffer(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return err
	}
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req submitOfferRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	offer, err := h.auctionService.SubmitOffer(c.UserContext(), application.SubmitOfferDTO{
		AuctionID: id,
		BidderID:  userID,
		Volume:    req.Volume,
		Price:     req.Price,
		Comment:   req.Comment,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toOfferResponse(offer))
}

func (h *AuctionHandler) listOffers(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return err
	}
	offers, err := h.auctionService.ListOffers(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]offerResponse, 0, len(offers))
	for _, o := range offers {
		out = append(out, toOfferResponse(o))
	}
	return c.JSON(out)
}

func (h *AuctionHandler) getAllocation(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return err
	}
	result, err := h.auctionService.GetAllocation(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(result)
}

func (h *AuctionHandler) getParticipantView(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return err
	}
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	view, err := h.auctionService.GetParticipantView(c.UserContext(), id, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(view)
}

func toOfferResponse(o *domain.InitialOffer) offerResponse {
	return offerResponse{
		ID:        o.ID,
		AuctionID: o.AuctionID,
		BidderID:  o.BidderID,
		Volume:    o.Volume,
		Price:     o.Price,
		Comment:   o.Comment,
		CreatedAt: o.CreatedAt,
	}
}

// auctionID parses :id; the returned *fiber.Error is rendered by the server's error handler.
func auctionID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid auction id")
	}
	return id, nil
}

func callerID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Get(UserHeader))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "missing or invalid "+UserHeader+" header")
	}
	return id, nil
}

// bind decodes the body into req and checks its validate tags.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// writeError maps use case errors to HTTP statuses.
func writeError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Error("HTTP request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(status).JSON(errorResponse{Error: "internal error"})
	}
	return c.Status(status).JSON(errorResponse{Error: err.Error(), Code: application.ErrorCode(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAuctionNotFound), errors.Is(err, userdomain.ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrNotEligible):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrWrongPhase),
		errors.Is(err, domain.ErrGpbForbiddenInActivePhase),
		errors.Is(err, domain.ErrNotGpbPhase),
		errors.Is(err, domain.ErrWindowClosed),
		errors.Is(err, domain.ErrConcurrentTransitionLost):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrBelowFloor),
		errors.Is(err, domain.ErrExceedsCapacity),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidStatus):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
