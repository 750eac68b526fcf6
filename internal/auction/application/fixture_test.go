package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/domain"
	"github.com/maverick16108/atlas/internal/auction/infra/repository/memory"
	"github.com/maverick16108/atlas/internal/shared/clock"
	userdomain "github.com/maverick16108/atlas/internal/user/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

// recorder is an EventPublisher that keeps everything it is given.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(_ context.Context, e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func eventsOf[T domain.Event](r *recorder) []T {
	var out []T
	for _, e := range r.all() {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

type fixture struct {
	store        *memory.Store
	auctions     *memory.AuctionRepository
	bids         *memory.BidRepository
	offers       *memory.OfferRepository
	participants *memory.ParticipantRepository
	users        *memory.UserRepository
	clock        *clock.Mock
	events       *recorder

	service      AuctionService
	placeBid     *PlaceBidUseCase
	settle       *SettleAuctionUseCase
	transitioner *Transitioner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		store:        store,
		auctions:     memory.NewAuctionRepository(store),
		bids:         memory.NewBidRepository(store),
		offers:       memory.NewOfferRepository(store),
		participants: memory.NewParticipantRepository(store),
		users:        memory.NewUserRepository(store),
		clock:        clock.NewMock(t0),
		events:       &recorder{},
	}

	f.placeBid = NewPlaceBidUseCase(store, f.auctions, f.bids, f.participants, f.users, f.clock, f.events)
	f.settle = NewSettleAuctionUseCase(f.auctions, f.bids, f.clock, f.events)
	f.service = NewAuctionService(UseCases{
		CreateAuction:   NewCreateAuctionUseCase(f.auctions, f.clock),
		SetParticipants: NewSetParticipantsUseCase(store, f.auctions, f.participants),
		ChangeStatus:    NewChangeStatusUseCase(f.auctions, f.clock, f.events, f.settle),
		PlaceBid:        f.placeBid,
		SubmitOffer:     NewSubmitOfferUseCase(f.auctions, f.offers, f.participants, f.users, f.clock, f.events),
		GetAuctionState: NewGetAuctionStateUseCase(f.auctions, f.bids, f.offers, f.participants),
	})
	f.transitioner = NewTransitioner(f.auctions, f.clock, f.events, nil, memory.NewReminderLedger(), time.Second)
	return f
}

// advance moves the mock clock forward and returns the new instant.
func (f *fixture) advance(d time.Duration) time.Time {
	f.clock.Add(d)
	return f.clock.Now()
}

func (f *fixture) user(isGPB bool) uuid.UUID {
	id := uuid.New()
	f.store.AddUser(&userdomain.User{ID: id, Name: "bidder " + id.String()[:8], IsGPB: isGPB})
	return id
}

// auction stores an auction trading from t0 to t0+1h with default lot settings.
func (f *fixture) auction(t *testing.T, status domain.AuctionStatus, opts ...func(*domain.Auction)) *domain.Auction {
	t.Helper()
	a := domain.NewAuction(uuid.New(), "Gold bars", ptr(t0), ptr(t0.Add(time.Hour)), t0.Add(-24*time.Hour))
	a.Status = status
	for _, opt := range opts {
		opt(a)
	}
	require.NoError(t, f.auctions.Create(context.Background(), a))
	return a
}

func (f *fixture) status(t *testing.T, id uuid.UUID) domain.AuctionStatus {
	t.Helper()
	a, err := f.auctions.GetByID(context.Background(), id)
	require.NoError(t, err)
	return a.Status
}

func (f *fixture) bid(ctx context.Context, auctionID, bidderID uuid.UUID, amount string, barCount int) (*domain.Bid, error) {
	return f.service.PlaceBid(ctx, PlaceBidDTO{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    decimal.RequireFromString(amount),
		BarCount:  barCount,
	})
}
