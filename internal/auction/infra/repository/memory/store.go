// Package memory keeps every auction repository in process memory. It backs
// the test suites and the single-node dev mode (DB_DRIVER=memory).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/domain"
	userdomain "github.com/maverick16108/atlas/internal/user/domain"
)

type txKey struct{}

// Store is the shared state behind the repositories. mu guards the maps;
// txMu serializes transactions and standalone writes the way a row lock would.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	auctions     map[uuid.UUID]*domain.Auction
	bids         map[uuid.UUID][]*domain.Bid
	offers       map[uuid.UUID][]*domain.InitialOffer
	participants map[uuid.UUID]map[uuid.UUID]bool
	users        map[uuid.UUID]*userdomain.User
}

func NewStore() *Store {
	return &Store{
		auctions:     make(map[uuid.UUID]*domain.Auction),
		bids:         make(map[uuid.UUID][]*domain.Bid),
		offers:       make(map[uuid.UUID][]*domain.InitialOffer),
		participants: make(map[uuid.UUID]map[uuid.UUID]bool),
		users:        make(map[uuid.UUID]*userdomain.User),
	}
}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// write runs fn under the data lock, taking the transaction lock first when
// ctx is not already inside one.
func (s *Store) write(ctx context.Context, fn func()) {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

type snapshot struct {
	auctions     map[uuid.UUID]*domain.Auction
	bids         map[uuid.UUID][]*domain.Bid
	offers       map[uuid.UUID][]*domain.InitialOffer
	participants map[uuid.UUID]map[uuid.UUID]bool
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		auctions:     make(map[uuid.UUID]*domain.Auction, len(s.auctions)),
		bids:         make(map[uuid.UUID][]*domain.Bid, len(s.bids)),
		offers:       make(map[uuid.UUID][]*domain.InitialOffer, len(s.offers)),
		participants: make(map[uuid.UUID]map[uuid.UUID]bool, len(s.participants)),
	}
	for id, a := range s.auctions {
		snap.auctions[id] = cloneAuction(a)
	}
	for id, b := range s.bids {
		snap.bids[id] = append([]*domain.Bid(nil), b...)
	}
	for id, o := range s.offers {
		snap.offers[id] = append([]*domain.InitialOffer(nil), o...)
	}
	for id, set := range s.participants {
		cp := make(map[uuid.UUID]bool, len(set))
		for u := range set {
			cp[u] = true
		}
		snap.participants[id] = cp
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions = snap.auctions
	s.bids = snap.bids
	s.offers = snap.offers
	s.participants = snap.participants
}

// WithinTransaction implements domain.Transactor. Transactions run one at a
// time; an error or panic from fn restores the state seen at begin.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	defer func() {
		if r := recover(); r != nil {
			s.restore(snap)
			panic(r)
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, true))
}

// AddUser registers a bidder identity.
func (s *Store) AddUser(user *userdomain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.users[u.ID] = &u
}

func cloneAuction(a *domain.Auction) *domain.Auction {
	cp := *a
	cp.StartAt = cloneTime(a.StartAt)
	cp.EndAt = cloneTime(a.EndAt)
	cp.GPBStartedAt = cloneTime(a.GPBStartedAt)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// AuctionRepository implements domain.AuctionRepository.
type AuctionRepository struct{ s *Store }

func NewAuctionRepository(s *Store) *AuctionRepository { return &AuctionRepository{s: s} }

func (r *AuctionRepository) Create(ctx context.Context, auction *domain.Auction) error {
	var err error
	r.s.write(ctx, func() {
		if _, exists := r.s.auctions[auction.ID]; exists {
			err = domain.ErrInvalidInput
			return
		}
		r.s.auctions[auction.ID] = cloneAuction(auction)
	})
	return err
}

func (r *AuctionRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Auction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return cloneAuction(a), nil
}

// GetByIDForUpdate relies on the transaction lock for exclusivity.
func (r *AuctionRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	return r.GetByID(ctx, id)
}

func (r *AuctionRepository) ListByStatus(_ context.Context, status domain.AuctionStatus) ([]*domain.Auction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Auction
	for _, a := range r.s.auctions {
		if a.Status == status {
			out = append(out, cloneAuction(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *AuctionRepository) ListStartingBetween(_ context.Context, statuses []domain.AuctionStatus, from, to time.Time) ([]*domain.Auction, error) {
	wanted := make(map[domain.AuctionStatus]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Auction
	for _, a := range r.s.auctions {
		if !wanted[a.Status] || a.StartAt == nil {
			continue
		}
		if a.StartAt.Before(from) || a.StartAt.After(to) {
			continue
		}
		out = append(out, cloneAuction(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartAt.Equal(*out[j].StartAt) {
			return out[i].StartAt.Before(*out[j].StartAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *AuctionRepository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to domain.AuctionStatus, patch domain.StatusPatch) (bool, error) {
	var (
		swapped bool
		err     error
	)
	r.s.write(ctx, func() {
		a, ok := r.s.auctions[id]
		if !ok {
			err = domain.ErrAuctionNotFound
			return
		}
		if a.Status != from {
			return
		}
		a.Status = to
		if patch.GPBStartedAt != nil {
			a.GPBStartedAt = cloneTime(patch.GPBStartedAt)
		}
		a.UpdatedAt = patch.UpdatedAt
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = time.Now().UTC()
		}
		swapped = true
	})
	return swapped, err
}

// BidRepository implements domain.BidRepository.
type BidRepository struct{ s *Store }

func NewBidRepository(s *Store) *BidRepository { return &BidRepository{s: s} }

func (r *BidRepository) Save(ctx context.Context, bid *domain.Bid) error {
	cp := *bid
	r.s.write(ctx, func() {
		r.s.bids[bid.AuctionID] = append(r.s.bids[bid.AuctionID], &cp)
	})
	return nil
}

func (r *BidRepository) GetBidsByAuctionID(_ context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stored := r.s.bids[auctionID]
	out := make([]*domain.Bid, len(stored))
	for i, b := range stored {
		cp := *b
		out[i] = &cp
	}
	return out, nil
}

// OfferRepository implements domain.OfferRepository.
type OfferRepository struct{ s *Store }

func NewOfferRepository(s *Store) *OfferRepository { return &OfferRepository{s: s} }

func (r *OfferRepository) Save(ctx context.Context, offer *domain.InitialOffer) error {
	cp := *offer
	r.s.write(ctx, func() {
		r.s.offers[offer.AuctionID] = append(r.s.offers[offer.AuctionID], &cp)
	})
	return nil
}

// GetOffersByAuctionID lists offers newest first.
func (r *OfferRepository) GetOffersByAuctionID(_ context.Context, auctionID uuid.UUID) ([]*domain.InitialOffer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stored := r.s.offers[auctionID]
	out := make([]*domain.InitialOffer, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		cp := *stored[i]
		out = append(out, &cp)
	}
	return out, nil
}

// ParticipantRepository implements domain.ParticipantRepository.
type ParticipantRepository struct{ s *Store }

func NewParticipantRepository(s *Store) *ParticipantRepository { return &ParticipantRepository{s: s} }

func (r *ParticipantRepository) IsParticipant(_ context.Context, auctionID, userID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.participants[auctionID][userID], nil
}

func (r *ParticipantRepository) HasParticipants(_ context.Context, auctionID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.participants[auctionID]) > 0, nil
}

func (r *ParticipantRepository) SetParticipants(ctx context.Context, auctionID uuid.UUID, userIDs []uuid.UUID) error {
	set := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		set[id] = true
	}
	r.s.write(ctx, func() {
		if len(set) == 0 {
			delete(r.s.participants, auctionID)
			return
		}
		r.s.participants[auctionID] = set
	})
	return nil
}

// UserRepository implements the user domain repository.
type UserRepository struct{ s *Store }

func NewUserRepository(s *Store) *UserRepository { return &UserRepository{s: s} }

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*userdomain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, userdomain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}
