package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/domain"
	userdomain "github.com/maverick16108/atlas/internal/user/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newAuction(t *testing.T, repo *AuctionRepository, status domain.AuctionStatus) *domain.Auction {
	t.Helper()
	start, end := now, now.Add(time.Hour)
	a := domain.NewAuction(uuid.New(), "Gold bars", &start, &end, now)
	a.Status = status
	require.NoError(t, repo.Create(context.Background(), a))
	return a
}

func TestStore_RollbackOnError(t *testing.T) {
	store := NewStore()
	auctions := NewAuctionRepository(store)
	bids := NewBidRepository(store)
	a := newAuction(t, auctions, domain.StatusActive)
	ctx := context.Background()
	errAbort := errors.New("abort")

	err := store.WithinTransaction(ctx, func(ctx context.Context) error {
		bid := domain.NewBid(uuid.New(), a.ID, uuid.New(), decimal.NewFromInt(100), 1, false, now)
		require.NoError(t, bids.Save(ctx, bid))
		ok, err := auctions.CompareAndSetStatus(ctx, a.ID, domain.StatusActive, domain.StatusGPBRight, domain.StatusPatch{GPBStartedAt: &now})
		require.NoError(t, err)
		require.True(t, ok)
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	stored, err := bids.GetBidsByAuctionID(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)

	got, err := auctions.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, got.Status)
	assert.Nil(t, got.GPBStartedAt)
}

func TestStore_CommitKeepsWrites(t *testing.T) {
	store := NewStore()
	auctions := NewAuctionRepository(store)
	participants := NewParticipantRepository(store)
	a := newAuction(t, auctions, domain.StatusScheduled)
	user := uuid.New()
	ctx := context.Background()

	require.NoError(t, store.WithinTransaction(ctx, func(ctx context.Context) error {
		return participants.SetParticipants(ctx, a.ID, []uuid.UUID{user})
	}))

	invited, err := participants.IsParticipant(ctx, a.ID, user)
	require.NoError(t, err)
	assert.True(t, invited)
	restricted, err := participants.HasParticipants(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, restricted)
}

func TestAuctionRepository_CompareAndSetStatus(t *testing.T) {
	store := NewStore()
	auctions := NewAuctionRepository(store)
	a := newAuction(t, auctions, domain.StatusScheduled)
	ctx := context.Background()

	ok, err := auctions.CompareAndSetStatus(ctx, a.ID, domain.StatusScheduled, domain.StatusActive, domain.StatusPatch{})
	require.NoError(t, err)
	assert.True(t, ok)

	// a second writer still expecting scheduled loses
	ok, err = auctions.CompareAndSetStatus(ctx, a.ID, domain.StatusScheduled, domain.StatusCancelled, domain.StatusPatch{})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := auctions.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, got.Status)

	_, err = auctions.CompareAndSetStatus(ctx, uuid.New(), domain.StatusScheduled, domain.StatusActive, domain.StatusPatch{})
	assert.ErrorIs(t, err, domain.ErrAuctionNotFound)
}

func TestAuctionRepository_CompareAndSetStatusStampsPatchTime(t *testing.T) {
	store := NewStore()
	auctions := NewAuctionRepository(store)
	a := newAuction(t, auctions, domain.StatusScheduled)
	ctx := context.Background()
	at := now.Add(90 * time.Minute)

	ok, err := auctions.CompareAndSetStatus(ctx, a.ID, domain.StatusScheduled, domain.StatusActive, domain.StatusPatch{UpdatedAt: at})
	require.NoError(t, err)
	require.True(t, ok)

	got, err := auctions.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(at))
}

func TestAuctionRepository_ReadsAreCopies(t *testing.T) {
	store := NewStore()
	auctions := NewAuctionRepository(store)
	a := newAuction(t, auctions, domain.StatusDraft)
	ctx := context.Background()

	got, err := auctions.GetByID(ctx, a.ID)
	require.NoError(t, err)
	got.Status = domain.StatusCompleted

	again, err := auctions.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, again.Status)
}

func TestUserRepository_GetByID(t *testing.T) {
	store := NewStore()
	users := NewUserRepository(store)
	id := uuid.New()
	store.AddUser(&userdomain.User{ID: id, Name: "gpb", IsGPB: true})

	u, err := users.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, u.IsGPB)

	_, err = users.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, userdomain.ErrUserNotFound)
}

func TestReminderLedger_MarksOnce(t *testing.T) {
	ledger := NewReminderLedger()
	id := uuid.New()

	first, err := ledger.MarkReminded(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := ledger.MarkReminded(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, second)
}
