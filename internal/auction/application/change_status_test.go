package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/allocation"
	"github.com/maverick16108/atlas/internal/auction/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeStatus_ManualGuards(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.AuctionStatus
		gpbAt   *time.Time
		now     time.Time
		to      domain.AuctionStatus
		wantErr error
	}{
		{"schedule before start", domain.StatusCollectingOffers, nil, t0.Add(-time.Hour), domain.StatusScheduled, nil},
		{"reopen after end", domain.StatusGPBRight, ptr(t0.Add(time.Hour)), t0.Add(65 * time.Minute), domain.StatusActive, domain.ErrWindowClosed},
		{"collect offers after end", domain.StatusPaused, nil, t0.Add(2 * time.Hour), domain.StatusCollectingOffers, domain.ErrWindowClosed},
		{"gpb right after gpb window", domain.StatusCommission, ptr(t0.Add(time.Hour)), t0.Add(3 * time.Hour), domain.StatusGPBRight, domain.ErrWindowClosed},
		{"pause after gpb window", domain.StatusCommission, ptr(t0.Add(time.Hour)), t0.Add(3 * time.Hour), domain.StatusPaused, nil},
		{"back to draft before start", domain.StatusScheduled, nil, t0.Add(-time.Hour), domain.StatusDraft, nil},
		{"back to draft after gpb window", domain.StatusCommission, ptr(t0.Add(time.Hour)), t0.Add(3 * time.Hour), domain.StatusDraft, domain.ErrWindowClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			a := f.auction(t, tt.from, func(a *domain.Auction) { a.GPBStartedAt = tt.gpbAt })
			f.clock.Set(tt.now)

			_, err := f.service.ChangeStatus(context.Background(), ChangeStatusDTO{AuctionID: a.ID, To: tt.to})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, f.status(t, a.ID))
				assert.Empty(t, f.events.all())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, f.status(t, a.ID))
			assert.Len(t, eventsOf[domain.StatusChanged](f.events), 1)
		})
	}
}

func TestChangeStatus_ManualGPBRightRestartsClock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.auction(t, domain.StatusCommission, func(a *domain.Auction) {
		a.GPBStartedAt = ptr(t0.Add(time.Hour))
	})
	now := f.advance(time.Hour + 10*time.Minute)

	updated, err := f.service.ChangeStatus(ctx, ChangeStatusDTO{AuctionID: a.ID, To: domain.StatusGPBRight, Reason: "reopen"})
	require.NoError(t, err)
	require.NotNil(t, updated.GPBStartedAt)
	assert.True(t, updated.GPBStartedAt.Equal(now))

	stored, err := f.auctions.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, stored.GPBStartedAt.Equal(now))

	changed := eventsOf[domain.StatusChanged](f.events)
	require.Len(t, changed, 1)
	assert.Equal(t, "reopen", changed[0].Reason)
}

func TestChangeStatus_SameStatusIsNoop(t *testing.T) {
	f := newFixture(t)
	a := f.auction(t, domain.StatusPaused)

	_, err := f.service.ChangeStatus(context.Background(), ChangeStatusDTO{AuctionID: a.ID, To: domain.StatusPaused})
	require.NoError(t, err)
	assert.Empty(t, f.events.all())
}

func TestChangeStatus_CompletedSettlesAuction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.auction(t, domain.StatusActive)
	alice, bob := f.user(false), f.user(false)

	f.clock.Set(t0.Add(time.Minute))
	_, err := f.bid(ctx, a.ID, alice, "100", 6)
	require.NoError(t, err)
	_, err = f.bid(ctx, a.ID, bob, "90", 6)
	require.NoError(t, err)

	f.clock.Set(t0.Add(2 * time.Hour))
	_, err = f.service.ChangeStatus(ctx, ChangeStatusDTO{AuctionID: a.ID, To: domain.StatusCompleted})
	require.NoError(t, err)

	settled := eventsOf[domain.AuctionSettled](f.events)
	require.Len(t, settled, 1)
	assert.Equal(t, 10, settled[0].RegularAwarded)
	assert.Equal(t, 0, settled[0].GPBTaken)
	assert.Equal(t, 2, settled[0].Winners)

	outcomes := eventsOf[domain.ParticipantOutcome](f.events)
	require.Len(t, outcomes, 2)
	byBidder := map[string]domain.ParticipantOutcome{}
	for _, o := range outcomes {
		byBidder[o.BidderID.String()] = o
	}
	assert.Equal(t, string(allocation.StatusWinning), byBidder[alice.String()].Status)
	assert.Equal(t, 6, byBidder[alice.String()].WonBars)
	assert.Equal(t, string(allocation.StatusPartial), byBidder[bob.String()].Status)
	assert.Equal(t, "Gold bars", byBidder[bob.String()].AuctionTitle)
}

func TestSettle_SkipsWhenNotCompleted(t *testing.T) {
	f := newFixture(t)
	a := f.auction(t, domain.StatusCommission)

	assert.Nil(t, f.settle.Execute(context.Background(), a.ID))
	assert.Empty(t, f.events.all())
}

// Two writers race the same CAS: exactly one wins and gpb_started_at is
// written once, by the winner.
func TestCompareAndSetStatus_NoDoubleTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.auction(t, domain.StatusActive)

	const writers = 16
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		stamp time.Time
	)
	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			at := t0.Add(time.Hour + time.Duration(i)*time.Millisecond)
			ok, err := f.auctions.CompareAndSetStatus(ctx, a.ID, domain.StatusActive, domain.StatusGPBRight, domain.StatusPatch{GPBStartedAt: &at})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				stamp = at
				mu.Unlock()
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	stored, err := f.auctions.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusGPBRight, stored.Status)
	require.NotNil(t, stored.GPBStartedAt)
	assert.True(t, stored.GPBStartedAt.Equal(stamp))
}

// The poller and a manual change race: the loser reports the lost race.
func TestChangeStatus_LosesToPoller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.auction(t, domain.StatusActive)
	f.clock.Set(t0.Add(time.Hour))

	uc := NewChangeStatusUseCase(&pollerFirst{AuctionRepository: f.auctions}, f.clock, f.events, nil)
	_, err := uc.Execute(ctx, ChangeStatusDTO{AuctionID: a.ID, To: domain.StatusPaused})
	assert.ErrorIs(t, err, domain.ErrConcurrentTransitionLost)
	assert.Equal(t, domain.StatusGPBRight, f.status(t, a.ID))
}

// pollerFirst lets the automatic transition land right before every CAS.
type pollerFirst struct {
	domain.AuctionRepository
}

func (p *pollerFirst) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to domain.AuctionStatus, patch domain.StatusPatch) (bool, error) {
	now := t0.Add(time.Hour)
	if _, err := p.AuctionRepository.CompareAndSetStatus(ctx, id, domain.StatusActive, domain.StatusGPBRight, domain.StatusPatch{GPBStartedAt: &now}); err != nil {
		return false, err
	}
	return p.AuctionRepository.CompareAndSetStatus(ctx, id, from, to, patch)
}
