package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTick_AutomaticTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scheduled := f.auction(t, domain.StatusScheduled)
	active := f.auction(t, domain.StatusActive)
	gpb := f.auction(t, domain.StatusGPBRight, func(a *domain.Auction) {
		a.GPBStartedAt = ptr(t0.Add(-30 * time.Minute))
	})
	untouched := f.auction(t, domain.StatusCommission)

	now := f.advance(time.Hour)
	report, err := f.transitioner.Tick(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Applied, 3)

	assert.Equal(t, domain.StatusActive, f.status(t, scheduled.ID))
	assert.Equal(t, domain.StatusGPBRight, f.status(t, active.ID))
	assert.Equal(t, domain.StatusCommission, f.status(t, gpb.ID))
	assert.Equal(t, domain.StatusCommission, f.status(t, untouched.ID))

	moved, err := f.auctions.GetByID(ctx, active.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.GPBStartedAt)
	assert.True(t, moved.GPBStartedAt.Equal(now))
	assert.True(t, moved.UpdatedAt.Equal(now), "updated_at follows the injected clock")

	changes := eventsOf[domain.StatusChanged](f.events)
	require.Len(t, changes, 3)
	for _, c := range changes {
		assert.True(t, c.Automatic)
	}
}

func TestTick_OneStepPerTick(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.auction(t, domain.StatusScheduled)

	// far past every deadline: still one step per tick
	f.clock.Set(t0.Add(48 * time.Hour))
	want := []domain.AuctionStatus{domain.StatusActive, domain.StatusGPBRight, domain.StatusGPBRight}
	for i, status := range want {
		_, err := f.transitioner.Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, status, f.status(t, a.ID), "after tick %d", i+1)
	}

	// the gpb clock started at the second tick
	f.advance(30 * time.Minute)
	_, err := f.transitioner.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCommission, f.status(t, a.ID))

	_, err = f.transitioner.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCommission, f.status(t, a.ID))
}

func TestTick_BatchAndContinuousAgree(t *testing.T) {
	run := func(step time.Duration) domain.AuctionStatus {
		f := newFixture(t)
		a := f.auction(t, domain.StatusScheduled)
		for f.clock.Now().Before(t0.Add(2 * time.Hour)) {
			f.advance(step)
			_, err := f.transitioner.Tick(context.Background())
			require.NoError(t, err)
		}
		return f.status(t, a.ID)
	}

	assert.Equal(t, run(time.Second), run(10*time.Minute))
}

// failingCAS breaks the status write of one auction only.
type failingCAS struct {
	domain.AuctionRepository
	broken uuid.UUID
}

var errStoreDown = errors.New("store unavailable")

func (r *failingCAS) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to domain.AuctionStatus, patch domain.StatusPatch) (bool, error) {
	if id == r.broken {
		return false, errStoreDown
	}
	return r.AuctionRepository.CompareAndSetStatus(ctx, id, from, to, patch)
}

func TestTick_FailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	broken := f.auction(t, domain.StatusScheduled)
	healthy := f.auction(t, domain.StatusScheduled)
	f.clock.Set(t0)

	tr := NewTransitioner(&failingCAS{AuctionRepository: f.auctions, broken: broken.ID}, f.clock, f.events, nil, nil, time.Second)
	report, err := tr.Tick(ctx)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, report.Applied, 1)

	assert.Equal(t, domain.StatusScheduled, f.status(t, broken.ID))
	assert.Equal(t, domain.StatusActive, f.status(t, healthy.ID))
}

func TestTick_LostRaceIsNotAnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.auction(t, domain.StatusActive)
	f.clock.Set(t0.Add(time.Hour))

	tr := NewTransitioner(&pollerFirst{AuctionRepository: f.auctions}, f.clock, f.events, nil, nil, time.Second)
	report, err := tr.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Lost)
	assert.Empty(t, report.Applied)
	assert.Equal(t, domain.StatusGPBRight, f.status(t, a.ID))
}

func TestTick_SkipsWhileRunning(t *testing.T) {
	f := newFixture(t)
	f.auction(t, domain.StatusScheduled)

	f.transitioner.mu.Lock()
	report, err := f.transitioner.Tick(context.Background())
	f.transitioner.mu.Unlock()

	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Empty(t, f.events.all())
}

type stubLocker struct {
	free     bool
	err      error
	released int
}

func (l *stubLocker) TryLock(context.Context) (func(), bool, error) {
	if l.err != nil || !l.free {
		return nil, false, l.err
	}
	return func() { l.released++ }, true, nil
}

func TestTick_DistributedLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.auction(t, domain.StatusScheduled)

	held := &stubLocker{free: false}
	tr := NewTransitioner(f.auctions, f.clock, f.events, held, nil, time.Second)
	report, err := tr.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, domain.StatusScheduled, f.status(t, a.ID))

	free := &stubLocker{free: true}
	tr = NewTransitioner(f.auctions, f.clock, f.events, free, nil, time.Second)
	_, err = tr.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, f.status(t, a.ID))
	assert.Equal(t, 1, free.released)

	broken := &stubLocker{err: errStoreDown}
	tr = NewTransitioner(f.auctions, f.clock, f.events, broken, nil, time.Second)
	_, err = tr.Tick(ctx)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestTick_StartReminderSentOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	soon := f.auction(t, domain.StatusScheduled, func(a *domain.Auction) {
		a.StartAt = ptr(t0.Add(14*time.Minute + 30*time.Second))
		a.EndAt = ptr(t0.Add(2 * time.Hour))
	})
	f.auction(t, domain.StatusScheduled, func(a *domain.Auction) {
		a.StartAt = ptr(t0.Add(time.Hour))
		a.EndAt = ptr(t0.Add(2 * time.Hour))
	})
	f.auction(t, domain.StatusDraft, func(a *domain.Auction) {
		a.StartAt = ptr(t0.Add(14*time.Minute + 30*time.Second))
	})

	report, err := f.transitioner.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reminded)

	f.advance(10 * time.Second)
	report, err = f.transitioner.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Reminded)

	reminders := eventsOf[domain.AuctionStartingSoon](f.events)
	require.Len(t, reminders, 1)
	assert.Equal(t, soon.ID, reminders[0].AuctionID)
}

func TestRun_TicksOnTheInjectedClock(t *testing.T) {
	f := newFixture(t)
	a := f.auction(t, domain.StatusScheduled, func(a *domain.Auction) {
		a.StartAt = ptr(t0.Add(30 * time.Second))
	})
	const interval = 10 * time.Second
	tr := NewTransitioner(f.auctions, f.clock, f.events, nil, nil, interval)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	// each Add fires the mock ticker once Run has created it
	require.Eventually(t, func() bool {
		f.clock.Add(interval)
		current, err := f.auctions.GetByID(context.Background(), a.ID)
		return err == nil && current.Status == domain.StatusActive
	}, time.Second, time.Millisecond)
	assert.False(t, f.clock.Now().Before(*a.StartAt))

	changes := eventsOf[domain.StatusChanged](f.events)
	require.NotEmpty(t, changes)
	assert.False(t, changes[0].At.Before(*a.StartAt))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("transitioner did not stop")
	}
}
