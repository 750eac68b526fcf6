package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/domain"
	"github.com/maverick16108/atlas/internal/shared/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Reminder window: auctions starting between 14 and 15 minutes from now.
const (
	reminderLeadMin = 14 * time.Minute
	reminderLeadMax = 15 * time.Minute
)

var reminderStatuses = []domain.AuctionStatus{
	domain.StatusCollectingOffers,
	domain.StatusScheduled,
	domain.StatusActive,
}

// AppliedTransition is one status change a tick committed.
type AppliedTransition struct {
	AuctionID  uuid.UUID
	Transition domain.Transition
}

// TickReport summarizes one sweep.
type TickReport struct {
	At       time.Time
	Skipped  bool
	Applied  []AppliedTransition
	Lost     int
	Failed   int
	Reminded int
}

// Transitioner is the lifecycle poller. Ticks never overlap, inside the
// process (mutex) nor across replicas (optional TickLocker).
type Transitioner struct {
	auctions  domain.AuctionRepository
	clock     clock.Clock
	publisher domain.EventPublisher
	locker    domain.TickLocker
	reminders domain.ReminderLedger
	interval  time.Duration

	mu sync.Mutex
}

// NewTransitioner wires the poller. locker and reminders may be nil: without a
// locker only the in-process guard applies, without a ledger no reminders go out.
func NewTransitioner(auctions domain.AuctionRepository,
	clk clock.Clock,
	publisher domain.EventPublisher,
	locker domain.TickLocker,
	reminders domain.ReminderLedger,
	interval time.Duration) *Transitioner {

	return &Transitioner{
		auctions:  auctions,
		clock:     clk,
		publisher: publisher,
		locker:    locker,
		reminders: reminders,
		interval:  interval,
	}
}

// Run ticks every interval of the injected clock until ctx is cancelled. Tick
// errors are logged and the loop keeps going.
func (t *Transitioner) Run(ctx context.Context) error {
	log.Info("Lifecycle transitioner started", zap.Duration("interval", t.interval))
	ticker := t.clock.Ticker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Lifecycle transitioner stopped")
			return nil
		case <-ticker.C:
			if _, err := t.Tick(ctx); err != nil {
				log.Error("Lifecycle tick finished with errors", zap.Error(err))
			}
		}
	}
}

// Tick runs one sweep. Candidates for every automatic rule are listed before
// the first write, so an auction moves at most one step per tick. A failure on
// one auction does not stop the others; all failures come back combined.
func (t *Transitioner) Tick(ctx context.Context) (TickReport, error) {
	report := TickReport{At: t.clock.Now()}

	if !t.mu.TryLock() {
		log.Warn("Lifecycle tick skipped, previous tick still running")
		report.Skipped = true
		return report, nil
	}
	defer t.mu.Unlock()

	if t.locker != nil {
		release, ok, err := t.locker.TryLock(ctx)
		if err != nil {
			return report, fmt.Errorf("lifecycle tick: acquire lock: %w", err)
		}
		if !ok {
			log.Debug("Lifecycle tick skipped, another replica holds the lock")
			report.Skipped = true
			return report, nil
		}
		defer release()
	}

	now := report.At
	var candidates []*domain.Auction
	for _, status := range domain.AutomaticStatuses() {
		auctions, err := t.auctions.ListByStatus(ctx, status)
		if err != nil {
			return report, fmt.Errorf("lifecycle tick: list %s auctions: %w", status, err)
		}
		candidates = append(candidates, auctions...)
	}

	var errs error
	for _, auction := range candidates {
		transition, patch, due := auction.DueTransition(now)
		if !due {
			continue
		}
		swapped, err := t.auctions.CompareAndSetStatus(ctx, auction.ID, transition.From, transition.To, patch)
		if err != nil {
			report.Failed++
			errs = multierr.Append(errs, fmt.Errorf("auction %s %s: %w", auction.ID, transition, err))
			continue
		}
		if !swapped {
			// another writer already moved it; nothing to redo
			report.Lost++
			log.Info("Lifecycle transition lost the race",
				zap.String("auctionID", auction.ID.String()),
				zap.Stringer("transition", transition),
			)
			continue
		}

		report.Applied = append(report.Applied, AppliedTransition{AuctionID: auction.ID, Transition: transition})
		log.Info("Auction status changed automatically",
			zap.String("auctionID", auction.ID.String()),
			zap.Stringer("transition", transition),
		)
		t.publisher.Publish(ctx, domain.StatusChanged{
			AuctionID:    auction.ID,
			From:         transition.From,
			To:           transition.To,
			GPBStartedAt: patch.GPBStartedAt,
			Automatic:    true,
			At:           now,
		})
	}

	errs = multierr.Append(errs, t.remind(ctx, now, &report))
	return report, errs
}

func (t *Transitioner) remind(ctx context.Context, now time.Time, report *TickReport) error {
	if t.reminders == nil {
		return nil
	}
	upcoming, err := t.auctions.ListStartingBetween(ctx, reminderStatuses, now.Add(reminderLeadMin), now.Add(reminderLeadMax))
	if err != nil {
		return fmt.Errorf("list upcoming auctions: %w", err)
	}

	var errs error
	for _, auction := range upcoming {
		first, err := t.reminders.MarkReminded(ctx, auction.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("auction %s reminder: %w", auction.ID, err))
			continue
		}
		if !first {
			continue
		}
		report.Reminded++
		t.publisher.Publish(ctx, domain.AuctionStartingSoon{
			AuctionID: auction.ID,
			Title:     auction.Title,
			StartAt:   *auction.StartAt,
		})
	}
	return errs
}
