package allocation

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/domain"
)

// Allocate clears a multi-bar auction: GPB priority pass → regular pass.
// It is pure: the same capacity and bid set always yield the same Result,
// whatever order the bids come in.
//
// Parameters:
//   - capacity: auction bar_count
//   - bids: every bid of the auction, GPB bids flagged with IsGPB
//
// Processing flow:
//  1. Order bids by price priority then time priority (amount DESC, created_at ASC, id ASC)
//  2. GPB pass: reclaim min(Σ gpb bar_count, capacity) bars from regular bids, weakest first
//  3. Regular pass: fill the remaining capacity strongest first from what GPB left of each bid
//  4. Fold per-bid outcomes into per-participant statuses (best status wins)
//
// Callers must run Validate first; malformed input is a precondition violation.
func Allocate(capacity int, bids []*domain.Bid) *Result {
	if capacity < 0 {
		capacity = 0
	}

	ordered := SortByPriority(bids)
	allocs := make([]BidAllocation, len(ordered))
	gpbIdx := make([]int, 0)
	regularIdx := make([]int, 0, len(ordered))
	for i, bid := range ordered {
		allocs[i] = BidAllocation{Bid: bid, Remainder: bid.BarCount, Status: StatusLosing}
		if bid.IsGPB {
			gpbIdx = append(gpbIdx, i)
		} else {
			regularIdx = append(regularIdx, i)
		}
	}

	gpbTaken := 0
	if len(gpbIdx) > 0 {
		wanted := 0
		for _, i := range gpbIdx {
			wanted += allocs[i].Bid.BarCount
		}
		target := min(wanted, capacity)

		// weakest regular demand first: exact reverse of priority order
		for k := len(regularIdx) - 1; k >= 0 && gpbTaken < target; k-- {
			a := &allocs[regularIdx[k]]
			take := min(a.Bid.BarCount, target-gpbTaken)
			a.GPBUsed = take
			gpbTaken += take
		}

		left := gpbTaken
		for _, i := range gpbIdx {
			a := &allocs[i]
			give := min(a.Bid.BarCount, left)
			a.Fulfilled = give
			a.Status = bidStatus(give, a.Remainder)
			left -= give
		}
	}

	remaining := capacity - gpbTaken
	regularAwarded := 0
	for _, i := range regularIdx {
		a := &allocs[i]
		a.Remainder = a.Bid.BarCount - a.GPBUsed
		if a.Remainder <= 0 || remaining <= 0 {
			continue
		}
		a.Fulfilled = min(a.Remainder, remaining)
		a.Status = bidStatus(a.Fulfilled, a.Remainder)
		remaining -= a.Fulfilled
		regularAwarded += a.Fulfilled
	}

	return &Result{
		Capacity:       capacity,
		GPBTaken:       gpbTaken,
		RegularAwarded: regularAwarded,
		Bids:           allocs,
		Participants:   foldParticipants(allocs),
	}
}

func bidStatus(fulfilled, wanted int) Status {
	switch {
	case fulfilled <= 0:
		return StatusLosing
	case fulfilled >= wanted:
		return StatusWinning
	default:
		return StatusPartial
	}
}

// foldParticipants keeps participants in order of their best-placed bid.
// A GPB bid counts as winning for its bidder as soon as it took one bar.
func foldParticipants(allocs []BidAllocation) []ParticipantResult {
	index := make(map[uuid.UUID]int)
	participants := make([]ParticipantResult, 0)

	for _, a := range allocs {
		i, seen := index[a.Bid.BidderID]
		if !seen {
			i = len(participants)
			index[a.Bid.BidderID] = i
			participants = append(participants, ParticipantResult{
				BidderID: a.Bid.BidderID,
				Status:   StatusLosing,
			})
		}
		p := &participants[i]

		contribution := a.Status
		if a.Bid.IsGPB {
			p.IsGPB = true
			contribution = StatusLosing
			if a.Fulfilled > 0 {
				contribution = StatusWinning
			}
		}
		p.Status = better(p.Status, contribution)
		p.RequestedBars += a.Bid.BarCount
		p.WonBars += a.Fulfilled
	}
	return participants
}

// SortByPriority returns a copy of bids ordered by amount DESC, created_at
// ASC, id ASC. The id tie-break makes the order total.
func SortByPriority(bids []*domain.Bid) []*domain.Bid {
	ordered := make([]*domain.Bid, len(bids))
	copy(ordered, bids)
	sort.Slice(ordered, func(i, j int) bool {
		return higherPriority(ordered[i], ordered[j])
	})
	return ordered
}

func higherPriority(a, b *domain.Bid) bool {
	if c := a.Amount.Cmp(b.Amount); c != 0 {
		return c > 0
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// Validate checks the preconditions of Allocate.
func Validate(capacity int, bids []*domain.Bid) error {
	if capacity < 0 {
		return fmt.Errorf("%w: negative capacity %d", domain.ErrInvalidInput, capacity)
	}
	seen := make(map[uuid.UUID]bool, len(bids))
	for _, bid := range bids {
		if bid == nil {
			return fmt.Errorf("%w: nil bid", domain.ErrInvalidInput)
		}
		if seen[bid.ID] {
			return fmt.Errorf("%w: duplicate bid %s", domain.ErrInvalidInput, bid.ID)
		}
		seen[bid.ID] = true
		if bid.BarCount < 1 {
			return fmt.Errorf("%w: bid %s has bar_count %d", domain.ErrInvalidInput, bid.ID, bid.BarCount)
		}
		if bid.Amount.IsNegative() {
			return fmt.Errorf("%w: bid %s has negative amount", domain.ErrInvalidInput, bid.ID)
		}
	}
	return nil
}
