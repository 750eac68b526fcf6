package allocation

import (
	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/domain"
)

// Status is the outcome of a bid or of a participant.
type Status string

const (
	StatusLosing  Status = "losing"
	StatusPartial Status = "partial"
	StatusWinning Status = "winning"
)

func (s Status) rank() int {
	switch s {
	case StatusWinning:
		return 2
	case StatusPartial:
		return 1
	default:
		return 0
	}
}

// better returns the stronger of two statuses; statuses only ever upgrade.
func better(a, b Status) Status {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// BidAllocation is one bid together with what the clearing gave it.
type BidAllocation struct {
	Bid *domain.Bid `json:"-"`

	// Fulfilled is the number of bars awarded to this bid
	Fulfilled int `json:"fulfilled"`

	// GPBUsed is the number of this regular bid's bars displaced by the GPB right
	GPBUsed int `json:"gpb_used"`

	// Remainder is bar_count - gpb_used, the part still competing in the regular pass
	Remainder int    `json:"remainder"`
	Status    Status `json:"status"`
}

// ParticipantResult aggregates every bid of one bidder.
type ParticipantResult struct {
	BidderID      uuid.UUID `json:"bidder_id"`
	IsGPB         bool      `json:"is_gpb"`
	Status        Status    `json:"status"`
	RequestedBars int       `json:"requested_bars"`
	WonBars       int       `json:"won_bars"`
}

// Result contains the complete clearing of an auction.
type Result struct {
	Capacity int

	// GPBTaken is the number of bars reclaimed by the GPB right
	GPBTaken int

	// RegularAwarded is the number of bars awarded in the regular pass
	RegularAwarded int

	// Bids in priority order: amount DESC, created_at ASC, id ASC
	Bids []BidAllocation

	// Participants in order of their best-placed bid
	Participants []ParticipantResult
}

// TotalFulfilled is the sum of all awarded bars, GPB included.
func (r *Result) TotalFulfilled() int {
	return r.GPBTaken + r.RegularAwarded
}

// Participant looks up one bidder's outcome.
func (r *Result) Participant(bidderID uuid.UUID) (ParticipantResult, bool) {
	for _, p := range r.Participants {
		if p.BidderID == bidderID {
			return p, true
		}
	}
	return ParticipantResult{}, false
}

// Bid looks up the allocation of one bid.
func (r *Result) Bid(bidID uuid.UUID) (BidAllocation, bool) {
	for _, b := range r.Bids {
		if b.Bid.ID == bidID {
			return b, true
		}
	}
	return BidAllocation{}, false
}

// Winners counts participants that received at least one bar.
func (r *Result) Winners() int {
	n := 0
	for _, p := range r.Participants {
		if p.WonBars > 0 {
			n++
		}
	}
	return n
}
