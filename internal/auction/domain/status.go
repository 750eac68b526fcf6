package domain

import "fmt"

// AuctionStatus represents the lifecycle phase of an auction
type AuctionStatus string

const (
	StatusDraft            AuctionStatus = "draft"
	StatusCollectingOffers AuctionStatus = "collecting_offers"
	StatusScheduled        AuctionStatus = "scheduled"
	StatusActive           AuctionStatus = "active"
	StatusGPBRight         AuctionStatus = "gpb_right"
	StatusCommission       AuctionStatus = "commission"
	StatusCompleted        AuctionStatus = "completed"
	StatusPaused           AuctionStatus = "paused"
	StatusCancelled        AuctionStatus = "cancelled"
)

var allStatuses = []AuctionStatus{
	StatusDraft,
	StatusCollectingOffers,
	StatusScheduled,
	StatusActive,
	StatusGPBRight,
	StatusCommission,
	StatusCompleted,
	StatusPaused,
	StatusCancelled,
}

// ParseStatus converts a raw value (db column, request body) into an AuctionStatus.
func ParseStatus(raw string) (AuctionStatus, error) {
	for _, s := range allStatuses {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// Valid reports whether s is one of the known statuses
func (s AuctionStatus) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// AcceptsBids reports whether bids may be placed in this phase
func (s AuctionStatus) AcceptsBids() bool {
	return s == StatusActive || s == StatusGPBRight
}

// HasGPBClock reports whether gpb_started_at carries meaning in this phase.
func (s AuctionStatus) HasGPBClock() bool {
	return s == StatusGPBRight || s == StatusCommission || s == StatusCompleted
}

// Transition is a single status change.
type Transition struct {
	From AuctionStatus
	To   AuctionStatus
}

func (t Transition) String() string {
	return string(t.From) + " -> " + string(t.To)
}

// automaticTransitions is the poller's table. Any edge not listed here
// can only be taken by an operator.
var automaticTransitions = map[AuctionStatus]AuctionStatus{
	StatusScheduled: StatusActive,
	StatusActive:    StatusGPBRight,
	StatusGPBRight:  StatusCommission,
}

// AutomaticStatuses returns the statuses the poller has to scan, in tick order.
func AutomaticStatuses() []AuctionStatus {
	return []AuctionStatus{StatusScheduled, StatusActive, StatusGPBRight}
}

// AutomaticTarget returns the status the poller moves from into, if any
func AutomaticTarget(from AuctionStatus) (AuctionStatus, bool) {
	to, ok := automaticTransitions[from]
	return to, ok
}

// blocked after the regular trading window has closed
var blockedAfterEnd = map[AuctionStatus]bool{
	StatusDraft:            true,
	StatusCollectingOffers: true,
	StatusScheduled:        true,
	StatusActive:           true,
}

// blocked after the GPB window has elapsed
var blockedAfterGPB = map[AuctionStatus]bool{
	StatusDraft:            true,
	StatusCollectingOffers: true,
	StatusScheduled:        true,
	StatusActive:           true,
	StatusGPBRight:         true,
}
