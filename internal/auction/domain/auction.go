package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultGPBMinutes = 30
	DefaultBarCount   = 10

	// PricePrecision is the scale of per-unit prices and of the floor price
	PricePrecision int32 = 2
)

var DefaultBarWeight = decimal.RequireFromString("12.5")
var DefaultMinPrice = decimal.NewFromInt(900)

// Auction is the aggregate root of the bar auction. Status changes are never
// written through Save-style upserts, only through the repository CAS.
type Auction struct {
	ID           uuid.UUID
	Title        string
	Description  string
	Status       AuctionStatus
	StartAt      *time.Time
	EndAt        *time.Time
	GPBStartedAt *time.Time
	GPBMinutes   int
	BarCount     int
	BarWeight    decimal.Decimal
	MinPrice     decimal.NullDecimal
	// InviteAll admits every registered user, whatever the participant list says.
	InviteAll bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StatusPatch carries the fields a status CAS may write besides the status itself.
type StatusPatch struct {
	GPBStartedAt *time.Time
	// UpdatedAt stamps the row; zero leaves it to the store.
	UpdatedAt time.Time
}

// NewAuction builds a draft auction, filling the operator defaults.
func NewAuction(id uuid.UUID, title string, startAt, endAt *time.Time, now time.Time) *Auction {
	return &Auction{
		ID:         id,
		Title:      title,
		Status:     StatusDraft,
		StartAt:    startAt,
		EndAt:      endAt,
		GPBMinutes: DefaultGPBMinutes,
		BarCount:   DefaultBarCount,
		BarWeight:  DefaultBarWeight,
		MinPrice:   decimal.NewNullDecimal(DefaultMinPrice),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Validate checks the aggregate invariants before it is stored
func (a *Auction) Validate() error {
	if a.StartAt != nil && a.EndAt != nil && a.EndAt.Before(*a.StartAt) {
		return fmt.Errorf("%w: end_at must not be before start_at", ErrInvalidInput)
	}
	if a.GPBMinutes < 1 {
		return fmt.Errorf("%w: gpb_minutes must be positive", ErrInvalidInput)
	}
	if a.BarCount < 0 {
		return fmt.Errorf("%w: bar_count must not be negative", ErrInvalidInput)
	}
	if !a.BarWeight.IsPositive() {
		return fmt.Errorf("%w: bar_weight must be positive", ErrInvalidInput)
	}
	if a.MinPrice.Valid && a.MinPrice.Decimal.IsNegative() {
		return fmt.Errorf("%w: min_price must not be negative", ErrInvalidInput)
	}
	if !a.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, a.Status)
	}
	return nil
}

// GPBDuration is the length of the priority-purchase window.
func (a *Auction) GPBDuration() time.Duration {
	minutes := a.GPBMinutes
	if minutes < 1 {
		minutes = DefaultGPBMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// GPBDeadline returns the instant the GPB window closes, if it has started.
func (a *Auction) GPBDeadline() (time.Time, bool) {
	if a.GPBStartedAt == nil {
		return time.Time{}, false
	}
	return a.GPBStartedAt.Add(a.GPBDuration()), true
}

// RegularWindowClosed reports now >= end_at.
func (a *Auction) RegularWindowClosed(now time.Time) bool {
	return a.EndAt != nil && !now.Before(*a.EndAt)
}

// GPBWindowElapsed reports now >= gpb_started_at + gpb_minutes.
func (a *Auction) GPBWindowElapsed(now time.Time) bool {
	deadline, ok := a.GPBDeadline()
	return ok && !now.Before(deadline)
}

// DueTransition evaluates the automatic transition table against now.
// It never chains: the result is at most one step away from the current status.
func (a *Auction) DueTransition(now time.Time) (Transition, StatusPatch, bool) {
	to, ok := AutomaticTarget(a.Status)
	if !ok {
		return Transition{}, StatusPatch{}, false
	}
	t := Transition{From: a.Status, To: to}

	switch a.Status {
	case StatusScheduled:
		if a.StartAt != nil && !now.Before(*a.StartAt) {
			return t, StatusPatch{UpdatedAt: now}, true
		}
	case StatusActive:
		if a.RegularWindowClosed(now) {
			startedAt := now
			return t, StatusPatch{GPBStartedAt: &startedAt, UpdatedAt: now}, true
		}
	case StatusGPBRight:
		if a.GPBWindowElapsed(now) {
			return t, StatusPatch{UpdatedAt: now}, true
		}
	}
	return Transition{}, StatusPatch{}, false
}

// PlanManualTransition applies the operator guards to a requested status
// change and returns the patch the CAS has to write.
func (a *Auction) PlanManualTransition(to AuctionStatus, now time.Time) (Transition, StatusPatch, error) {
	if !to.Valid() {
		return Transition{}, StatusPatch{}, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	t := Transition{From: a.Status, To: to}

	if a.RegularWindowClosed(now) && blockedAfterEnd[to] {
		return t, StatusPatch{}, fmt.Errorf("%w: auction ended, cannot set %s", ErrWindowClosed, to)
	}
	if a.GPBWindowElapsed(now) && blockedAfterGPB[to] {
		return t, StatusPatch{}, fmt.Errorf("%w: gpb right elapsed, cannot set %s", ErrWindowClosed, to)
	}

	patch := StatusPatch{UpdatedAt: now}
	if to == StatusGPBRight && a.Status != StatusGPBRight {
		startedAt := now
		patch.GPBStartedAt = &startedAt
	}
	return t, patch, nil
}

// Apply mirrors a successful CAS on the in-memory aggregate.
func (a *Auction) Apply(t Transition, patch StatusPatch, now time.Time) {
	a.Status = t.To
	if patch.GPBStartedAt != nil {
		startedAt := *patch.GPBStartedAt
		a.GPBStartedAt = &startedAt
	}
	a.UpdatedAt = now
}

// FloorPrice is the minimum per-unit price: min_price / bar_count / bar_weight,
// rounded to two decimals. Zero bar_count or bar_weight count as 1.
func (a *Auction) FloorPrice() (decimal.Decimal, bool) {
	if !a.MinPrice.Valid {
		return decimal.Zero, false
	}
	barCount := decimal.NewFromInt(int64(a.BarCount))
	if a.BarCount == 0 {
		barCount = decimal.NewFromInt(1)
	}
	barWeight := a.BarWeight
	if barWeight.IsZero() {
		barWeight = decimal.NewFromInt(1)
	}
	return a.MinPrice.Decimal.Div(barCount).Div(barWeight).Round(PricePrecision), true
}

// IsOpen reports whether anyone may take part once the auction left draft:
// either everyone is invited or there is no restricted participant list.
func (a *Auction) IsOpen(hasParticipants bool) bool {
	if a.Status == StatusDraft {
		return false
	}
	return a.InviteAll || !hasParticipants
}
