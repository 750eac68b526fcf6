package domain

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const MaxOfferCommentLength = 5000

var minOfferPrice = decimal.New(1, -PricePrecision)

// CheckBid runs the phase, window and amount guards of bid admission, in
// that order. Eligibility is checked by the caller, which owns the
// participant store.
func (a *Auction) CheckBid(bidderIsGPB bool, amount decimal.Decimal, barCount int, now time.Time) error {
	switch a.Status {
	case StatusActive:
		if bidderIsGPB {
			return ErrGpbForbiddenInActivePhase
		}
		if a.RegularWindowClosed(now) {
			return ErrWindowClosed
		}
	case StatusGPBRight:
		if !bidderIsGPB {
			return ErrNotGpbPhase
		}
		if a.GPBWindowElapsed(now) {
			return ErrWindowClosed
		}
	default:
		return fmt.Errorf("%w: %s", ErrWrongPhase, a.Status)
	}

	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if !amount.Equal(amount.Round(PricePrecision)) {
		return fmt.Errorf("%w: amount has more than %d decimals", ErrInvalidInput, PricePrecision)
	}
	if barCount < 1 {
		return fmt.Errorf("%w: bar_count must be at least 1", ErrInvalidInput)
	}

	if floor, ok := a.FloorPrice(); ok && amount.LessThan(floor) {
		return fmt.Errorf("%w: %s < %s", ErrBelowFloor, amount.StringFixed(PricePrecision), floor.StringFixed(PricePrecision))
	}
	if barCount > a.BarCount {
		return fmt.Errorf("%w: %d > %d", ErrExceedsCapacity, barCount, a.BarCount)
	}
	return nil
}

// CheckOffer guards initial offers: only while collecting offers.
func (a *Auction) CheckOffer(volume, price decimal.Decimal, comment string) error {
	if a.Status != StatusCollectingOffers {
		return fmt.Errorf("%w: %s", ErrWrongPhase, a.Status)
	}
	if volume.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: volume must be at least 1", ErrInvalidInput)
	}
	if price.LessThan(minOfferPrice) {
		return fmt.Errorf("%w: price must be at least %s", ErrInvalidInput, minOfferPrice)
	}
	if utf8.RuneCountInString(comment) > MaxOfferCommentLength {
		return fmt.Errorf("%w: comment longer than %d characters", ErrInvalidInput, MaxOfferCommentLength)
	}
	return nil
}

// ExercisesGPBRight reports whether an accepted bid ends the GPB window early.
func (a *Auction) ExercisesGPBRight(bid *Bid) bool {
	return a.Status == StatusGPBRight && bid.IsGPB
}
