package domain

import "errors"

var (
	ErrAuctionNotFound           = errors.New("auction not found")
	ErrNotEligible               = errors.New("bidder is not a participant of this auction")
	ErrWrongPhase                = errors.New("auction is not accepting this action in its current status")
	ErrGpbForbiddenInActivePhase = errors.New("gpb participant cannot bid during regular trading")
	ErrNotGpbPhase               = errors.New("only the gpb participant may bid during the gpb right")
	ErrWindowClosed              = errors.New("bidding window is closed")
	ErrBelowFloor                = errors.New("bid amount is below the floor price")
	ErrExceedsCapacity           = errors.New("bid bar count exceeds auction bar count")
	ErrInvalidInput              = errors.New("invalid input")
	ErrInvalidStatus             = errors.New("invalid auction status")
	ErrConcurrentTransitionLost  = errors.New("auction status changed concurrently, re-read current state")
)
