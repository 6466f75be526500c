// Package auctionerrors defines the engine's error taxonomy. Every error that
// crosses a component boundary is one of these, so handlers can map a failure
// to a machine-readable kind without inspecting message strings.
package auctionerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the API boundary.
type Kind string

const (
	KindValidation    Kind = "validation"    // malformed input, rejected before touching state
	KindConflict      Kind = "conflict"      // state precondition violated, retry after refresh
	KindAuthorization Kind = "authorization" // caller not allowed to perform the operation
	KindNotFound      Kind = "not_found"
	KindExternal      Kind = "external" // collaborator failure, not retried automatically
	KindInternal      Kind = "internal"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrListingNotBiddable = errors.New("listing is not open for bidding")
	ErrSelfBid            = errors.New("seller cannot bid on own listing")
	ErrNotPending         = errors.New("listing is not pending moderation")
	ErrAlreadyActive      = errors.New("listing is not awaiting activation")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrPaymentRejected    = errors.New("payment rejected")
	ErrInvalidInput       = errors.New("invalid input")
	ErrForbidden          = errors.New("operation not permitted")
)

// BidTooLowError rejects a bid below the admission threshold and carries the
// minimum the bidder would have to offer right now.
type BidTooLowError struct {
	Minimum float64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid too low: minimum acceptable bid is %.2f", e.Minimum)
}

// HasActiveBidsError blocks an unforced delete on a listing with bid history.
type HasActiveBidsError struct {
	Count int
}

func (e *HasActiveBidsError) Error() string {
	return fmt.Sprintf("listing has %d bid(s); pass force to delete anyway", e.Count)
}

// KindOf maps any engine error to its taxonomy kind. Unknown errors are
// internal; their details never surface unwrapped past the API boundary.
func KindOf(err error) Kind {
	var tooLow *BidTooLowError
	var hasBids *HasActiveBidsError
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrSelfBid), errors.Is(err, ErrForbidden):
		return KindAuthorization
	case errors.Is(err, ErrListingNotBiddable),
		errors.Is(err, ErrNotPending),
		errors.Is(err, ErrAlreadyActive),
		errors.Is(err, ErrInvalidTransition):
		return KindConflict
	case errors.As(err, &tooLow), errors.As(err, &hasBids):
		return KindConflict
	case errors.Is(err, ErrPaymentRejected):
		return KindExternal
	}
	return KindInternal
}
