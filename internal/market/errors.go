// =============================
// File: internal/market/errors.go
// =============================
package market

import "errors"

var (
	// ErrInvalidPrice rejects zero-price listings before any state read.
	ErrInvalidPrice = errors.New("price must be positive")

	// ErrDuplicateListing means an active listing already exists for the
	// (mint, seller) key.
	ErrDuplicateListing = errors.New("listing already exists")

	// ErrListingNotFound means no active listing exists for the key. Raced
	// buyers see this after another buyer settles the listing; it is a
	// normal rejection, not a fault.
	ErrListingNotFound = errors.New("listing not found")

	// ErrNotSeller means the caller is not the seller that created the
	// listing.
	ErrNotSeller = errors.New("caller is not the listing seller")

	// ErrInsufficientUnitBalance means the seller does not hold the unit
	// being listed.
	ErrInsufficientUnitBalance = errors.New("seller does not hold the unit")

	// ErrInsufficientFeeBalance means the seller cannot pay the listing fee.
	ErrInsufficientFeeBalance = errors.New("insufficient lamports for listing fee")

	// ErrInsufficientFunds means the buyer cannot pay the asking price.
	ErrInsufficientFunds = errors.New("insufficient lamports to pay price")
)
