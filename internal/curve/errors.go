// =============================
// File: internal/curve/errors.go
// =============================
package curve

import "errors"

var (
	// ErrInvalidAmount rejects zero-amount requests before any state read.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidReserves rejects curve creation with zero virtual reserves.
	ErrInvalidReserves = errors.New("virtual reserves must be positive")

	// ErrDuplicateCurve means a curve already exists for the mint.
	ErrDuplicateCurve = errors.New("bonding curve already exists for mint")

	// ErrCurveNotFound means no curve exists for the mint.
	ErrCurveNotFound = errors.New("bonding curve not found")

	// ErrInsufficientBalance means the creator cannot fund the real-token
	// deposit at initialization.
	ErrInsufficientBalance = errors.New("insufficient token balance to fund curve")

	// ErrInsufficientReserves means the purchase exceeds the real tokens
	// remaining for sale. The curve is (or would be) exhausted.
	ErrInsufficientReserves = errors.New("insufficient real token reserves")

	// ErrInsufficientLiquidity means the purchase would drain the virtual
	// token side of the pool; the constant-product price is unbounded there.
	ErrInsufficientLiquidity = errors.New("insufficient virtual liquidity")

	// ErrInsufficientFunds means the buyer cannot cover the quoted cost.
	ErrInsufficientFunds = errors.New("insufficient lamports to cover cost")

	// ErrMathOverflow mirrors the overflow checks of the pricing law: any
	// intermediate value that does not fit the checked arithmetic rejects the
	// whole operation.
	ErrMathOverflow = errors.New("math overflow")
)
