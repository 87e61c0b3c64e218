// =============================
// File: internal/curve/math.go
// =============================
package curve

import (
	"math"
	"math/bits"
)

// BuyQuote is the outcome of pricing a purchase against the constant-product
// invariant. Reserves are raw on-ledger units (lamports / smallest token
// units).
type BuyQuote struct {
	Cost                    uint64
	NewVirtualSolReserves   uint64
	NewVirtualTokenReserves uint64
}

// buyCost prices amount tokens against virtual reserves using x*y=k:
//
//	k        = vSol * vTok               (128-bit)
//	newVTok  = vTok - amount
//	newVSol  = k / newVTok + 1
//	cost     = newVSol - vSol
//
// The +1 after the floor division rounds in the protocol's favor on every
// trade; the product k therefore only grows across purchases, never shrinks.
// The division is 128-by-64 via math/bits, with the same checked-arithmetic
// rejections the on-ledger program applies.
func buyCost(vSol, vTok, amount uint64) (BuyQuote, error) {
	if amount >= vTok {
		// newVTok would be <= 0; the pool cannot support the purchase.
		return BuyQuote{}, ErrInsufficientLiquidity
	}
	newVTok := vTok - amount

	hi, lo := bits.Mul64(vSol, vTok)
	if hi >= newVTok {
		// Quotient would not fit in 64 bits.
		return BuyQuote{}, ErrMathOverflow
	}
	quot, _ := bits.Div64(hi, lo, newVTok)
	if quot == math.MaxUint64 {
		return BuyQuote{}, ErrMathOverflow
	}
	newVSol := quot + 1

	// k/newVTok >= k/vTok = vSol exactly, so newVSol > vSol always holds and
	// the cost is a positive number of lamports.
	return BuyQuote{
		Cost:                    newVSol - vSol,
		NewVirtualSolReserves:   newVSol,
		NewVirtualTokenReserves: newVTok,
	}, nil
}
