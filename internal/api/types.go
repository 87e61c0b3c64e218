// internal/api/types.go
package api

import (
	"github.com/shopspring/decimal"

	"github.com/streetsync/launchpad-engine/internal/curve"
	"github.com/streetsync/launchpad-engine/internal/market"
)

const (
	solDecimals   = 9
	tokenDecimals = 6
)

// InitializeCurveRequest creates a bonding curve.
type InitializeCurveRequest struct {
	Creator              string `json:"creator" binding:"required"`
	Mint                 string `json:"mint" binding:"required"`
	VirtualSolReserves   uint64 `json:"virtual_sol_reserves" binding:"required"`
	VirtualTokenReserves uint64 `json:"virtual_token_reserves" binding:"required"`
	RealTokenReserves    uint64 `json:"real_token_reserves"`
}

// CurveBuyRequest purchases tokens from a curve.
type CurveBuyRequest struct {
	Buyer  string `json:"buyer" binding:"required"`
	Amount uint64 `json:"amount" binding:"required"`
}

// ListRequest creates a listing.
type ListRequest struct {
	Seller string `json:"seller" binding:"required"`
	Mint   string `json:"mint" binding:"required"`
	Price  uint64 `json:"price" binding:"required"`
}

// CancelRequest cancels a listing; Caller must be the listing seller.
type CancelRequest struct {
	Caller string `json:"caller" binding:"required"`
}

// ListingBuyRequest settles a listing to the buyer.
type ListingBuyRequest struct {
	Buyer string `json:"buyer" binding:"required"`
}

// CurveResponse is the query shape for one bonding curve.
type CurveResponse struct {
	Creator              string `json:"creator"`
	Mint                 string `json:"mint"`
	VirtualSolReserves   uint64 `json:"virtual_sol_reserves"`
	VirtualTokenReserves uint64 `json:"virtual_token_reserves"`
	RealTokenReserves    uint64 `json:"real_token_reserves"`
	Exhausted            bool   `json:"exhausted"`
	SpotPriceSol         string `json:"spot_price_sol"`
}

func curveResponse(c curve.BondingCurve) CurveResponse {
	return CurveResponse{
		Creator:              c.Creator.String(),
		Mint:                 c.Mint.String(),
		VirtualSolReserves:   c.VirtualSolReserves,
		VirtualTokenReserves: c.VirtualTokenReserves,
		RealTokenReserves:    c.RealTokenReserves,
		Exhausted:            c.Exhausted(),
		SpotPriceSol:         spotPrice(c),
	}
}

// spotPrice renders the marginal price in SOL per whole token from the
// virtual reserve ratio.
func spotPrice(c curve.BondingCurve) string {
	if c.VirtualTokenReserves == 0 {
		return "0"
	}
	sol := decimal.NewFromUint64(c.VirtualSolReserves).Shift(-solDecimals)
	tokens := decimal.NewFromUint64(c.VirtualTokenReserves).Shift(-tokenDecimals)
	return sol.DivRound(tokens, 12).String()
}

// ListingResponse is the query shape for one listing.
type ListingResponse struct {
	Seller   string `json:"seller"`
	Mint     string `json:"mint"`
	Price    uint64 `json:"price"`
	PriceSol string `json:"price_sol"`
}

func listingResponse(l market.ListingAccount) ListingResponse {
	return ListingResponse{
		Seller:   l.Seller.String(),
		Mint:     l.Mint.String(),
		Price:    l.Price,
		PriceSol: decimal.NewFromUint64(l.Price).Shift(-solDecimals).String(),
	}
}
