// =============================
// File: internal/market/engine.go
// =============================
package market

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/streetsync/launchpad-engine/internal/events"
	"github.com/streetsync/launchpad-engine/internal/ledger"
	"github.com/streetsync/launchpad-engine/internal/pda"
)

const commitRetryWindow = 5 * time.Second

// Params are the fixed fee rules of the marketplace.
type Params struct {
	// Treasury receives the listing fee and the sale fee split.
	Treasury solana.PublicKey
	// ListingFeeLamports is charged to the seller on every List.
	ListingFeeLamports uint64
	// FeeBasisPoints is the treasury's share of the sale price on Buy.
	FeeBasisPoints uint64
}

const feeDenominator = 10_000

// SaleFee returns the treasury's cut of a sale price, price*bps/10000 with a
// 128-bit intermediate so large prices cannot overflow. Basis points above
// the denominator are clamped to it (the fee never exceeds the price), which
// also keeps the 128-by-64 division in range.
func (p Params) SaleFee(price uint64) uint64 {
	bps := p.FeeBasisPoints
	if bps > feeDenominator {
		bps = feeDenominator
	}
	hi, lo := bits.Mul64(price, bps)
	fee, _ := bits.Div64(hi, lo, feeDenominator)
	return fee
}

// Engine is the listing escrow engine: a lock-box per (mint, seller) key
// holding one unit of the mint until it is sold or withdrawn. Transitions
// follow the same read-compute-commit cycle as the curve engine.
type Engine struct {
	ledger *ledger.Ledger
	params Params
	bus    *events.Bus
	logger *zap.Logger
}

// NewEngine creates a marketplace engine. The bus may be nil.
func NewEngine(l *ledger.Ledger, params Params, bus *events.Bus, logger *zap.Logger) *Engine {
	return &Engine{
		ledger: l,
		params: params,
		bus:    bus,
		logger: logger.Named("market"),
	}
}

// ListResult reports a committed listing creation.
type ListResult struct {
	Listing   solana.PublicKey
	Signature solana.Signature
}

// SaleResult reports a committed listing sale.
type SaleResult struct {
	Signature solana.Signature
	Price     uint64
	Fee       uint64
}

// List escrows one unit of mint from the seller at the asking price and
// charges the fixed listing fee to the treasury. At most one listing can
// exist per (mint, seller) key at a time.
func (e *Engine) List(ctx context.Context, seller, mint solana.PublicKey, price uint64) (ListResult, error) {
	if price == 0 {
		return ListResult{}, ErrInvalidPrice
	}

	res, err := retry(ctx, func() (ListResult, error) {
		return e.tryList(seller, mint, price)
	})
	if err != nil {
		return ListResult{}, err
	}

	e.logger.Info("Listing created",
		zap.String("mint", mint.String()),
		zap.String("seller", seller.String()),
		zap.Uint64("price_lamports", price))

	e.publish(&events.ListingCreatedEvent{
		BaseEvent: events.NewBase(events.ListingCreated),
		Signature: res.Signature,
		Mint:      mint,
		Seller:    seller,
		Price:     price,
	})
	return res, nil
}

func (e *Engine) tryList(seller, mint solana.PublicKey, price uint64) (ListResult, error) {
	listingAddr, bump, err := pda.Listing(mint, seller)
	if err != nil {
		return ListResult{}, err
	}
	escrowAddr, _, err := pda.Escrow(mint, seller)
	if err != nil {
		return ListResult{}, err
	}

	view := e.ledger.View()
	if _, exists := view.Account(listingAddr); exists {
		return ListResult{}, fmt.Errorf("key (%s, %s): %w", mint, seller, ErrDuplicateListing)
	}

	holdingAddr, err := pda.HoldingAccount(seller, mint)
	if err != nil {
		return ListResult{}, err
	}
	holding, ok, err := view.TokenAccountAt(holdingAddr)
	if err != nil {
		return ListResult{}, err
	}
	if !ok || holding.Amount < 1 {
		return ListResult{}, fmt.Errorf("seller %s: %w", seller, ErrInsufficientUnitBalance)
	}

	// The set aliases seller and treasury when they are the same wallet, so
	// the fee nets to zero instead of being credited without the debit.
	wallets := view.Wallets()
	sellerAcct := wallets.Get(seller)
	if sellerAcct.Lamports < e.params.ListingFeeLamports {
		return ListResult{}, fmt.Errorf("seller %s needs %d lamports: %w",
			seller, e.params.ListingFeeLamports, ErrInsufficientFeeBalance)
	}
	treasuryAcct := wallets.Get(e.params.Treasury)

	sellerAcct.Lamports -= e.params.ListingFeeLamports
	treasuryAcct.Lamports += e.params.ListingFeeLamports
	holding.Amount--

	listing := ListingAccount{Seller: seller, Mint: mint, Price: price, Bump: bump}
	data, err := listing.Encode()
	if err != nil {
		return ListResult{}, err
	}

	tx := view.Begin()
	wallets.Stage(tx)
	if err := tx.PutTokenAccount(holdingAddr, holding); err != nil {
		return ListResult{}, err
	}
	if err := tx.PutTokenAccount(escrowAddr, ledger.TokenAccount{
		Mint:      mint,
		Authority: listingAddr,
		Amount:    1,
	}); err != nil {
		return ListResult{}, err
	}
	tx.Put(listingAddr, ledger.Account{Owner: pda.MarketplaceProgramID, Data: data})

	sig, err := e.ledger.Commit(tx)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Listing: listingAddr, Signature: sig}, nil
}

// Cancel returns the escrowed unit to the seller and closes the listing.
// Only the original seller may cancel; any other caller is rejected even
// with a valid listing key.
func (e *Engine) Cancel(ctx context.Context, caller, mint, seller solana.PublicKey) (solana.Signature, error) {
	sig, err := retry(ctx, func() (solana.Signature, error) {
		return e.tryCancel(caller, mint, seller)
	})
	if err != nil {
		return solana.Signature{}, err
	}

	e.logger.Info("Listing cancelled",
		zap.String("mint", mint.String()),
		zap.String("seller", seller.String()))

	e.publish(&events.ListingCancelledEvent{
		BaseEvent: events.NewBase(events.ListingCancelled),
		Signature: sig,
		Mint:      mint,
		Seller:    seller,
	})
	return sig, nil
}

func (e *Engine) tryCancel(caller, mint, seller solana.PublicKey) (solana.Signature, error) {
	listingAddr, _, err := pda.Listing(mint, seller)
	if err != nil {
		return solana.Signature{}, err
	}

	view := e.ledger.View()
	listingAcct, ok := view.Account(listingAddr)
	if !ok {
		return solana.Signature{}, fmt.Errorf("key (%s, %s): %w", mint, seller, ErrListingNotFound)
	}
	listing, err := DecodeListing(listingAcct.Data)
	if err != nil {
		return solana.Signature{}, err
	}
	if !caller.Equals(listing.Seller) {
		return solana.Signature{}, fmt.Errorf("caller %s: %w", caller, ErrNotSeller)
	}

	escrowAddr, _, err := pda.Escrow(mint, seller)
	if err != nil {
		return solana.Signature{}, err
	}
	escrow, ok, err := view.TokenAccountAt(escrowAddr)
	if err != nil {
		return solana.Signature{}, err
	}
	if !ok || escrow.Amount != 1 {
		return solana.Signature{}, fmt.Errorf("escrow %s does not hold the unit", escrowAddr)
	}

	// Return the unit, recreating the seller's holding account if it was
	// closed since listing.
	holdingAddr, err := pda.HoldingAccount(seller, mint)
	if err != nil {
		return solana.Signature{}, err
	}
	holding, ok, err := view.TokenAccountAt(holdingAddr)
	if err != nil {
		return solana.Signature{}, err
	}
	if !ok {
		holding = ledger.TokenAccount{Mint: mint, Authority: seller}
	}
	holding.Amount++

	tx := view.Begin()
	if err := tx.PutTokenAccount(holdingAddr, holding); err != nil {
		return solana.Signature{}, err
	}
	tx.Delete(escrowAddr)
	tx.Delete(listingAddr)

	return e.ledger.Commit(tx)
}

// Buy settles the listing for the (mint, seller) key: the buyer pays the
// asking price, split between the seller and the treasury per the fixed fee,
// and receives the escrowed unit. Listing and escrow are closed. With
// concurrent buyers exactly one commit wins; the rest observe the closed
// listing and fail with ErrListingNotFound.
func (e *Engine) Buy(ctx context.Context, buyer, mint, seller solana.PublicKey) (SaleResult, error) {
	res, err := retry(ctx, func() (SaleResult, error) {
		return e.tryBuy(buyer, mint, seller)
	})
	if err != nil {
		return SaleResult{}, err
	}

	e.logger.Info("Listing sold",
		zap.String("mint", mint.String()),
		zap.String("seller", seller.String()),
		zap.String("buyer", buyer.String()),
		zap.Uint64("price_lamports", res.Price),
		zap.Uint64("fee_lamports", res.Fee))

	e.publish(&events.ListingSoldEvent{
		BaseEvent: events.NewBase(events.ListingSold),
		Signature: res.Signature,
		Mint:      mint,
		Seller:    seller,
		Buyer:     buyer,
		Price:     res.Price,
		Fee:       res.Fee,
	})
	return res, nil
}

func (e *Engine) tryBuy(buyer, mint, seller solana.PublicKey) (SaleResult, error) {
	listingAddr, _, err := pda.Listing(mint, seller)
	if err != nil {
		return SaleResult{}, err
	}

	view := e.ledger.View()
	listingAcct, ok := view.Account(listingAddr)
	if !ok {
		return SaleResult{}, fmt.Errorf("key (%s, %s): %w", mint, seller, ErrListingNotFound)
	}
	listing, err := DecodeListing(listingAcct.Data)
	if err != nil {
		return SaleResult{}, err
	}

	fee := e.params.SaleFee(listing.Price)
	sellerReceive := listing.Price - fee

	// Buyer, seller and treasury may coincide (a seller buying back their
	// own listing); the set gives all three roles one copy per wallet so the
	// price and fee moves net correctly.
	wallets := view.Wallets()
	buyerAcct := wallets.Get(buyer)
	if buyerAcct.Lamports < listing.Price {
		return SaleResult{}, fmt.Errorf("buyer %s needs %d lamports: %w", buyer, listing.Price, ErrInsufficientFunds)
	}

	escrowAddr, _, err := pda.Escrow(mint, seller)
	if err != nil {
		return SaleResult{}, err
	}
	escrow, ok, err := view.TokenAccountAt(escrowAddr)
	if err != nil {
		return SaleResult{}, err
	}
	if !ok || escrow.Amount != 1 {
		return SaleResult{}, fmt.Errorf("escrow %s does not hold the unit", escrowAddr)
	}

	buyerHoldingAddr, err := pda.HoldingAccount(buyer, mint)
	if err != nil {
		return SaleResult{}, err
	}
	buyerHolding, ok, err := view.TokenAccountAt(buyerHoldingAddr)
	if err != nil {
		return SaleResult{}, err
	}
	if !ok {
		buyerHolding = ledger.TokenAccount{Mint: mint, Authority: buyer}
	}

	sellerAcct := wallets.Get(listing.Seller)
	treasuryAcct := wallets.Get(e.params.Treasury)

	buyerAcct.Lamports -= listing.Price
	sellerAcct.Lamports += sellerReceive
	treasuryAcct.Lamports += fee
	buyerHolding.Amount++

	tx := view.Begin()
	wallets.Stage(tx)
	if err := tx.PutTokenAccount(buyerHoldingAddr, buyerHolding); err != nil {
		return SaleResult{}, err
	}
	tx.Delete(escrowAddr)
	tx.Delete(listingAddr)

	sig, err := e.ledger.Commit(tx)
	if err != nil {
		return SaleResult{}, err
	}
	return SaleResult{Signature: sig, Price: listing.Price, Fee: fee}, nil
}

// Get returns the active listing for the (mint, seller) key.
func (e *Engine) Get(mint, seller solana.PublicKey) (ListingAccount, error) {
	listingAddr, _, err := pda.Listing(mint, seller)
	if err != nil {
		return ListingAccount{}, err
	}
	acct, ok := e.ledger.View().Account(listingAddr)
	if !ok {
		return ListingAccount{}, fmt.Errorf("key (%s, %s): %w", mint, seller, ErrListingNotFound)
	}
	return DecodeListing(acct.Data)
}

// Listings returns all active listings, optionally filtered by seller.
func (e *Engine) Listings(seller *solana.PublicKey) []ListingAccount {
	var out []ListingAccount
	e.ledger.Scan(pda.MarketplaceProgramID, func(_ solana.PublicKey, acct ledger.Account) bool {
		listing, err := DecodeListing(acct.Data)
		if err != nil {
			e.logger.Warn("Skipping undecodable listing account", zap.Error(err))
			return true
		}
		if seller != nil && !listing.Seller.Equals(*seller) {
			return true
		}
		out = append(out, listing)
		return true
	})
	return out
}

func (e *Engine) publish(event events.Event) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(event); err != nil {
		e.logger.Warn("Failed to publish event",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
}

// retry drives the read-compute-commit cycle: version conflicts restart from
// a fresh view, everything else is permanent.
func retry[T any](ctx context.Context, op func() (T, error)) (T, error) {
	wrapped := func() (T, error) {
		res, err := op()
		if err != nil && !errors.Is(err, ledger.ErrVersionConflict) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}
	return backoff.Retry(
		ctx,
		wrapped,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(commitRetryWindow),
	)
}
