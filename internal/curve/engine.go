// =============================
// File: internal/curve/engine.go
// =============================
package curve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/streetsync/launchpad-engine/internal/events"
	"github.com/streetsync/launchpad-engine/internal/ledger"
	"github.com/streetsync/launchpad-engine/internal/pda"
)

const commitRetryWindow = 5 * time.Second

// Engine is the bonding-curve launchpad engine. State transitions follow a
// read-compute-commit cycle against the ledger: any version conflict is
// retried from a fresh read, every business-rule rejection is permanent.
type Engine struct {
	ledger *ledger.Ledger
	bus    *events.Bus
	logger *zap.Logger
}

// NewEngine creates a curve engine. The bus may be nil.
func NewEngine(l *ledger.Ledger, bus *events.Bus, logger *zap.Logger) *Engine {
	return &Engine{
		ledger: l,
		bus:    bus,
		logger: logger.Named("curve"),
	}
}

// InitResult reports a committed curve initialization.
type InitResult struct {
	Curve     solana.PublicKey
	Signature solana.Signature
}

// TradeResult reports a committed curve purchase.
type TradeResult struct {
	Signature solana.Signature
	Cost      uint64
	State     BondingCurve
}

// Initialize creates the curve for mint with the supplied reserve values and
// moves realToken units from the creator's holding account into the curve's
// custody vault. A curve is created exactly once per mint and never deleted.
func (e *Engine) Initialize(ctx context.Context, creator, mint solana.PublicKey, virtualSol, virtualToken, realToken uint64) (InitResult, error) {
	if virtualSol == 0 || virtualToken == 0 {
		return InitResult{}, ErrInvalidReserves
	}

	op := func() (InitResult, error) {
		res, err := e.tryInitialize(creator, mint, virtualSol, virtualToken, realToken)
		if err != nil && !errors.Is(err, ledger.ErrVersionConflict) {
			return InitResult{}, backoff.Permanent(err)
		}
		return res, err
	}

	res, err := backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(commitRetryWindow),
	)
	if err != nil {
		return InitResult{}, err
	}

	e.logger.Info("Bonding curve initialized",
		zap.String("mint", mint.String()),
		zap.String("creator", creator.String()),
		zap.String("curve", res.Curve.String()),
		zap.Uint64("virtual_sol_reserves", virtualSol),
		zap.Uint64("virtual_token_reserves", virtualToken),
		zap.Uint64("real_token_reserves", realToken))

	e.publish(&events.CurveInitializedEvent{
		BaseEvent:            events.NewBase(events.CurveInitialized),
		Signature:            res.Signature,
		Curve:                res.Curve,
		Mint:                 mint,
		Creator:              creator,
		VirtualSolReserves:   virtualSol,
		VirtualTokenReserves: virtualToken,
		RealTokenReserves:    realToken,
	})

	return res, nil
}

func (e *Engine) tryInitialize(creator, mint solana.PublicKey, virtualSol, virtualToken, realToken uint64) (InitResult, error) {
	curveAddr, bump, err := pda.BondingCurve(mint)
	if err != nil {
		return InitResult{}, err
	}
	vaultAddr, err := pda.CurveVault(curveAddr, mint)
	if err != nil {
		return InitResult{}, err
	}

	view := e.ledger.View()
	if _, exists := view.Account(curveAddr); exists {
		return InitResult{}, fmt.Errorf("mint %s: %w", mint, ErrDuplicateCurve)
	}

	tx := view.Begin()

	// Fund the vault from the creator's holding account. The deposit is a
	// transfer, not a mint: initializing with more tokens than the creator
	// holds is rejected.
	vault := ledger.TokenAccount{Mint: mint, Authority: curveAddr}
	if realToken > 0 {
		holdingAddr, err := pda.HoldingAccount(creator, mint)
		if err != nil {
			return InitResult{}, err
		}
		holding, ok, err := view.TokenAccountAt(holdingAddr)
		if err != nil {
			return InitResult{}, err
		}
		if !ok || holding.Amount < realToken {
			return InitResult{}, fmt.Errorf("creator %s: %w", creator, ErrInsufficientBalance)
		}
		holding.Amount -= realToken
		vault.Amount = realToken
		if err := tx.PutTokenAccount(holdingAddr, holding); err != nil {
			return InitResult{}, err
		}
	}
	if err := tx.PutTokenAccount(vaultAddr, vault); err != nil {
		return InitResult{}, err
	}

	state := BondingCurve{
		Creator:              creator,
		Mint:                 mint,
		VirtualSolReserves:   virtualSol,
		VirtualTokenReserves: virtualToken,
		RealTokenReserves:    realToken,
		Bump:                 bump,
	}
	data, err := state.Encode()
	if err != nil {
		return InitResult{}, err
	}
	tx.Put(curveAddr, ledger.Account{Owner: pda.LaunchpadProgramID, Data: data})

	sig, err := e.ledger.Commit(tx)
	if err != nil {
		return InitResult{}, err
	}
	return InitResult{Curve: curveAddr, Signature: sig}, nil
}

// QuoteBuy prices a purchase against the current curve state without
// mutating anything.
func (e *Engine) QuoteBuy(mint solana.PublicKey, amount uint64) (uint64, error) {
	state, err := e.Get(mint)
	if err != nil {
		return 0, err
	}
	quote, err := state.Quote(amount)
	if err != nil {
		return 0, err
	}
	return quote.Cost, nil
}

// Buy purchases amount tokens from the curve for mint. Atomically: the
// quoted cost moves from the buyer to the curve creator, amount tokens move
// from the vault to the buyer's holding account, and the reserves advance.
// A failed buy leaves every balance untouched.
func (e *Engine) Buy(ctx context.Context, buyer, mint solana.PublicKey, amount uint64) (TradeResult, error) {
	if amount == 0 {
		return TradeResult{}, ErrInvalidAmount
	}

	op := func() (TradeResult, error) {
		res, err := e.tryBuy(buyer, mint, amount)
		if err != nil && !errors.Is(err, ledger.ErrVersionConflict) {
			return TradeResult{}, backoff.Permanent(err)
		}
		return res, err
	}

	res, err := backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(commitRetryWindow),
	)
	if err != nil {
		return TradeResult{}, err
	}

	e.logger.Info("Curve buy executed",
		zap.String("mint", mint.String()),
		zap.String("buyer", buyer.String()),
		zap.Uint64("amount", amount),
		zap.Uint64("cost_lamports", res.Cost),
		zap.Uint64("real_token_reserves", res.State.RealTokenReserves))

	e.publish(&events.CurveTradeEvent{
		BaseEvent:         events.NewBase(events.CurveTrade),
		Signature:         res.Signature,
		Mint:              mint,
		Buyer:             buyer,
		Amount:            amount,
		Cost:              res.Cost,
		RealTokenReserves: res.State.RealTokenReserves,
	})
	if res.State.Exhausted() {
		e.publish(&events.CurveExhaustedEvent{
			BaseEvent: events.NewBase(events.CurveExhausted),
			Signature: res.Signature,
			Mint:      mint,
		})
	}

	return res, nil
}

func (e *Engine) tryBuy(buyer, mint solana.PublicKey, amount uint64) (TradeResult, error) {
	curveAddr, _, err := pda.BondingCurve(mint)
	if err != nil {
		return TradeResult{}, err
	}

	view := e.ledger.View()
	curveAcct, ok := view.Account(curveAddr)
	if !ok {
		return TradeResult{}, fmt.Errorf("mint %s: %w", mint, ErrCurveNotFound)
	}
	state, err := DecodeBondingCurve(curveAcct.Data)
	if err != nil {
		return TradeResult{}, err
	}

	quote, err := state.Quote(amount)
	if err != nil {
		return TradeResult{}, err
	}

	// The creator buying from their own curve pays and receives through the
	// same wallet; the set aliases the two roles onto one copy so the cost
	// nets to zero instead of being credited without the debit.
	wallets := view.Wallets()
	buyerAcct := wallets.Get(buyer)
	if buyerAcct.Lamports < quote.Cost {
		return TradeResult{}, fmt.Errorf("buyer %s needs %d lamports: %w", buyer, quote.Cost, ErrInsufficientFunds)
	}

	vaultAddr, err := pda.CurveVault(curveAddr, mint)
	if err != nil {
		return TradeResult{}, err
	}
	vault, ok, err := view.TokenAccountAt(vaultAddr)
	if err != nil {
		return TradeResult{}, err
	}
	if !ok || vault.Amount < amount {
		return TradeResult{}, fmt.Errorf("vault %s underfunded for %d units", vaultAddr, amount)
	}

	buyerHoldingAddr, err := pda.HoldingAccount(buyer, mint)
	if err != nil {
		return TradeResult{}, err
	}
	buyerHolding, ok, err := view.TokenAccountAt(buyerHoldingAddr)
	if err != nil {
		return TradeResult{}, err
	}
	if !ok {
		buyerHolding = ledger.TokenAccount{Mint: mint, Authority: buyer}
	}

	// Sale proceeds go to the curve creator's wallet.
	creatorAcct := wallets.Get(state.Creator)

	buyerAcct.Lamports -= quote.Cost
	creatorAcct.Lamports += quote.Cost
	vault.Amount -= amount
	buyerHolding.Amount += amount
	state.VirtualSolReserves = quote.NewVirtualSolReserves
	state.VirtualTokenReserves = quote.NewVirtualTokenReserves
	state.RealTokenReserves -= amount

	data, err := state.Encode()
	if err != nil {
		return TradeResult{}, err
	}

	tx := view.Begin()
	wallets.Stage(tx)
	if err := tx.PutTokenAccount(vaultAddr, vault); err != nil {
		return TradeResult{}, err
	}
	if err := tx.PutTokenAccount(buyerHoldingAddr, buyerHolding); err != nil {
		return TradeResult{}, err
	}
	tx.Put(curveAddr, ledger.Account{Owner: pda.LaunchpadProgramID, Data: data})

	sig, err := e.ledger.Commit(tx)
	if err != nil {
		return TradeResult{}, err
	}
	return TradeResult{Signature: sig, Cost: quote.Cost, State: state}, nil
}

// Get returns the current curve state for mint.
func (e *Engine) Get(mint solana.PublicKey) (BondingCurve, error) {
	curveAddr, _, err := pda.BondingCurve(mint)
	if err != nil {
		return BondingCurve{}, err
	}
	acct, ok := e.ledger.View().Account(curveAddr)
	if !ok {
		return BondingCurve{}, fmt.Errorf("mint %s: %w", mint, ErrCurveNotFound)
	}
	return DecodeBondingCurve(acct.Data)
}

// List returns all curve states, in no particular order.
func (e *Engine) List() []BondingCurve {
	var out []BondingCurve
	e.ledger.Scan(pda.LaunchpadProgramID, func(_ solana.PublicKey, acct ledger.Account) bool {
		state, err := DecodeBondingCurve(acct.Data)
		if err != nil {
			e.logger.Warn("Skipping undecodable curve account", zap.Error(err))
			return true
		}
		out = append(out, state)
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

// IsRetryable reports whether an error from Buy or Initialize is a transient
// concurrency conflict rather than a business-rule rejection.
func IsRetryable(err error) bool {
	return errors.Is(err, ledger.ErrVersionConflict)
}
