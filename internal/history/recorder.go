// =============================
// File: internal/history/recorder.go
// =============================

// Package history records committed protocol transitions into storage by
// subscribing to the engines' event bus. Recording is best effort: a storage
// failure is logged, never propagated back into the transition path.
package history

import (
	"context"

	"go.uber.org/zap"

	"github.com/streetsync/launchpad-engine/internal/events"
	"github.com/streetsync/launchpad-engine/internal/storage"
	"github.com/streetsync/launchpad-engine/internal/storage/models"
)

type Recorder struct {
	store  storage.Storage
	logger *zap.Logger
	subs   []events.Subscription
}

// NewRecorder subscribes to every transition event on the bus.
func NewRecorder(bus *events.Bus, store storage.Storage, logger *zap.Logger) *Recorder {
	r := &Recorder{
		store:  store,
		logger: logger.Named("history"),
	}

	for _, t := range []events.EventType{
		events.CurveInitialized,
		events.CurveTrade,
		events.ListingCreated,
		events.ListingCancelled,
		events.ListingSold,
	} {
		r.subs = append(r.subs, bus.SubscribeFunc(t, r.handle))
	}

	return r
}

func (r *Recorder) handle(ctx context.Context, event events.Event) error {
	t := transitionFor(event)
	if t == nil {
		return nil
	}
	if err := r.store.SaveTransition(ctx, t); err != nil {
		r.logger.Error("Failed to record transition",
			zap.String("kind", t.Kind),
			zap.String("signature", t.Signature),
			zap.Error(err))
	}
	return nil
}

func transitionFor(event events.Event) *models.Transition {
	switch e := event.(type) {
	case *events.CurveInitializedEvent:
		return &models.Transition{
			Signature: e.Signature.String(),
			Kind:      models.KindCurveInit,
			Mint:      e.Mint.String(),
			Actor:     e.Creator.String(),
			Amount:    e.RealTokenReserves,
			Lamports:  e.VirtualSolReserves,
		}
	case *events.CurveTradeEvent:
		return &models.Transition{
			Signature: e.Signature.String(),
			Kind:      models.KindCurveBuy,
			Mint:      e.Mint.String(),
			Actor:     e.Buyer.String(),
			Amount:    e.Amount,
			Lamports:  e.Cost,
		}
	case *events.ListingCreatedEvent:
		return &models.Transition{
			Signature: e.Signature.String(),
			Kind:      models.KindListingNew,
			Mint:      e.Mint.String(),
			Actor:     e.Seller.String(),
			Amount:    1,
			Lamports:  e.Price,
		}
	case *events.ListingCancelledEvent:
		return &models.Transition{
			Signature: e.Signature.String(),
			Kind:      models.KindListingGone,
			Mint:      e.Mint.String(),
			Actor:     e.Seller.String(),
			Amount:    1,
		}
	case *events.ListingSoldEvent:
		return &models.Transition{
			Signature:    e.Signature.String(),
			Kind:         models.KindListingSold,
			Mint:         e.Mint.String(),
			Actor:        e.Buyer.String(),
			Counterparty: e.Seller.String(),
			Amount:       1,
			Lamports:     e.Price,
			Fee:          e.Fee,
		}
	}
	return nil
}

// Close drops all bus subscriptions.
func (r *Recorder) Close() error {
	for _, s := range r.subs {
		s.Unsubscribe()
	}
	return nil
}
