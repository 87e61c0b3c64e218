// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// EventType represents the type of event.
type EventType string

const (
	// Launchpad events
	CurveInitialized EventType = "curve.initialized"
	CurveTrade       EventType = "curve.trade"
	CurveExhausted   EventType = "curve.exhausted"

	// Marketplace events
	ListingCreated   EventType = "listing.created"
	ListingCancelled EventType = "listing.cancelled"
	ListingSold      EventType = "listing.sold"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }

// NewBase stamps a base event with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// CurveInitializedEvent is emitted when a bonding curve is created.
type CurveInitializedEvent struct {
	BaseEvent
	Signature            solana.Signature
	Curve                solana.PublicKey
	Mint                 solana.PublicKey
	Creator              solana.PublicKey
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealTokenReserves    uint64
}

// CurveTradeEvent is emitted on every successful curve purchase.
type CurveTradeEvent struct {
	BaseEvent
	Signature         solana.Signature
	Mint              solana.PublicKey
	Buyer             solana.PublicKey
	Amount            uint64
	Cost              uint64
	RealTokenReserves uint64
}

// CurveExhaustedEvent is emitted when a purchase empties the real reserves.
type CurveExhaustedEvent struct {
	BaseEvent
	Signature solana.Signature
	Mint      solana.PublicKey
}

// ListingCreatedEvent is emitted when a unit enters escrow.
type ListingCreatedEvent struct {
	BaseEvent
	Signature solana.Signature
	Mint      solana.PublicKey
	Seller    solana.PublicKey
	Price     uint64
}

// ListingCancelledEvent is emitted when a seller withdraws a listing.
type ListingCancelledEvent struct {
	BaseEvent
	Signature solana.Signature
	Mint      solana.PublicKey
	Seller    solana.PublicKey
}

// ListingSoldEvent is emitted when a listing settles to a buyer.
type ListingSoldEvent struct {
	BaseEvent
	Signature solana.Signature
	Mint      solana.PublicKey
	Seller    solana.PublicKey
	Buyer     solana.PublicKey
	Price     uint64
	Fee       uint64
}
