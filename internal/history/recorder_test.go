package history

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/streetsync/launchpad-engine/internal/events"
	"github.com/streetsync/launchpad-engine/internal/storage/models"
)

// memStore is an in-memory Storage for tests.
type memStore struct {
	mu      sync.Mutex
	saved   []*models.Transition
	failAll bool
}

func (m *memStore) SaveTransition(_ context.Context, t *models.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errors.New("storage down")
	}
	m.saved = append(m.saved, t)
	return nil
}

func (m *memStore) GetTransition(context.Context, string) (*models.Transition, error) {
	return nil, errors.New("not implemented")
}

func (m *memStore) ListTransitions(context.Context, string, int, int) ([]*models.Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Transition(nil), m.saved...), nil
}

func (m *memStore) RunMigrations() error { return nil }

func sig(t *testing.T) solana.Signature {
	t.Helper()
	var raw [64]byte
	raw[0] = 1
	return solana.SignatureFromBytes(raw[:])
}

func TestRecorderPersistsTradeEvents(t *testing.T) {
	bus := newTestBus(t)
	store := &memStore{}
	rec := NewRecorder(bus, store, zap.NewNop())
	defer func() { _ = rec.Close() }()

	mint := solana.NewWallet().PublicKey()
	buyer := solana.NewWallet().PublicKey()

	require.NoError(t, bus.PublishSync(context.Background(), &events.CurveTradeEvent{
		BaseEvent: events.NewBase(events.CurveTrade),
		Signature: sig(t),
		Mint:      mint,
		Buyer:     buyer,
		Amount:    1_000_000,
		Cost:      28,
	}))

	require.Len(t, store.saved, 1)
	got := store.saved[0]
	assert.Equal(t, models.KindCurveBuy, got.Kind)
	assert.Equal(t, mint.String(), got.Mint)
	assert.Equal(t, buyer.String(), got.Actor)
	assert.Equal(t, uint64(1_000_000), got.Amount)
	assert.Equal(t, uint64(28), got.Lamports)
}

func TestRecorderPersistsSaleWithCounterparty(t *testing.T) {
	bus := newTestBus(t)
	store := &memStore{}
	rec := NewRecorder(bus, store, zap.NewNop())
	defer func() { _ = rec.Close() }()

	seller := solana.NewWallet().PublicKey()
	buyer := solana.NewWallet().PublicKey()

	require.NoError(t, bus.PublishSync(context.Background(), &events.ListingSoldEvent{
		BaseEvent: events.NewBase(events.ListingSold),
		Signature: sig(t),
		Mint:      solana.NewWallet().PublicKey(),
		Seller:    seller,
		Buyer:     buyer,
		Price:     5_000_000_000,
		Fee:       100_000_000,
	}))

	require.Len(t, store.saved, 1)
	got := store.saved[0]
	assert.Equal(t, models.KindListingSold, got.Kind)
	assert.Equal(t, buyer.String(), got.Actor)
	assert.Equal(t, seller.String(), got.Counterparty)
	assert.Equal(t, uint64(100_000_000), got.Fee)
}

func TestRecorderSwallowsStorageErrors(t *testing.T) {
	bus := newTestBus(t)
	store := &memStore{failAll: true}
	rec := NewRecorder(bus, store, zap.NewNop())
	defer func() { _ = rec.Close() }()

	// A storage failure never propagates to the publisher.
	err := bus.PublishSync(context.Background(), &events.ListingCreatedEvent{
		BaseEvent: events.NewBase(events.ListingCreated),
		Signature: sig(t),
		Mint:      solana.NewWallet().PublicKey(),
		Seller:    solana.NewWallet().PublicKey(),
		Price:     1_000,
	})
	assert.NoError(t, err)
	assert.Empty(t, store.saved)
}

func TestRecorderCloseStopsRecording(t *testing.T) {
	bus := newTestBus(t)
	store := &memStore{}
	rec := NewRecorder(bus, store, zap.NewNop())
	require.NoError(t, rec.Close())

	require.NoError(t, bus.PublishSync(context.Background(), &events.CurveInitializedEvent{
		BaseEvent: events.NewBase(events.CurveInitialized),
		Signature: sig(t),
		Mint:      solana.NewWallet().PublicKey(),
	}))
	assert.Empty(t, store.saved)
}

func newTestBus(t *testing.T) *events.Bus {
	t.Helper()
	bus := events.NewBus(zap.NewNop(), 16)
	t.Cleanup(func() { _ = bus.Shutdown(context.Background()) })
	return bus
}
