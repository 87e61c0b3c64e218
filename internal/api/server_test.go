package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/streetsync/launchpad-engine/internal/curve"
	"github.com/streetsync/launchpad-engine/internal/ledger"
	"github.com/streetsync/launchpad-engine/internal/market"
	"github.com/streetsync/launchpad-engine/internal/pda"
	"github.com/streetsync/launchpad-engine/internal/storage/models"
)

type testEnv struct {
	server *Server
	ledger *ledger.Ledger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	l := ledger.New(logger)
	curves := curve.NewEngine(l, nil, logger)
	mkt := market.NewEngine(l, market.Params{
		Treasury:           solana.NewWallet().PublicKey(),
		ListingFeeLamports: 10_000_000,
		FeeBasisPoints:     200,
	}, nil, logger)
	return &testEnv{
		server: NewServer(":0", curves, mkt, nil, logger),
		ledger: l,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// seedCurve funds a creator, mints supply into its holding account and
// initializes a curve through the API.
func (e *testEnv) seedCurve(t *testing.T, vSol, vTok, real uint64) (creator, mint solana.PublicKey) {
	t.Helper()
	creator = solana.NewWallet().PublicKey()
	mint = solana.NewWallet().PublicKey()
	require.NoError(t, e.ledger.Airdrop(creator, 1_000_000_000))
	if real > 0 {
		holding, err := pda.HoldingAccount(creator, mint)
		require.NoError(t, err)
		require.NoError(t, e.ledger.MintTo(holding, mint, creator, real))
	}

	w := e.do(t, http.MethodPost, "/api/curves", InitializeCurveRequest{
		Creator:              creator.String(),
		Mint:                 mint.String(),
		VirtualSolReserves:   vSol,
		VirtualTokenReserves: vTok,
		RealTokenReserves:    real,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return creator, mint
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestCurveLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	_, mint := env.seedCurve(t, 30_000_000_000, 1_073_000_000_000_000, 800_000_000_000_000)

	w := env.do(t, http.MethodGet, "/api/curves/"+mint.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeJSON(t, w)
	assert.Equal(t, mint.String(), got["mint"])
	assert.Equal(t, false, got["exhausted"])

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/curves/%s/quote?amount=1000000", mint), nil)
	require.Equal(t, http.StatusOK, w.Code)
	quote := decodeJSON(t, w)
	assert.Equal(t, float64(28), quote["cost_lamports"])

	buyer := solana.NewWallet().PublicKey()
	require.NoError(t, env.ledger.Airdrop(buyer, 1_000_000_000))
	w = env.do(t, http.MethodPost, "/api/curves/"+mint.String()+"/buy", CurveBuyRequest{
		Buyer:  buyer.String(),
		Amount: 1_000_000,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	trade := decodeJSON(t, w)
	assert.Equal(t, float64(28), trade["cost_lamports"])
	assert.NotEmpty(t, trade["signature"])

	w = env.do(t, http.MethodGet, "/api/curves", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var curves []CurveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &curves))
	require.Len(t, curves, 1)
	assert.Equal(t, uint64(30_000_000_028), curves[0].VirtualSolReserves)
}

func TestCurveErrorStatuses(t *testing.T) {
	env := newTestEnv(t)

	// Unknown mint.
	w := env.do(t, http.MethodGet, "/api/curves/"+solana.NewWallet().PublicKey().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Malformed mint.
	w = env.do(t, http.MethodGet, "/api/curves/not-base58", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, mint := env.seedCurve(t, 1_000_000, 10_000, 1_000)

	// Duplicate initialization.
	creator := solana.NewWallet().PublicKey()
	require.NoError(t, env.ledger.Airdrop(creator, 1))
	w = env.do(t, http.MethodPost, "/api/curves", InitializeCurveRequest{
		Creator:              creator.String(),
		Mint:                 mint.String(),
		VirtualSolReserves:   1_000_000,
		VirtualTokenReserves: 10_000,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Underfunded buyer.
	broke := solana.NewWallet().PublicKey()
	w = env.do(t, http.MethodPost, "/api/curves/"+mint.String()+"/buy", CurveBuyRequest{
		Buyer:  broke.String(),
		Amount: 100,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, false, body["retryable"])
}

func TestListingLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	mint := solana.NewWallet().PublicKey()
	seller := solana.NewWallet().PublicKey()
	require.NoError(t, env.ledger.Airdrop(seller, 1_000_000_000))
	holding, err := pda.HoldingAccount(seller, mint)
	require.NoError(t, err)
	require.NoError(t, env.ledger.MintTo(holding, mint, seller, 1))

	w := env.do(t, http.MethodPost, "/api/listings", ListRequest{
		Seller: seller.String(),
		Mint:   mint.String(),
		Price:  5_000_000_000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/listings?seller="+seller.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listings []ListingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listings))
	require.Len(t, listings, 1)
	assert.Equal(t, "5", listings[0].PriceSol)

	// A stranger cannot cancel.
	key := mint.String() + "/" + seller.String()
	w = env.do(t, http.MethodPost, "/api/listings/"+key+"/cancel", CancelRequest{
		Caller: solana.NewWallet().PublicKey().String(),
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	buyer := solana.NewWallet().PublicKey()
	require.NoError(t, env.ledger.Airdrop(buyer, 6_000_000_000))
	w = env.do(t, http.MethodPost, "/api/listings/"+key+"/buy", ListingBuyRequest{
		Buyer: buyer.String(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sale := decodeJSON(t, w)
	assert.Equal(t, float64(5_000_000_000), sale["price_lamports"])
	assert.Equal(t, float64(100_000_000), sale["fee_lamports"])

	// Sold out: the key now 404s for both buy and cancel.
	w = env.do(t, http.MethodPost, "/api/listings/"+key+"/buy", ListingBuyRequest{
		Buyer: buyer.String(),
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryUnavailableWithoutStorage(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/history", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = env.do(t, http.MethodGet, "/api/history/export", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// fakeStore backs the history endpoints in tests.
type fakeStore struct {
	transitions []*models.Transition
}

func (f *fakeStore) SaveTransition(_ context.Context, t *models.Transition) error {
	f.transitions = append(f.transitions, t)
	return nil
}

func (f *fakeStore) GetTransition(context.Context, string) (*models.Transition, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeStore) ListTransitions(_ context.Context, mint string, _, _ int) ([]*models.Transition, error) {
	if mint == "" {
		return f.transitions, nil
	}
	var out []*models.Transition
	for _, t := range f.transitions {
		if t.Mint == mint {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) RunMigrations() error { return nil }

func TestHistoryExport(t *testing.T) {
	logger := zap.NewNop()
	l := ledger.New(logger)
	store := &fakeStore{transitions: []*models.Transition{
		{Signature: "sig1", Kind: models.KindCurveBuy, Mint: "mintA", Actor: "buyer", Amount: 1_000_000, Lamports: 28},
		{Signature: "sig2", Kind: models.KindListingSold, Mint: "mintB", Actor: "buyer", Counterparty: "seller", Amount: 1, Lamports: 5_000_000_000, Fee: 100_000_000},
	}}
	env := &testEnv{
		server: NewServer(":0",
			curve.NewEngine(l, nil, logger),
			market.NewEngine(l, market.Params{Treasury: solana.NewWallet().PublicKey()}, nil, logger),
			store, logger),
		ledger: l,
	}

	w := env.do(t, http.MethodGet, "/api/history/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "transitions_all")
	assert.Contains(t, w.Body.String(), "sig1")
	assert.Contains(t, w.Body.String(), "sig2")

	w = env.do(t, http.MethodGet, "/api/history/export?format=csv&mint=mintB", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "sig1")

	w = env.do(t, http.MethodGet, "/api/history/export?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
