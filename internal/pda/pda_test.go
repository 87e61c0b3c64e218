package pda

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivationsAreDeterministic(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	seller := solana.NewWallet().PublicKey()

	c1, bump1, err := BondingCurve(mint)
	require.NoError(t, err)
	c2, bump2, err := BondingCurve(mint)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
	assert.Equal(t, bump1, bump2)

	l1, _, err := Listing(mint, seller)
	require.NoError(t, err)
	l2, _, err := Listing(mint, seller)
	require.NoError(t, err)
	assert.Equal(t, l1, l2)
}

func TestNamespacesDoNotCollide(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	seller := solana.NewWallet().PublicKey()

	curve, _, err := BondingCurve(mint)
	require.NoError(t, err)
	listing, _, err := Listing(mint, seller)
	require.NoError(t, err)
	escrow, _, err := Escrow(mint, seller)
	require.NoError(t, err)

	// Same inputs, different seed prefixes, different addresses.
	assert.NotEqual(t, listing, escrow)
	assert.NotEqual(t, curve, listing)
	assert.NotEqual(t, curve, escrow)
}

func TestDistinctKeysDistinctAddresses(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	sellerA := solana.NewWallet().PublicKey()
	sellerB := solana.NewWallet().PublicKey()

	la, _, err := Listing(mint, sellerA)
	require.NoError(t, err)
	lb, _, err := Listing(mint, sellerB)
	require.NoError(t, err)
	assert.NotEqual(t, la, lb, "listing key is per (mint, seller)")
}

func TestVaultIsCurveHolding(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	curve, _, err := BondingCurve(mint)
	require.NoError(t, err)

	vault, err := CurveVault(curve, mint)
	require.NoError(t, err)

	holding, err := HoldingAccount(curve, mint)
	require.NoError(t, err)
	assert.Equal(t, holding, vault, "the vault is the curve's own holding account")
}
