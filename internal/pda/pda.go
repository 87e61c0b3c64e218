// ==============================================
// File: internal/pda/pda.go
// ==============================================

// Package pda derives the deterministic addresses the protocol uses instead
// of foreign keys: one bonding curve per mint, one listing and one escrow per
// (mint, seller), and associated token addresses for custody vaults and user
// holdings. Each derived address has exactly one legitimate owner record.
package pda

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// LaunchpadProgramID namespaces bonding-curve accounts.
	LaunchpadProgramID = solana.MustPublicKeyFromBase58("5k5WjHFfW8WUY3VXaJKKyuiFSwt4fowY78gnNJHeE1eV")

	// MarketplaceProgramID namespaces listing and escrow accounts.
	MarketplaceProgramID = solana.MustPublicKeyFromBase58("3obPCCswxLT51VpKhY8KgG83geqv4HFPe2oBAEZYDbYY")
)

const (
	seedBondingCurve = "bonding_curve"
	seedListing      = "listing"
	seedEscrow       = "escrow"
)

// BondingCurve returns the curve account address for a mint.
func BondingCurve(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedBondingCurve), mint.Bytes()},
		LaunchpadProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive bonding curve address: %w", err)
	}
	return addr, bump, nil
}

// CurveVault returns the token custody vault for a curve: the curve PDA's
// associated token account for the mint.
func CurveVault(curve, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(curve, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive curve vault address: %w", err)
	}
	return addr, nil
}

// Listing returns the listing account address for a (mint, seller) pair.
func Listing(mint, seller solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedListing), mint.Bytes(), seller.Bytes()},
		MarketplaceProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive listing address: %w", err)
	}
	return addr, bump, nil
}

// Escrow returns the escrow token account address for a (mint, seller) pair.
func Escrow(mint, seller solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedEscrow), mint.Bytes(), seller.Bytes()},
		MarketplaceProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive escrow address: %w", err)
	}
	return addr, bump, nil
}

// HoldingAccount returns a wallet's associated token account for a mint.
func HoldingAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive holding account: %w", err)
	}
	return addr, nil
}
