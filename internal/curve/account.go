// =============================
// File: internal/curve/account.go
// =============================
package curve

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// BondingCurve is the persisted curve state, one account per mint.
// Creator and Mint are immutable after initialization; the three reserve
// fields advance only through Buy. Bump is the derivation salt for the
// account address.
type BondingCurve struct {
	Creator              solana.PublicKey
	Mint                 solana.PublicKey
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealTokenReserves    uint64
	Bump                 uint8
}

// Exhausted reports whether the curve has no real tokens left for sale.
// There is no transition back: exhausted curves persist and reject buys.
func (c BondingCurve) Exhausted() bool {
	return c.RealTokenReserves == 0
}

// Quote prices a purchase of amount tokens against the current reserves
// without mutating anything. It enforces both liquidity bounds: the real
// reserve (cannot sell more than remains) and the virtual reserve (the
// constant-product price is unbounded at the pool edge).
func (c BondingCurve) Quote(amount uint64) (BuyQuote, error) {
	if amount == 0 {
		return BuyQuote{}, ErrInvalidAmount
	}
	if amount > c.RealTokenReserves {
		return BuyQuote{}, ErrInsufficientReserves
	}
	return buyCost(c.VirtualSolReserves, c.VirtualTokenReserves, amount)
}

// accountDiscriminator tags curve account data, Anchor-style.
var accountDiscriminator = func() [8]byte {
	var d [8]byte
	sum := sha256.Sum256([]byte("account:BondingCurve"))
	copy(d[:], sum[:8])
	return d
}()

// Encode serializes the curve state with its discriminator prefix.
func (c BondingCurve) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(accountDiscriminator[:])
	if err := bin.NewBorshEncoder(buf).Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode bonding curve: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBondingCurve deserializes curve account data, verifying the
// discriminator.
func DecodeBondingCurve(data []byte) (BondingCurve, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], accountDiscriminator[:]) {
		return BondingCurve{}, fmt.Errorf("data is not a bonding curve account")
	}
	var c BondingCurve
	if err := bin.NewBorshDecoder(data[8:]).Decode(&c); err != nil {
		return BondingCurve{}, fmt.Errorf("failed to decode bonding curve: %w", err)
	}
	return c, nil
}
