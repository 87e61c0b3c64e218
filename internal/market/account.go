// =============================
// File: internal/market/account.go
// =============================
package market

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// ListingAccount is the persisted listing state, one per (mint, seller) pair.
// The escrow token account derived from the same pair holds exactly one unit
// of the mint while the listing is live.
type ListingAccount struct {
	Seller solana.PublicKey
	Mint   solana.PublicKey
	Price  uint64
	Bump   uint8
}

var accountDiscriminator = func() [8]byte {
	var d [8]byte
	sum := sha256.Sum256([]byte("account:ListingAccount"))
	copy(d[:], sum[:8])
	return d
}()

// Encode serializes the listing with its discriminator prefix.
func (l ListingAccount) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(accountDiscriminator[:])
	if err := bin.NewBorshEncoder(buf).Encode(l); err != nil {
		return nil, fmt.Errorf("failed to encode listing: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeListing deserializes listing account data, verifying the
// discriminator.
func DecodeListing(data []byte) (ListingAccount, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], accountDiscriminator[:]) {
		return ListingAccount{}, fmt.Errorf("data is not a listing account")
	}
	var l ListingAccount
	if err := bin.NewBorshDecoder(data[8:]).Decode(&l); err != nil {
		return ListingAccount{}, fmt.Errorf("failed to decode listing: %w", err)
	}
	return l, nil
}
