// ==============================================
// File: internal/ledger/types.go
// ==============================================
package ledger

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Account mirrors the substrate's account model: a lamport balance, the
// program that owns the account, and opaque program-defined data. Plain
// wallets are system-owned accounts with no data.
type Account struct {
	Lamports uint64
	Owner    solana.PublicKey
	Data     []byte
}

// NewWallet creates a system-owned account holding lamports.
func NewWallet(lamports uint64) Account {
	return Account{
		Lamports: lamports,
		Owner:    solana.SystemProgramID,
	}
}

// Clone returns a deep copy of the account.
func (a Account) Clone() Account {
	out := a
	if a.Data != nil {
		out.Data = make([]byte, len(a.Data))
		copy(out.Data, a.Data)
	}
	return out
}

// TokenAccount is the custody primitive: a holding account for amount units
// of a single mint, controlled by an authority (a wallet or a program-derived
// address acting as escrow/vault authority).
type TokenAccount struct {
	Mint      solana.PublicKey
	Authority solana.PublicKey
	Amount    uint64
}

// EncodeTokenAccount serializes a token account into ledger account data.
func EncodeTokenAccount(ta TokenAccount) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(ta); err != nil {
		return nil, fmt.Errorf("failed to encode token account: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeTokenAccount deserializes token account data.
func DecodeTokenAccount(data []byte) (TokenAccount, error) {
	var ta TokenAccount
	if err := bin.NewBorshDecoder(data).Decode(&ta); err != nil {
		return TokenAccount{}, fmt.Errorf("failed to decode token account: %w", err)
	}
	return ta, nil
}

// TokenAccountAt reads and decodes the token account at addr through the
// view. Returns ok=false if the account does not exist; an error only if the
// account exists but is not a token account.
func (v *View) TokenAccountAt(addr solana.PublicKey) (TokenAccount, bool, error) {
	acct, ok := v.Account(addr)
	if !ok {
		return TokenAccount{}, false, nil
	}
	if !acct.Owner.Equals(solana.TokenProgramID) {
		return TokenAccount{}, false, fmt.Errorf("account %s is not token-program owned", addr)
	}
	ta, err := DecodeTokenAccount(acct.Data)
	if err != nil {
		return TokenAccount{}, false, err
	}
	return ta, true, nil
}

// PutTokenAccount stages a token account write at addr.
func (tx *Transaction) PutTokenAccount(addr solana.PublicKey, ta TokenAccount) error {
	data, err := EncodeTokenAccount(ta)
	if err != nil {
		return err
	}
	tx.Put(addr, Account{Owner: solana.TokenProgramID, Data: data})
	return nil
}

// WalletSet hands out mutable wallet copies read through one view, exactly
// one copy per address no matter how often it is requested. Lamport moves go
// through a set so that a debit and a credit hitting the same address (a
// self-purchase) net on a single copy; with independent copies the second
// staged write would silently drop the first.
type WalletSet struct {
	view  *View
	order []solana.PublicKey
	accts map[solana.PublicKey]*Account
}

// Wallets starts an empty wallet set over the view.
func (v *View) Wallets() *WalletSet {
	return &WalletSet{
		view:  v,
		accts: make(map[solana.PublicKey]*Account),
	}
}

// Get returns the shared mutable copy of the wallet at addr, reading it
// through the view on first use. Absent accounts come back as empty wallets;
// their zero version is still observed for commit-time verification.
func (ws *WalletSet) Get(addr solana.PublicKey) *Account {
	if acct, seen := ws.accts[addr]; seen {
		return acct
	}
	acct, ok := ws.view.Account(addr)
	if !ok {
		acct = NewWallet(0)
	}
	ws.accts[addr] = &acct
	ws.order = append(ws.order, addr)
	return &acct
}

// Stage writes every wallet in the set into the transaction, in first-use
// order.
func (ws *WalletSet) Stage(tx *Transaction) {
	for _, addr := range ws.order {
		tx.Put(addr, *ws.accts[addr])
	}
}
