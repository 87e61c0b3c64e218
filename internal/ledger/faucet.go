package ledger

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

// Faucet helpers used by the dev binary and test fixtures to seed state the
// engines themselves never create: wallet lamports and initial token supply.

// Airdrop credits lamports to addr, creating the wallet if needed.
func (l *Ledger) Airdrop(addr solana.PublicKey, lamports uint64) error {
	for {
		view := l.View()
		acct, ok := view.Account(addr)
		if !ok {
			acct = NewWallet(0)
		}
		acct.Lamports += lamports

		tx := view.Begin()
		tx.Put(addr, acct)
		if _, err := l.Commit(tx); !errors.Is(err, ErrVersionConflict) {
			return err
		}
	}
}

// MintTo credits amount units of mint to the token account at addr, creating
// it with the given authority if needed.
func (l *Ledger) MintTo(addr, mint, authority solana.PublicKey, amount uint64) error {
	for {
		view := l.View()
		ta, ok, err := view.TokenAccountAt(addr)
		if err != nil {
			return err
		}
		if !ok {
			ta = TokenAccount{Mint: mint, Authority: authority}
		}
		ta.Amount += amount

		tx := view.Begin()
		if err := tx.PutTokenAccount(addr, ta); err != nil {
			return err
		}
		if _, err := l.Commit(tx); !errors.Is(err, ErrVersionConflict) {
			return err
		}
	}
}
