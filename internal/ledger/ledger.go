// ==============================================
// File: internal/ledger/ledger.go
// ==============================================
package ledger

import (
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Ledger is an in-process stand-in for the transaction substrate: a versioned
// account store with snapshot reads and compare-and-swap commits. Every
// account key carries a version that is bumped on each committed write, so a
// transaction built from a stale view is rejected with ErrVersionConflict
// instead of silently overwriting concurrent state.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey]*record
	logger   *zap.Logger
}

type record struct {
	account Account
	version uint64
	deleted bool
}

// New creates an empty ledger.
func New(logger *zap.Logger) *Ledger {
	return &Ledger{
		accounts: make(map[solana.PublicKey]*record),
		logger:   logger.Named("ledger"),
	}
}

// View returns a consistent read view over the ledger. Every account the
// caller reads through the view has its version recorded; a later Commit of a
// transaction built from the view verifies all of those versions before
// applying any write.
func (l *Ledger) View() *View {
	return &View{
		ledger:   l,
		observed: make(map[solana.PublicKey]uint64),
	}
}

// View is a read handle over the ledger. Reads are served from live state
// under a read lock; the view only remembers which versions were seen, it
// does not pin them.
type View struct {
	ledger   *Ledger
	observed map[solana.PublicKey]uint64
}

// Account returns a copy of the account at addr, or ok=false if it does not
// exist. Absent accounts are observed at version zero so that a concurrent
// creation of the same key is detected at commit time.
func (v *View) Account(addr solana.PublicKey) (Account, bool) {
	v.ledger.mu.RLock()
	defer v.ledger.mu.RUnlock()

	rec, ok := v.ledger.accounts[addr]
	if !ok {
		v.observed[addr] = 0
		return Account{}, false
	}
	v.observed[addr] = rec.version
	if rec.deleted {
		return Account{}, false
	}
	return rec.account.Clone(), true
}

// Lamports returns the lamport balance at addr, zero if the account is absent.
func (v *View) Lamports(addr solana.PublicKey) uint64 {
	acct, ok := v.Account(addr)
	if !ok {
		return 0
	}
	return acct.Lamports
}

// Transaction is an atomic write set built against a View. All writes either
// commit together or not at all.
type Transaction struct {
	view    *View
	writes  map[solana.PublicKey]writeOp
	ordered []solana.PublicKey
}

type writeOp struct {
	account Account
	delete  bool
}

// Begin starts a transaction against the view.
func (v *View) Begin() *Transaction {
	return &Transaction{
		view:   v,
		writes: make(map[solana.PublicKey]writeOp),
	}
}

// Put stages a create-or-replace of the account at addr.
func (tx *Transaction) Put(addr solana.PublicKey, acct Account) {
	if _, seen := tx.writes[addr]; !seen {
		tx.ordered = append(tx.ordered, addr)
	}
	tx.writes[addr] = writeOp{account: acct}
}

// Delete stages removal of the account at addr (account close).
func (tx *Transaction) Delete(addr solana.PublicKey) {
	if _, seen := tx.writes[addr]; !seen {
		tx.ordered = append(tx.ordered, addr)
	}
	tx.writes[addr] = writeOp{delete: true}
}

// Commit atomically applies the transaction. It fails with ErrVersionConflict
// if any account observed through the originating view has been written since
// it was read; in that case nothing is applied and the caller is expected to
// rebuild the transaction from a fresh view and retry.
func (l *Ledger) Commit(tx *Transaction) (solana.Signature, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for addr, seen := range tx.view.observed {
		var current uint64
		if rec, ok := l.accounts[addr]; ok {
			current = rec.version
		}
		if current != seen {
			l.logger.Debug("commit rejected on version conflict",
				zap.String("address", addr.String()),
				zap.Uint64("observed", seen),
				zap.Uint64("current", current))
			return solana.Signature{}, fmt.Errorf("account %s changed since read: %w", addr, ErrVersionConflict)
		}
	}

	for _, addr := range tx.ordered {
		op := tx.writes[addr]
		next := uint64(1)
		if rec, ok := l.accounts[addr]; ok {
			next = rec.version + 1
		}
		if op.delete {
			// Closed accounts leave a tombstone so the key's version stays
			// monotonic across close/recreate cycles.
			l.accounts[addr] = &record{version: next, deleted: true}
			continue
		}
		l.accounts[addr] = &record{account: op.account, version: next}
	}

	return newSignature()
}

// Scan visits every live account owned by the given program, in no
// particular order. The callback receives copies; returning false stops the
// scan. Scans are not versioned reads — callers wanting transactional
// consistency must re-read through a View.
func (l *Ledger) Scan(owner solana.PublicKey, fn func(addr solana.PublicKey, acct Account) bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for addr, rec := range l.accounts {
		if rec.deleted || !rec.account.Owner.Equals(owner) {
			continue
		}
		if !fn(addr, rec.account.Clone()) {
			return
		}
	}
}

// newSignature fabricates a transaction signature for a committed transition.
func newSignature() (solana.Signature, error) {
	var raw [64]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to generate signature: %w", err)
	}
	return solana.SignatureFromBytes(raw[:]), nil
}
