package ledger

import "errors"

var (
	// ErrVersionConflict means an account observed by the transaction's view
	// was written between read and commit. Retryable: rebuild from a fresh
	// view and resubmit.
	ErrVersionConflict = errors.New("version conflict")
)
