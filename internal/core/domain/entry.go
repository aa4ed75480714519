package domain

import "time"

// LedgerEntry is one immutable, append-only balance movement on a single
// account. The sequence of entries for an account must sum to its current
// balance (the reconciliation invariant).
type LedgerEntry struct {
	EntryID   string `json:"entryID"`   // Primary key (UUID)
	AccountID string `json:"accountID"` // FK -> accounts
	// Sequence is monotonic and unique per account, starting at 1.
	Sequence int64 `json:"sequence"`
	// Delta is the signed balance change applied by this entry.
	Delta Money `json:"delta"`
	// ResultingBalance is the account balance immediately after the delta.
	ResultingBalance Money     `json:"resultingBalance"`
	OperationID      string    `json:"operationID"` // FK -> operations
	CreatedAt        time.Time `json:"createdAt"`
}
