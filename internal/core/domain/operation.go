package domain

import "time"

// OperationKind tags the logical unit of work an operation performed.
type OperationKind string

const (
	OpDeposit          OperationKind = "DEPOSIT"
	OpWithdrawal       OperationKind = "WITHDRAWAL"
	OpTransfer         OperationKind = "TRANSFER"
	OpLoanDisbursement OperationKind = "LOAN_DISBURSEMENT"
	OpLoanRepayment    OperationKind = "LOAN_REPAYMENT"
)

// OperationStatus is the terminal outcome of an operation.
type OperationStatus string

const (
	OpCommitted OperationStatus = "COMMITTED"
	OpFailed    OperationStatus = "FAILED"
)

// Operation identifies one atomic unit of money movement. All ledger entries
// belonging to one operation commit together or none do. Committed operations
// form the audit log, totally ordered by SequenceNo.
type Operation struct {
	OperationID string        `json:"operationID"` // Primary key (UUID)
	Kind        OperationKind `json:"kind"`
	// IdempotencyKey is caller-supplied; a repeated call with a previously
	// committed key returns the original result without re-applying the effect.
	IdempotencyKey string          `json:"idempotencyKey"`
	Status         OperationStatus `json:"status"`
	FailureReason  string          `json:"failureReason,omitempty"`
	// SequenceNo is the global monotonic position in the audit log, assigned
	// at commit.
	SequenceNo int64     `json:"sequenceNo"`
	EntryIDs   []string  `json:"entryIDs"`
	CreatedAt  time.Time `json:"createdAt"`
	CreatedBy  string    `json:"createdBy"`
}

// OperationResult is what the coordinator hands back to callers: the committed
// operation plus the balances it produced, keyed by account id.
type OperationResult struct {
	Operation Operation        `json:"operation"`
	Balances  map[string]Money `json:"balances"`
	// Replayed is true when the result was served from a previously committed
	// operation with the same idempotency key.
	Replayed bool `json:"replayed"`
}
